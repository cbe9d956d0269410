// Package validation aggregates field-level problems found while loading
// YAML documents so a user sees every issue in a file at once.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// Error captures a single field-specific validation issue.
type Error struct {
	File    string
	Field   string
	Message string
}

func (e Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// Errors aggregates multiple validation problems.
type Errors []Error

func (errs Errors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// Add appends a formatted issue for field in file.
func (errs *Errors) Add(file, field, format string, args ...any) {
	*errs = append(*errs, Error{
		File:    file,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err returns errs as an error, or nil when empty.
func (errs Errors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// As extracts Errors from err, if it carries any.
func As(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
