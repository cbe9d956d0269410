package validation

import (
	"fmt"
	"strings"
	"testing"
)

func TestErrorsAggregate(t *testing.T) {
	var errs Errors
	if errs.Err() != nil {
		t.Fatalf("empty errors should be nil")
	}
	errs.Add("a.yml", "weeks.min", "must be at least %d", 1)
	errs.Add("a.yml", "", "empty document")

	err := errs.Err()
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "a.yml: weeks.min: must be at least 1") {
		t.Fatalf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "a.yml: empty document") {
		t.Fatalf("unexpected message %q", msg)
	}

	wrapped := fmt.Errorf("load: %w", err)
	got, ok := As(wrapped)
	if !ok || len(got) != 2 {
		t.Fatalf("As(wrapped) = %v, %v", got, ok)
	}
}
