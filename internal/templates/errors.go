package templates

import "fmt"

// InvalidDurationError reports a requested plan length outside a template's
// bounds. The caller must supply a corrected duration.
type InvalidDurationError struct {
	Goal       GoalType
	TemplateID string
	Requested  int
	MinWeeks   int
	MaxWeeks   int
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid duration for %s: %d weeks requested, %s accepts %d..%d",
		e.Goal, e.Requested, e.TemplateID, e.MinWeeks, e.MaxWeeks)
}

// UnknownGoalError reports a goal with no registered template.
type UnknownGoalError struct {
	Goal GoalType
}

func (e *UnknownGoalError) Error() string {
	return fmt.Sprintf("unknown goal %q", string(e.Goal))
}
