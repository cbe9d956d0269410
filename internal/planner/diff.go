package planner

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders both plans and returns a unified diff of the calendars. It is
// empty when the renders are identical.
func Diff(a, b GeneratedPlan) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(Render(a)),
		B:        difflib.SplitLines(Render(b)),
		FromFile: label(a),
		ToFile:   label(b),
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff plans: %w", err)
	}
	return out, nil
}

func label(p GeneratedPlan) string {
	return fmt.Sprintf("%s/%s/%dw", p.ID, p.TemplateID, p.DurationWeeks)
}
