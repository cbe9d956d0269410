package safeguards

import (
	"fmt"
	"sort"
	"strconv"

	"runplan/internal/decision"
	"runplan/internal/inference"
)

// StageSafeguard is the decision stage used for rule triggers.
const StageSafeguard = "safeguard"

// Validate runs rules against proposal in ascending ID order. Each cap
// applies to the working proposal before the next rule sees it. Every rule
// that fires yields exactly one decision. Rules must already have passed
// Check.
func Validate(state inference.RunnerState, proposal WeekProposal, rules []Rule) ValidationResult {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	working := proposal
	result := ValidationResult{Outcome: OutcomePass}
	worst := Severity("")

	for _, rule := range ordered {
		spec, ok := kindSpecs[rule.Kind]
		if !ok {
			continue
		}
		trig, fired := spec.check(rule, state, working)
		if !fired {
			continue
		}
		trig.RuleID = rule.ID
		trig.Kind = rule.Kind
		trig.Severity = rule.Severity
		trig.Field = spec.field
		result.Triggers = append(result.Triggers, trig)

		chosen := "annotated"
		switch rule.Severity {
		case SeverityCap:
			if spec.field != FieldNone {
				working.set(spec.field, trig.Bound)
				chosen = fmt.Sprintf("%s capped %s -> %s", spec.field, formatValue(trig.Observed), formatValue(trig.Bound))
			}
		case SeverityBlock:
			chosen = fmt.Sprintf("rejected %s %s (limit %s)", spec.field, formatValue(trig.Observed), formatValue(trig.Bound))
		}
		if rule.Severity.Rank() > worst.Rank() {
			worst = rule.Severity
		}

		rationale := trig.Message
		if rule.Description != "" {
			rationale = rule.Description + ": " + trig.Message
		}
		result.Decisions = append(result.Decisions, decision.Decision{
			Stage:            StageSafeguard,
			Week:             proposal.Week,
			Kind:             decision.KindSafeguard,
			Question:         fmt.Sprintf("rule %s (%s) on week %d", rule.ID, rule.Severity, proposal.Week),
			ChosenValue:      chosen,
			Rationale:        rationale,
			TriggeredRuleIDs: []string{rule.ID},
		})
	}

	switch worst {
	case SeverityBlock:
		result.Outcome = OutcomeBlocked
		result.Adjusted = proposal
	case SeverityCap:
		result.Outcome = OutcomeCapped
		result.Adjusted = working
	case SeverityWarn:
		result.Outcome = OutcomeWarned
		result.Adjusted = working
	default:
		result.Adjusted = working
	}
	return result
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
