package planner

import (
	"fmt"
	"strings"
)

// Render produces a plain-text calendar of the plan: a header, the season
// view, then one block per week listing its sessions. The output depends
// only on the plan.
func Render(plan GeneratedPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "plan %s\n", plan.ID)
	fmt.Fprintf(&b, "template: %s (%s), %d weeks\n", plan.TemplateID, plan.Goal, plan.DurationWeeks)
	if plan.StartDate != "" {
		fmt.Fprintf(&b, "starts: %s (state as of %s)\n", plan.StartDate, plan.StateAsOf)
	}
	fmt.Fprintf(&b, "peak: %.2f km in week %d\n", plan.PeakVolumeKm, plan.PeakWeek)

	b.WriteString("\nseason:\n")
	for _, span := range plan.SeasonView {
		fmt.Fprintf(&b, "  %-14s weeks %2d-%-2d  intensity %.2f-%.2f", span.Name, span.StartWeek, span.EndWeek, span.IntensityMin, span.IntensityMax)
		if span.Focus != "" {
			fmt.Fprintf(&b, "  %s", span.Focus)
		}
		b.WriteString("\n")
	}

	for _, w := range plan.Weeks {
		fmt.Fprintf(&b, "\nweek %d [%s]", w.Week, w.Phase)
		if w.StartDate != "" {
			fmt.Fprintf(&b, " %s", w.StartDate)
		}
		if w.Taper {
			b.WriteString(" taper")
		}
		fmt.Fprintf(&b, "\n  volume %.2f km (formula %.2f), long run %.2f km, %d key, %d rest, safeguards %s",
			w.TargetVolumeKm, w.FormulaVolumeKm, w.LongRunKm, w.KeySessions, w.RestDays, w.SafeguardOutcome)
		if w.Attempts > 1 {
			fmt.Fprintf(&b, " after %d attempts", w.Attempts)
		}
		b.WriteString("\n")
		for _, s := range plan.SessionsForWeek(w.Week) {
			marker := " "
			if s.IsKey {
				marker = "*"
			}
			fmt.Fprintf(&b, "  %s %s %-13s %6.2f km  %s\n", marker, s.DayOfWeek, s.SessionType, s.DistanceKm, describeSegments(s.StructureSegments))
		}
	}
	return b.String()
}

func describeSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		var amount string
		switch {
		case s.DistanceKm > 0:
			amount = fmt.Sprintf("%.1fkm", s.DistanceKm)
		case s.DurationMin > 0:
			amount = fmt.Sprintf("%gmin", s.DurationMin)
		}
		if s.Repeats > 1 {
			amount = fmt.Sprintf("%dx%s", s.Repeats, amount)
		}
		parts = append(parts, fmt.Sprintf("%s %s @%.2f", s.Kind, amount, s.TargetIntensity))
	}
	return strings.Join(parts, ", ")
}
