package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"runplan/internal/decision"
	"runplan/internal/inference"
	"runplan/internal/planner"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	blockColor   = color.New(color.FgRed, color.Bold)
	capColor     = color.New(color.FgYellow)
	warnColor    = color.New(color.FgCyan)
	fallbackClr  = color.New(color.FgMagenta)
	dimColor     = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen)
)

func printWarning(w io.Writer, msg string) {
	_, _ = capColor.Fprintf(w, "warning: %s\n", msg)
}

func riskColor(level inference.RiskLevel) *color.Color {
	switch level {
	case inference.RiskHigh:
		return blockColor
	case inference.RiskModerate:
		return capColor
	default:
		return successColor
	}
}

func printStateSummary(w io.Writer, st inference.RunnerState) {
	fmt.Fprint(w, "  injury risk: ")
	_, _ = riskColor(st.InjuryRisk.Value.Level).Fprintf(w, "%s", st.InjuryRisk.Value.Level)
	if factors := st.InjuryRisk.Value.ContributingFactors; len(factors) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(factors, ", "))
	}
	fmt.Fprintln(w)
	if v := st.RecentPatterns.Volume7d; v != nil {
		fmt.Fprintf(w, "  7-day volume: %.1f km (confidence %.2f)\n", v.Value, v.Confidence)
	}
	tl := st.TrainingLoad.Value
	fmt.Fprintf(w, "  load: acute %.1f, chronic %.1f, trend %s\n", tl.AcuteLoad, tl.ChronicLoad, tl.Trend)
	fmt.Fprintf(w, "  data quality: %.2f\n", st.DataQuality.Value)
	for _, warn := range st.Warnings {
		printWarning(w, fmt.Sprintf("%s: %s", warn.Metric, warn.Message))
	}
}

func printPlanSummary(w io.Writer, plan planner.GeneratedPlan) {
	fmt.Fprintf(w, "  %s, %d weeks", plan.TemplateID, plan.DurationWeeks)
	if plan.StartDate != "" {
		fmt.Fprintf(w, " from %s", plan.StartDate)
	}
	fmt.Fprintf(w, ", peak %.1f km in week %d\n", plan.PeakVolumeKm, plan.PeakWeek)
	ds := plan.DecisionAudit
	fmt.Fprintf(w, "  decisions: %d (%d safeguard, %d override, %d fallback)\n", len(ds),
		decision.CountKind(ds, decision.KindSafeguard),
		decision.CountKind(ds, decision.KindOverride),
		decision.CountKind(ds, decision.KindFallback))
}

// decisionColor picks a color from how the decision changed the plan.
// Safeguard decisions record "rejected ..." for blocks and "annotated" for
// warnings.
func decisionColor(d decision.Decision) *color.Color {
	switch d.Kind {
	case decision.KindSafeguard:
		switch {
		case strings.HasPrefix(d.ChosenValue, "rejected"):
			return blockColor
		case d.ChosenValue == "annotated":
			return warnColor
		default:
			return capColor
		}
	case decision.KindOverride:
		return capColor
	case decision.KindFallback:
		return fallbackClr
	default:
		return nil
	}
}

func printDecisions(w io.Writer, ds []decision.Decision) {
	_, _ = headerColor.Fprintln(w, "decision audit:")
	for _, d := range ds {
		scope := "plan"
		if d.Week > 0 {
			scope = fmt.Sprintf("wk %d", d.Week)
		}
		line := fmt.Sprintf("%3d [%s/%s] %-6s %s: %s", d.Seq, d.Stage, d.Kind, scope, d.Question, d.ChosenValue)
		if c := decisionColor(d); c != nil {
			_, _ = c.Fprintln(w, line)
		} else {
			fmt.Fprintln(w, line)
		}
		_, _ = dimColor.Fprintf(w, "      %s\n", d.Rationale)
	}
}

func printDiff(w io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			_, _ = headerColor.Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			_, _ = warnColor.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			_, _ = successColor.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			_, _ = blockColor.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}
