package planner

import (
	"strings"

	"github.com/google/uuid"

	"runplan/internal/validation"
)

// ValidatePlan checks the structural invariants of a plan: weeks numbered
// 1..N, every week covered by exactly one phase, sessions inside the plan
// and the decision audit in sequence order. Every problem is reported.
func ValidatePlan(plan GeneratedPlan) error {
	file := "plan"
	if plan.ID != "" {
		file = "plan " + plan.ID
	}
	var errs validation.Errors

	if plan.SchemaVersion != PlanSchemaVersion {
		errs.Add(file, "schema_version", "unsupported schema version %d", plan.SchemaVersion)
	}
	if strings.TrimSpace(plan.ID) == "" {
		errs.Add(file, "id", "is required")
	} else if _, err := uuid.Parse(plan.ID); err != nil {
		errs.Add(file, "id", "is not a uuid: %v", err)
	}
	if strings.TrimSpace(plan.TemplateID) == "" {
		errs.Add(file, "template_id", "is required")
	}
	if plan.DurationWeeks < 1 {
		errs.Add(file, "duration_weeks", "must be at least 1")
	}
	if plan.PeakVolumeKm < 0 {
		errs.Add(file, "peak_volume_km", "must not be negative")
	}

	if len(plan.Weeks) != plan.DurationWeeks {
		errs.Add(file, "weeks", "has %d entries for a %d-week plan", len(plan.Weeks), plan.DurationWeeks)
	}
	for i, w := range plan.Weeks {
		if w.Week != i+1 {
			errs.Add(file, "weeks", "entry %d is numbered %d", i, w.Week)
		}
		if w.TargetVolumeKm < 0 {
			errs.Add(file, "weeks", "week %d target volume is negative", w.Week)
		}
	}

	covered := make([]int, plan.DurationWeeks+1)
	next := 1
	for _, span := range plan.SeasonView {
		if span.StartWeek != next || span.EndWeek < span.StartWeek {
			errs.Add(file, "season_view", "phase %s spans %d-%d, expected to start at %d", span.Name, span.StartWeek, span.EndWeek, next)
		}
		for wk := span.StartWeek; wk <= span.EndWeek; wk++ {
			if wk >= 1 && wk <= plan.DurationWeeks {
				covered[wk]++
			}
			if wk >= 1 && wk <= len(plan.Weeks) && plan.Weeks[wk-1].Phase != span.Name {
				errs.Add(file, "weeks", "week %d is tagged %s but the season view says %s", wk, plan.Weeks[wk-1].Phase, span.Name)
			}
		}
		next = span.EndWeek + 1
	}
	for wk := 1; wk <= plan.DurationWeeks; wk++ {
		if covered[wk] != 1 {
			errs.Add(file, "season_view", "week %d is covered by %d phases", wk, covered[wk])
		}
	}

	seen := make(map[[2]int]struct{}, len(plan.Sessions))
	for _, s := range plan.Sessions {
		if s.Week < 1 || s.Week > plan.DurationWeeks {
			errs.Add(file, "sessions", "session references week %d", s.Week)
		}
		if s.DayOfWeek < 1 || s.DayOfWeek > 7 {
			errs.Add(file, "sessions", "week %d session has day %d", s.Week, int(s.DayOfWeek))
		}
		key := [2]int{s.Week, int(s.DayOfWeek)}
		if _, dup := seen[key]; dup {
			errs.Add(file, "sessions", "week %d has two sessions on %s", s.Week, s.DayOfWeek)
		}
		seen[key] = struct{}{}
		if s.DistanceKm < 0 {
			errs.Add(file, "sessions", "week %d %s distance is negative", s.Week, s.DayOfWeek)
		}
	}

	for i, d := range plan.DecisionAudit {
		if d.Seq != i+1 {
			errs.Add(file, "decision_audit", "entry %d has seq %d", i, d.Seq)
		}
	}
	return errs.Err()
}
