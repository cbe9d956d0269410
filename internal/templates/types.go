package templates

import (
	"fmt"
	"strings"
)

// GoalType names the race or fitness goal a template serves.
type GoalType string

const (
	Goal5K           GoalType = "5k"
	Goal10K          GoalType = "10k"
	GoalHalfMarathon GoalType = "half_marathon"
	GoalMarathon     GoalType = "marathon"
	GoalBaseBuilding GoalType = "base_building"
)

// Goals lists the supported goals in catalog order.
func Goals() []GoalType {
	return []GoalType{Goal5K, Goal10K, GoalHalfMarathon, GoalMarathon, GoalBaseBuilding}
}

// ParseGoal accepts the canonical names plus hyphenated spellings.
func ParseGoal(value string) (GoalType, error) {
	norm := strings.ToLower(strings.TrimSpace(value))
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, g := range Goals() {
		if string(g) == norm {
			return g, nil
		}
	}
	return GoalType(value), &UnknownGoalError{Goal: GoalType(value)}
}

// Experience is the runner's self-declared experience level.
type Experience string

const (
	ExperienceBeginner  Experience = "beginner"
	ExperienceReturning Experience = "returning"
	ExperienceCasual    Experience = "casual"
	ExperienceSerious   Experience = "serious"
)

// ExperienceLevels lists every level a template must carry a modifier for.
func ExperienceLevels() []Experience {
	return []Experience{ExperienceBeginner, ExperienceReturning, ExperienceCasual, ExperienceSerious}
}

// ParseExperience validates an experience level string.
func ParseExperience(value string) (Experience, error) {
	norm := Experience(strings.ToLower(strings.TrimSpace(value)))
	for _, e := range ExperienceLevels() {
		if e == norm {
			return e, nil
		}
	}
	return Experience(value), fmt.Errorf("invalid experience %q (expected beginner, returning, casual, or serious)", value)
}

// SessionType identifies the kind of a planned run.
type SessionType string

const (
	SessionEasy         SessionType = "easy"
	SessionRecovery     SessionType = "recovery"
	SessionLongRun      SessionType = "long_run"
	SessionTempo        SessionType = "tempo"
	SessionIntervals    SessionType = "intervals"
	SessionHills        SessionType = "hills"
	SessionMarathonPace SessionType = "marathon_pace"
)

var knownSessionTypes = map[SessionType]struct{}{
	SessionEasy:         {},
	SessionRecovery:     {},
	SessionLongRun:      {},
	SessionTempo:        {},
	SessionIntervals:    {},
	SessionHills:        {},
	SessionMarathonPace: {},
}

// Phase is one periodization block. Intensities are fractions of max HR.
type Phase struct {
	Name          string  `json:"name"`
	PercentOfPlan float64 `json:"percent_of_plan"`
	Focus         string  `json:"focus"`
	IntensityMin  float64 `json:"intensity_min"`
	IntensityMax  float64 `json:"intensity_max"`
}

// WeeklyStructure is the shape of a normal training week.
type WeeklyStructure struct {
	KeySessionCount int           `json:"key_session_count"`
	EasyRunCount    int           `json:"easy_run_count"`
	RestDayCount    int           `json:"rest_day_count"`
	KeySessionTypes []SessionType `json:"key_session_types"`
}

// RunDays is the number of days carrying a run.
func (w WeeklyStructure) RunDays() int {
	return w.KeySessionCount + w.EasyRunCount
}

// VolumeGuidelines drive the weekly volume curve.
// PeakWeekIndex is 1-based when positive; zero or negative counts back from
// the final week, so -2 is two weeks before the end.
type VolumeGuidelines struct {
	StartPercentOfPeak    float64 `json:"start_percent_of_peak"`
	PeakWeekIndex         int     `json:"peak_week_index"`
	TaperReductionPercent float64 `json:"taper_reduction_percent"`
	TaperWeeks            int     `json:"taper_weeks"`
	PeakGrowthFactor      float64 `json:"peak_growth_factor"`
	FallbackPeakKm        float64 `json:"fallback_peak_km"`
}

// ExperienceModifier scales volume and intensity for an experience level.
type ExperienceModifier struct {
	VolumeMultiplier    float64 `json:"volume_multiplier"`
	IntensityMultiplier float64 `json:"intensity_multiplier"`
}

// Template is an immutable, goal-keyed periodization template.
type Template struct {
	ID               string                            `json:"id"`
	Goal             GoalType                          `json:"goal"`
	Name             string                            `json:"name"`
	MinWeeks         int                               `json:"min_weeks"`
	RecommendedWeeks int                               `json:"recommended_weeks"`
	MaxWeeks         int                               `json:"max_weeks"`
	Phases           []Phase                           `json:"phases"`
	Weekly           WeeklyStructure                   `json:"weekly_structure"`
	Volume           VolumeGuidelines                  `json:"volume_guidelines"`
	Modifiers        map[Experience]ExperienceModifier `json:"experience_modifiers"`
	Source           string                            `json:"-"`
}

// Modifier returns the modifier for exp. Unknown levels get the neutral
// modifier.
func (t Template) Modifier(exp Experience) ExperienceModifier {
	if m, ok := t.Modifiers[exp]; ok {
		return m
	}
	return ExperienceModifier{VolumeMultiplier: 1, IntensityMultiplier: 1}
}

// AcceptsWeeks reports whether weeks is within the template's bounds.
func (t Template) AcceptsWeeks(weeks int) bool {
	return weeks >= t.MinWeeks && weeks <= t.MaxWeeks
}

// clone returns a deep copy so callers cannot mutate registry state.
func (t Template) clone() Template {
	out := t
	out.Phases = append([]Phase(nil), t.Phases...)
	out.Weekly.KeySessionTypes = append([]SessionType(nil), t.Weekly.KeySessionTypes...)
	out.Modifiers = make(map[Experience]ExperienceModifier, len(t.Modifiers))
	for k, v := range t.Modifiers {
		out.Modifiers[k] = v
	}
	return out
}
