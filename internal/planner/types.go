package planner

import (
	"fmt"

	"runplan/internal/decision"
	"runplan/internal/profile"
	"runplan/internal/safeguards"
	"runplan/internal/templates"
)

// PlanSchemaVersion is written into every plan file.
const PlanSchemaVersion = 1

// GeneratedPlan is the complete output of one generation call. It is never
// mutated after Generate returns; regenerating produces a new plan.
type GeneratedPlan struct {
	SchemaVersion  int                    `json:"schema_version"`
	ID             string                 `json:"id"`
	TemplateID     string                 `json:"template_id"`
	Goal           templates.GoalType     `json:"goal"`
	DurationWeeks  int                    `json:"duration_weeks"`
	StartDate      string                 `json:"start_date,omitempty"`
	StateAsOf      string                 `json:"state_as_of,omitempty"`
	PeakVolumeKm   float64                `json:"peak_volume_km"`
	PeakWeek       int                    `json:"peak_week"`
	Weeks          []WeekPlan             `json:"weeks"`
	Sessions       []PlannedSession       `json:"sessions"`
	SeasonView     []PhaseSpan            `json:"season_view"`
	RunnerSnapshot profile.RunnerSnapshot `json:"runner_snapshot"`
	DecisionAudit  []decision.Decision    `json:"decision_audit"`
}

// WeekPlan is one week's targets. FormulaVolumeKm is what the template curve
// asked for; TargetVolumeKm is what was planned after safeguards.
type WeekPlan struct {
	Week             int                `json:"week"`
	Phase            string             `json:"phase"`
	StartDate        string             `json:"start_date,omitempty"`
	Taper            bool               `json:"taper,omitempty"`
	FormulaVolumeKm  float64            `json:"formula_volume_km"`
	TargetVolumeKm   float64            `json:"target_volume_km"`
	LongRunKm        float64            `json:"long_run_km"`
	KeySessions      int                `json:"key_sessions"`
	RestDays         int                `json:"rest_days"`
	EasyIntensity    float64            `json:"easy_intensity"`
	KeyIntensity     float64            `json:"key_intensity"`
	SafeguardOutcome safeguards.Outcome `json:"safeguard_outcome"`
	Attempts         int                `json:"attempts"`
}

// PlannedSession is a single run on a given day.
type PlannedSession struct {
	Week              int                   `json:"week"`
	DayOfWeek         profile.Day           `json:"day_of_week"`
	Date              string                `json:"date,omitempty"`
	SessionType       templates.SessionType `json:"session_type"`
	IsKey             bool                  `json:"is_key"`
	DistanceKm        float64               `json:"distance_km"`
	StructureSegments []Segment             `json:"structure_segments"`
}

// Segment kinds.
const (
	SegmentWarmup   = "warmup"
	SegmentMain     = "main"
	SegmentInterval = "interval"
	SegmentRecovery = "recovery"
	SegmentCooldown = "cooldown"
)

// Segment is one part of a session. Either DistanceKm or DurationMin is set.
// TargetIntensity is a fraction of max heart rate.
type Segment struct {
	Kind            string  `json:"kind"`
	Repeats         int     `json:"repeats,omitempty"`
	DistanceKm      float64 `json:"distance_km,omitempty"`
	DurationMin     float64 `json:"duration_min,omitempty"`
	TargetIntensity float64 `json:"target_intensity"`
}

// PhaseSpan is one labelled range of weeks in the season view.
type PhaseSpan struct {
	Name         string  `json:"name"`
	Focus        string  `json:"focus,omitempty"`
	StartWeek    int     `json:"start_week"`
	EndWeek      int     `json:"end_week"`
	IntensityMin float64 `json:"intensity_min"`
	IntensityMax float64 `json:"intensity_max"`
}

// Weeks returns the number of weeks in the span.
func (p PhaseSpan) Weeks() int {
	return p.EndWeek - p.StartWeek + 1
}

// SessionsForWeek returns the sessions planned in week, in day order.
func (p GeneratedPlan) SessionsForWeek(week int) []PlannedSession {
	var out []PlannedSession
	for _, s := range p.Sessions {
		if s.Week == week {
			out = append(out, s)
		}
	}
	return out
}

// Options tune the generator. Recent volume with confidence below
// MinVolumeConfidence is ignored in favour of the experience-only fallback.
// BlockShrinkFactor scales the volume increase after a block.
type Options struct {
	MinVolumeConfidence  float64
	MinDataQuality       float64
	MaxSafeguardAttempts int
	BlockShrinkFactor    float64
}

// DefaultOptions returns the stock generator options.
func DefaultOptions() Options {
	return Options{
		MinVolumeConfidence:  0.5,
		MinDataQuality:       0.3,
		MaxSafeguardAttempts: 3,
		BlockShrinkFactor:    0.5,
	}
}

// Validate rejects options the generator cannot terminate with.
func (o Options) Validate() error {
	if o.MinVolumeConfidence < 0 || o.MinVolumeConfidence > 1 {
		return fmt.Errorf("min volume confidence must be within [0, 1]")
	}
	if o.MinDataQuality < 0 || o.MinDataQuality > 1 {
		return fmt.Errorf("min data quality must be within [0, 1]")
	}
	if o.MaxSafeguardAttempts < 1 {
		return fmt.Errorf("max safeguard attempts must be at least 1")
	}
	if o.BlockShrinkFactor <= 0 || o.BlockShrinkFactor >= 1 {
		return fmt.Errorf("block shrink factor must be within (0, 1)")
	}
	return nil
}
