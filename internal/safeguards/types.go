package safeguards

import (
	"runplan/internal/decision"
)

// Severity decides what happens when a rule fires.
type Severity string

const (
	// SeverityBlock rejects the week; the caller must repropose.
	SeverityBlock Severity = "block"
	// SeverityCap clamps a numeric field and continues.
	SeverityCap Severity = "cap"
	// SeverityWarn annotates without changing values.
	SeverityWarn Severity = "warn"
)

// Rank orders severities: block > cap > warn.
func (s Severity) Rank() int {
	switch s {
	case SeverityBlock:
		return 3
	case SeverityCap:
		return 2
	case SeverityWarn:
		return 1
	default:
		return 0
	}
}

// Kind selects the evaluation function of a rule.
type Kind string

const (
	KindRampCap             Kind = "ramp_cap"
	KindInjuryHistoryRamp   Kind = "injury_history_ramp"
	KindMinRestDays         Kind = "min_rest_days"
	KindEasyIntensityCap    Kind = "easy_intensity_cap"
	KindHighRiskKeySessions Kind = "high_risk_key_sessions"
	KindLongRunShare        Kind = "long_run_share"
	KindLowDataQuality      Kind = "low_data_quality"
)

// Field names the proposal value a trigger bounds.
type Field string

const (
	FieldNone          Field = ""
	FieldVolumeKm      Field = "volume_km"
	FieldLongRunKm     Field = "long_run_km"
	FieldKeySessions   Field = "key_sessions"
	FieldRestDays      Field = "rest_days"
	FieldEasyIntensity Field = "easy_intensity"
)

// lowerBound reports whether the field's bound is a minimum rather than a
// maximum.
func (f Field) lowerBound() bool {
	return f == FieldRestDays
}

// Rule is a data descriptor; its behaviour comes from Kind.
type Rule struct {
	ID          string             `yaml:"id" json:"id"`
	Kind        Kind               `yaml:"kind" json:"kind"`
	Severity    Severity           `yaml:"severity" json:"severity"`
	Description string             `yaml:"description" json:"description"`
	Params      map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

func (r Rule) param(name string) float64 {
	if v, ok := r.Params[name]; ok {
		return v
	}
	return kindDefaults[r.Kind][name]
}

// WeekProposal is the part of a planned week the rules inspect.
// PreviousVolumeKm is the ramp baseline; zero disables ramp checks.
type WeekProposal struct {
	Week             int     `json:"week"`
	Phase            string  `json:"phase"`
	Taper            bool    `json:"taper"`
	PreviousVolumeKm float64 `json:"previous_volume_km"`
	VolumeKm         float64 `json:"volume_km"`
	LongRunKm        float64 `json:"long_run_km"`
	KeySessions      int     `json:"key_sessions"`
	RestDays         int     `json:"rest_days"`
	EasyIntensity    float64 `json:"easy_intensity"`
}

func (p WeekProposal) value(f Field) float64 {
	switch f {
	case FieldVolumeKm:
		return p.VolumeKm
	case FieldLongRunKm:
		return p.LongRunKm
	case FieldKeySessions:
		return float64(p.KeySessions)
	case FieldRestDays:
		return float64(p.RestDays)
	case FieldEasyIntensity:
		return p.EasyIntensity
	default:
		return 0
	}
}

func (p *WeekProposal) set(f Field, v float64) {
	switch f {
	case FieldVolumeKm:
		p.VolumeKm = v
	case FieldLongRunKm:
		p.LongRunKm = v
	case FieldKeySessions:
		p.KeySessions = int(v)
	case FieldRestDays:
		p.RestDays = int(v)
	case FieldEasyIntensity:
		p.EasyIntensity = v
	}
}

// Trigger records one rule firing against a proposal.
type Trigger struct {
	RuleID   string   `json:"rule_id"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Field    Field    `json:"field,omitempty"`
	Observed float64  `json:"observed"`
	Bound    float64  `json:"bound"`
	Message  string   `json:"message"`
}

// Outcome is the combined result of all rules for one proposal.
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeWarned  Outcome = "warned"
	OutcomeCapped  Outcome = "capped"
	OutcomeBlocked Outcome = "blocked"
)

// ValidationResult is what Validate returns. When Outcome is blocked,
// Adjusted equals the input proposal.
type ValidationResult struct {
	Adjusted  WeekProposal        `json:"adjusted"`
	Outcome   Outcome             `json:"outcome"`
	Triggers  []Trigger           `json:"triggers,omitempty"`
	Decisions []decision.Decision `json:"decisions,omitempty"`
}

// Blocked reports whether any block rule fired.
func (r ValidationResult) Blocked() bool {
	return r.Outcome == OutcomeBlocked
}

// BlockBound returns the tightest bound any block trigger set on field.
func (r ValidationResult) BlockBound(field Field) (float64, bool) {
	var bound float64
	found := false
	for _, t := range r.Triggers {
		if t.Severity != SeverityBlock || t.Field != field {
			continue
		}
		if !found || (field.lowerBound() && t.Bound > bound) || (!field.lowerBound() && t.Bound < bound) {
			bound = t.Bound
			found = true
		}
	}
	return bound, found
}
