package inference

import (
	"sort"
	"strings"
	"time"
)

// Inferred is a value together with how much it can be trusted and which
// records it was derived from.
type Inferred[T any] struct {
	Value        T         `json:"value"`
	Confidence   float64   `json:"confidence"`
	InferredFrom []string  `json:"inferred_from"`
	ComputedAt   time.Time `json:"computed_at"`
}

func newInferred[T any](value T, confidence float64, sources []string, at time.Time) *Inferred[T] {
	return &Inferred[T]{
		Value:        value,
		Confidence:   clamp(confidence, 0, 1),
		InferredFrom: canonicalSources(sources),
		ComputedAt:   at,
	}
}

// Trend classifies the direction of recent volume.
type Trend string

const (
	TrendBuilding    Trend = "building"
	TrendMaintaining Trend = "maintaining"
	TrendDeclining   Trend = "declining"
	TrendErratic     Trend = "erratic"
)

// RiskLevel is an ordered injury-risk severity.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Rank orders risk levels; unknown levels rank below low.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 1
	case RiskModerate:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether l is at or above other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Rank() >= other.Rank()
}

// Factor names recorded in InjuryRisk.ContributingFactors.
const (
	FactorRampRate          = "ramp_rate"
	FactorVolumeVariability = "volume_variability"
	FactorLowRestFrequency  = "low_rest_frequency"
	FactorInjuryHistory     = "injury_history"
	FactorPushesThroughPain = "pushes_through_pain"
)

// TrainingLoad is the fitness/fatigue model output.
// TrendConfidence is tracked separately because the trend needs at least
// three weeks of data while the load averages do not.
type TrainingLoad struct {
	AcuteLoad       float64 `json:"acute_load"`
	ChronicLoad     float64 `json:"chronic_load"`
	Balance         float64 `json:"balance"`
	Trend           Trend   `json:"trend"`
	TrendConfidence float64 `json:"trend_confidence"`
}

// InjuryRisk is the composite risk assessment.
type InjuryRisk struct {
	Level               RiskLevel `json:"level"`
	RampRatePercent     float64   `json:"ramp_rate_percent"`
	ContributingFactors []string  `json:"contributing_factors"`
}

// HasFactor reports whether the named factor contributed to the risk.
func (r InjuryRisk) HasFactor(name string) bool {
	for _, f := range r.ContributingFactors {
		if f == name {
			return true
		}
	}
	return false
}

// RecentPatterns summarises recent running volume (km) and rest behaviour.
type RecentPatterns struct {
	Volume7d          *Inferred[float64]   `json:"volume_7d,omitempty"`
	Volume28d         *Inferred[float64]   `json:"volume_28d,omitempty"`
	VolumeConsistency *Inferred[float64]   `json:"volume_consistency,omitempty"`
	RestDayFrequency  *Inferred[float64]   `json:"rest_day_frequency,omitempty"`
	LowRestWeeks      *Inferred[int]       `json:"low_rest_weeks,omitempty"`
	WeeklyVolumes     *Inferred[[]float64] `json:"weekly_volumes,omitempty"`
}

// PaceProfile holds median-based pace and long-run heuristics.
type PaceProfile struct {
	EasyPaceSecPerKm   *Inferred[float64] `json:"easy_pace_sec_per_km,omitempty"`
	EasyRunHR          *Inferred[float64] `json:"easy_run_hr,omitempty"`
	EasyAboveThreshold *Inferred[float64] `json:"easy_above_threshold,omitempty"`
	LongRunKm          *Inferred[float64] `json:"long_run_km,omitempty"`
	AerobicThresholdHR *Inferred[float64] `json:"aerobic_threshold_hr,omitempty"`
}

// Biometrics holds the latest body signals, each independently optional.
type Biometrics struct {
	RestingHR  *Inferred[float64] `json:"resting_hr,omitempty"`
	HRV        *Inferred[float64] `json:"hrv,omitempty"`
	Weight     *Inferred[float64] `json:"weight,omitempty"`
	SleepHours *Inferred[float64] `json:"sleep_hours,omitempty"`
}

// Warning codes attached to a RunnerState.
const WarningInsufficientData = "insufficient_data"

// Warning flags a metric computed from too little data.
type Warning struct {
	Code    string `json:"code"`
	Metric  string `json:"metric"`
	Message string `json:"message"`
}

// RunnerState is the inferred snapshot of a runner's fitness and risk.
// TrainingLoad, InjuryRisk and DataQuality are always present; the remaining
// metrics are nil when no underlying samples exist.
type RunnerState struct {
	AsOf           time.Time              `json:"as_of"`
	TrainingLoad   Inferred[TrainingLoad] `json:"training_load"`
	InjuryRisk     Inferred[InjuryRisk]   `json:"injury_risk"`
	RecentPatterns RecentPatterns         `json:"recent_patterns"`
	Paces          PaceProfile            `json:"paces"`
	Biometrics     Biometrics             `json:"biometrics"`
	DataQuality    Inferred[float64]      `json:"data_quality"`
	Warnings       []Warning              `json:"warnings,omitempty"`
}

func canonicalSources(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
