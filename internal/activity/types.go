package activity

import "time"

// Kind of an activity record as delivered by the ingestion layer.
type Kind string

const (
	KindRun   Kind = "run"
	KindWalk  Kind = "walk"
	KindRide  Kind = "ride"
	KindOther Kind = "other"
)

// Activity is a single normalized workout record.
type Activity struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DurationSec float64   `json:"duration_sec"`
	DistanceM   float64   `json:"distance_m,omitempty"`
	AvgHR       float64   `json:"avg_hr,omitempty"`
	MaxHR       float64   `json:"max_hr,omitempty"`
}

// IsRun reports whether the activity counts toward running volume.
func (a Activity) IsRun() bool {
	return a.Kind == KindRun
}

// DurationMin returns the moving duration in minutes.
func (a Activity) DurationMin() float64 {
	return a.DurationSec / 60
}

// DistanceKm returns the distance in kilometres.
func (a Activity) DistanceKm() float64 {
	return a.DistanceM / 1000
}

// PaceSecPerKm returns seconds per kilometre, or 0 when distance is unknown.
func (a Activity) PaceSecPerKm() float64 {
	if a.DistanceM <= 0 {
		return 0
	}
	return a.DurationSec / a.DistanceKm()
}

// DailyRecord is a per-day summary from a wearable.
type DailyRecord struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	Steps          int       `json:"steps,omitempty"`
	ActiveCalories float64   `json:"active_calories,omitempty"`
	RestingHR      float64   `json:"resting_hr,omitempty"`
	SleepHours     float64   `json:"sleep_hours,omitempty"`
}

// BodyKind is the measurement carried by a body record.
type BodyKind string

const (
	BodyWeight    BodyKind = "weight"
	BodyHRV       BodyKind = "hrv"
	BodyRestingHR BodyKind = "resting_hr"
)

// BodyRecord is a point-in-time body measurement.
type BodyRecord struct {
	ID        string    `json:"id"`
	Kind      BodyKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Feed groups the records supplied by the ingestion layer.
type Feed struct {
	Activities []Activity    `json:"activities"`
	Daily      []DailyRecord `json:"daily"`
	Body       []BodyRecord  `json:"body"`
}

// Skipped describes a record dropped during sanitization.
type Skipped struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// DayKey truncates t to its UTC calendar day.
func DayKey(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
