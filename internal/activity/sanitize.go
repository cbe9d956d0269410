package activity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	minHeartRate = 30
	maxHeartRate = 230
	// Anything faster than 2:30/km is treated as a device or import error.
	minRunPaceSecPerKm = 150
)

// Sanitize drops malformed or out-of-range records and returns the rest sorted
// by time. Records dated after asOf are dropped. It never fails.
func Sanitize(feed Feed, asOf time.Time) (Feed, []Skipped) {
	var out Feed
	var skipped []Skipped
	cutoff := DayKey(asOf).Add(24 * time.Hour)

	seen := make(map[string]struct{})
	for _, a := range feed.Activities {
		if reason := checkActivity(a, cutoff); reason != "" {
			skipped = append(skipped, Skipped{ID: a.ID, Source: "activity", Reason: reason})
			continue
		}
		if _, dup := seen[a.ID]; dup {
			skipped = append(skipped, Skipped{ID: a.ID, Source: "activity", Reason: "duplicate id"})
			continue
		}
		seen[a.ID] = struct{}{}
		if a.End.IsZero() {
			a.End = a.Start.Add(time.Duration(a.DurationSec * float64(time.Second)))
		}
		if a.Kind == "" {
			a.Kind = KindOther
		}
		out.Activities = append(out.Activities, a)
	}

	seen = make(map[string]struct{})
	for _, d := range feed.Daily {
		if reason := checkDaily(d, cutoff); reason != "" {
			skipped = append(skipped, Skipped{ID: d.ID, Source: "daily", Reason: reason})
			continue
		}
		if _, dup := seen[d.ID]; dup {
			skipped = append(skipped, Skipped{ID: d.ID, Source: "daily", Reason: "duplicate id"})
			continue
		}
		seen[d.ID] = struct{}{}
		d.Date = DayKey(d.Date)
		out.Daily = append(out.Daily, d)
	}

	seen = make(map[string]struct{})
	for _, b := range feed.Body {
		if reason := checkBody(b, cutoff); reason != "" {
			skipped = append(skipped, Skipped{ID: b.ID, Source: "body", Reason: reason})
			continue
		}
		if _, dup := seen[b.ID]; dup {
			skipped = append(skipped, Skipped{ID: b.ID, Source: "body", Reason: "duplicate id"})
			continue
		}
		seen[b.ID] = struct{}{}
		out.Body = append(out.Body, b)
	}

	sort.SliceStable(out.Activities, func(i, j int) bool {
		a, b := out.Activities[i], out.Activities[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.ID < b.ID
	})
	sort.SliceStable(out.Daily, func(i, j int) bool {
		a, b := out.Daily[i], out.Daily[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	sort.SliceStable(out.Body, func(i, j int) bool {
		a, b := out.Body[i], out.Body[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
	sort.SliceStable(skipped, func(i, j int) bool {
		if skipped[i].Source != skipped[j].Source {
			return skipped[i].Source < skipped[j].Source
		}
		return skipped[i].ID < skipped[j].ID
	})
	return out, skipped
}

func checkActivity(a Activity, cutoff time.Time) string {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return "missing id"
	case a.Start.IsZero():
		return "missing start"
	case !a.Start.Before(cutoff):
		return "starts after as-of date"
	case !finite(a.DurationSec) || a.DurationSec <= 0:
		return "non-positive duration"
	case !a.End.IsZero() && a.End.Before(a.Start):
		return "end before start"
	case !finite(a.DistanceM) || a.DistanceM < 0:
		return "negative distance"
	}
	if reason := checkHR(a.AvgHR, "average"); reason != "" {
		return reason
	}
	if reason := checkHR(a.MaxHR, "max"); reason != "" {
		return reason
	}
	if a.IsRun() && a.DistanceM > 0 && a.PaceSecPerKm() < minRunPaceSecPerKm {
		return fmt.Sprintf("implausible pace %.0fs/km", a.PaceSecPerKm())
	}
	return ""
}

func checkDaily(d DailyRecord, cutoff time.Time) string {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return "missing id"
	case d.Date.IsZero():
		return "missing date"
	case !d.Date.Before(cutoff):
		return "dated after as-of date"
	case d.Steps < 0:
		return "negative steps"
	case !finite(d.SleepHours) || d.SleepHours < 0 || d.SleepHours > 24:
		return "sleep hours out of range"
	}
	return checkHR(d.RestingHR, "resting")
}

func checkBody(b BodyRecord, cutoff time.Time) string {
	switch {
	case strings.TrimSpace(b.ID) == "":
		return "missing id"
	case b.Timestamp.IsZero():
		return "missing timestamp"
	case !b.Timestamp.Before(cutoff):
		return "dated after as-of date"
	case !finite(b.Value) || b.Value <= 0:
		return "non-positive value"
	}
	switch b.Kind {
	case BodyWeight:
		if b.Value > 400 {
			return "weight out of range"
		}
	case BodyHRV:
		if b.Value > 300 {
			return "hrv out of range"
		}
	case BodyRestingHR:
		return checkHR(b.Value, "resting")
	default:
		return fmt.Sprintf("unknown body kind %q", b.Kind)
	}
	return ""
}

// checkHR accepts zero as "not recorded".
func checkHR(v float64, label string) string {
	if v == 0 {
		return ""
	}
	if !finite(v) || v < minHeartRate || v > maxHeartRate {
		return fmt.Sprintf("%s heart rate %.0f out of range", label, v)
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
