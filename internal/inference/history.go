package inference

import (
	"fmt"
	"time"

	"runplan/internal/activity"
)

const day = 24 * time.Hour

// history is the sanitized record set clipped to the inference window.
type history struct {
	asOf        time.Time
	start       time.Time
	activities  []activity.Activity
	runs        []activity.Activity
	daily       []activity.DailyRecord
	body        []activity.BodyRecord
	skipped     int
	spanDays    int
	runSpanDays int
	maxHR       float64
}

func newHistory(feed activity.Feed, skipped int, asOf time.Time, p Params) history {
	h := history{
		asOf:    activity.DayKey(asOf),
		skipped: skipped,
	}
	h.start = h.asOf.AddDate(0, 0, -(p.HistoryDays - 1))

	for _, a := range feed.Activities {
		if activity.DayKey(a.Start).Before(h.start) {
			continue
		}
		h.activities = append(h.activities, a)
		if a.IsRun() {
			h.runs = append(h.runs, a)
		}
		if a.MaxHR > h.maxHR {
			h.maxHR = a.MaxHR
		}
	}
	for _, d := range feed.Daily {
		if d.Date.Before(h.start) {
			continue
		}
		h.daily = append(h.daily, d)
	}
	for _, b := range feed.Body {
		if activity.DayKey(b.Timestamp).Before(h.start) {
			continue
		}
		h.body = append(h.body, b)
	}

	if len(h.activities) > 0 {
		h.spanDays = h.daysAgo(h.activities[0].Start) + 1
	}
	if len(h.runs) > 0 {
		h.runSpanDays = h.daysAgo(h.runs[0].Start) + 1
	}
	return h
}

// daysAgo counts whole days between t and the as-of day.
func (h history) daysAgo(t time.Time) int {
	return int(h.asOf.Sub(activity.DayKey(t)) / day)
}

// weeksOfRunData is the number of complete weeks spanned by run records.
func (h history) weeksOfRunData() int {
	return h.runSpanDays / 7
}

// weeklyRunVolumes returns km per week, newest week first. Week 0 is the
// seven days ending on the as-of date.
func (h history) weeklyRunVolumes(weeks int) []float64 {
	out := make([]float64, weeks)
	for _, r := range h.runs {
		idx := h.daysAgo(r.Start) / 7
		if idx < weeks {
			out[idx] += r.DistanceKm()
		}
	}
	return out
}

// activeDays marks the days (by daysAgo) carrying any activity.
func (h history) activeDays() map[int]struct{} {
	out := make(map[int]struct{}, len(h.activities))
	for _, a := range h.activities {
		out[h.daysAgo(a.Start)] = struct{}{}
	}
	return out
}

func (h history) recordCount() int {
	return len(h.activities) + len(h.daily) + len(h.body)
}

func (h history) runSources() []string {
	return []string{fmt.Sprintf("activity:run:%d", len(h.runs))}
}

func (h history) windowSource(days int) string {
	from := h.asOf.AddDate(0, 0, -(days - 1))
	return fmt.Sprintf("window:%s/%s", from.Format("2006-01-02"), h.asOf.Format("2006-01-02"))
}

func activitySources(acts []activity.Activity) []string {
	counts := make(map[activity.Kind]int)
	for _, a := range acts {
		counts[a.Kind]++
	}
	out := make([]string, 0, len(counts))
	for kind, n := range counts {
		out = append(out, fmt.Sprintf("activity:%s:%d", kind, n))
	}
	return out
}
