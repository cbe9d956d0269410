package inference

import (
	"fmt"
	"math"
	"time"
)

// computeDataQuality scores completeness, recency and validity of the input.
// The planner uses it to gate how aggressive a plan may be.
func computeDataQuality(h history) Inferred[float64] {
	total := h.recordCount()
	if total == 0 {
		return Inferred[float64]{Value: 0, Confidence: 0, InferredFrom: []string{}, ComputedAt: h.asOf}
	}

	covered := make(map[int]struct{})
	var newest time.Time
	mark := func(t time.Time) {
		if age := h.daysAgo(t); age < 28 {
			covered[age] = struct{}{}
		}
		if t.After(newest) {
			newest = t
		}
	}
	for _, a := range h.activities {
		mark(a.Start)
	}
	for _, d := range h.daily {
		mark(d.Date)
	}
	for _, b := range h.body {
		mark(b.Timestamp)
	}

	coverage := float64(len(covered)) / 28
	recency := 1.0
	if age := h.daysAgo(newest); age > 3 {
		recency = math.Max(0, float64(21-age)/18)
	}
	validity := float64(total) / float64(total+h.skipped)

	score := 0.5*coverage + 0.3*recency + 0.2*validity
	sources := []string{
		fmt.Sprintf("activity:%d", len(h.activities)),
		fmt.Sprintf("daily:%d", len(h.daily)),
		fmt.Sprintf("body:%d", len(h.body)),
		fmt.Sprintf("skipped:%d", h.skipped),
	}
	return *newInferred(round(score, 3), math.Min(1, float64(total)/10), sources, h.asOf)
}
