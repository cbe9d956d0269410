package activity

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var asOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func run(id string, daysAgo int, minutes, km float64) Activity {
	start := asOf.AddDate(0, 0, -daysAgo).Add(7 * time.Hour)
	return Activity{
		ID:          id,
		Kind:        KindRun,
		Start:       start,
		DurationSec: minutes * 60,
		DistanceM:   km * 1000,
		AvgHR:       140,
	}
}

func TestSanitizeSkipsBadRecords(t *testing.T) {
	future := run("future", -2, 30, 5)
	backwards := run("backwards", 3, 30, 5)
	backwards.End = backwards.Start.Add(-time.Minute)
	fast := run("fast", 4, 10, 5)
	badHR := run("badhr", 5, 30, 5)
	badHR.AvgHR = 260

	feed := Feed{
		Activities: []Activity{
			run("b", 1, 30, 5),
			run("a", 2, 40, 7),
			run("a", 6, 40, 7),
			{ID: "", Kind: KindRun, Start: asOf, DurationSec: 60},
			{ID: "zero", Kind: KindRun, Start: asOf.AddDate(0, 0, -1), DurationSec: 0},
			future, backwards, fast, badHR,
		},
		Daily: []DailyRecord{
			{ID: "d1", Date: asOf.AddDate(0, 0, -1), RestingHR: 52, SleepHours: 7.5},
			{ID: "d2", Date: asOf.AddDate(0, 0, -2), SleepHours: 30},
		},
		Body: []BodyRecord{
			{ID: "w1", Kind: BodyWeight, Timestamp: asOf.AddDate(0, 0, -3), Value: 70},
			{ID: "x1", Kind: "mood", Timestamp: asOf.AddDate(0, 0, -3), Value: 3},
		},
	}

	kept, skipped := Sanitize(feed, asOf)
	if got, want := len(kept.Activities), 2; got != want {
		t.Fatalf("kept activities = %d, want %d", got, want)
	}
	if kept.Activities[0].ID != "a" || kept.Activities[1].ID != "b" {
		t.Fatalf("activities not sorted by start: %q, %q", kept.Activities[0].ID, kept.Activities[1].ID)
	}
	if kept.Activities[0].End.IsZero() {
		t.Fatalf("missing end should be derived from duration")
	}
	if got, want := len(kept.Daily), 1; got != want {
		t.Fatalf("kept daily = %d, want %d", got, want)
	}
	if got, want := len(kept.Body), 1; got != want {
		t.Fatalf("kept body = %d, want %d", got, want)
	}

	reasons := make(map[string]string)
	for _, s := range skipped {
		reasons[s.Source+"/"+s.ID] = s.Reason
	}
	for _, key := range []string{
		"activity/a", "activity/", "activity/zero", "activity/future",
		"activity/backwards", "activity/fast", "activity/badhr",
		"daily/d2", "body/x1",
	} {
		if reasons[key] == "" {
			t.Errorf("expected %s to be skipped; got %v", key, reasons)
		}
	}
	if got, want := reasons["activity/a"], "duplicate id"; got != want {
		t.Errorf("duplicate reason = %q, want %q", got, want)
	}
}

func TestSanitizeEmptyFeed(t *testing.T) {
	kept, skipped := Sanitize(Feed{}, asOf)
	if len(kept.Activities) != 0 || len(kept.Daily) != 0 || len(kept.Body) != 0 || len(skipped) != 0 {
		t.Fatalf("expected empty output, got %+v %+v", kept, skipped)
	}
}

func TestLoadFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	data := []byte(`{
  "activities": [
    {"id": "r1", "kind": "run", "start": "2026-02-27T07:00:00Z", "duration_sec": 1800, "distance_m": 5000, "avg_hr": 145}
  ],
  "daily": [{"id": "d1", "date": "2026-02-27T00:00:00Z", "resting_hr": 50}],
  "body": []
}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	feed, err := LoadFeed(path)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if got, want := len(feed.Activities), 1; got != want {
		t.Fatalf("activities = %d, want %d", got, want)
	}
	if got, want := feed.Activities[0].PaceSecPerKm(), 360.0; got != want {
		t.Fatalf("pace = %v, want %v", got, want)
	}

	if _, err := ParseFeed([]byte(`{"activities": [], "extra": 1}`)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}
