package decision

import "testing"

func TestTrailAssignsSequence(t *testing.T) {
	var trail Trail
	trail.Append(Decision{Stage: "template_selection", Kind: KindSelection})
	trail.AppendAll([]Decision{
		{Stage: "safeguard", Week: 2, Kind: KindSafeguard, TriggeredRuleIDs: []string{"ramp-cap"}},
		{Stage: "safeguard", Week: 3, Kind: KindSafeguard},
	})

	entries := trail.Entries()
	if got, want := len(entries), 3; got != want {
		t.Fatalf("entries = %d, want %d", got, want)
	}
	for i, d := range entries {
		if got, want := d.Seq, i+1; got != want {
			t.Fatalf("entries[%d].Seq = %d, want %d", i, got, want)
		}
	}
	if got, want := len(ForWeek(entries, 2)), 1; got != want {
		t.Fatalf("ForWeek(2) = %d, want %d", got, want)
	}
	if got, want := CountKind(entries, KindSafeguard), 2; got != want {
		t.Fatalf("CountKind(safeguard) = %d, want %d", got, want)
	}
}

func TestTrailEntriesAreCopies(t *testing.T) {
	var trail Trail
	ids := []string{"a"}
	trail.Append(Decision{Stage: "x", TriggeredRuleIDs: ids})
	ids[0] = "mutated"

	entries := trail.Entries()
	entries[0].Stage = "changed"
	again := trail.Entries()
	if again[0].Stage != "x" {
		t.Fatalf("trail entry mutated through copy: %q", again[0].Stage)
	}
	if again[0].TriggeredRuleIDs[0] != "a" {
		t.Fatalf("rule ids aliased caller slice: %v", again[0].TriggeredRuleIDs)
	}
}
