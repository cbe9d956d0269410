package decision

// Kind classifies why a decision was recorded.
type Kind string

const (
	KindSelection Kind = "selection"
	KindComputed  Kind = "computed"
	KindFallback  Kind = "fallback"
	KindOverride  Kind = "override"
	KindSafeguard Kind = "safeguard"
)

// Decision is a single entry of a plan's decision audit.
// Week is zero for plan-level decisions.
type Decision struct {
	Seq              int      `json:"seq"`
	Stage            string   `json:"stage"`
	Week             int      `json:"week,omitempty"`
	Kind             Kind     `json:"kind"`
	Question         string   `json:"question"`
	ChosenValue      string   `json:"chosen_value"`
	Rationale        string   `json:"rationale"`
	TriggeredRuleIDs []string `json:"triggered_rule_ids,omitempty"`
}

// Trail accumulates decisions in the order they were made.
// The zero value is ready to use.
type Trail struct {
	entries []Decision
}

// Append records d, assigning the next sequence number.
func (t *Trail) Append(d Decision) Decision {
	d.Seq = len(t.entries) + 1
	if len(d.TriggeredRuleIDs) > 0 {
		ids := make([]string, len(d.TriggeredRuleIDs))
		copy(ids, d.TriggeredRuleIDs)
		d.TriggeredRuleIDs = ids
	}
	t.entries = append(t.entries, d)
	return d
}

// AppendAll records each decision in order.
func (t *Trail) AppendAll(ds []Decision) {
	for _, d := range ds {
		t.Append(d)
	}
}

// Len returns the number of recorded decisions.
func (t *Trail) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the recorded decisions.
func (t *Trail) Entries() []Decision {
	out := make([]Decision, len(t.entries))
	copy(out, t.entries)
	return out
}

// ForWeek returns the decisions recorded against a given week.
func ForWeek(ds []Decision, week int) []Decision {
	var out []Decision
	for _, d := range ds {
		if d.Week == week {
			out = append(out, d)
		}
	}
	return out
}

// CountKind returns how many decisions carry the given kind.
func CountKind(ds []Decision, kind Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
