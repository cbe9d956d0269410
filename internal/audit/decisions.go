package audit

import (
	"encoding/json"
	"fmt"

	"runplan/internal/decision"
)

// RecordPlan stores a plan's decision audit. Rows are keyed by plan id and
// sequence, so recording the same plan twice leaves one copy.
func (l *Logger) RecordPlan(planID string, decisions []decision.Decision) error {
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}
	db, err := open(l.path())
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.Exec("DELETE FROM decisions WHERE plan_id = ?", planID); err != nil {
		return fmt.Errorf("clear plan decisions: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO decisions
		(plan_id, seq, stage, week, kind, question, chosen_value, rationale, rule_ids_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare decision insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range decisions {
		ids := d.TriggeredRuleIDs
		if ids == nil {
			ids = []string{}
		}
		idsJSON, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("marshal rule ids: %w", err)
		}
		if _, err := stmt.Exec(planID, d.Seq, d.Stage, d.Week, string(d.Kind), d.Question, d.ChosenValue, d.Rationale, string(idsJSON)); err != nil {
			return fmt.Errorf("insert decision %d: %w", d.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

// PlanDecisions reads back a plan's decisions in sequence order.
func (l *Logger) PlanDecisions(planID string) ([]decision.Decision, error) {
	db, err := open(l.path())
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()
	rows, err := db.Query(`SELECT seq, stage, week, kind, question, chosen_value, rationale, rule_ids_json
		FROM decisions WHERE plan_id = ? ORDER BY seq`, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan decisions: %w", err)
	}
	defer rows.Close()
	var out []decision.Decision
	for rows.Next() {
		var d decision.Decision
		var kind, idsJSON string
		if err := rows.Scan(&d.Seq, &d.Stage, &d.Week, &kind, &d.Question, &d.ChosenValue, &d.Rationale, &idsJSON); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Kind = decision.Kind(kind)
		if err := json.Unmarshal([]byte(idsJSON), &d.TriggeredRuleIDs); err != nil {
			return nil, fmt.Errorf("decode rule ids for decision %d: %w", d.Seq, err)
		}
		if len(d.TriggeredRuleIDs) == 0 {
			d.TriggeredRuleIDs = nil
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
