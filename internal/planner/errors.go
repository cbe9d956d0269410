package planner

import (
	"fmt"
	"strings"
)

// UnsafePlanError reports that a week could not be brought within the block
// rules in the allowed number of attempts. No plan is produced.
type UnsafePlanError struct {
	Week         int
	Attempts     int
	LastVolumeKm float64
	RuleIDs      []string
}

func (e *UnsafePlanError) Error() string {
	return fmt.Sprintf("unsafe plan: week %d still blocked by %s after %d attempts (last volume %.2f km)",
		e.Week, strings.Join(e.RuleIDs, ", "), e.Attempts, e.LastVolumeKm)
}
