package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"runplan/internal/activity"
	"runplan/internal/inference"
	"runplan/internal/profile"
)

var (
	stateAsOf string
	stateFeed string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Infer runner state from activity data",
}

var stateComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute and store the runner state as of a date",
	Args:  cobra.NoArgs,
	RunE:  runStateCompute,
}

func init() {
	stateComputeCmd.Flags().StringVar(&stateAsOf, "as-of", "", "As-of date YYYY-MM-DD (default: today, UTC)")
	stateComputeCmd.Flags().StringVar(&stateFeed, "feed", "", "Activity feed JSON (default: <workspace>/data/feed.json)")
	stateCmd.AddCommand(stateComputeCmd)
}

func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func runStateCompute(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(stateAsOf)
	if err != nil {
		return err
	}
	feedPath := ws.FeedPath
	if stateFeed != "" {
		if feedPath, err = ws.ResolvePath(stateFeed); err != nil {
			return fmt.Errorf("resolve --feed: %w", err)
		}
	}

	start := map[string]any{"as_of": asOf.Format("2006-01-02"), "feed": feedPath}
	return audited(ws, "state_compute", start, func(finish map[string]any) error {
		snap, err := profile.Load(ws.ProfilePath)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ws)
		if err != nil {
			return err
		}
		feed, err := activity.LoadFeed(feedPath)
		if err != nil {
			return err
		}
		state, skipped := inferState(feed, asOf, snap.Declared(), cfg.InferenceParams())

		statePath := inference.StatePathForDate(ws.StateDir, asOf)
		if err := inference.WriteState(statePath, state); err != nil {
			return err
		}
		finish["state"] = statePath
		finish["skipped"] = len(skipped)
		finish["risk"] = state.InjuryRisk.Value.Level
		finish["data_quality"] = state.DataQuality.Value

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Wrote state: %s\n", statePath)
		printStateSummary(out, state)
		for _, s := range skipped {
			printWarning(cmd.ErrOrStderr(), fmt.Sprintf("skipped %s %s: %s", s.Source, s.ID, s.Reason))
		}
		return nil
	})
}

// inferState computes the state from the raw feed so dropped records count
// against data quality. The separate sanitize pass only reports them.
func inferState(feed activity.Feed, asOf time.Time, declared inference.Declared, params inference.Params) (inference.RunnerState, []activity.Skipped) {
	_, skipped := activity.Sanitize(feed, asOf)
	return inference.ComputeFromFeed(feed, asOf, declared, params), skipped
}
