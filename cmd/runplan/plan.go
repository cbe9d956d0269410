package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"runplan/internal/audit"
	"runplan/internal/decision"
	"runplan/internal/inference"
	"runplan/internal/planner"
	"runplan/internal/profile"
	"runplan/internal/templates"
	"runplan/internal/workspace"
)

var (
	planGoal      string
	planWeeks     int
	planStatePath string
	planOut       string
	planShowAudit bool
	planShowWeek  int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate and inspect training plans",
}

var planGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a plan from the profile and the latest state",
	Args:  cobra.NoArgs,
	RunE:  runPlanGenerate,
}

var planShowCmd = &cobra.Command{
	Use:   "show [plan]",
	Short: "Print a plan calendar and its decision audit",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlanShow,
}

var planDiffCmd = &cobra.Command{
	Use:   "diff <plan-a> <plan-b>",
	Short: "Compare two plans, e.g. a what-if variant against the current plan",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlanDiff,
}

func init() {
	planGenerateCmd.Flags().StringVar(&planGoal, "goal", "", "Goal override (default: profile goal)")
	planGenerateCmd.Flags().IntVar(&planWeeks, "weeks", 0, "Plan length in weeks (default: weeks to the event date, else the template's recommendation)")
	planGenerateCmd.Flags().StringVar(&planStatePath, "state", "", "State file (default: latest in artifacts/state)")
	planGenerateCmd.Flags().StringVar(&planOut, "out", "", "Output path (default: artifacts/plans/<as-of>/plan.json)")
	planShowCmd.Flags().BoolVar(&planShowAudit, "audit", true, "Include the decision audit")
	planShowCmd.Flags().IntVar(&planShowWeek, "week", 0, "Only show audit entries for this week")
	planCmd.AddCommand(planGenerateCmd, planShowCmd, planDiffCmd)
}

func runPlanGenerate(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	start := map[string]any{"goal": planGoal, "weeks": planWeeks, "state": planStatePath, "out": planOut}
	return audited(ws, "plan_generate", start, func(finish map[string]any) error {
		snap, err := profile.Load(ws.ProfilePath)
		if err != nil {
			return err
		}
		goal := snap.Goal
		if planGoal != "" {
			if goal, err = templates.ParseGoal(planGoal); err != nil {
				return err
			}
		}

		statePath := planStatePath
		if statePath != "" {
			if statePath, err = ws.ResolvePath(statePath); err != nil {
				return fmt.Errorf("resolve --state: %w", err)
			}
		} else if statePath, err = inference.LatestStatePath(ws.StateDir); err != nil {
			return fmt.Errorf("%w (run `%s state compute` first)", err, appName)
		}
		state, err := inference.LoadState(statePath)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(ws)
		if err != nil {
			return err
		}
		rules, rulesSource, err := loadRules(ws)
		if err != nil {
			return err
		}
		gen, err := planner.NewGenerator(nil, rules, cfg.PlannerOptions())
		if err != nil {
			return err
		}

		weeks := planWeeks
		if weeks == 0 && !state.AsOf.IsZero() {
			weeks = snap.WeeksUntilEvent(planner.StartDate(state.AsOf))
		}
		plan, err := gen.Generate(snap, state, goal, weeks)
		if err != nil {
			return err
		}

		outPath := planner.PlanPath(ws.PlansDir, plan)
		if planOut != "" {
			if outPath, err = ws.ResolvePath(planOut); err != nil {
				return fmt.Errorf("resolve --out: %w", err)
			}
		}
		if err := planner.WritePlan(outPath, plan); err != nil {
			return err
		}
		if err := audit.NewLogger(ws.AuditDBPath).RecordPlan(plan.ID, plan.DecisionAudit); err != nil {
			fmt.Fprintln(os.Stderr, "audit log failed:", err)
		}

		finish["plan_id"] = plan.ID
		finish["plan"] = outPath
		finish["template"] = plan.TemplateID
		finish["weeks"] = plan.DurationWeeks
		finish["rules"] = rulesSource
		finish["decisions"] = len(plan.DecisionAudit)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Wrote plan: %s\n", outPath)
		printPlanSummary(out, plan)
		return nil
	})
}

func runPlanShow(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	var path string
	if len(args) == 1 {
		path, err = resolvePlanArg(ws, args[0])
	} else {
		path, err = latestPlanPath(ws.PlansDir)
	}
	if err != nil {
		return err
	}
	return audited(ws, "plan_show", map[string]any{"plan": path}, func(finish map[string]any) error {
		plan, err := planner.LoadPlan(path)
		if err != nil {
			return err
		}
		finish["plan_id"] = plan.ID
		out := cmd.OutOrStdout()
		fmt.Fprint(out, planner.Render(plan))
		if planShowAudit {
			fmt.Fprintln(out)
			ds := plan.DecisionAudit
			if planShowWeek > 0 {
				ds = decision.ForWeek(ds, planShowWeek)
			}
			printDecisions(out, ds)
		}
		return nil
	})
}

func runPlanDiff(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	pathA, err := resolvePlanArg(ws, args[0])
	if err != nil {
		return err
	}
	pathB, err := resolvePlanArg(ws, args[1])
	if err != nil {
		return err
	}
	return audited(ws, "plan_diff", map[string]any{"a": pathA, "b": pathB}, func(finish map[string]any) error {
		a, err := planner.LoadPlan(pathA)
		if err != nil {
			return err
		}
		b, err := planner.LoadPlan(pathB)
		if err != nil {
			return err
		}
		diff, err := planner.Diff(a, b)
		if err != nil {
			return err
		}
		finish["identical"] = diff == ""
		if diff == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "plans are identical")
			return nil
		}
		printDiff(cmd.OutOrStdout(), diff)
		return nil
	})
}

func resolvePlanArg(ws *workspace.Workspace, arg string) (string, error) {
	abs, err := ws.ResolvePath(arg)
	if err != nil {
		return "", err
	}
	return planner.ResolvePlanPath(abs)
}

// latestPlanPath picks the plan in the newest dated directory. Directory
// names are YYYY-MM-DD and sort chronologically.
func latestPlanPath(plansDir string) (string, error) {
	entries, err := os.ReadDir(plansDir)
	if err != nil {
		return "", fmt.Errorf("read plans dir: %w", err)
	}
	var dirs []string
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		candidate := filepath.Join(plansDir, ent.Name(), planner.PlanFileName)
		if ok, _ := workspace.Exists(candidate); ok {
			dirs = append(dirs, candidate)
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no plans found in %s (run `%s plan generate` first)", plansDir, appName)
	}
	sort.Strings(dirs)
	return dirs[len(dirs)-1], nil
}
