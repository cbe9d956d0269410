package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"runplan/internal/activity"
	"runplan/internal/config"
	"runplan/internal/safeguards"
	"runplan/internal/templates"
	"runplan/internal/workspace"
)

var (
	initGoal       string
	initExperience string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new workspace",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initGoal, "goal", string(templates.GoalHalfMarathon), "Goal written to profile.yml")
	initCmd.Flags().StringVar(&initExperience, "experience", string(templates.ExperienceCasual), "Experience level written to profile.yml")
}

func runInit(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(workspaceFlag) == "" {
		return fmt.Errorf("--workspace is required")
	}
	goal, err := templates.ParseGoal(initGoal)
	if err != nil {
		return err
	}
	exp, err := templates.ParseExperience(initExperience)
	if err != nil {
		return err
	}

	root, err := workspace.ResolveRoot(workspaceFlag)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}

	start := map[string]any{"goal": goal, "experience": exp}
	return audited(ws, "workspace_init", start, func(finish map[string]any) error {
		if err := ws.EnsureDirs(); err != nil {
			return err
		}
		rulesYAML, err := safeguards.ExportYAML(safeguards.DefaultRules())
		if err != nil {
			return err
		}
		emptyFeed, err := json.MarshalIndent(activity.Feed{
			Activities: []activity.Activity{},
			Daily:      []activity.DailyRecord{},
			Body:       []activity.BodyRecord{},
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal feed: %w", err)
		}
		files := []struct {
			path     string
			contents string
		}{
			{ws.ProfilePath, fmt.Sprintf(profileTemplate, goal, exp)},
			{ws.ConfigPath, config.DefaultYAML},
			{ws.RulesPath, string(rulesYAML)},
			{ws.FeedPath, string(emptyFeed) + "\n"},
		}
		var written []string
		for _, f := range files {
			created, err := writeFileIfMissing(f.path, f.contents)
			if err != nil {
				return err
			}
			if created {
				written = append(written, f.path)
			}
		}
		finish["written"] = written

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Initialized workspace: %s\n", ws.Root)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintf(out, "  edit %s and drop activity exports into %s\n", filepath.Base(ws.ProfilePath), ws.FeedPath)
		fmt.Fprintf(out, "  %s state compute --workspace %s\n", appName, ws.Root)
		fmt.Fprintf(out, "  %s plan generate --workspace %s\n", appName, ws.Root)
		return nil
	})
}

func writeFileIfMissing(path string, contents string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

const profileTemplate = `# Runner profile.
goal: %s
experience: %s
# event_date: 2026-10-04
injury_history: []
pushes_through_pain: false
available_days: [mon, tue, wed, thu, fri, sat, sun]
rest_days_per_week: 1
`
