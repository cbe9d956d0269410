package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"runplan/internal/audit"
	"runplan/internal/config"
	"runplan/internal/safeguards"
	"runplan/internal/workspace"
)

const appName = "runplan"

var version = "dev"

var (
	workspaceFlag string
	noColor       bool
)

var rootCmd = &cobra.Command{
	Use:     appName,
	Version: version,
	Short:   "Rule-based training plan generation for runners",
	Long: `runplan turns a runner profile and recent training history into a
periodized plan, with an audit trail explaining every decision.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "", "Path to workspace root")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(initCmd, stateCmd, planCmd, templatesCmd, rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openWorkspace() (*workspace.Workspace, error) {
	root := strings.TrimSpace(workspaceFlag)
	if root == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	return workspace.Resolve(root)
}

// audited logs <event>_started, runs fn, then logs <event>_finished with the
// payload fn filled in and any error. Audit failures are reported on stderr
// and never change the command's result.
func audited(ws *workspace.Workspace, event string, start map[string]any, fn func(finish map[string]any) error) error {
	logger := audit.NewLogger(ws.AuditDBPath)
	if start == nil {
		start = map[string]any{}
	}
	start["workspace"] = ws.Root
	if err := logger.LogEvent("cli", event+"_started", start); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	finish := map[string]any{"workspace": ws.Root}
	runErr := fn(finish)
	if runErr != nil {
		finish["error"] = runErr.Error()
	}
	if err := logger.LogEvent("cli", event+"_finished", finish); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	return runErr
}

func loadConfig(ws *workspace.Workspace) (*config.Config, error) {
	return config.Load(ws.ConfigPath)
}

// loadRules reads the workspace rule set, falling back to the built-in rules
// when rules.yml is absent.
func loadRules(ws *workspace.Workspace) ([]safeguards.Rule, string, error) {
	if ws == nil {
		return safeguards.DefaultRules(), "built-in", nil
	}
	ok, err := workspace.Exists(ws.RulesPath)
	if err != nil {
		return nil, "", fmt.Errorf("stat rules: %w", err)
	}
	if !ok {
		return safeguards.DefaultRules(), "built-in", nil
	}
	rules, err := safeguards.LoadRules(ws.RulesPath)
	if err != nil {
		return nil, "", err
	}
	return rules, ws.RulesPath, nil
}
