package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"runplan/internal/safeguards"
	"runplan/internal/workspace"
)

var (
	rulesDefaults bool
	rulesOut      string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect safeguard rule sets",
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the effective rule set as YAML",
	Long: `Print the rule set plan generation would enforce, with every parameter
spelled out. Without --workspace, or with --defaults, the built-in rules are
exported.`,
	Args: cobra.NoArgs,
	RunE: runRulesExport,
}

func init() {
	rulesExportCmd.Flags().BoolVar(&rulesDefaults, "defaults", false, "Export the built-in rules even when the workspace has rules.yml")
	rulesExportCmd.Flags().StringVar(&rulesOut, "out", "", "Write to a file instead of stdout")
	rulesCmd.AddCommand(rulesExportCmd)
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	var ws *workspace.Workspace
	if strings.TrimSpace(workspaceFlag) != "" {
		var err error
		if ws, err = openWorkspace(); err != nil {
			return err
		}
	}
	rules := safeguards.DefaultRules()
	if !rulesDefaults {
		var err error
		if rules, _, err = loadRules(ws); err != nil {
			return err
		}
	}
	data, err := safeguards.ExportYAML(rules)
	if err != nil {
		return err
	}
	if rulesOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	path := rulesOut
	if ws != nil {
		if path, err = ws.ResolvePath(rulesOut); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote rules: %s\n", path)
	return nil
}
