package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"runplan/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect the built-in periodization templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates with their duration bounds and phases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := templates.Builtin()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, t := range reg.List() {
			_, _ = headerColor.Fprintf(out, "%s", t.ID)
			fmt.Fprintf(out, "  goal=%s weeks=%d-%d (recommended %d)\n", t.Goal, t.MinWeeks, t.MaxWeeks, t.RecommendedWeeks)
			phases := make([]string, 0, len(t.Phases))
			for _, p := range t.Phases {
				phases = append(phases, fmt.Sprintf("%s %.0f%%", p.Name, p.PercentOfPlan*100))
			}
			fmt.Fprintf(out, "  phases: %s\n", strings.Join(phases, ", "))
			keys := make([]string, 0, len(t.Weekly.KeySessionTypes))
			for _, k := range t.Weekly.KeySessionTypes {
				keys = append(keys, string(k))
			}
			fmt.Fprintf(out, "  week: %d key (%s), %d easy, %d rest\n",
				t.Weekly.KeySessionCount, strings.Join(keys, ", "), t.Weekly.EasyRunCount, t.Weekly.RestDayCount)
		}
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
}
