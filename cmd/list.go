package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sethstha/wpforge/internal/tasks"
)

var listCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"list", "ls"},
	Short:   "List every task and pipeline",
	Long: `List the tasks wpforge knows about. Pipelines show the steps they run:
a series stops at the first failure, a batch runs every step and reports
all failures together.

Examples:
  wpforge tasks             # Table output
  wpforge tasks -f json     # JSON output
  wpforge tasks -f yaml     # YAML output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(defaultAppOptions())
		if err != nil {
			return err
		}
		return writeTasks(cmd.OutOrStdout(), a.registry.Tasks(), listFlags.Format)
	},
}

var listFlags *OutputFlags

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddOutputFlags(listCmd, "table", "json", "yaml")
}

func writeTasks(w io.Writer, infos []tasks.Info, format string) error {
	if !isText(format) {
		return writeStructured(w, format, infos)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDESCRIPTION\tSTEPS")
	for _, info := range infos {
		steps := "-"
		if len(info.Steps) > 0 {
			steps = strings.Join(info.Steps, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Kind, info.Description, steps)
	}
	return tw.Flush()
}
