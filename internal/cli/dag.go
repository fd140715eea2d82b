package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newDAGCommand(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the field dependency graph as execution levels",
		Long: `Probe every registered field and group the resulting dependency graph
into levels: level 0 holds the raw fields, and each later level holds fields
computable once the previous level is available.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd, state)
		},
	}
	return cmd
}

func runDAG(cmd *cobra.Command, state *appState) error {
	a := newAnalyzer(state)

	graph, _, failures, err := a.Analyze(cmd.Context())
	if err != nil {
		return err
	}

	levels, err := graph.ExecutionLevels()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Level", "Fields"})
	for i, level := range levels {
		names := make([]string, len(level))
		for j, key := range level {
			names[j] = key.String()
		}
		t.AppendRow(table.Row{i, strings.Join(names, ", ")})
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "%d fields, %d edges\n", graph.NodeCount(), graph.EdgeCount())
	for key, ferr := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s could not be probed: %v\n", key, ferr)
	}
	return nil
}
