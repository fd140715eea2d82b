package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gridfire-labs/fieldkit/internal/analyzer"
	"github.com/gridfire-labs/fieldkit/internal/depcache"
	"github.com/gridfire-labs/fieldkit/internal/field"
)

func newDepsCommand(state *appState) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "deps <field>",
		Short: "Show the raw fields and parameters a field depends on",
		Long: `Probe a derived field against a synthetic dataset and report the raw
fields it reads and the field parameters it requests. When a dataset name is
configured, the result is stored in the dependency cache.`,
		Example: `  # Probe a built-in field
  fieldkit deps CellMass

  # Typed key, JSON output
  fieldkit deps gas/Density --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, state, field.ParseKey(args[0]), jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func runDeps(cmd *cobra.Command, state *appState, key field.Key, jsonOut bool) error {
	deps, err := newAnalyzer(state).FieldDependencies(key)
	if err != nil {
		return err
	}

	if state.cfg.Dataset != "" {
		if err := cacheDeps(state, deps); err != nil {
			state.logger.Warn("failed to cache dependencies", "error", err)
		}
	}

	if jsonOut {
		out := struct {
			Field      string   `json:"field"`
			Fields     []string `json:"fields"`
			Parameters []string `json:"parameters"`
		}{Field: deps.Key.String(), Parameters: deps.Parameters}
		for _, dep := range deps.Fields {
			out.Fields = append(out.Fields, dep.String())
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Name"})
	for _, dep := range deps.Fields {
		t.AppendRow(table.Row{"field", dep.String()})
	}
	for _, p := range deps.Parameters {
		t.AppendRow(table.Row{"parameter", p})
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d fields, %d parameters\n",
		deps.Key, len(deps.Fields), len(deps.Parameters))
	return nil
}

// cacheDeps records a probe result in the dependency cache.
func cacheDeps(state *appState, deps *analyzer.Dependencies) error {
	store := depcache.NewStore()
	if err := store.Open(state.cfg.CachePath); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.InitSchema(); err != nil {
		return err
	}
	sess, err := store.BeginSession(state.cfg.Dataset)
	if err != nil {
		return err
	}
	return store.Put(sess.ID, state.cfg.Dataset, depcache.Entry{
		Key:        deps.Key,
		Fields:     deps.Fields,
		Parameters: deps.Parameters,
	})
}
