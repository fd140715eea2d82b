package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gridfire-labs/fieldkit/internal/field"
)

func newListCommand(state *appState) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered fields",
		Long: `List every field visible through the registry chain: built-ins,
script-defined fields, and inherited definitions.`,
		Example: `  # List all fields
  fieldkit list

  # List fields as JSON
  fieldkit list --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, state, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

type fieldInfo struct {
	Field       string `json:"field"`
	Units       string `json:"units,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	TakeLog     bool   `json:"take_log"`
	Particle    bool   `json:"particle,omitempty"`
	Derived     bool   `json:"derived"`
}

func runList(cmd *cobra.Command, state *appState, jsonOut bool) error {
	keys := dedupeKeys(state.reg.Keys())

	infos := make([]fieldInfo, 0, len(keys))
	for _, key := range keys {
		spec, err := state.reg.Lookup(key)
		if err != nil {
			return err
		}
		infos = append(infos, fieldInfo{
			Field:       key.String(),
			Units:       spec.UnitsText(),
			DisplayName: spec.DisplayName(),
			TakeLog:     spec.TakeLog(),
			Particle:    spec.IsParticleType(),
			Derived:     !spec.IsNull(),
		})
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Units", "Display Name", "Log", "Particle", "Derived"})
	for _, info := range infos {
		t.AppendRow(table.Row{
			info.Field, info.Units, info.DisplayName,
			yn(info.TakeLog), yn(info.Particle), yn(info.Derived),
		})
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "(%d fields)\n", len(infos))
	return nil
}

func yn(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func dedupeKeys(keys []field.Key) []field.Key {
	seen := make(map[field.Key]struct{}, len(keys))
	out := make([]field.Key, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
