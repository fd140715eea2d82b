package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/gridfire-labs/fieldkit/internal/field"
)

func newReplCommand(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive field lookups",
		Long: `An interactive loop for inspecting fields: type a field name to see its
definition, "deps <field>" for its dependencies, ".list" for all fields and
".quit" to exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, state)
		},
	}
}

func runRepl(cmd *cobra.Command, state *appState) error {
	historyFile := filepath.Join(os.TempDir(), ".fieldkit_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fieldkit> ",
		HistoryFile:     historyFile,
		AutoComplete:    newFieldCompleter(state),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fieldkit REPL (%d fields registered)\n", state.reg.Len())
	fmt.Fprintln(out, "Type a field name, \"deps <field>\", \".list\" or \".quit\"")
	fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == ".quit" || line == ".exit":
			return nil
		case line == ".list":
			for _, key := range dedupeKeys(state.reg.Keys()) {
				fmt.Fprintln(out, key)
			}
		case strings.HasPrefix(line, "deps "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "deps "))
			if err := runDeps(cmd, state, field.ParseKey(name), false); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			showField(out, state, field.ParseKey(line))
		}
	}
	return nil
}

func showField(out io.Writer, state *appState, key field.Key) {
	spec, err := state.reg.Lookup(key)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s\n", spec.Key())
	if spec.UnitsText() != "" {
		fmt.Fprintf(out, "  units:    %s\n", spec.UnitsText())
	}
	if spec.DisplayName() != "" {
		fmt.Fprintf(out, "  display:  %s\n", spec.DisplayName())
	}
	fmt.Fprintf(out, "  take_log: %v\n", spec.TakeLog())
	if spec.IsParticleType() {
		fmt.Fprintln(out, "  particle: yes")
	}
	if spec.IsNull() {
		fmt.Fprintln(out, "  derived:  no (primitive, synthesized by shape)")
	} else {
		fmt.Fprintln(out, "  derived:  yes")
	}
	if n := len(spec.Validators()); n > 0 {
		fmt.Fprintf(out, "  validators: %d\n", n)
	}
}

func newFieldCompleter(state *appState) readline.AutoCompleter {
	var items []readline.PrefixCompleterInterface
	for _, key := range dedupeKeys(state.reg.Keys()) {
		items = append(items, readline.PcItem(key.String()))
	}
	names := make([]readline.PrefixCompleterInterface, len(items))
	copy(names, items)
	items = append(items,
		readline.PcItem("deps", names...),
		readline.PcItem(".list"),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}
