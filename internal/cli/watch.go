package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces bursts of editor write events.
const watchDebounce = 250 * time.Millisecond

func newWatchCommand(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze field scripts on change",
		Long: `Watch the configured script directory and, whenever a .star file is
written, rebuild the registry and re-run the dependency analysis, reporting
fields whose probes fail.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, state)
		},
	}
}

func runWatch(cmd *cobra.Command, state *appState) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(state.cfg.ScriptsDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", state.cfg.ScriptsDir, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s for field script changes\n", state.cfg.ScriptsDir)

	// Initial pass.
	reanalyze(cmd, state)

	var debounce *time.Timer
	ctx := cmd.Context()
	for {
		var fire <-chan time.Time
		if debounce != nil {
			fire = debounce.C
		}
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".star" {
				continue
			}
			state.logger.Debug("script changed", "path", event.Name, "op", event.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			state.logger.Warn("watch error", "error", err)

		case <-fire:
			debounce = nil
			reg, err := buildRegistry(state)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", err)
				continue
			}
			state.reg = reg
			reanalyze(cmd, state)
		}
	}
}

// reanalyze probes the registry and prints a one-line summary plus any
// failing fields.
func reanalyze(cmd *cobra.Command, state *appState) {
	results, failures := newAnalyzer(state).AnalyzeAll(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] analyzed %d fields, %d failed\n",
		time.Now().Format("15:04:05"), len(results), len(failures))
	for key, err := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", key, err)
	}
}
