// Package cli provides the fieldkit command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridfire-labs/fieldkit/internal/analyzer"
	"github.com/gridfire-labs/fieldkit/internal/config"
	"github.com/gridfire-labs/fieldkit/internal/fields"
	"github.com/gridfire-labs/fieldkit/internal/registry"
	"github.com/gridfire-labs/fieldkit/internal/scriptfield"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var cfgFile string

// appState is what every subcommand needs: the resolved configuration, the
// logger it describes, and the registry with built-ins plus script fields.
type appState struct {
	cfg    *config.Config
	logger *slog.Logger
	reg    *registry.Registry
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	state := &appState{}

	rootCmd := &cobra.Command{
		Use:   "fieldkit",
		Short: "Fieldkit - derived-field dependency engine",
		Long: `Fieldkit manages derived simulation fields: a registry of field
definitions, synthetic probing to discover which raw fields and parameters
each derived field reads, and the dependency graph built from those probes.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = cfg.NewLogger()

			reg, err := buildRegistry(state)
			if err != nil {
				return err
			}
			state.reg = reg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fieldkit.yaml)")
	rootCmd.PersistentFlags().String("dataset", "", "Dataset name for cache keys")
	rootCmd.PersistentFlags().Int("probe-side", config.DefaultProbeSide, "Synthetic probe grid side length")
	rootCmd.PersistentFlags().Int("particles", config.DefaultParticles, "Synthetic particle count")
	rootCmd.PersistentFlags().String("scripts-dir", config.DefaultScriptsDir, "Directory of .star field scripts")
	rootCmd.PersistentFlags().String("cache-path", config.DefaultCachePath, "Dependency cache database path")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format (text|json)")
	rootCmd.PersistentFlags().Int("concurrency", config.DefaultConcurrency, "Parallel probes during analysis")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newListCommand(state))
	rootCmd.AddCommand(newDepsCommand(state))
	rootCmd.AddCommand(newDAGCommand(state))
	rootCmd.AddCommand(newReplCommand(state))
	rootCmd.AddCommand(newWatchCommand(state))

	return rootCmd
}

// buildRegistry chains a local registry on the universal built-in set and
// loads the configured script directory into it.
func buildRegistry(state *appState) (*registry.Registry, error) {
	reg, err := registry.CreateWithFallback(fields.Universal(), "local")
	if err != nil {
		return nil, err
	}
	loader := scriptfield.NewLoader(reg, state.logger)
	if err := loader.LoadDir(state.cfg.ScriptsDir); err != nil {
		return nil, fmt.Errorf("loading field scripts: %w", err)
	}
	return reg, nil
}

// newAnalyzer builds an analyzer configured from the app state.
func newAnalyzer(state *appState) *analyzer.Analyzer {
	return analyzer.New(state.reg,
		analyzer.WithSide(state.cfg.ProbeSide),
		analyzer.WithParticles(state.cfg.Particles),
		analyzer.WithConcurrency(state.cfg.Concurrency),
		analyzer.WithLogger(state.logger))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
