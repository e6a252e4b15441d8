package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bundleplan/internal/config"
	"bundleplan/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bundleplan",
	Short: "Assemble and inspect bundle pipelines",
	Long: `bundleplan turns a project description into bundle pipeline descriptors:
one per format and environment, each listing the stages a bundler runs in
order and where the bundle is written.

The project is read from bundleplan.yaml (overridable with --config); the
package name falls back to package.json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		opts := cfg.Logging.Options()
		if verbose {
			opts.Level = "debug"
		}
		logger, err = logging.Configure(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("config loaded", zap.String("path", configPath), zap.String("name", cfg.Name))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Project file")

	planCmd.Flags().BoolVar(&planEsbuild, "esbuild", false, "Print esbuild transform options instead of descriptors")
	extractCmd.Flags().StringVar(&extractCallee, "callee", "", "Error-throwing function (default: invariant)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before re-planning (default 300ms)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
