package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bundleplan/internal/config"
	"bundleplan/internal/logging"
	"bundleplan/internal/watch"
)

var watchDebounce time.Duration

// watchCmd re-prints the plan whenever project inputs change
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the plan, then print it again whenever the project changes",
	Long: `Watches the project file, tsconfig, .env and package.json. After a change
settles the project is reloaded and the plan printed again. Stops on
SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if err := writePlan(ctx, out, cfg); err != nil {
		return err
	}

	w, err := watch.New(watchedFiles(configPath, cfg), watchDebounce, func(ctx context.Context, changed []string) {
		reloaded, err := config.Load(configPath)
		if err != nil {
			logging.WatchError("reload failed: %v", err)
			return
		}
		cfg = reloaded
		if err := writePlan(ctx, out, cfg); err != nil {
			logging.WatchError("plan failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	logging.CLI("watching %d files", len(w.Files()))

	w.Wait()
	w.Stop()
	return nil
}

// watchedFiles lists every file whose change alters the plan.
func watchedFiles(projectFile string, c *config.Config) []string {
	return []string{
		projectFile,
		c.Resolve(c.Tsconfig),
		filepath.Join(c.Root, ".env"),
		filepath.Join(c.Root, "package.json"),
	}
}
