package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bundleplan/internal/errorcodes"
	"bundleplan/internal/sidechannel"
)

var extractCallee string

// extractCmd refreshes the error code registry from source files
var extractCmd = &cobra.Command{
	Use:   "extract-errors [files...]",
	Short: "Record invariant messages of source files in the error code registry",
	Long: `Runs error code extraction over the given files without bundling. New
messages get the next free code; existing codes never change.

Example:
  bundleplan extract-errors src/index.ts src/parser.ts`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	session := sidechannel.NewSession()
	registry, err := session.Registry(cfg.Resolve(cfg.ErrorsPath))
	if err != nil {
		return err
	}
	extractor, err := errorcodes.NewExtractor(registry, extractCallee)
	if err != nil {
		return err
	}
	before := registry.Len()

	g, _ := errgroup.WithContext(commandContext(cmd))
	g.SetLimit(runtime.NumCPU())
	for _, file := range args {
		g.Go(func() error {
			src, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			if _, err := extractor.Transform(file, string(src)); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("error codes extracted",
			zap.Int("files", len(args)),
			zap.Int("added", registry.Len()-before),
			zap.String("registry", registry.Path()))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d codes in %s (%d new)\n", registry.Len(), registry.Path(), registry.Len()-before)
	return nil
}
