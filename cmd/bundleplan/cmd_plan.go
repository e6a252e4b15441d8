package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"bundleplan/internal/build"
	"bundleplan/internal/config"
	"bundleplan/internal/pipeline"
	"bundleplan/internal/sidechannel"
)

// planCmd prints the descriptors of every build
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the pipeline descriptor of every build as JSON",
	Long: `Expands the project into its builds (cjs and umd per environment, esm and
iife once) and prints each build's descriptor: output options and the
ordered stage list.

With --esbuild, prints for each build the esbuild transform options its
lowering, env substitution and minify stages map to instead.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

var planEsbuild bool

func runPlan(cmd *cobra.Command, args []string) error {
	if planEsbuild {
		return writeEsbuildPlan(commandContext(cmd), cmd.OutOrStdout(), cfg)
	}
	return writePlan(commandContext(cmd), cmd.OutOrStdout(), cfg)
}

type esbuildEntry struct {
	BuildName string                  `json:"buildName"`
	Esbuild   pipeline.EsbuildSummary `json:"esbuild"`
}

// writeEsbuildPlan writes the esbuild options of every build of c.
func writeEsbuildPlan(ctx context.Context, w io.Writer, c *config.Config) error {
	descriptors, err := assemblePlan(ctx, c)
	if err != nil {
		return err
	}
	entries := make([]esbuildEntry, len(descriptors))
	for i, d := range descriptors {
		entries[i] = esbuildEntry{BuildName: d.BuildName, Esbuild: d.EsbuildSummary()}
	}
	return encodeJSON(w, entries)
}

func assemblePlan(ctx context.Context, c *config.Config) ([]*pipeline.Descriptor, error) {
	builds := build.Expand(c)
	session := sidechannel.NewSession()
	return pipeline.NewAssembler(c).AssembleAll(ctx, builds, session)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writePlan assembles every build of c in a fresh session and writes the
// descriptors as an indented JSON array.
func writePlan(ctx context.Context, w io.Writer, c *config.Config) error {
	descriptors, err := assemblePlan(ctx, c)
	if err != nil {
		return err
	}
	if descriptors == nil {
		descriptors = []*pipeline.Descriptor{}
	}
	return encodeJSON(w, descriptors)
}
