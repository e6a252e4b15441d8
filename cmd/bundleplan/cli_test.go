package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bundleplan/internal/config"
)

func setupProject(t *testing.T, yaml string) string {
	t.Helper()
	ws := t.TempDir()
	path := filepath.Join(ws, config.DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "package.json"), []byte(`{"name": "@acme/widget"}`), 0644))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	cfg = loaded
	configPath = path
	logger = zap.NewNop()
	t.Cleanup(func() {
		cfg = nil
		configPath = config.DefaultConfigFile
	})
	return ws
}

type planEntry struct {
	BuildName string `json:"buildName"`
	Output    struct {
		File string `json:"file"`
		Name string `json:"name"`
	} `json:"output"`
	Plugins []struct {
		Kind string `json:"kind"`
	} `json:"plugins"`
}

func TestPlanCmd(t *testing.T) {
	ws := setupProject(t, "formats: [cjs, esm, umd]\n")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runPlan(cmd, nil))

	var plan []planEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	require.Len(t, plan, 5)

	names := make([]string, len(plan))
	for i, p := range plan {
		names[i] = p.BuildName
		assert.Equal(t, "widget", p.Output.Name)
	}
	assert.Equal(t, []string{
		"@acme/widget:cjs:development",
		"@acme/widget:cjs:production",
		"@acme/widget:esm",
		"@acme/widget:umd:development",
		"@acme/widget:umd:production",
	}, names)
	assert.Equal(t, filepath.Join(ws, "dist", "widget.cjs.production.min.js"), plan[1].Output.File)
	assert.Equal(t, "terser", plan[1].Plugins[len(plan[1].Plugins)-1].Kind)
}

func TestPlanCmd_ThroughRoot(t *testing.T) {
	ws := setupProject(t, "name: tool\nformats: [esm]\nlogging:\n  level: error\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", filepath.Join(ws, config.DefaultConfigFile), "plan"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	var plan []planEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	require.Len(t, plan, 1)
	assert.Equal(t, "tool:esm", plan[0].BuildName)
}

func TestExtractCmd(t *testing.T) {
	ws := setupProject(t, "formats: [esm]\n")

	a := filepath.Join(ws, "a.ts")
	b := filepath.Join(ws, "b.js")
	require.NoError(t, os.WriteFile(a, []byte("invariant(x > 0, 'x must be positive');\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("invariant(y, `y is required`);\ninvariant(x > 0, 'x must be positive');\n"), 0644))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runExtract(cmd, []string{a, b}))
	assert.Contains(t, out.String(), "(2 new)")

	data, err := os.ReadFile(filepath.Join(ws, "errors", "codes.json"))
	require.NoError(t, err)
	var codes map[string]string
	require.NoError(t, json.Unmarshal(data, &codes))
	assert.Len(t, codes, 2)
	assert.ElementsMatch(t, []string{"x must be positive", "y is required"}, []string{codes["0"], codes["1"]})

	// A second run finds nothing new.
	out.Reset()
	require.NoError(t, runExtract(cmd, []string{a, b}))
	assert.Contains(t, out.String(), "(0 new)")
}

func TestExtractCmd_Errors(t *testing.T) {
	ws := setupProject(t, "formats: [esm]\n")
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	assert.Error(t, runExtract(cmd, []string{filepath.Join(ws, "missing.ts")}))

	dynamic := filepath.Join(ws, "dynamic.js")
	require.NoError(t, os.WriteFile(dynamic, []byte("invariant(ok, message);\n"), 0644))
	assert.Error(t, runExtract(cmd, []string{dynamic}))
}

func TestWatchedFiles(t *testing.T) {
	ws := setupProject(t, "tsconfig: tsconfig.build.json\n")
	assert.Equal(t, []string{
		configPath,
		filepath.Join(ws, "tsconfig.build.json"),
		filepath.Join(ws, ".env"),
		filepath.Join(ws, "package.json"),
	}, watchedFiles(configPath, cfg))
}

func TestWritePlan_Cancelled(t *testing.T) {
	setupProject(t, "formats: [esm]\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, writePlan(ctx, &bytes.Buffer{}, cfg), context.Canceled)
}

func TestPlanCmd_Esbuild(t *testing.T) {
	setupProject(t, "formats: [cjs, iife]\ntarget: browser\n")
	planEsbuild = true
	t.Cleanup(func() { planEsbuild = false })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runPlan(cmd, nil))

	var entries []struct {
		BuildName string `json:"buildName"`
		Esbuild   struct {
			Format   string            `json:"format"`
			Platform string            `json:"platform"`
			Target   string            `json:"target"`
			Define   map[string]string `json:"define"`
			Minify   bool              `json:"minify"`
		} `json:"esbuild"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 3)

	assert.Equal(t, "@acme/widget:cjs:development", entries[0].BuildName)
	assert.Equal(t, "cjs", entries[0].Esbuild.Format)
	assert.Equal(t, "browser", entries[0].Esbuild.Platform)
	assert.Equal(t, "es2015", entries[0].Esbuild.Target)
	assert.Equal(t, map[string]string{"process.env.NODE_ENV": `"development"`}, entries[0].Esbuild.Define)
	assert.False(t, entries[0].Esbuild.Minify)

	assert.True(t, entries[1].Esbuild.Minify)
	assert.Equal(t, "iife", entries[2].Esbuild.Format)
}
