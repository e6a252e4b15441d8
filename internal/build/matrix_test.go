package build

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundleplan/internal/config"
)

func TestExpand_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Name = "my-lib"

	builds := Expand(cfg)
	want := []string{"my-lib:cjs:development", "my-lib:cjs:production", "my-lib:esm"}
	if diff := cmp.Diff(want, Names(builds)); diff != "" {
		t.Errorf("build names mismatch (-want +got):\n%s", diff)
	}
	for _, b := range builds {
		assert.Equal(t, filepath.Join("src", "index.ts"), b.Input)
		assert.Equal(t, config.TargetBrowser, b.Target)
		assert.Equal(t, "tsconfig.json", b.Tsconfig)
	}
}

func TestExpand_AllFormats(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Name = "x"
	cfg.Formats = []config.Format{config.FormatUMD, config.FormatIIFE, config.FormatESM, config.FormatCJS}

	assert.Equal(t, []string{
		"x:umd:development",
		"x:umd:production",
		"x:iife",
		"x:esm",
		"x:cjs:development",
		"x:cjs:production",
	}, Names(Expand(cfg)))
}

func TestExpand_MultipleInputs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Root = "/project"
	cfg.Name = "x"
	cfg.Input = []string{"src/index.ts", "src/cli.ts"}
	cfg.Formats = []config.Format{config.FormatESM}

	builds := Expand(cfg)
	require.Len(t, builds, 2)
	assert.Equal(t, filepath.Join("/project", "src", "index.ts"), builds[0].Input)
	assert.Equal(t, filepath.Join("/project", "src", "cli.ts"), builds[1].Input)
	assert.Equal(t, filepath.Join("/project", "tsconfig.json"), builds[0].Tsconfig)
}

func TestExpand_CopiesProjectSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Name = "@acme/tool"
	cfg.Formats = []config.Format{config.FormatCJS}
	cfg.Target = config.TargetNode
	cfg.ExtractErrors = true
	cfg.GlobalName = "AcmeTool"
	cfg.Minify = config.Bool(false)

	for _, b := range Expand(cfg) {
		assert.Equal(t, "@acme/tool", b.Name)
		assert.Equal(t, config.TargetNode, b.Target)
		assert.True(t, b.ExtractErrors)
		assert.Equal(t, "AcmeTool", b.GlobalName)
		require.NotNil(t, b.Minify)
		assert.False(t, b.ShouldMinify())
	}
}

func TestExpand_UnknownFormatSkipped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Name = "x"
	cfg.Formats = []config.Format{"amd", config.FormatESM}

	assert.Equal(t, []string{"x:esm"}, Names(Expand(cfg)))
}

func TestExpand_Empty(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input = nil
	assert.Empty(t, Expand(cfg))
}
