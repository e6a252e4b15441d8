package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"bundleplan/internal/config"
)

// browserTarget is the lowest syntax level esbuild can emit; const, let and
// classes cannot be lowered further.
const browserTarget = api.ES2015

// EsbuildOptions renders the lowering, substitution and minification stages
// as esbuild transform options, for pipelines that hand those stages to
// esbuild instead of babel and terser. Terser's passes, keep_infinity and
// pure_getters have no esbuild counterpart and are dropped. Browser builds
// and terser's ecma 5 output are capped at ES2015. esbuild has no umd
// output; umd builds keep module syntax for the bundler to wrap.
func (d *Descriptor) EsbuildOptions() api.TransformOptions {
	opts := api.TransformOptions{
		Sourcefile: d.Input,
		Loader:     loaderFor(d.Input),
		Format:     esbuildFormat(d.Output.Format),
		Target:     api.ESNext,
	}
	if d.Output.Sourcemap {
		opts.Sourcemap = api.SourceMapExternal
	}
	if d.Output.Format == config.FormatIIFE {
		opts.GlobalName = d.Output.Name
	}

	for _, s := range d.Stages {
		switch s := s.(type) {
		case *BabelStage:
			if v, ok := s.Targets["node"]; ok {
				opts.Platform = api.PlatformNode
				opts.Engines = []api.Engine{{Name: api.EngineNode, Version: v}}
			} else {
				opts.Platform = api.PlatformBrowser
				opts.Target = browserTarget
			}
		case *ReplaceStage:
			opts.Define = make(map[string]string, len(s.Values))
			for k, v := range s.Values {
				opts.Define[k] = v
			}
		case *TerserStage:
			opts.MinifyWhitespace = true
			opts.MinifyIdentifiers = true
			opts.MinifySyntax = true
			if !s.Comments {
				opts.LegalComments = api.LegalCommentsNone
			}
			if s.ECMA <= 5 && opts.Target == api.ESNext {
				opts.Target = browserTarget
			}
			if s.Toplevel {
				opts.TreeShaking = api.TreeShakingTrue
			}
		}
	}
	return opts
}

func esbuildFormat(f config.Format) api.Format {
	switch f {
	case config.FormatCJS:
		return api.FormatCommonJS
	case config.FormatESM:
		return api.FormatESModule
	case config.FormatIIFE:
		return api.FormatIIFE
	default:
		return api.FormatDefault
	}
}

func loaderFor(input string) api.Loader {
	switch strings.ToLower(filepath.Ext(input)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	case ".json":
		return api.LoaderJSON
	default:
		return api.LoaderJS
	}
}

// EsbuildSummary is a readable rendering of the options EsbuildOptions
// returns, for plan output.
type EsbuildSummary struct {
	Loader        string            `json:"loader"`
	Format        string            `json:"format"`
	Platform      string            `json:"platform"`
	Target        string            `json:"target"`
	Engines       []string          `json:"engines,omitempty"`
	GlobalName    string            `json:"globalName,omitempty"`
	Define        map[string]string `json:"define,omitempty"`
	Minify        bool              `json:"minify"`
	LegalComments string            `json:"legalComments,omitempty"`
	TreeShaking   bool              `json:"treeShaking"`
	Sourcemap     bool              `json:"sourcemap"`
}

// EsbuildSummary describes d.EsbuildOptions().
func (d *Descriptor) EsbuildSummary() EsbuildSummary {
	opts := d.EsbuildOptions()
	sum := EsbuildSummary{
		Loader:      loaderNames[opts.Loader],
		Format:      formatNames[opts.Format],
		Platform:    platformNames[opts.Platform],
		Target:      targetNames[opts.Target],
		GlobalName:  opts.GlobalName,
		Define:      opts.Define,
		Minify:      opts.MinifyWhitespace && opts.MinifyIdentifiers && opts.MinifySyntax,
		TreeShaking: opts.TreeShaking == api.TreeShakingTrue,
		Sourcemap:   opts.Sourcemap != api.SourceMapNone,
	}
	for _, e := range opts.Engines {
		if e.Name == api.EngineNode {
			sum.Engines = append(sum.Engines, "node"+e.Version)
		}
	}
	if opts.LegalComments == api.LegalCommentsNone {
		sum.LegalComments = "none"
	}
	return sum
}

var (
	loaderNames = map[api.Loader]string{
		api.LoaderJS:   "js",
		api.LoaderJSX:  "jsx",
		api.LoaderTS:   "ts",
		api.LoaderTSX:  "tsx",
		api.LoaderJSON: "json",
	}
	formatNames = map[api.Format]string{
		api.FormatDefault:  "default",
		api.FormatCommonJS: "cjs",
		api.FormatESModule: "esm",
		api.FormatIIFE:     "iife",
	}
	platformNames = map[api.Platform]string{
		api.PlatformBrowser: "browser",
		api.PlatformNode:    "node",
		api.PlatformNeutral: "neutral",
	}
	targetNames = map[api.Target]string{
		api.ES2015: "es2015",
		api.ESNext: "esnext",
	}
)
