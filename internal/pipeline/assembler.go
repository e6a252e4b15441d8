package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"golang.org/x/sync/errgroup"

	"bundleplan/internal/config"
	"bundleplan/internal/errorcodes"
	"bundleplan/internal/external"
	"bundleplan/internal/logging"
	"bundleplan/internal/naming"
	"bundleplan/internal/sidechannel"
	"bundleplan/internal/transform"
)

const (
	// Classic-module conversion is limited to dependencies, including
	// hoisted ones.
	commonJSInclude = `/node_modules/`

	cacheRoot   = "node_modules/.cache/bundleplan"
	nodeVersion = "8"
	nodeEnvExpr = "process.env.NODE_ENV"
)

// ErrNoSession is returned when Assemble is called without a session.
var ErrNoSession = errors.New("pipeline: session is required")

var (
	babelExtensions = []string{".js", ".jsx", ".es6", ".mjs", ".ts", ".tsx"}

	defaultGlobals = map[string]string{
		"react":        "React",
		"react-native": "ReactNative",
	}
)

// Assembler builds descriptors. It keeps no state between calls; everything a
// build leaves behind goes into the session passed to Assemble.
type Assembler struct {
	// DistDir is prefixed to every output file.
	DistDir string

	// ErrorsPath is the error code registry used when extraction is on.
	ErrorsPath string

	// Tsconfig is read when BuildOptions.Tsconfig is empty.
	Tsconfig string

	// Callee is the error-throwing function to extract; empty means invariant.
	Callee string

	// Policy classifies imports that are not special-cased.
	Policy external.Policy

	// Globals maps external module ids to globals for umd/iife output.
	Globals map[string]string
}

// NewAssembler returns an assembler for the project described by cfg.
func NewAssembler(cfg *config.Config) *Assembler {
	return &Assembler{
		DistDir:    cfg.Resolve(cfg.DistDir),
		ErrorsPath: cfg.Resolve(cfg.ErrorsPath),
		Tsconfig:   cfg.Resolve(cfg.Tsconfig),
	}
}

// Assemble reads the build's tsconfig, falling back to defaults when it is
// missing or unreadable, and builds its descriptor.
func (a *Assembler) Assemble(opts config.BuildOptions, session *sidechannel.Session) (*Descriptor, error) {
	tsconfig := config.DefaultTSConfig
	if file := a.tsconfigPath(opts); file != "" {
		tsconfig, _ = config.ReadTSConfig(file)
	}
	return a.AssembleWith(opts, tsconfig, session)
}

// AssembleWith builds the descriptor from already parsed tsconfig content.
// The only error comes from loading the error code registry.
func (a *Assembler) AssembleWith(opts config.BuildOptions, tsconfig config.TSConfig, session *sidechannel.Session) (*Descriptor, error) {
	if session == nil {
		return nil, ErrNoSession
	}

	minify := opts.ShouldMinify()
	build := opts.BuildName()

	stages, err := a.stages(opts, minify, session)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		BuildName: build,
		Input:     opts.Input,
		External:  external.NewClassifier(a.Policy).IsExternal,
		Output: OutputDescriptor{
			File:      naming.OutputFile(a.DistDir, opts.Name, opts.Format, opts.Env, minify),
			Format:    opts.Format,
			Freeze:    false,
			ESModule:  tsconfig.InteropEnabled(),
			Name:      naming.ModuleName(opts.Name, opts.GlobalName),
			Sourcemap: true,
			Globals:   a.globals(),
			Exports:   "named",
			Treeshake: Treeshake{PropertyReadSideEffects: false},
		},
		Stages: stages,
	}

	logging.Get(logging.CategoryPipeline).With("session", session.ID, "build", build).
		Debug("assembled %d stages for %s: %v", len(stages), d.Output.File, d.Kinds())
	return d, nil
}

// stages lays out the stage list in its fixed order, appending conditional
// stages only when enabled.
func (a *Assembler) stages(opts config.BuildOptions, minify bool, session *sidechannel.Session) ([]Stage, error) {
	var stages []Stage

	if opts.ExtractErrors {
		registry, err := session.Registry(a.ErrorsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load error codes: %w", err)
		}
		extractor, err := errorcodes.ForSession(session, registry, a.Callee)
		if err != nil {
			return nil, err
		}
		stages = append(stages, &ExtractErrorsStage{
			Callee:    extractor.Callee(),
			Registry:  registry.Path(),
			extractor: extractor,
		})
	}

	mainFields := []string{"module", "main"}
	if opts.Target != config.TargetNode {
		mainFields = append(mainFields, "browser")
	}
	stages = append(stages, &NodeResolveStage{MainFields: mainFields})

	if opts.Format == config.FormatUMD {
		stages = append(stages, &CommonJSStage{Include: commonJSInclude})
	}

	stages = append(stages,
		&JSONStage{},
		&ShebangStage{shebang: transform.NewShebang(opts.BuildName(), opts.Input, session.Shebangs)},
		&TypeScriptStage{
			Tsconfig:  a.tsconfigPath(opts),
			CacheRoot: path.Join(cacheRoot, string(opts.Format)) + "/",
			Defaults: config.CompilerOptions{
				SourceMap:   true,
				Declaration: true,
				JSX:         "react",
			},
			Override: config.CompilerOptions{Target: "esnext"},
		},
	)

	babel := &BabelStage{
		Exclude:       "node_modules/**",
		Extensions:    append([]string(nil), babelExtensions...),
		PassPerPreset: true,
		ExtractErrors: opts.ExtractErrors,
		Format:        opts.Format,
	}
	if opts.Target == config.TargetNode {
		babel.Targets = map[string]string{"node": nodeVersion}
	}
	stages = append(stages, babel)

	if opts.Env != "" {
		env, err := json.Marshal(string(opts.Env))
		if err != nil {
			return nil, err
		}
		stages = append(stages, &ReplaceStage{Values: map[string]string{nodeEnvExpr: string(env)}})
	}

	stages = append(stages, &SourceMapsStage{})

	if minify {
		stages = append(stages, &TerserStage{
			Sourcemap:    true,
			Comments:     false,
			KeepInfinity: true,
			PureGetters:  true,
			Passes:       10,
			ECMA:         5,
			Toplevel:     opts.Format == config.FormatCJS,
			Warnings:     true,
		})
	}
	return stages, nil
}

// tsconfigPath is the build's tsconfig, falling back to the project's.
func (a *Assembler) tsconfigPath(opts config.BuildOptions) string {
	if opts.Tsconfig != "" {
		return opts.Tsconfig
	}
	return a.Tsconfig
}

func (a *Assembler) globals() map[string]string {
	src := a.Globals
	if src == nil {
		src = defaultGlobals
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// AssembleAll assembles every build concurrently. Results keep the order of
// builds.
func (a *Assembler) AssembleAll(ctx context.Context, builds []config.BuildOptions, session *sidechannel.Session) ([]*Descriptor, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	out := make([]*Descriptor, len(builds))
	g, ctx := errgroup.WithContext(ctx)
	for i, opts := range builds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := a.Assemble(opts, session)
			if err != nil {
				return fmt.Errorf("%s: %w", opts.BuildName(), err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logging.Pipeline("assembled %d builds (session %s)", len(builds), session.ID)
	return out, nil
}
