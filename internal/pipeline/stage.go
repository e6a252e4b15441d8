package pipeline

import (
	"bundleplan/internal/config"
	"bundleplan/internal/errorcodes"
	"bundleplan/internal/transform"
)

// StageKind names a stage variant.
type StageKind string

const (
	KindExtractErrors StageKind = "extract-errors"
	KindNodeResolve   StageKind = "node-resolve"
	KindCommonJS      StageKind = "commonjs"
	KindJSON          StageKind = "json"
	KindShebang       StageKind = "shebang"
	KindTypeScript    StageKind = "typescript"
	KindBabel         StageKind = "babel"
	KindReplace       StageKind = "replace"
	KindSourceMaps    StageKind = "sourcemaps"
	KindTerser        StageKind = "terser"
)

// Stage is one entry of a stage list. The set of implementations is closed.
type Stage interface {
	Kind() StageKind
	stage()
}

// Transformer is implemented by stages that transform source in-process.
type Transformer interface {
	Transform(id, code string) (transform.Result, error)
}

// ExtractErrorsStage records invariant messages in the error code registry.
type ExtractErrorsStage struct {
	Callee   string `json:"callee"`
	Registry string `json:"registry"`

	extractor *errorcodes.Extractor
}

func (s *ExtractErrorsStage) Transform(id, code string) (transform.Result, error) {
	out, err := s.extractor.Transform(id, code)
	if err != nil {
		return transform.Result{}, err
	}
	return transform.Result{Code: out}, nil
}

// NodeResolveStage maps bare imports to files using package.json fields in
// MainFields order.
type NodeResolveStage struct {
	MainFields []string `json:"mainFields"`
}

// CommonJSStage converts CommonJS dependencies matching Include to ES modules.
type CommonJSStage struct {
	Include string `json:"include"`
}

// JSONStage turns JSON imports into modules.
type JSONStage struct{}

// ShebangStage strips the interpreter line and records it in the session.
type ShebangStage struct {
	shebang *transform.Shebang
}

func (s *ShebangStage) Transform(id, code string) (transform.Result, error) {
	return s.shebang.Transform(id, code)
}

// TypeScriptStage compiles TypeScript. Defaults apply under the project's
// tsconfig; Override applies over it.
type TypeScriptStage struct {
	Tsconfig  string                 `json:"tsconfig,omitempty"`
	CacheRoot string                 `json:"cacheRoot"`
	Defaults  config.CompilerOptions `json:"tsconfigDefaults"`
	Override  config.CompilerOptions `json:"tsconfigOverride"`
}

// BabelStage lowers syntax to the target runtime.
type BabelStage struct {
	Exclude       string            `json:"exclude"`
	Extensions    []string          `json:"extensions"`
	PassPerPreset bool              `json:"passPerPreset"`
	Targets       map[string]string `json:"targets,omitempty"`
	ExtractErrors bool              `json:"extractErrors"`
	Format        config.Format     `json:"format"`
}

// ReplaceStage substitutes expressions with literals.
type ReplaceStage struct {
	Values map[string]string `json:"values"`
}

// SourceMapsStage merges the source maps of earlier stages.
type SourceMapsStage struct{}

// TerserStage minifies the bundle.
type TerserStage struct {
	Sourcemap bool `json:"sourcemap"`
	Comments  bool `json:"comments"`

	// Keep Infinity instead of folding it to 1/0.
	KeepInfinity bool `json:"keepInfinity"`

	// Property reads are assumed free of side effects. Getters defined on
	// plain objects may be dropped.
	PureGetters bool `json:"pureGetters"`

	Passes int `json:"passes"`
	ECMA   int `json:"ecma"`

	// Top-level scope optimisations; only safe for cjs output.
	Toplevel bool `json:"toplevel"`
	Warnings bool `json:"warnings"`
}

func (*ExtractErrorsStage) Kind() StageKind { return KindExtractErrors }
func (*NodeResolveStage) Kind() StageKind   { return KindNodeResolve }
func (*CommonJSStage) Kind() StageKind      { return KindCommonJS }
func (*JSONStage) Kind() StageKind          { return KindJSON }
func (*ShebangStage) Kind() StageKind       { return KindShebang }
func (*TypeScriptStage) Kind() StageKind    { return KindTypeScript }
func (*BabelStage) Kind() StageKind         { return KindBabel }
func (*ReplaceStage) Kind() StageKind       { return KindReplace }
func (*SourceMapsStage) Kind() StageKind    { return KindSourceMaps }
func (*TerserStage) Kind() StageKind        { return KindTerser }

func (*ExtractErrorsStage) stage() {}
func (*NodeResolveStage) stage()   {}
func (*CommonJSStage) stage()      {}
func (*JSONStage) stage()          {}
func (*ShebangStage) stage()       {}
func (*TypeScriptStage) stage()    {}
func (*BabelStage) stage()         {}
func (*ReplaceStage) stage()       {}
func (*SourceMapsStage) stage()    {}
func (*TerserStage) stage()        {}
