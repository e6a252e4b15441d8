package config

// Format is the module format of a bundle.
type Format string

const (
	FormatCJS  Format = "cjs"
	FormatESM  Format = "esm"
	FormatUMD  Format = "umd"
	FormatIIFE Format = "iife"
)

// Env is the NODE_ENV a bundle is built for. The zero value means unset.
type Env string

const (
	EnvProduction  Env = "production"
	EnvDevelopment Env = "development"
)

// Target is the runtime a bundle is resolved and lowered for. The zero value
// behaves like TargetBrowser.
type Target string

const (
	TargetNode    Target = "node"
	TargetBrowser Target = "browser"
)

// BuildOptions describe a single bundle. Values are treated as immutable once
// handed to the assembler.
type BuildOptions struct {
	Input         string `json:"input" yaml:"input"`
	Name          string `json:"name" yaml:"name"`
	Format        Format `json:"format" yaml:"format"`
	Env           Env    `json:"env,omitempty" yaml:"env,omitempty"`
	Target        Target `json:"target,omitempty" yaml:"target,omitempty"`
	Minify        *bool  `json:"minify,omitempty" yaml:"minify,omitempty"`
	ExtractErrors bool   `json:"extractErrors,omitempty" yaml:"extract_errors,omitempty"`
	Tsconfig      string `json:"tsconfig,omitempty" yaml:"tsconfig,omitempty"`

	// GlobalName overrides the derived global variable name of umd/iife bundles.
	GlobalName string `json:"globalName,omitempty" yaml:"global_name,omitempty"`
}

// ShouldMinify reports whether the bundle is minified: the explicit flag when
// set, otherwise only production builds.
func (o BuildOptions) ShouldMinify() bool {
	if o.Minify != nil {
		return *o.Minify
	}
	return o.Env == EnvProduction
}

// BuildName keys the per-build side-channel entries. Builds of one package in
// different formats or environments get distinct names.
func (o BuildOptions) BuildName() string {
	name := o.Name + ":" + string(o.Format)
	if o.Env != "" {
		name += ":" + string(o.Env)
	}
	return name
}

// Bool returns a pointer to b, for the optional Minify field.
func Bool(b bool) *bool {
	return &b
}
