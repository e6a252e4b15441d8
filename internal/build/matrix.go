// Package build expands a project configuration into the individual bundle
// builds it describes.
//
// A project lists the formats it ships; each format fans out into one build
// per environment it is published for:
//
//	cjs   development, production
//	esm   (no environment)
//	umd   development, production
//	iife  (no environment)
//
// Every configured input gets its own set.
package build

import (
	"bundleplan/internal/config"
	"bundleplan/internal/logging"
)

// envsByFormat lists the environments built for each format. A nil slice
// means a single build with NODE_ENV left untouched.
var envsByFormat = map[config.Format][]config.Env{
	config.FormatCJS:  {config.EnvDevelopment, config.EnvProduction},
	config.FormatESM:  nil,
	config.FormatUMD:  {config.EnvDevelopment, config.EnvProduction},
	config.FormatIIFE: nil,
}

// Expand returns the builds for cfg in input order, then format order as
// configured. Paths are resolved against cfg.Root. Unknown formats are
// skipped with a warning.
func Expand(cfg *config.Config) []config.BuildOptions {
	var builds []config.BuildOptions
	for _, input := range cfg.Input {
		for _, format := range cfg.Formats {
			envs, ok := envsByFormat[format]
			if !ok {
				logging.ConfigWarn("unknown format %q ignored", format)
				continue
			}
			base := config.BuildOptions{
				Input:         cfg.Resolve(input),
				Name:          cfg.Name,
				Format:        format,
				Target:        cfg.Target,
				Minify:        cfg.Minify,
				ExtractErrors: cfg.ExtractErrors,
				Tsconfig:      cfg.Resolve(cfg.Tsconfig),
				GlobalName:    cfg.GlobalName,
			}
			if len(envs) == 0 {
				builds = append(builds, base)
				continue
			}
			for _, env := range envs {
				b := base
				b.Env = env
				builds = append(builds, b)
			}
		}
	}
	logging.ConfigDebug("expanded %d inputs x %d formats into %d builds", len(cfg.Input), len(cfg.Formats), len(builds))
	return builds
}

// Names returns the build names of builds, in order.
func Names(builds []config.BuildOptions) []string {
	names := make([]string, len(builds))
	for i, b := range builds {
		names[i] = b.BuildName()
	}
	return names
}
