package config

import (
	"encoding/json"
	"fmt"
	"os"

	"bundleplan/internal/logging"
)

// TSConfig is the subset of a tsconfig.json the assembler reads.
type TSConfig struct {
	// ESModuleInterop at the top level is honoured ahead of the compiler option.
	ESModuleInterop *bool           `json:"esModuleInterop,omitempty"`
	CompilerOptions CompilerOptions `json:"compilerOptions"`
}

// CompilerOptions holds the TypeScript compiler options the pipeline sets or reads.
type CompilerOptions struct {
	ESModuleInterop *bool  `json:"esModuleInterop,omitempty"`
	SourceMap       bool   `json:"sourceMap,omitempty"`
	Declaration     bool   `json:"declaration,omitempty"`
	JSX             string `json:"jsx,omitempty"`
	Target          string `json:"target,omitempty"`
}

// DefaultTSConfig is used whenever no tsconfig can be read.
var DefaultTSConfig = TSConfig{}

// InteropEnabled reports whether esModuleInterop is on.
func (c TSConfig) InteropEnabled() bool {
	if c.ESModuleInterop != nil {
		return *c.ESModuleInterop
	}
	if c.CompilerOptions.ESModuleInterop != nil {
		return *c.CompilerOptions.ESModuleInterop
	}
	return false
}

// ParseTSConfig decodes tsconfig content.
func ParseTSConfig(data []byte) (TSConfig, error) {
	var cfg TSConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return TSConfig{}, fmt.Errorf("failed to parse tsconfig: %w", err)
	}
	return cfg, nil
}

// ReadTSConfig reads path or falls back to DefaultTSConfig. The boolean is
// false when the fallback was used; a missing or malformed file is not an error.
func ReadTSConfig(path string) (TSConfig, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.ConfigDebug("tsconfig %s not read, using defaults: %v", path, err)
		return DefaultTSConfig, false
	}
	cfg, err := ParseTSConfig(data)
	if err != nil {
		logging.ConfigWarn("tsconfig %s unusable, using defaults: %v", path, err)
		return DefaultTSConfig, false
	}
	return cfg, true
}
