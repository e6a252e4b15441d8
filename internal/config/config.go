package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bundleplan/internal/logging"
)

// DefaultConfigFile is the project file name looked up in the project root.
const DefaultConfigFile = "bundleplan.yaml"

// Config holds a project's bundle configuration.
type Config struct {
	// Package name; read from package.json when empty.
	Name string `yaml:"name"`

	// Entry points, one build set per input.
	Input []string `yaml:"input"`

	// Output directory for bundles.
	DistDir string `yaml:"dist_dir"`

	// Error code registry file (code -> message JSON).
	ErrorsPath string `yaml:"errors_path"`

	// tsconfig.json used by the typescript stage and for esModuleInterop.
	Tsconfig string `yaml:"tsconfig"`

	// Formats to build, in order.
	Formats []Format `yaml:"formats"`

	Target        Target `yaml:"target"`
	GlobalName    string `yaml:"global_name"`
	ExtractErrors bool   `yaml:"extract_errors"`

	// Minify forces minification on or off for every build.
	Minify *bool `yaml:"minify,omitempty"`

	Logging LoggingConfig `yaml:"logging"`

	// Root is the directory relative paths resolve against. Not serialised.
	Root string `yaml:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input:      []string{filepath.Join("src", "index.ts")},
		DistDir:    "dist",
		ErrorsPath: filepath.Join("errors", "codes.json"),
		Tsconfig:   "tsconfig.json",
		Formats:    []Format{FormatCJS, FormatESM},
		Target:     TargetBrowser,
		Logging: LoggingConfig{
			Level: "info",
		},
		Root: ".",
	}
}

// Load reads the project file at path. A missing file yields defaults.
// A .env file next to it is loaded before environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Root = filepath.Dir(path)

	// Existing environment variables win over .env entries.
	_ = godotenv.Load(filepath.Join(cfg.Root, ".env"))

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		logging.ConfigDebug("no project file at %s, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Name == "" {
		cfg.Name = readPackageName(filepath.Join(cfg.Root, "package.json"))
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Resolve joins a project-relative path onto Root.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("BUNDLEPLAN_DIST_DIR"); dir != "" {
		c.DistDir = dir
	}
	if path := os.Getenv("BUNDLEPLAN_ERRORS_PATH"); path != "" {
		c.ErrorsPath = path
	}
	if path := os.Getenv("BUNDLEPLAN_TSCONFIG"); path != "" {
		c.Tsconfig = path
	}
	if level := os.Getenv("BUNDLEPLAN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// readPackageName returns the "name" field of a package.json, or "".
func readPackageName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		logging.ConfigWarn("package.json %s unusable: %v", path, err)
		return ""
	}
	return pkg.Name
}
