// Package logging provides config-driven categorized logging for bundleplan.
// Every category is a named child of a single zap logger. Categories can be
// switched off individually from the project file; a disabled category gets a
// no-op logger.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryPipeline Category = "pipeline" // Stage list and descriptor assembly
	CategoryNaming   Category = "naming"   // Output file and global name resolution
	CategoryShebang  Category = "shebang"  // Shebang stripping and restoration
	CategoryErrors   Category = "errors"   // Error code extraction and registry writes
	CategoryConfig   Category = "config"   // Project file, .env and tsconfig reads
	CategoryWatch    Category = "watch"    // File watcher
	CategoryCLI      Category = "cli"      // Command line front end
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	JSON       bool            // production JSON encoder instead of console
	Categories map[string]bool // per-category toggles, missing means enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	base     = zap.NewNop()
	disabled = map[Category]bool{}
	loggers  = make(map[Category]*Logger)
)

// Configure builds the root zap logger from opts and resets category loggers.
func Configure(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg = zap.NewDevelopmentConfig()
	}
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	off := make(map[Category]bool)
	for cat, enabled := range opts.Categories {
		if !enabled {
			off[Category(cat)] = true
		}
	}

	mu.Lock()
	base = l
	disabled = off
	loggers = make(map[Category]*Logger)
	mu.Unlock()
	return l, nil
}

// SetLogger replaces the root logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	base = l
	disabled = map[Category]bool{}
	loggers = make(map[Category]*Logger)
	mu.Unlock()
}

// Sync flushes the root logger.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return !disabled[category]
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Pipeline logs to the pipeline category
func Pipeline(format string, args ...interface{}) {
	Get(CategoryPipeline).Info(format, args...)
}

// PipelineDebug logs debug to the pipeline category
func PipelineDebug(format string, args ...interface{}) {
	Get(CategoryPipeline).Debug(format, args...)
}

// NamingDebug logs debug to the naming category
func NamingDebug(format string, args ...interface{}) {
	Get(CategoryNaming).Debug(format, args...)
}

// ShebangDebug logs debug to the shebang category
func ShebangDebug(format string, args ...interface{}) {
	Get(CategoryShebang).Debug(format, args...)
}

// Errors logs to the errors category
func Errors(format string, args ...interface{}) {
	Get(CategoryErrors).Info(format, args...)
}

// ErrorsDebug logs debug to the errors category
func ErrorsDebug(format string, args ...interface{}) {
	Get(CategoryErrors).Debug(format, args...)
}

// ErrorsWarn logs warning to the errors category
func ErrorsWarn(format string, args ...interface{}) {
	Get(CategoryErrors).Warn(format, args...)
}

// ConfigDebug logs debug to the config category
func ConfigDebug(format string, args ...interface{}) {
	Get(CategoryConfig).Debug(format, args...)
}

// ConfigWarn logs warning to the config category
func ConfigWarn(format string, args ...interface{}) {
	Get(CategoryConfig).Warn(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debug(format, args...)
}

// WatchError logs error to the watch category
func WatchError(format string, args ...interface{}) {
	Get(CategoryWatch).Error(format, args...)
}

// CLI logs to the cli category
func CLI(format string, args ...interface{}) {
	Get(CategoryCLI).Info(format, args...)
}
