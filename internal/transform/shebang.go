// Package transform implements the in-process source transforms of the
// pipeline. Stages that only parameterise an external engine live in
// internal/pipeline; the ones here run on source text.
package transform

import (
	"path/filepath"
	"regexp"

	"bundleplan/internal/logging"
	"bundleplan/internal/sidechannel"
)

// Result is the output of a source transform. A nil Map means the stage
// produces no source map and a later stage rebuilds the chain.
type Result struct {
	Code string
	Map  []byte
}

// The interpreter line only counts at offset zero. The line terminator is
// consumed with it so the line is removed rather than blanked.
var shebangPattern = regexp.MustCompile(`^#!([^\r\n]*)(?:\r?\n)?`)

// Shebang strips a leading "#!" line and records it for the build.
type Shebang struct {
	build string
	entry string
	store *sidechannel.ShebangStore
}

// NewShebang returns the transform for build. When entry is set only that
// module's result is recorded; other modules are stripped silently.
func NewShebang(build, entry string, store *sidechannel.ShebangStore) *Shebang {
	return &Shebang{build: build, entry: entry, store: store}
}

// Transform strips the shebang from code.
func (s *Shebang) Transform(id, code string) (Result, error) {
	shebang := ""
	if m := shebangPattern.FindStringSubmatchIndex(code); m != nil {
		shebang = "#!" + code[m[2]:m[3]]
		code = code[m[1]:]
	}

	if s.entry == "" || sameModule(id, s.entry) {
		s.store.Set(s.build, shebang)
		if shebang != "" {
			logging.ShebangDebug("%s: recorded %q from %s", s.build, shebang, id)
		}
	}
	return Result{Code: code}, nil
}

// RestoreShebang prepends a recorded shebang to emitted code. An empty
// shebang leaves code untouched.
func RestoreShebang(shebang, code string) string {
	if shebang == "" {
		return code
	}
	return shebang + "\n" + code
}

// sameModule compares module ids as paths; bundlers usually pass absolute ids
// while entries are configured relative to the working directory.
func sameModule(id, entry string) bool {
	if filepath.Clean(id) == filepath.Clean(entry) {
		return true
	}
	absID, err := filepath.Abs(id)
	if err != nil {
		return false
	}
	absEntry, err := filepath.Abs(entry)
	if err != nil {
		return false
	}
	return absID == absEntry
}
