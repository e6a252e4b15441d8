// Package external decides which imports stay out of a bundle.
package external

import (
	"path"
	"path/filepath"
	"strings"
)

// AsyncHelpersID is the runtime helper module of the async-to-promises
// transform. Lowered code imports it, so it must always be bundled.
const AsyncHelpersID = "babel-plugin-transform-async-to-promises/helpers"

// Policy classifies module ids.
type Policy interface {
	IsExternal(id string) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(id string) bool

func (f PolicyFunc) IsExternal(id string) bool { return f(id) }

// DependencyPolicy keeps every bare module id (a dependency) external and
// bundles relative and absolute paths.
var DependencyPolicy = PolicyFunc(func(id string) bool {
	return !strings.HasPrefix(id, ".") && !path.IsAbs(id) && !filepath.IsAbs(id)
})

// Classifier applies the fixed overrides ahead of a Policy.
type Classifier struct {
	policy Policy
}

// NewClassifier returns a Classifier delegating to p, or to DependencyPolicy
// when p is nil.
func NewClassifier(p Policy) *Classifier {
	if p == nil {
		p = DependencyPolicy
	}
	return &Classifier{policy: p}
}

// IsExternal reports whether id is left out of the bundle.
func (c *Classifier) IsExternal(id string) bool {
	if id == AsyncHelpersID {
		return false
	}
	return c.policy.IsExternal(id)
}
