package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencyPolicy(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"react", true},
		{"@babel/runtime/helpers/extends", true},
		{"./util", false},
		{"../lib/index", false},
		{".", false},
		{"/abs/path/module.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, DependencyPolicy.IsExternal(tt.id))
		})
	}
}

func TestClassifier_AsyncHelpersAreBundled(t *testing.T) {
	c := NewClassifier(nil)

	assert.False(t, c.IsExternal(AsyncHelpersID))
	// A sibling id of the same package is still a dependency.
	assert.True(t, c.IsExternal("babel-plugin-transform-async-to-promises/other"))
	assert.True(t, c.IsExternal("babel-plugin-transform-async-to-promises"))
}

func TestClassifier_OverrideBeatsCustomPolicy(t *testing.T) {
	everything := PolicyFunc(func(string) bool { return true })
	c := NewClassifier(everything)

	assert.False(t, c.IsExternal(AsyncHelpersID))
	assert.True(t, c.IsExternal("./local"))
}
