package errorcodes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundleplan/internal/sidechannel"
)

func newExtractor(t *testing.T) (*Extractor, *sidechannel.ErrorCodeRegistry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "errors", "codes.json")
	reg, err := sidechannel.LoadErrorCodeRegistry(path)
	require.NoError(t, err)
	e, err := NewExtractor(reg, "")
	require.NoError(t, err)
	return e, reg, path
}

func TestScan_Literals(t *testing.T) {
	e, _, _ := newExtractor(t)

	tests := []struct {
		name string
		id   string
		src  string
		want []string
	}{
		{
			name: "single quoted",
			id:   "src/index.js",
			src:  `invariant(ok, 'Expected a string');`,
			want: []string{"Expected a string"},
		},
		{
			name: "concatenation",
			id:   "src/index.js",
			src:  `invariant(ok, "Expected " + 'a ' + ("func" + "tion"));`,
			want: []string{"Expected a function"},
		},
		{
			name: "template without substitutions",
			id:   "src/index.js",
			src:  "invariant(ok, `Plain template`);",
			want: []string{"Plain template"},
		},
		{
			name: "escapes",
			id:   "src/index.js",
			src:  `invariant(ok, 'It\'s \"quoted\"\ttab');`,
			want: []string{"It's \"quoted\"\ttab"},
		},
		{
			name: "typescript",
			id:   "src/store.ts",
			src: `export function get<T>(key: string): T {
  invariant(key.length > 0 as boolean, 'Key must not be empty');
  return cache[key] as T;
}`,
			want: []string{"Key must not be empty"},
		},
		{
			name: "tsx",
			id:   "src/Button.tsx",
			src: `export const Button = (p: Props) => {
  invariant(p.onClick, 'Button needs onClick');
  return <button onClick={p.onClick}>{p.label}</button>;
};`,
			want: []string{"Button needs onClick"},
		},
		{
			name: "other callees and short calls ignored",
			id:   "src/index.js",
			src: `warning(ok, 'not an invariant');
invariant(ok);
obj.invariant(ok, 'member call');
invariant(a, 'first'); if (x) { invariant(b, 'second', extra); }`,
			want: []string{"first", "second"},
		},
		{
			name: "comment between arguments",
			id:   "src/index.js",
			src:  `invariant(ok, /* why */ 'after comment');`,
			want: []string{"after comment"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Scan(context.Background(), tt.id, []byte(tt.src))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScan_NonStaticMessage(t *testing.T) {
	e, _, _ := newExtractor(t)

	for _, src := range []string{
		"invariant(ok, message);",
		"invariant(ok, `Expected ${kind}`);",
		"invariant(ok, 'Expected ' + kind);",
		"invariant(ok, 'a' - 'b');",
	} {
		_, err := e.Scan(context.Background(), "src/index.js", []byte(src))
		assert.ErrorIs(t, err, ErrNonStaticMessage, src)
	}
}

func TestTransform_RegistersAndPassesThrough(t *testing.T) {
	e, reg, path := newExtractor(t)
	src := "invariant(a, 'first');\ninvariant(b, 'second');\ninvariant(c, 'first');\n"

	out, err := e.Transform("src/index.js", src)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	want := map[int]string{0: "first", 1: "second"}
	if diff := cmp.Diff(want, reg.Codes()); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"0\": \"first\",\n  \"1\": \"second\"\n}\n", string(data))
}

func TestTransform_StableAcrossPasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.json")
	sources := map[string]string{
		"a.js": "invariant(x, 'alpha'); invariant(y, 'beta');",
		"b.js": "invariant(x, 'gamma'); invariant(y, 'alpha');",
	}

	pass := func() map[int]string {
		reg, err := sidechannel.LoadErrorCodeRegistry(path)
		require.NoError(t, err)
		e, err := NewExtractor(reg, "")
		require.NoError(t, err)
		for _, id := range []string{"a.js", "b.js"} {
			_, err := e.Transform(id, sources[id])
			require.NoError(t, err)
		}
		return reg.Codes()
	}

	first := pass()
	second := pass()
	assert.Equal(t, map[int]string{0: "alpha", 1: "beta", 2: "gamma"}, first)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass renumbered codes (-first +second):\n%s", diff)
	}
}

func TestTransform_SkipsScannedSource(t *testing.T) {
	e, _, path := newExtractor(t)
	src := "invariant(a, 'once');"

	_, err := e.Transform("src/index.js", src)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	// Cached: no rescan, no rewrite.
	_, err = e.Transform("src/index.js", src)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestTransform_ErrorAbortsWithoutRegistering(t *testing.T) {
	e, reg, _ := newExtractor(t)

	_, err := e.Transform("src/index.js", "invariant(a, 'ok'); invariant(b, msg);")
	assert.ErrorIs(t, err, ErrNonStaticMessage)
	assert.ErrorContains(t, err, "src/index.js:1")
	assert.Zero(t, reg.Len())
}

func TestNewExtractor_CustomCallee(t *testing.T) {
	reg, err := sidechannel.LoadErrorCodeRegistry(filepath.Join(t.TempDir(), "codes.json"))
	require.NoError(t, err)
	e, err := NewExtractor(reg, "assertPublic")
	require.NoError(t, err)
	assert.Equal(t, "assertPublic", e.Callee())

	got, err := e.Scan(context.Background(), "x.js", []byte("assertPublic(a, 'custom'); invariant(b, 'ignored');"))
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, got)
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "", unquote(`''`))
	assert.Equal(t, "a\nb", unquote(`"a\nb"`))
	assert.Equal(t, "A", unquote(`'\x41'`))
	assert.Equal(t, "é", unquote(`'é'`))
	assert.Equal(t, "ab", unquote("'a\\\nb'"))
	assert.Equal(t, "q", unquote(`'\q'`))
}

func TestUnquote_JavaScriptEscapes(t *testing.T) {
	tests := []struct {
		lit  string
		want string
	}{
		{`'\u{41}bc'`, "Abc"},
		{`'\u{1F600}'`, "\U0001F600"},
		{`'\u0041'`, "A"},
		{`'\uD83D\uDE00'`, "\U0001F600"},
		{`'\xe9'`, "é"},
		{`'\a'`, "a"},
		{`'\e\z'`, "ez"},
		{`'\b\f\v'`, "\b\f\v"},
		{`'\0'`, "\x00"},
		{"'a\\\r\nb'", "ab"},
		{"'a\\\rb'", "ab"},
		{"'a\\\u2028b'", "ab"},
		{"'a\\\u2029b'", "ab"},
		{`'\'\"\\'`, `'"\`},
		{"`a\\`b`", "a`b"},
		{`'\u{}'`, "u{}"},
		{`'\xZZ'`, "xZZ"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unquote(tt.lit), "unquote(%q)", tt.lit)
	}
}

func TestScan_EscapedMessagesMatchRuntimeText(t *testing.T) {
	e, _, _ := newExtractor(t)

	src := "invariant(ok, 'Missing \\u{41}rgument');\ninvariant(ok, 'Line \\\r\ncontinued');\n"
	got, err := e.Scan(context.Background(), "src/index.js", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"Missing Argument", "Line continued"}, got)
}

func TestForSession_SharesScanCacheAcrossBuilds(t *testing.T) {
	session := sidechannel.NewSession()
	reg, err := session.Registry(filepath.Join(t.TempDir(), "codes.json"))
	require.NoError(t, err)

	a, err := ForSession(session, reg, "")
	require.NoError(t, err)
	b, err := ForSession(session, reg, DefaultCallee)
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := ForSession(session, reg, "assertPublic")
	require.NoError(t, err)
	assert.NotSame(t, a, other)

	_, err = a.Transform("src/index.js", "invariant(ok, 'once');")
	require.NoError(t, err)
	assert.True(t, b.scanned.Contains(cacheKey("src/index.js", "invariant(ok, 'once');")))
}
