// Package naming derives bundle file names and global variable names from a
// package name.
package naming

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bundleplan/internal/config"
	"bundleplan/internal/logging"
)

var (
	// Scope prefix, leading non-letters, characters outside [\w.-] and
	// trailing non-alphanumerics, removed in a single pass.
	unsafePackageChars = regexp.MustCompile(`(^@.*/)|((^[^a-zA-Z]+)|[^\w.-])|([^a-zA-Z0-9]+$)`)
	unsafeVariableChars = regexp.MustCompile(`((^[^a-zA-Z]+)|[^\w.-])|([^a-zA-Z0-9]+$)`)

	scopePrefix = regexp.MustCompile(`^@.*/`)
)

// SafePackageName lowercases name and strips everything that is not usable in
// a file name, including an npm scope.
func SafePackageName(name string) string {
	return unsafePackageChars.ReplaceAllString(strings.ToLower(name), "")
}

// SafeVariableName turns name into a camel-cased identifier. A name with no
// letters falls back to its digits behind an underscore, or "_" when it has
// none either, so the result is always a valid identifier.
func SafeVariableName(name string) string {
	cleaned := unsafeVariableChars.ReplaceAllString(strings.ToLower(SafePackageName(name)), "")
	if v := camelCase(cleaned); v != "" {
		return v
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, scopePrefix.ReplaceAllString(name, ""))
	return "_" + digits
}

// camelCase joins the words of s, capitalising all but the first. Words are
// runs of letters or runs of digits, so "foo2bar" becomes "foo2Bar".
func camelCase(s string) string {
	// A Caser keeps state and cannot be shared between goroutines.
	title := cases.Title(language.Und)
	var (
		b     strings.Builder
		word  strings.Builder
		kind  int
		count int
	)
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if count > 0 {
			w = title.String(w)
		}
		b.WriteString(w)
		word.Reset()
		count++
	}
	for _, r := range s {
		k := 0
		switch {
		case unicode.IsLetter(r):
			k = 1
		case unicode.IsDigit(r):
			k = 2
		}
		if k != kind {
			flush()
			kind = k
		}
		if k != 0 {
			word.WriteRune(r)
		}
	}
	flush()
	return b.String()
}

// OutputFile returns the bundle path for a build:
// <distDir>/<safe name>.<format>[.<env>][.min].js
func OutputFile(distDir, name string, format config.Format, env config.Env, minify bool) string {
	min := ""
	if minify {
		min = "min"
	}
	segments := []string{
		filepath.Join(distDir, SafePackageName(name)),
		string(format),
		string(env),
		min,
		"js",
	}
	parts := segments[:0]
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	file := strings.Join(parts, ".")
	logging.NamingDebug("output file for %s (%s): %s", name, format, file)
	return file
}

// ModuleName returns explicit when set, otherwise the identifier form of name.
func ModuleName(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return SafeVariableName(name)
}
