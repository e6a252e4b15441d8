// Package errorcodes implements the error-code extraction stage: it finds
// invariant(condition, message) calls in raw source and assigns every new
// message a code in the error code registry.
package errorcodes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"bundleplan/internal/logging"
	"bundleplan/internal/sidechannel"
)

// DefaultCallee is the function whose second argument is an error message.
const DefaultCallee = "invariant"

// ErrNonStaticMessage is returned when a message argument cannot be reduced
// to a string at build time.
var ErrNonStaticMessage = errors.New("error message is not a static string")

const scannedCacheSize = 4096

// Extractor scans sources and records their messages.
type Extractor struct {
	registry *sidechannel.ErrorCodeRegistry
	callee   string

	// Sources already scanned, keyed by grammar and content hash. Shared by
	// every build of a session through ForSession, since builds of several
	// formats transform the same files.
	scanned *lru.Cache[string, struct{}]
}

// NewExtractor returns an extractor writing to registry. An empty callee
// means DefaultCallee.
func NewExtractor(registry *sidechannel.ErrorCodeRegistry, callee string) (*Extractor, error) {
	if callee == "" {
		callee = DefaultCallee
	}
	cache, err := lru.New[string, struct{}](scannedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan cache: %w", err)
	}
	return &Extractor{registry: registry, callee: callee, scanned: cache}, nil
}

// ForSession returns the session's extractor for registry and callee,
// creating it on first use so that all builds of the session share one scan
// cache.
func ForSession(session *sidechannel.Session, registry *sidechannel.ErrorCodeRegistry, callee string) (*Extractor, error) {
	if callee == "" {
		callee = DefaultCallee
	}
	v, err := session.Shared("errorcodes.extractor:"+registry.Path()+":"+callee, func() (any, error) {
		return NewExtractor(registry, callee)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Extractor), nil
}

// Callee returns the function name the extractor looks for.
func (e *Extractor) Callee() string {
	return e.callee
}

// Transform registers the messages in code and returns code unchanged. The
// registry is flushed when anything new was found.
func (e *Extractor) Transform(id, code string) (string, error) {
	key := cacheKey(id, code)
	if e.scanned.Contains(key) {
		return code, nil
	}

	messages, err := e.Scan(context.Background(), id, []byte(code))
	if err != nil {
		return "", err
	}

	added := 0
	for _, msg := range messages {
		if c, ok := e.registry.Register(msg); ok {
			added++
			logging.ErrorsDebug("%s: code %d for %q", id, c, msg)
		}
	}
	if added > 0 {
		if err := e.registry.Flush(); err != nil {
			return "", err
		}
		logging.Errors("%s: %d new error codes written to %s", id, added, e.registry.Path())
	}

	e.scanned.Add(key, struct{}{})
	return code, nil
}

// Scan returns the static messages of every callee call in src, in source
// order.
func (e *Extractor) Scan(ctx context.Context, id string, src []byte) ([]string, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageFor(id))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", id, err)
	}
	defer tree.Close()

	var (
		messages []string
		walkErr  error
	)
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if walkErr != nil {
			return
		}
		if n.Type() == "call_expression" {
			if arg := e.messageArgument(n, src); arg != nil {
				msg, err := evalToString(arg, src)
				if err != nil {
					walkErr = fmt.Errorf("%s:%d: %w", id, arg.StartPoint().Row+1, err)
					return
				}
				messages = append(messages, msg)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	if walkErr != nil {
		return nil, walkErr
	}
	return messages, nil
}

// messageArgument returns the second argument of a call to the callee, or
// nil for any other call.
func (e *Extractor) messageArgument(call *sitter.Node, src []byte) *sitter.Node {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || fn.Content(src) != e.callee {
		return nil
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	seen := 0
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "comment" {
			continue
		}
		if seen == 1 {
			return arg
		}
		seen++
	}
	return nil
}

// evalToString folds string literals, substitution-free template literals and
// "+" concatenations of those.
func evalToString(n *sitter.Node, src []byte) (string, error) {
	switch n.Type() {
	case "string":
		return unquote(n.Content(src)), nil
	case "template_string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return "", fmt.Errorf("%w: template literal with substitutions", ErrNonStaticMessage)
			}
		}
		return unquote(n.Content(src)), nil
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		if op == nil || op.Type() != "+" {
			break
		}
		left, err := evalToString(n.ChildByFieldName("left"), src)
		if err != nil {
			return "", err
		}
		right, err := evalToString(n.ChildByFieldName("right"), src)
		if err != nil {
			return "", err
		}
		return left + right, nil
	case "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return evalToString(n.NamedChild(0), src)
		}
	}
	return "", fmt.Errorf("%w: unsupported %s", ErrNonStaticMessage, n.Type())
}

// unquote strips the delimiters of a JavaScript string or template literal
// and decodes its escape sequences the way the JavaScript runtime does.
func unquote(lit string) string {
	if len(lit) < 2 {
		return ""
	}
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, `\`) {
		return body
	}

	var b strings.Builder
	for len(body) > 0 {
		if body[0] != '\\' || len(body) == 1 {
			b.WriteByte(body[0])
			body = body[1:]
			continue
		}
		body = body[1:]
		switch next := body[0]; next {
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '\n':
			// Line continuation.
		case '\r':
			if strings.HasPrefix(body, "\r\n") {
				body = body[1:]
			}
		case '0':
			if len(body) == 1 || body[1] < '0' || body[1] > '9' {
				b.WriteByte(0)
			} else {
				b.WriteByte(next)
			}
		case 'x', 'u':
			if r, n, ok := hexEscape(body); ok {
				b.WriteRune(r)
				body = body[n:]
				continue
			}
			b.WriteByte(next)
		default:
			r, size := utf8.DecodeRuneInString(body)
			// U+2028 and U+2029 continue the line like a newline does.
			if r != '\u2028' && r != '\u2029' {
				b.WriteRune(r)
			}
			body = body[size:]
			continue
		}
		body = body[1:]
	}
	return b.String()
}

// hexEscape decodes \xHH, \uHHHH or \u{H...} at the start of s (the
// backslash already consumed) and returns the rune and bytes used.
func hexEscape(s string) (rune, int, bool) {
	if s[0] == 'u' && len(s) > 1 && s[1] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 3 {
			return 0, 0, false
		}
		v, err := strconv.ParseUint(s[2:end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, 0, false
		}
		return rune(v), end + 1, true
	}
	n := 3
	if s[0] == 'u' {
		n = 5
	}
	if len(s) < n {
		return 0, 0, false
	}
	if s[0] == 'x' {
		value, _, _, err := strconv.UnquoteChar(`\`+s[:n], 0)
		if err != nil {
			return 0, 0, false
		}
		return value, n, true
	}
	v, err := strconv.ParseUint(s[1:n], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	r := rune(v)
	if utf16.IsSurrogate(r) && strings.HasPrefix(s[n:], `\u`) && len(s) >= n+6 {
		if lo, err := strconv.ParseUint(s[n+2:n+6], 16, 16); err == nil {
			if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
				return pair, n + 6, true
			}
		}
	}
	return r, n, true
}

func languageFor(id string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(id)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func cacheKey(id, code string) string {
	sum := sha256.Sum256([]byte(code))
	return strings.ToLower(filepath.Ext(id)) + ":" + hex.EncodeToString(sum[:])
}
