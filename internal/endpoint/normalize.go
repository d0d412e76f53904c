package endpoint

import (
	"strings"
	"unicode"
)

// wildcard replaces every recognized parameter when building a match key.
const wildcard = "*"

// Normalized holds the canonical forms of one endpoint path.
type Normalized struct {
	// Display is the path with every parameter rendered as {name}, literal
	// text lowercased, and any query suffix removed.
	Display string
	// Params lists parameter names in order of appearance.
	Params []string
}

// Normalize converts a raw endpoint string into its canonical display form
// and ordered parameter list. Two parameter syntaxes are recognized:
// {name} / {name:constraint} on the definition side and ${expr} template
// interpolation on the call side. Normalization is idempotent:
// Normalize(n.Display) == n for any n produced here.
func Normalize(raw string) Normalized {
	path := stripQuery(raw)

	var display strings.Builder
	var params []string

	for i := 0; i < len(path); {
		// ${expr}: template interpolation. Route parameter only when the
		// immediately preceding literal ends with '/'; otherwise it is a
		// query value and is dropped from the path entirely.
		if path[i] == '$' && i+1 < len(path) && path[i+1] == '{' {
			inner, next := readBraced(path, i+1)
			isRoute := i > 0 && path[i-1] == '/'
			if isRoute {
				name := paramNameFromExpr(inner)
				display.WriteString("{" + name + "}")
				params = append(params, name)
			}
			i = next
			continue
		}

		// {name} or {name:constraint}: definition-side parameter.
		if path[i] == '{' {
			inner, next := readBraced(path, i)
			name := paramNameFromTemplate(inner)
			display.WriteString("{" + name + "}")
			params = append(params, name)
			i = next
			continue
		}

		display.WriteByte(lowerByte(path[i]))
		i++
	}

	return Normalized{Display: display.String(), Params: params}
}

// Key derives the index hash key for a raw path and HTTP method: the
// normalized path with every parameter replaced by a single wildcard,
// lowercased, suffixed with ":<METHOD>". Two descriptors with the same key
// occupy the same endpoint slot regardless of parameter names.
func Key(raw, method string) string {
	n := Normalize(raw)

	var b strings.Builder
	for i := 0; i < len(n.Display); {
		if n.Display[i] == '{' {
			_, next := readBraced(n.Display, i)
			b.WriteString(wildcard)
			i = next
			continue
		}
		b.WriteByte(n.Display[i])
		i++
	}

	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		m = "GET"
	}
	return b.String() + ":" + m
}

// stripQuery removes everything from the first literal '?' onward.
func stripQuery(s string) string {
	if idx := strings.IndexByte(s, '?'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// readBraced reads a brace-delimited span starting at the '{' at position
// start, tracking nesting so interpolated expressions containing braces are
// consumed whole. It returns the inner text and the index just past the
// closing brace. An unterminated span runs to the end of the string.
func readBraced(s string, start int) (inner string, next int) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start+1 : i], i + 1
			}
		}
	}
	return s[start+1:], len(s)
}

// paramNameFromTemplate extracts the parameter name from a definition-side
// template: the constraint after the first ':' is discarded, and the
// catch-all/optional markers '*', '**' and '?' are stripped.
func paramNameFromTemplate(inner string) string {
	name := inner
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimPrefix(name, "**")
	name = strings.TrimPrefix(name, "*")
	name = strings.TrimSuffix(name, "?")
	name = strings.TrimSpace(name)
	if name == "" {
		return "param"
	}
	return name
}

// paramNameFromExpr derives a parameter name from a template interpolation
// expression: a bare identifier is the name, a member access yields its
// last segment, a call yields the callee's identifier, and anything else
// falls back to the literal name "param".
func paramNameFromExpr(expr string) string {
	s := strings.TrimSpace(expr)

	// Call: take the callee, then resolve it like a plain expression.
	if idx := strings.IndexByte(s, '('); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}

	// Member access: keep the final segment. Optional chaining and
	// non-null assertions are incidental syntax, not part of the name.
	s = strings.ReplaceAll(s, "?.", ".")
	s = strings.TrimSuffix(s, "!")
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		s = s[idx+1:]
	}

	if isIdentifier(s) {
		return s
	}
	return "param"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
