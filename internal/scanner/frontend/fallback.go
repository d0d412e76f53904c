package frontend

import (
	"regexp"
	"strings"

	"github.com/apilens/apilens/internal/endpoint"
)

// Line-oriented fallback extraction, engaged per file when structural
// parsing fails. It recognizes the same call shapes minus concatenation and
// computed properties, and may be less precise about method detection.

var (
	fallbackFetchRe = regexp.MustCompile("\\bfetch\\s*\\(\\s*(?:new\\s+Request\\s*\\(\\s*)?([\"'`])")
	fallbackVerbRe  = regexp.MustCompile("\\.(get|post|put|delete|patch|head|options)\\s*\\(\\s*([\"'`])")
	fallbackMethRe  = regexp.MustCompile(`method\s*:\s*["']([A-Za-z]+)["']`)
)

// scanLines extracts descriptors with per-line pattern matching. Positions
// follow the same convention as the structural pass: 1-based line, 0-based
// column pointing at the start of the endpoint string argument.
func scanLines(path string, content []byte) []endpoint.Descriptor {
	var descriptors []endpoint.Descriptor

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		lineNo := i + 1

		for _, m := range fallbackFetchRe.FindAllStringSubmatchIndex(line, -1) {
			quoteStart := m[2]
			raw, end, ok := readDelimited(line, quoteStart)
			if !ok || !isAPIPath(raw) {
				continue
			}
			method := "GET"
			if mm := fallbackMethRe.FindStringSubmatch(line[end:]); mm != nil {
				method = strings.ToUpper(mm[1])
			}
			descriptors = append(descriptors, fallbackDescriptor(path, raw, method, lineNo, quoteStart, end))
		}

		for _, m := range fallbackVerbRe.FindAllStringSubmatchIndex(line, -1) {
			method := strings.ToUpper(line[m[2]:m[3]])
			quoteStart := m[4]
			raw, end, ok := readDelimited(line, quoteStart)
			if !ok || !isAPIPath(raw) {
				continue
			}
			descriptors = append(descriptors, fallbackDescriptor(path, raw, method, lineNo, quoteStart, end))
		}
	}
	return descriptors
}

func fallbackDescriptor(path, raw, method string, line, col, endCol int) endpoint.Descriptor {
	return endpoint.Descriptor{
		RawPath: raw,
		Method:  method,
		Params:  endpoint.Normalize(raw).Params,
		Location: endpoint.Location{
			File:      path,
			Line:      line,
			Column:    col,
			EndLine:   line,
			EndColumn: endCol,
		},
	}
}

// readDelimited reads a quote-delimited string starting at the opening
// quote and returns its content plus the index past the closing quote.
// Strings that do not close on the same line are rejected.
func readDelimited(line string, start int) (string, int, bool) {
	if start >= len(line) {
		return "", 0, false
	}
	quote := line[start]
	for i := start + 1; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == quote {
			return line[start+1 : i], i + 1, true
		}
	}
	return "", 0, false
}
