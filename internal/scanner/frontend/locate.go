package frontend

import (
	"github.com/apilens/apilens/internal/endpoint"
)

// Match is the result of a point query: the endpoint whose path argument
// contains the queried position.
type Match struct {
	// Path is the canonical display path of the matched endpoint.
	Path string
	// Method is the uppercase HTTP method derived from the call shape.
	Method string
	// Location is the exact text range of the endpoint string argument.
	Location endpoint.Location
}

// LocateAt reports whether the given text position (1-based line, 0-based
// column) falls inside a recognized endpoint string argument. It runs the
// same extraction as ScanFile, tree-based with the per-file fallback, so
// interactive lookups and batch scans never disagree on what counts as an
// endpoint.
func (s *Scanner) LocateAt(path string, content []byte, line, col int) (Match, bool) {
	for _, d := range s.ScanFile(path, content) {
		if containsPosition(d.Location, line, col) {
			return Match{
				Path:     endpoint.Normalize(d.RawPath).Display,
				Method:   d.Method,
				Location: d.Location,
			}, true
		}
	}
	return Match{}, false
}

func containsPosition(loc endpoint.Location, line, col int) bool {
	if line < loc.Line || line > loc.EndLine {
		return false
	}
	if line == loc.Line && col < loc.Column {
		return false
	}
	if line == loc.EndLine && col > loc.EndColumn {
		return false
	}
	return true
}
