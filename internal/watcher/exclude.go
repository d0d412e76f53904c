package watcher

import (
	"path/filepath"
	"strings"
)

// defaultSkipDirs are directory names never worth watching regardless of
// configured excludes.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"bin":          true,
	"obj":          true,
	"__pycache__":  true,
	"vendor":       true,
}

// sourceExts are the file extensions a change can affect the index through.
var sourceExts = map[string]bool{
	".ts":  true,
	".tsx": true,
	".cs":  true,
	".py":  true,
}

// Matcher decides which filesystem paths are excluded from watching.
type Matcher struct {
	patterns []string
}

// NewMatcher builds a matcher over configured glob patterns. Patterns match
// against the path's base name and against every slash-separated suffix, so
// "generated/*.cs" excludes that subtree wherever it sits.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{patterns: patterns}
}

// MatchDir reports whether a directory should be skipped entirely.
func (m *Matcher) MatchDir(path string) bool {
	if defaultSkipDirs[filepath.Base(path)] {
		return true
	}
	return m.matchPatterns(path)
}

// MatchFile reports whether a file change is irrelevant to the index,
// either by exclusion or because its extension is not a scanned source.
func (m *Matcher) MatchFile(path string) bool {
	if !sourceExts[filepath.Ext(path)] {
		return true
	}
	return m.matchPatterns(path)
}

func (m *Matcher) matchPatterns(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, p := range m.patterns {
		if ok, _ := filepath.Match(p, filepath.Base(path)); ok {
			return true
		}
		for rest := slashed; rest != ""; {
			if ok, _ := filepath.Match(p, rest); ok {
				return true
			}
			idx := strings.IndexByte(rest, '/')
			if idx < 0 {
				break
			}
			rest = rest[idx+1:]
		}
	}
	return false
}
