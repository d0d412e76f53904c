// Package frontend scans TypeScript sources for HTTP client call sites and
// emits one endpoint descriptor per recognized invocation.
package frontend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsgrammar "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/apilens/apilens/internal/endpoint"
)

// DefaultSourceDir is the subdirectory convention for API-bearing frontend
// code. When it does not exist the root itself is scanned.
const DefaultSourceDir = "src"

// skipDirs are generated or dependency directories never scanned.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".git":         true,
}

// verbMethods maps HTTP client member names to HTTP methods.
var verbMethods = map[string]string{
	"get": "GET", "post": "POST", "put": "PUT", "patch": "PATCH",
	"delete": "DELETE", "head": "HEAD", "options": "OPTIONS",
}

// Scanner finds HTTP client invocations in frontend source files.
type Scanner struct {
	// SourceDir overrides DefaultSourceDir when non-empty.
	SourceDir string
	// Log receives progress and per-file warnings; defaults to stderr.
	Log func(format string, args ...any)
}

// New creates a frontend scanner with default settings.
func New() *Scanner {
	return &Scanner{}
}

func (s *Scanner) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Scan walks the frontend root and returns one descriptor per recognized
// call site. Unreadable files are reported as warnings and skipped; they
// never abort the scan.
func (s *Scanner) Scan(ctx context.Context, root string) ([]endpoint.Descriptor, []string, error) {
	base := s.scanBase(root)

	var descriptors []endpoint.Descriptor
	var warnings []string

	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSourceFile(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			s.logf("frontend: skipping %s: %v", path, err)
			return nil
		}

		descriptors = append(descriptors, s.ScanFile(path, content)...)
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("scan frontend root %s: %w", base, err)
	}
	return descriptors, warnings, nil
}

// scanBase resolves the directory to walk: the API-code subdirectory when
// present, otherwise the root itself.
func (s *Scanner) scanBase(root string) string {
	dir := s.SourceDir
	if dir == "" {
		dir = DefaultSourceDir
	}
	base := filepath.Join(root, dir)
	if info, err := os.Stat(base); err == nil && info.IsDir() {
		return base
	}
	return root
}

// ScanFile extracts call-site descriptors from one source file. Structural
// parsing is attempted first; when the parse outcome is a failure the
// line-oriented fallback takes over for this file only.
func (s *Scanner) ScanFile(path string, content []byte) []endpoint.Descriptor {
	tree, err := parseTypeScript(content)
	if err != nil || tree.RootNode().HasError() {
		if tree != nil {
			tree.Close()
		}
		return scanLines(path, content)
	}
	defer tree.Close()

	e := &extractor{filePath: path, content: content}
	e.walk(tree.RootNode())
	return e.descriptors
}

func parseTypeScript(content []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(tsgrammar.GetLanguage())
	return p.ParseCtx(context.Background(), nil, content)
}

func isSourceFile(path string) bool {
	switch filepath.Ext(path) {
	case ".ts", ".tsx":
		return true
	}
	return false
}

// isAPIPath reports whether a resolved path literal is an endpoint
// candidate. The check is case-sensitive.
func isAPIPath(raw string) bool {
	return strings.HasPrefix(raw, "/api/") || strings.HasPrefix(raw, "api/")
}

// extractor walks a tree-sitter TypeScript AST collecting call-site
// descriptors.
type extractor struct {
	filePath    string
	content     []byte
	descriptors []endpoint.Descriptor
}

func (e *extractor) walk(node *sitter.Node) {
	if node.Type() == "call_expression" {
		e.checkCall(node)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		e.walk(node.Child(i))
	}
}

func (e *extractor) checkCall(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil || args == nil {
		return
	}
	argNodes := collectArgs(args)
	if len(argNodes) == 0 {
		return
	}

	switch fn.Type() {
	case "identifier":
		name := e.nodeText(fn)
		if name == "fetch" {
			e.checkFetch(argNodes)
			return
		}
		// client({ url, method })
		if argNodes[0].Type() == "object" {
			e.checkConfigObject(argNodes[0])
			return
		}
		e.checkBareConcat(argNodes[0])

	case "member_expression":
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			return
		}
		if method, ok := verbMethods[e.nodeText(prop)]; ok {
			if raw, loc, ok := e.resolvePath(argNodes[0]); ok {
				e.emit(raw, method, loc)
			}
			return
		}
		e.checkBareConcat(argNodes[0])
	}
}

// checkFetch handles fetch(path, opts?) and fetch(new Request(path, opts?)).
func (e *extractor) checkFetch(argNodes []*sitter.Node) {
	pathNode := argNodes[0]
	var optsNode *sitter.Node
	if len(argNodes) > 1 {
		optsNode = argNodes[1]
	}

	if pathNode.Type() == "new_expression" {
		pathNode, optsNode = e.unwrapRequest(pathNode)
		if pathNode == nil {
			return
		}
	}

	raw, loc, ok := e.resolvePath(pathNode)
	if !ok {
		return
	}
	e.emit(raw, e.methodFromOptions(optsNode), loc)
}

// unwrapRequest extracts the path and options arguments of a
// new Request(path, opts?) expression.
func (e *extractor) unwrapRequest(node *sitter.Node) (pathNode, optsNode *sitter.Node) {
	ctor := node.ChildByFieldName("constructor")
	if ctor == nil || e.nodeText(ctor) != "Request" {
		return nil, nil
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return nil, nil
	}
	argNodes := collectArgs(args)
	if len(argNodes) == 0 {
		return nil, nil
	}
	pathNode = argNodes[0]
	if len(argNodes) > 1 {
		optsNode = argNodes[1]
	}
	return pathNode, optsNode
}

// checkConfigObject handles client({ url, method }) invocations.
func (e *extractor) checkConfigObject(obj *sitter.Node) {
	urlNode := e.objectProperty(obj, "url")
	if urlNode == nil {
		return
	}
	raw, loc, ok := e.resolvePath(urlNode)
	if !ok {
		return
	}

	method := "GET"
	if m := e.objectProperty(obj, "method"); m != nil && m.Type() == "string" {
		method = strings.ToUpper(stripQuotes(e.nodeText(m)))
	}
	e.emit(raw, method, loc)
}

// checkBareConcat handles the concatenation call shape: any call whose path
// argument is built with "+" defaults to GET.
func (e *extractor) checkBareConcat(arg *sitter.Node) {
	if arg.Type() != "binary_expression" {
		return
	}
	raw, loc, ok := e.resolvePath(arg)
	if !ok {
		return
	}
	e.emit(raw, "GET", loc)
}

func (e *extractor) emit(raw, method string, loc endpoint.Location) {
	if !isAPIPath(raw) {
		return
	}
	e.descriptors = append(e.descriptors, endpoint.Descriptor{
		RawPath:  raw,
		Method:   method,
		Params:   endpoint.Normalize(raw).Params,
		Location: loc,
	})
}

// resolvePath resolves a path argument node to its raw endpoint text.
// Accepted forms: string literal, template literal (interpolations kept as
// ${expr} for the normalizer), and "+"-concatenation of literals,
// identifiers and member accesses.
func (e *extractor) resolvePath(node *sitter.Node) (string, endpoint.Location, bool) {
	loc := e.location(node)
	switch node.Type() {
	case "string":
		return stripQuotes(e.nodeText(node)), loc, true
	case "template_string":
		return stripBackticks(e.nodeText(node)), loc, true
	case "binary_expression":
		raw, ok := e.flattenConcat(node)
		return raw, loc, ok
	}
	return "", loc, false
}

// flattenConcat rebuilds a "+"-concatenation as template-literal text so
// dynamic parts go through the same ${} parameter rules as interpolations.
func (e *extractor) flattenConcat(node *sitter.Node) (string, bool) {
	switch node.Type() {
	case "string":
		return stripQuotes(e.nodeText(node)), true
	case "template_string":
		return stripBackticks(e.nodeText(node)), true
	case "identifier", "member_expression":
		return "${" + e.nodeText(node) + "}", true
	case "parenthesized_expression":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			return e.flattenConcat(node.NamedChild(i))
		}
		return "", false
	case "binary_expression":
		op := node.ChildByFieldName("operator")
		if op != nil && e.nodeText(op) != "+" {
			return "", false
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left == nil || right == nil {
			return "", false
		}
		l, ok := e.flattenConcat(left)
		if !ok {
			return "", false
		}
		r, ok := e.flattenConcat(right)
		if !ok {
			return "", false
		}
		return l + r, true
	}
	return "", false
}

// methodFromOptions reads a string "method" property from an options
// object; anything else defaults to GET.
func (e *extractor) methodFromOptions(opts *sitter.Node) string {
	if opts == nil || opts.Type() != "object" {
		return "GET"
	}
	m := e.objectProperty(opts, "method")
	if m == nil || m.Type() != "string" {
		return "GET"
	}
	return strings.ToUpper(stripQuotes(e.nodeText(m)))
}

// objectProperty returns the value node of the named property in an object
// literal, or nil. Identifier and quoted string keys are both recognized.
func (e *extractor) objectProperty(obj *sitter.Node, name string) *sitter.Node {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		pair := obj.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		value := pair.ChildByFieldName("value")
		if key == nil || value == nil {
			continue
		}
		if stripQuotes(e.nodeText(key)) == name {
			return value
		}
	}
	return nil
}

func (e *extractor) location(node *sitter.Node) endpoint.Location {
	start := node.StartPoint()
	end := node.EndPoint()
	return endpoint.Location{
		File:      e.filePath,
		Line:      int(start.Row) + 1,
		Column:    int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column),
	}
}

func (e *extractor) nodeText(node *sitter.Node) string {
	return node.Content(e.content)
}

// collectArgs returns the argument nodes of an arguments list, skipping
// parentheses and commas.
func collectArgs(args *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(i)
		switch child.Type() {
		case "(", ")", ",":
		default:
			out = append(out, child)
		}
	}
	return out
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func stripBackticks(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}
