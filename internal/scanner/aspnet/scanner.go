// Package aspnet scans C# sources for attribute-routed controller
// endpoints: a class-level [Route] prefix composed with method-level HTTP
// verb attributes.
package aspnet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/apilens/apilens/internal/endpoint"
)

// verbAttributes maps ASP.NET action attributes to HTTP methods.
var verbAttributes = map[string]string{
	"HttpGet":     "GET",
	"HttpPost":    "POST",
	"HttpPut":     "PUT",
	"HttpDelete":  "DELETE",
	"HttpPatch":   "PATCH",
	"HttpHead":    "HEAD",
	"HttpOptions": "OPTIONS",
}

var skipDirs = map[string]bool{
	"bin":          true,
	"obj":          true,
	".git":         true,
	"node_modules": true,
}

// Scanner extracts endpoint definitions from attribute-routed C# sources.
type Scanner struct {
	// Log receives per-file warnings; defaults to stderr.
	Log func(format string, args ...any)
}

// New creates an attribute-style backend scanner.
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

// Scan walks the backend root and returns one descriptor per HTTP verb
// attribute found in controller classes. The entrypoint argument is unused
// for attribute-style backends. Files that fail to read or parse are
// reported as warnings and contribute zero descriptors.
func (s *Scanner) Scan(ctx context.Context, root, entrypoint string) ([]endpoint.Descriptor, []string, error) {
	var descriptors []endpoint.Descriptor
	var warnings []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
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
		if filepath.Ext(path) != ".cs" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			s.logf("aspnet: skipping %s: %v", path, err)
			return nil
		}

		descriptors = append(descriptors, s.ScanFile(path, content)...)
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("scan backend root %s: %w", root, err)
	}
	return descriptors, warnings, nil
}

// ScanFile extracts endpoint descriptors from one C# file. A file with no
// recognizable controller class contributes zero descriptors.
func (s *Scanner) ScanFile(path string, content []byte) []endpoint.Descriptor {
	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		s.logf("aspnet: parse %s: %v", path, err)
		return nil
	}
	defer tree.Close()

	e := &extractor{filePath: path, content: content}
	e.walkDeclarations(tree.RootNode())
	return e.descriptors
}

// extractor walks a tree-sitter C# AST collecting route descriptors.
type extractor struct {
	filePath    string
	content     []byte
	descriptors []endpoint.Descriptor
}

// walkDeclarations descends through namespaces looking for class
// declarations; this is the first pass establishing controller context.
func (e *extractor) walkDeclarations(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "class_declaration":
			e.extractController(child)
		case "namespace_declaration", "file_scoped_namespace_declaration", "declaration_list":
			e.walkDeclarations(child)
		}
	}
}

// extractController checks a class declaration for the controller pattern
// and, when it matches, runs the second pass over its body.
func (e *extractor) extractController(node *sitter.Node) {
	name := ""
	var bodyNode *sitter.Node
	var baseTypes []string
	var attrs []attribute

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			name = e.nodeText(child)
		case "attribute_list":
			attrs = append(attrs, e.extractAttributes(child)...)
		case "base_list":
			baseTypes = e.extractBaseList(child)
		case "declaration_list":
			bodyNode = child
		}
	}
	if name == "" {
		return
	}

	// Nested controller classes are possible in principle; scan the body
	// for them regardless of whether this class matches.
	defer func() {
		if bodyNode != nil {
			e.walkDeclarations(bodyNode)
		}
	}()

	if !isController(name, baseTypes, attrs) {
		return
	}

	prefix := ""
	for _, a := range attrs {
		if a.name == "Route" {
			prefix = a.arg
			break
		}
	}

	if bodyNode != nil {
		e.extractActions(bodyNode, name, prefix)
	}
}

// extractActions is the second pass: every HTTP verb attribute inside the
// class span is an independent route emission, taking its action name from
// the method the attribute is attached to.
func (e *extractor) extractActions(body *sitter.Node, className, prefix string) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "method_declaration" {
			continue
		}

		action := methodName(child, e.content)
		for j := 0; j < int(child.NamedChildCount()); j++ {
			attrList := child.NamedChild(j)
			if attrList.Type() != "attribute_list" {
				continue
			}
			for _, a := range e.extractAttributes(attrList) {
				method, ok := verbAttributes[a.name]
				if !ok {
					continue
				}
				path := ComposeRoute(prefix, a.arg, className, action)
				e.descriptors = append(e.descriptors, endpoint.Descriptor{
					RawPath:  path,
					Method:   method,
					Params:   routeParams(path),
					Location: a.location,
				})
			}
		}
	}
}

// attribute is one parsed C# attribute occurrence.
type attribute struct {
	name     string
	arg      string // first quoted string argument, if any
	location endpoint.Location
}

func (e *extractor) extractAttributes(list *sitter.Node) []attribute {
	var attrs []attribute
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		if child.Type() != "attribute" {
			continue
		}
		text := e.nodeText(child)
		start := child.StartPoint()
		end := child.EndPoint()
		attrs = append(attrs, attribute{
			name: attributeName(text),
			arg:  attributeArg(text),
			location: endpoint.Location{
				File:      e.filePath,
				Line:      int(start.Row) + 1,
				Column:    int(start.Column),
				EndLine:   int(end.Row) + 1,
				EndColumn: int(end.Column),
			},
		})
	}
	return attrs
}

func (e *extractor) extractBaseList(node *sitter.Node) []string {
	var bases []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "generic_name", "qualified_name":
			bases = append(bases, e.nodeText(child))
		}
	}
	return bases
}

func (e *extractor) nodeText(node *sitter.Node) string {
	return node.Content(e.content)
}

// methodName returns the declared name of a method: the last identifier
// before the parameter list (an earlier identifier would be the return type).
func methodName(node *sitter.Node, content []byte) string {
	name := ""
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			name = child.Content(content)
		case "parameter_list":
			return name
		}
	}
	return name
}

// isController applies the name-plus-base-type pattern: an [ApiController]
// marker, a *Controller class name, or a controller base class.
func isController(name string, baseTypes []string, attrs []attribute) bool {
	for _, a := range attrs {
		if a.name == "ApiController" {
			return true
		}
	}
	if strings.HasSuffix(name, "Controller") {
		return true
	}
	for _, b := range baseTypes {
		if b == "Controller" || b == "ControllerBase" {
			return true
		}
	}
	return false
}

func attributeName(text string) string {
	if idx := strings.IndexByte(text, '('); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(text)
}

// attributeArg extracts the first quoted string argument of an attribute,
// e.g. Route("api/[controller]") -> api/[controller].
func attributeArg(text string) string {
	open := strings.IndexByte(text, '"')
	if open < 0 {
		return ""
	}
	close := strings.IndexByte(text[open+1:], '"')
	if close < 0 {
		return ""
	}
	return text[open+1 : open+1+close]
}

// ComposeRoute builds the full route from a class-level prefix and a
// method-level fragment, substituting the [controller] and [action]
// placeholders, collapsing duplicate slashes, guaranteeing a single /api
// prefix, and stripping one trailing slash.
func ComposeRoute(prefix, fragment, className, actionName string) string {
	path := prefix
	if fragment != "" {
		path += "/" + fragment
	}

	controller := strings.ToLower(trimSuffixFold(className, "Controller"))
	path = replaceFold(path, "[controller]", controller)
	path = replaceFold(path, "[action]", strings.ToLower(actionName))

	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	lower := strings.ToLower(path)
	if lower != "/api" && !strings.HasPrefix(lower, "/api/") {
		path = "/api" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

// routeParams extracts ordered parameter names, deduplicated by first
// occurrence.
func routeParams(path string) []string {
	seen := make(map[string]bool)
	var params []string
	for _, p := range endpoint.Normalize(path).Params {
		if seen[p] {
			continue
		}
		seen[p] = true
		params = append(params, p)
	}
	return params
}

// replaceFold replaces every case-insensitive occurrence of old with new.
func replaceFold(s, old, new string) string {
	var b strings.Builder
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	for {
		idx := strings.Index(lower, oldLower)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		b.WriteString(new)
		s = s[idx+len(old):]
		lower = lower[idx+len(old):]
	}
}

// trimSuffixFold strips a case-insensitive suffix.
func trimSuffixFold(s, suffix string) string {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}
