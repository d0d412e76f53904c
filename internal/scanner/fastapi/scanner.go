// Package fastapi scans Python sources for decorator-routed endpoints,
// starting from a configured entrypoint and following router inclusion and
// import edges to compose full route prefixes.
package fastapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/apilens/apilens/internal/endpoint"
)

// maxDepth caps router-graph traversal; together with the visited set it
// guarantees termination on cyclic includes.
const maxDepth = 10

// routeVerbs are the decorator method names that declare routes.
var routeVerbs = map[string]string{
	"get": "GET", "post": "POST", "put": "PUT", "patch": "PATCH",
	"delete": "DELETE", "head": "HEAD", "options": "OPTIONS",
}

// Scanner extracts endpoint definitions from a FastAPI-style router graph.
type Scanner struct {
	// Log receives per-file warnings; defaults to stderr.
	Log func(format string, args ...any)
}

// New creates a decorator-style backend scanner.
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

// ParseEntrypoint splits and validates an entrypoint descriptor of the form
// "<relative-file-path>:<variable-name>".
func ParseEntrypoint(s string) (file, varName string, err error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("entrypoint %q: want <file>.py:<variable>", s)
	}
	file, varName = s[:idx], s[idx+1:]
	if file == "" || !strings.HasSuffix(file, ".py") {
		return "", "", fmt.Errorf("entrypoint %q: file path must be non-empty and end in .py", s)
	}
	if varName == "" {
		return "", "", fmt.Errorf("entrypoint %q: variable name must be non-empty", s)
	}
	return file, varName, nil
}

// workItem is one pending file visit: the router variable to track in that
// file and the route prefix composed so far. Depth travels with the item so
// the cap is independent of the shared visited set.
type workItem struct {
	file    string
	varName string
	prefix  string
	depth   int
}

// Scan traverses the router graph from the entrypoint and returns one
// descriptor per decorator route. Unresolvable includes and unreadable
// files end their branch silently; only a malformed entrypoint is an error.
func (s *Scanner) Scan(ctx context.Context, root, entrypoint string) ([]endpoint.Descriptor, []string, error) {
	entryFile, entryVar, err := ParseEntrypoint(entrypoint)
	if err != nil {
		return nil, nil, err
	}

	members, err := topLevelNames(root)
	if err != nil {
		return nil, nil, fmt.Errorf("list backend root %s: %w", root, err)
	}

	var descriptors []endpoint.Descriptor
	var warnings []string
	visited := make(map[string]bool)
	worklist := []workItem{{
		file:    filepath.Join(root, filepath.FromSlash(entryFile)),
		varName: entryVar,
		prefix:  "",
		depth:   0,
	}}

	for len(worklist) > 0 {
		select {
		case <-ctx.Done():
			return descriptors, warnings, ctx.Err()
		default:
		}

		it := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		abs, err := filepath.Abs(it.file)
		if err != nil {
			abs = filepath.Clean(it.file)
		}
		if visited[abs] || it.depth > maxDepth {
			continue
		}
		visited[abs] = true

		ds, next, warn := s.scanRouterFile(root, members, it)
		descriptors = append(descriptors, ds...)
		worklist = append(worklist, next...)
		if warn != "" {
			warnings = append(warnings, warn)
		}
	}
	return descriptors, warnings, nil
}

// scanRouterFile parses one file, emits routes for every router variable
// whose prefix is known, and returns follow-up work for includes that
// resolve to other files.
func (s *Scanner) scanRouterFile(root string, members map[string]bool, it workItem) ([]endpoint.Descriptor, []workItem, string) {
	content, err := os.ReadFile(it.file)
	if err != nil {
		s.logf("fastapi: skipping %s: %v", it.file, err)
		return nil, nil, fmt.Sprintf("%s: %v", it.file, err)
	}

	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		s.logf("fastapi: parse %s: %v", it.file, err)
		return nil, nil, ""
	}
	defer tree.Close()

	f := &fileScan{filePath: it.file, content: content}
	f.collect(tree.RootNode())

	// Known prefixes, seeded with the variable this visit tracks. A local
	// APIRouter(prefix=...) adds its own prefix exactly once, here.
	prefixes := map[string]string{
		it.varName: joinPath(it.prefix, f.ownPrefix[it.varName]),
	}

	// Propagate through local include edges until a fixpoint; the loop is
	// bounded because each pass can only add prefixes, never remove them.
	for pass := 0; pass <= len(f.includes); pass++ {
		changed := false
		for _, inc := range f.includes {
			base, ok := prefixes[inc.parent]
			if !ok || inc.childModule != "" {
				continue
			}
			if _, done := prefixes[inc.childVar]; done {
				continue
			}
			prefixes[inc.childVar] = joinPath(base, inc.prefix, f.ownPrefix[inc.childVar])
			changed = true
		}
		if !changed {
			break
		}
	}

	var descriptors []endpoint.Descriptor
	for _, r := range f.routes {
		base, ok := prefixes[r.routerVar]
		if !ok {
			continue
		}
		path := joinPath(base, r.path)
		descriptors = append(descriptors, endpoint.Descriptor{
			RawPath:  path,
			Method:   r.method,
			Params:   routeParams(path),
			Location: r.location,
		})
	}

	var next []workItem
	for _, inc := range f.includes {
		base, ok := prefixes[inc.parent]
		if !ok {
			continue
		}
		module, varName := f.resolveChild(inc)
		if module == "" {
			continue
		}
		target := resolveModuleFile(root, filepath.Dir(it.file), members, module)
		if target == "" {
			continue // unresolvable or outside the workspace; branch ends here
		}
		next = append(next, workItem{
			file:    target,
			varName: varName,
			prefix:  joinPath(base, inc.prefix),
			depth:   it.depth + 1,
		})
	}
	return descriptors, next, ""
}

// include is one parent.include_router(child, prefix=...) registration.
type include struct {
	parent      string
	childVar    string // bare identifier form
	childModule string // module alias for mod.var form ("" when bare)
	prefix      string
}

// route is one @router.verb(path) decorator occurrence.
type route struct {
	routerVar string
	method    string
	path      string
	location  endpoint.Location
}

// importRef records where an imported name comes from.
type importRef struct {
	module   string // dotted module path as written
	imported string // original name when aliased ("" for plain module imports)
}

// fileScan holds everything collected from one Python file.
type fileScan struct {
	filePath string
	content  []byte

	ownPrefix map[string]string // router var -> APIRouter(prefix=...) argument
	includes  []include
	routes    []route
	imports   map[string]importRef // local name -> origin
}

func (f *fileScan) collect(root *sitter.Node) {
	f.ownPrefix = make(map[string]string)
	f.imports = make(map[string]importRef)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			f.collectImport(child)
		case "import_from_statement":
			f.collectFromImport(child)
		case "expression_statement":
			f.collectExpression(child)
		}
	}

	// Decorated definitions can sit at any nesting level.
	f.collectRoutes(root)
}

// collectImport handles "import a.b" and "import a.b as c".
func (f *fileScan) collectImport(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			module := f.text(child)
			parts := strings.Split(module, ".")
			f.imports[parts[len(parts)-1]] = importRef{module: module}
		case "aliased_import":
			if child.NamedChildCount() >= 2 {
				module := f.text(child.NamedChild(0))
				alias := f.text(child.NamedChild(1))
				f.imports[alias] = importRef{module: module}
			}
		}
	}
}

// collectFromImport handles "from X import a, b as c".
func (f *fileScan) collectFromImport(node *sitter.Node) {
	module := ""
	first := true
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			if first {
				module = f.text(child)
				first = false
				continue
			}
			name := f.text(child)
			f.imports[name] = importRef{module: module, imported: name}
		case "relative_import":
			module = f.text(child)
			first = false
		case "aliased_import":
			if child.NamedChildCount() >= 2 {
				name := f.text(child.NamedChild(0))
				alias := f.text(child.NamedChild(1))
				f.imports[alias] = importRef{module: module, imported: name}
			}
		}
	}
}

// collectExpression handles top-level assignments and include calls.
func (f *fileScan) collectExpression(node *sitter.Node) {
	if node.NamedChildCount() == 0 {
		return
	}
	expr := node.NamedChild(0)

	switch expr.Type() {
	case "assignment":
		f.collectAssignment(expr)
	case "call":
		f.collectInclude(expr)
	}
}

// collectAssignment tracks "x = APIRouter(prefix=...)" and "x = FastAPI()".
func (f *fileScan) collectAssignment(node *sitter.Node) {
	if node.NamedChildCount() < 2 {
		return
	}
	lhs := node.NamedChild(0)
	rhs := node.NamedChild(int(node.NamedChildCount()) - 1)
	if lhs.Type() != "identifier" || rhs.Type() != "call" {
		return
	}

	callee := f.calleeName(rhs.ChildByFieldName("function"))
	if callee != "APIRouter" && callee != "FastAPI" {
		return
	}
	f.ownPrefix[f.text(lhs)] = f.keywordString(rhs, "prefix")
}

// collectInclude tracks "parent.include_router(child, prefix=...)".
func (f *fileScan) collectInclude(call *sitter.Node) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return
	}
	obj := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	if obj == nil || attr == nil || obj.Type() != "identifier" {
		return
	}
	if f.text(attr) != "include_router" {
		return
	}

	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}

	inc := include{
		parent: f.text(obj),
		prefix: f.keywordString(call, "prefix"),
	}
	child := args.NamedChild(0)
	switch child.Type() {
	case "identifier":
		inc.childVar = f.text(child)
	case "attribute":
		co := child.ChildByFieldName("object")
		ca := child.ChildByFieldName("attribute")
		if co == nil || ca == nil || co.Type() != "identifier" {
			return
		}
		inc.childModule = f.text(co)
		inc.childVar = f.text(ca)
	default:
		return
	}
	f.includes = append(f.includes, inc)
}

// collectRoutes finds @router.verb(path) decorators anywhere in the file.
func (f *fileScan) collectRoutes(node *sitter.Node) {
	if node.Type() == "decorator" {
		f.collectDecorator(node)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		f.collectRoutes(node.NamedChild(i))
	}
}

func (f *fileScan) collectDecorator(node *sitter.Node) {
	var call *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if node.NamedChild(i).Type() == "call" {
			call = node.NamedChild(i)
			break
		}
	}
	if call == nil {
		return
	}

	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return
	}
	obj := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	if obj == nil || attr == nil || obj.Type() != "identifier" {
		return
	}
	method, ok := routeVerbs[f.text(attr)]
	if !ok {
		return
	}

	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	var pathNode *sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if args.NamedChild(i).Type() == "string" {
			pathNode = args.NamedChild(i)
			break
		}
	}
	if pathNode == nil {
		return
	}

	start := pathNode.StartPoint()
	end := pathNode.EndPoint()
	f.routes = append(f.routes, route{
		routerVar: f.text(obj),
		method:    method,
		path:      stripPyQuotes(f.text(pathNode)),
		location: endpoint.Location{
			File:      f.filePath,
			Line:      int(start.Row) + 1,
			Column:    int(start.Column),
			EndLine:   int(end.Row) + 1,
			EndColumn: int(end.Column),
		},
	})
}

// resolveChild maps an include's child reference to (module, variable)
// through the import table. An empty module means the reference could not
// be resolved to another file.
func (f *fileScan) resolveChild(inc include) (module, varName string) {
	if inc.childModule != "" {
		ref, ok := f.imports[inc.childModule]
		if !ok {
			return "", ""
		}
		m := ref.module
		if ref.imported != "" {
			m = ref.module + "." + ref.imported
		}
		return m, inc.childVar
	}

	// Bare identifier: only meaningful when it was imported from elsewhere;
	// locally declared routers are handled by prefix propagation.
	ref, ok := f.imports[inc.childVar]
	if !ok || ref.imported == "" {
		return "", ""
	}
	return ref.module, ref.imported
}

// calleeName returns the final identifier of a call target, so both
// APIRouter(...) and fastapi.APIRouter(...) match.
func (f *fileScan) calleeName(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return f.text(fn)
	case "attribute":
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			return f.text(attr)
		}
	}
	return ""
}

// keywordString returns the string value of a keyword argument, or "".
func (f *fileScan) keywordString(call *sitter.Node, name string) string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() != "keyword_argument" {
			continue
		}
		key := child.ChildByFieldName("name")
		value := child.ChildByFieldName("value")
		if key == nil || value == nil || f.text(key) != name {
			continue
		}
		if value.Type() == "string" {
			return stripPyQuotes(f.text(value))
		}
		return ""
	}
	return ""
}

func (f *fileScan) text(node *sitter.Node) string {
	return node.Content(f.content)
}

// topLevelNames lists the backend root's immediate entries; imports whose
// first package segment is not in this set are third-party and never
// followed.
func topLevelNames(root string) (map[string]bool, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
		names[strings.TrimSuffix(e.Name(), ".py")] = true
	}
	return names, nil
}

// resolveModuleFile maps a dotted module path to a file under the backend
// root, applying the workspace-membership filter. Relative imports resolve
// against the importing file's directory.
func resolveModuleFile(root, fromDir string, members map[string]bool, module string) string {
	base := root
	rest := module

	if strings.HasPrefix(module, ".") {
		base = fromDir
		for strings.HasPrefix(rest, ".") {
			rest = rest[1:]
			if strings.HasPrefix(rest, ".") {
				base = filepath.Dir(base)
			}
		}
	} else {
		first := strings.SplitN(module, ".", 2)[0]
		if !members[first] {
			return ""
		}
	}

	rel := filepath.FromSlash(strings.ReplaceAll(rest, ".", "/"))
	for _, candidate := range []string{
		filepath.Join(base, rel+".py"),
		filepath.Join(base, rel, "__init__.py"),
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// joinPath joins route segments with single slashes, preserving a leading
// slash and dropping a lone trailing one.
func joinPath(parts ...string) string {
	joined := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if joined == "" {
			joined = p
			continue
		}
		joined = strings.TrimSuffix(joined, "/") + "/" + strings.TrimPrefix(p, "/")
	}
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if len(joined) > 1 && strings.HasSuffix(joined, "/") {
		joined = joined[:len(joined)-1]
	}
	return joined
}

// routeParams extracts ordered parameter names, deduplicated by first
// occurrence, mirroring the attribute-style scanner.
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

func stripPyQuotes(s string) string {
	for _, prefix := range []string{"f", "r", "b", "u"} {
		if strings.HasPrefix(s, prefix) && len(s) > 1 && (s[1] == '"' || s[1] == '\'') {
			s = s[1:]
			break
		}
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
