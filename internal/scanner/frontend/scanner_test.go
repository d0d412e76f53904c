package frontend

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// Fixtures use "@" in place of backticks so template literals survive Go's
// raw string syntax.
func src(s string) []byte {
	return []byte(strings.ReplaceAll(s, "@", "`"))
}

func TestScanFileFetch(t *testing.T) {
	content := src(`
export async function load() {
  const a = await fetch("/api/hello");
  const b = await fetch("/api/users", { method: "post" });
  const c = await fetch(new Request("/api/items"));
  const d = await fetch(new Request("/api/items", { method: "DELETE" }));
}
`)

	s := New()
	ds := s.ScanFile("api.ts", content)
	if len(ds) != 4 {
		t.Fatalf("got %d descriptors, want 4: %+v", len(ds), ds)
	}

	wantMethods := []string{"GET", "POST", "GET", "DELETE"}
	wantPaths := []string{"/api/hello", "/api/users", "/api/items", "/api/items"}
	for i, d := range ds {
		if d.Method != wantMethods[i] {
			t.Errorf("descriptor %d: Method = %q, want %q", i, d.Method, wantMethods[i])
		}
		if d.RawPath != wantPaths[i] {
			t.Errorf("descriptor %d: RawPath = %q, want %q", i, d.RawPath, wantPaths[i])
		}
	}

	if ds[0].Location.Line != 3 {
		t.Errorf("first descriptor line = %d, want 3", ds[0].Location.Line)
	}
}

func TestScanFileVerbMembers(t *testing.T) {
	content := src(`
const load = (id: string) => client.get(@/api/users/${id}@);
const save = (u: User) => http.post("/api/users", u);
const drop = (id: string) => api.delete(@/api/users/${id}@);
`)

	s := New()
	ds := s.ScanFile("api.ts", content)
	if len(ds) != 3 {
		t.Fatalf("got %d descriptors, want 3: %+v", len(ds), ds)
	}

	if ds[0].Method != "GET" || ds[1].Method != "POST" || ds[2].Method != "DELETE" {
		t.Errorf("methods = %q %q %q, want GET POST DELETE", ds[0].Method, ds[1].Method, ds[2].Method)
	}
	if !reflect.DeepEqual(ds[0].Params, []string{"id"}) {
		t.Errorf("params = %v, want [id]", ds[0].Params)
	}
}

func TestScanFileConfigObject(t *testing.T) {
	content := src(`
apiClient({ url: "/api/orders", method: "put" });
apiClient({ url: "/api/orders" });
apiClient({ url: "/api/orders", method: dynamicMethod });
`)

	s := New()
	ds := s.ScanFile("api.ts", content)
	if len(ds) != 3 {
		t.Fatalf("got %d descriptors, want 3: %+v", len(ds), ds)
	}
	wantMethods := []string{"PUT", "GET", "GET"}
	for i, d := range ds {
		if d.Method != wantMethods[i] {
			t.Errorf("descriptor %d: Method = %q, want %q", i, d.Method, wantMethods[i])
		}
	}
}

func TestScanFileConcatenation(t *testing.T) {
	content := src(`
const a = fetch("/api/widgets/" + id);
const b = loadJSON("/api/reports/" + report.name);
`)

	s := New()
	ds := s.ScanFile("api.ts", content)
	if len(ds) != 2 {
		t.Fatalf("got %d descriptors, want 2: %+v", len(ds), ds)
	}

	if ds[0].RawPath != "/api/widgets/${id}" {
		t.Errorf("RawPath = %q, want /api/widgets/${id}", ds[0].RawPath)
	}
	if ds[0].Method != "GET" {
		t.Errorf("Method = %q, want GET", ds[0].Method)
	}
	if !reflect.DeepEqual(ds[1].Params, []string{"name"}) {
		t.Errorf("member access param = %v, want [name]", ds[1].Params)
	}
}

func TestScanFilePrefixFilter(t *testing.T) {
	content := src(`
fetch("/health");
fetch("https://example.com/api/x");
axios.get("/metrics");
fetch("api/relative");
fetch("/api/accepted");
`)

	s := New()
	ds := s.ScanFile("api.ts", content)
	if len(ds) != 2 {
		t.Fatalf("got %d descriptors, want 2: %+v", len(ds), ds)
	}
	if ds[0].RawPath != "api/relative" || ds[1].RawPath != "/api/accepted" {
		t.Errorf("paths = %q %q, want api/relative /api/accepted", ds[0].RawPath, ds[1].RawPath)
	}
}

func TestScanFileQueryInterpolation(t *testing.T) {
	content := src(`
const r = fetch(@/api/Users${query}@);
`)

	s := New()
	ds := s.ScanFile("api.ts", content)
	if len(ds) != 1 {
		t.Fatalf("got %d descriptors, want 1: %+v", len(ds), ds)
	}
	if len(ds[0].Params) != 0 {
		t.Errorf("params = %v, want none (query interpolation)", ds[0].Params)
	}
}

func TestScanFileFallback(t *testing.T) {
	// Unbalanced braces force a parse failure for the whole file; the line
	// scanner must still find the intact call sites.
	content := src(`
function broken( {{{
  const a = fetch("/api/hello");
  const b = client.post("/api/items", body);
  const c = fetch("/api/tasks", { method: "PUT" });
`)

	s := New()
	ds := s.ScanFile("api.ts", content)
	if len(ds) != 3 {
		t.Fatalf("got %d descriptors, want 3: %+v", len(ds), ds)
	}
	if ds[0].RawPath != "/api/hello" || ds[0].Method != "GET" {
		t.Errorf("first = %q %q, want /api/hello GET", ds[0].RawPath, ds[0].Method)
	}
	if ds[1].Method != "POST" {
		t.Errorf("second method = %q, want POST", ds[1].Method)
	}
	if ds[2].Method != "PUT" {
		t.Errorf("third method = %q, want PUT", ds[2].Method)
	}
	if ds[0].Location.Line != 3 {
		t.Errorf("fallback line = %d, want 3", ds[0].Location.Line)
	}
}

func TestLocateAt(t *testing.T) {
	content := src(`const one = fetch(@/api/users/${id}@);
const two = other("x");
`)

	s := New()
	m, ok := s.LocateAt("api.ts", content, 1, 20)
	if !ok {
		t.Fatal("LocateAt returned no match inside the endpoint string")
	}
	if m.Path != "/api/users/{id}" {
		t.Errorf("Path = %q, want /api/users/{id}", m.Path)
	}
	if m.Method != "GET" {
		t.Errorf("Method = %q, want GET", m.Method)
	}

	if _, ok := s.LocateAt("api.ts", content, 2, 5); ok {
		t.Error("LocateAt matched a position outside any endpoint string")
	}
}

func TestScanWalksSourceDir(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "api", "users.ts"),
		`export const load = () => fetch("/api/users");`)
	mustWrite(t, filepath.Join(root, "src", "node_modules", "dep.ts"),
		`fetch("/api/should-not-appear");`)
	mustWrite(t, filepath.Join(root, "src", "readme.md"),
		`fetch("/api/not-code")`)
	mustWrite(t, filepath.Join(root, "outside.ts"),
		`fetch("/api/outside-src");`)

	s := New()
	ds, warns, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if len(ds) != 1 {
		t.Fatalf("got %d descriptors, want 1: %+v", len(ds), ds)
	}
	if ds[0].RawPath != "/api/users" {
		t.Errorf("RawPath = %q, want /api/users", ds[0].RawPath)
	}
}

func TestScanFallsBackToRootWithoutSourceDir(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "client.ts"),
		`export const ping = () => fetch("/api/ping");`)

	s := New()
	ds, _, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(ds) != 1 || ds[0].RawPath != "/api/ping" {
		t.Fatalf("got %+v, want one /api/ping descriptor", ds)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
