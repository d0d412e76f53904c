package fastapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanSingleFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", `
from fastapi import FastAPI

app = FastAPI()

@app.get("/api/users")
def list_users():
    return []

@app.post("/api/users")
def create_user(user: dict):
    return user

@app.delete("/api/users/{user_id}")
def delete_user(user_id: int):
    return None
`)

	s := New()
	ds, warns, err := s.Scan(context.Background(), root, "main.py:app")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if len(ds) != 3 {
		t.Fatalf("got %d descriptors, want 3: %+v", len(ds), ds)
	}

	wantPaths := []string{"/api/users", "/api/users", "/api/users/{user_id}"}
	wantMethods := []string{"GET", "POST", "DELETE"}
	for i, d := range ds {
		if d.RawPath != wantPaths[i] {
			t.Errorf("descriptor %d: RawPath = %q, want %q", i, d.RawPath, wantPaths[i])
		}
		if d.Method != wantMethods[i] {
			t.Errorf("descriptor %d: Method = %q, want %q", i, d.Method, wantMethods[i])
		}
	}
	if !reflect.DeepEqual(ds[2].Params, []string{"user_id"}) {
		t.Errorf("Params = %v, want [user_id]", ds[2].Params)
	}
	if ds[0].Location.Line != 6 {
		t.Errorf("Line = %d, want 6 (the path string)", ds[0].Location.Line)
	}
}

func TestScanLocalIncludeChain(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", `
from fastapi import FastAPI, APIRouter

app = FastAPI()
api = APIRouter(prefix="/api")
users = APIRouter(prefix="/users")

@users.get("/{user_id}")
def get_user(user_id: int):
    return None

app.include_router(api)
api.include_router(users)
`)

	s := New()
	ds, _, err := s.Scan(context.Background(), root, "main.py:app")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(ds) != 1 {
		t.Fatalf("got %d descriptors, want 1: %+v", len(ds), ds)
	}
	if ds[0].RawPath != "/api/users/{user_id}" {
		t.Errorf("RawPath = %q, want /api/users/{user_id}", ds[0].RawPath)
	}
}

func TestScanCrossFileInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", `
from fastapi import FastAPI
from routers import users

app = FastAPI()
app.include_router(users.router, prefix="/api")
`)
	writeFile(t, root, "routers/__init__.py", "")
	writeFile(t, root, "routers/users.py", `
from fastapi import APIRouter

router = APIRouter(prefix="/users")

@router.get("/")
def list_users():
    return []

@router.get("/{user_id}")
def get_user(user_id: int):
    return None
`)

	s := New()
	ds, _, err := s.Scan(context.Background(), root, "main.py:app")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("got %d descriptors, want 2: %+v", len(ds), ds)
	}

	var paths []string
	for _, d := range ds {
		paths = append(paths, d.RawPath)
	}
	sort.Strings(paths)
	want := []string{"/api/users", "/api/users/{user_id}"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestScanCycleTerminates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app_a.py", `
from fastapi import APIRouter
from app_b import router_b

router_a = APIRouter()
router_a.include_router(router_b, prefix="/b")

@router_a.get("/ping")
def ping():
    return "ping"
`)
	writeFile(t, root, "app_b.py", `
from fastapi import APIRouter
from app_a import router_a

router_b = APIRouter()
router_b.include_router(router_a, prefix="/a")

@router_b.get("/pong")
def pong():
    return "pong"
`)

	s := New()
	ds, _, err := s.Scan(context.Background(), root, "app_a.py:router_a")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	var paths []string
	for _, d := range ds {
		paths = append(paths, d.RawPath)
	}
	sort.Strings(paths)
	want := []string{"/b/pong", "/ping"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v (each file visited once)", paths, want)
	}
}

func TestScanSkipsThirdPartyImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", `
from fastapi import FastAPI
from somepkg import router

app = FastAPI()
app.include_router(router, prefix="/x")

@app.get("/api/health")
def health():
    return "ok"
`)

	s := New()
	ds, _, err := s.Scan(context.Background(), root, "main.py:app")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(ds) != 1 || ds[0].RawPath != "/api/health" {
		t.Fatalf("got %+v, want only /api/health (somepkg is not in the backend root)", ds)
	}
}

func TestScanDepthCap(t *testing.T) {
	root := t.TempDir()
	const chain = 13
	for i := 0; i < chain; i++ {
		body := fmt.Sprintf(`
from fastapi import APIRouter

router = APIRouter()

@router.get("/leaf%d")
def leaf():
    return None
`, i)
		if i+1 < chain {
			body += fmt.Sprintf(`
from m%d import router as child
router.include_router(child, prefix="/n")
`, i+1)
		}
		writeFile(t, root, fmt.Sprintf("m%d.py", i), body)
	}

	s := New()
	ds, _, err := s.Scan(context.Background(), root, "m0.py:router")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	// Depths 0 through 10 are visited; deeper files are cut off.
	if len(ds) != 11 {
		t.Errorf("got %d descriptors, want 11 (traversal capped)", len(ds))
	}
}

func TestScanUnreadableEntrypoint(t *testing.T) {
	root := t.TempDir()

	s := New()
	s.Log = func(string, ...any) {}
	ds, warns, err := s.Scan(context.Background(), root, "missing.py:app")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(ds) != 0 {
		t.Errorf("got %d descriptors, want 0", len(ds))
	}
	if len(warns) != 1 {
		t.Errorf("warnings = %v, want one for the missing entry file", warns)
	}
}

func TestParseEntrypoint(t *testing.T) {
	tests := []struct {
		in      string
		file    string
		varName string
		wantErr bool
	}{
		{"main.py:app", "main.py", "app", false},
		{"app/main.py:application", "app/main.py", "application", false},
		{"main.py", "", "", true},
		{"main.txt:app", "", "", true},
		{"main.py:", "", "", true},
		{":app", "", "", true},
	}
	for _, tt := range tests {
		file, varName, err := ParseEntrypoint(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEntrypoint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if file != tt.file || varName != tt.varName {
			t.Errorf("ParseEntrypoint(%q) = %q, %q, want %q, %q", tt.in, file, varName, tt.file, tt.varName)
		}
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"", "/api", "/users"}, "/api/users"},
		{[]string{"/api/", "/users/"}, "/api/users"},
		{[]string{"", ""}, ""},
		{[]string{"/api/items", "/"}, "/api/items"},
		{[]string{"/", "/health"}, "/health"},
	}
	for _, tt := range tests {
		if got := joinPath(tt.parts...); got != tt.want {
			t.Errorf("joinPath(%q) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}
