package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apilens/apilens/internal/endpoint"
)

func TestFormatEntryLine(t *testing.T) {
	e := endpoint.Entry{
		Endpoint:   "/api/users/{id}",
		HTTPMethod: "GET",
		Status:     endpoint.StatusParamMismatch,
	}
	line := formatEntryLine(e)
	if !strings.Contains(line, "/api/users/{id} [GET]") {
		t.Errorf("line = %q, want path and method", line)
	}
	if !strings.Contains(line, "param-mismatch") {
		t.Errorf("line = %q, want status text", line)
	}
}

func TestAtCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "api.ts")
	if err := os.WriteFile(file, []byte(`const r = fetch("/api/users");`), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newAtCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{file, "1", "20"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("at returned error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "/api/users [GET]" {
		t.Errorf("output = %q, want /api/users [GET]", got)
	}
}

func TestAtCommandMiss(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "api.ts")
	if err := os.WriteFile(file, []byte(`const n = compute(1, 2);`), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newAtCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{file, "1", "5"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for a position outside any endpoint")
	}
}
