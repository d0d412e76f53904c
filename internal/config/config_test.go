package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func loadFrom(t *testing.T, content string) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".apilens.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	viper.Set("config_file", path)
	t.Cleanup(func() { viper.Set("config_file", "") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFrom(t, `
frontend:
  root: ./web
backend:
  root: ./server
`)

	if cfg.Frontend.SourceDir != "src" {
		t.Errorf("SourceDir = %q, want src", cfg.Frontend.SourceDir)
	}
	if cfg.Backend.Kind != "aspnet" {
		t.Errorf("Kind = %q, want aspnet", cfg.Backend.Kind)
	}
	if cfg.Store.Path != ".apilens.db" {
		t.Errorf("Store.Path = %q, want .apilens.db", cfg.Store.Path)
	}
	if len(cfg.Scan.Exclude) == 0 {
		t.Error("default excludes missing")
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg := loadFrom(t, `
frontend:
  root: ./web
  source_dir: app
backend:
  root: ./server
  kind: fastapi
  entrypoint: app/main.py:app
scan:
  exclude:
    - "**/generated/**"
store:
  path: /tmp/apilens-db
`)

	if cfg.Frontend.Root != "./web" || cfg.Frontend.SourceDir != "app" {
		t.Errorf("frontend = %+v", cfg.Frontend)
	}
	if cfg.Backend.Kind != "fastapi" || cfg.Backend.Entrypoint != "app/main.py:app" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if len(cfg.Scan.Exclude) != 1 || cfg.Scan.Exclude[0] != "**/generated/**" {
		t.Errorf("excludes = %v", cfg.Scan.Exclude)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate returned error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			"missing frontend root",
			Config{Backend: BackendConfig{Root: "b", Kind: "aspnet"}},
			"frontend.root",
		},
		{
			"missing backend root",
			Config{Frontend: FrontendConfig{Root: "f"}, Backend: BackendConfig{Kind: "aspnet"}},
			"backend.root",
		},
		{
			"unknown kind",
			Config{Frontend: FrontendConfig{Root: "f"}, Backend: BackendConfig{Root: "b", Kind: "rails"}},
			"backend.kind",
		},
		{
			"fastapi without entrypoint",
			Config{Frontend: FrontendConfig{Root: "f"}, Backend: BackendConfig{Root: "b", Kind: "fastapi"}},
			"entrypoint",
		},
		{
			"fastapi with bad entrypoint",
			Config{Frontend: FrontendConfig{Root: "f"}, Backend: BackendConfig{Root: "b", Kind: "fastapi", Entrypoint: "main.py"}},
			"entrypoint",
		},
		{
			"valid aspnet",
			Config{Frontend: FrontendConfig{Root: "f"}, Backend: BackendConfig{Root: "b", Kind: "aspnet"}},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".apilens.yaml")

	cfg := &Config{
		Frontend: FrontendConfig{Root: "./web", SourceDir: "src"},
		Backend:  BackendConfig{Root: "./server", Kind: "fastapi", Entrypoint: "main.py:app"},
		Store:    StoreConfig{Path: ".apilens.db"},
	}
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatalf("WriteConfig returned error: %v", err)
	}

	viper.Set("config_file", path)
	t.Cleanup(func() { viper.Set("config_file", "") })

	got, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Frontend.Root != "./web" || got.Backend.Entrypoint != "main.py:app" {
		t.Errorf("round trip = %+v", got)
	}
}
