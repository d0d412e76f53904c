// Package config handles configuration loading and validation for apilens.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/apilens/apilens/internal/scanner/fastapi"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".apilens"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
)

// Config holds all configuration for apilens.
type Config struct {
	// Frontend describes the tree scanned for API call sites.
	Frontend FrontendConfig `mapstructure:"frontend" yaml:"frontend"`
	// Backend describes the tree scanned for endpoint definitions.
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	// Scan holds shared scanning options.
	Scan ScanConfig `mapstructure:"scan" yaml:"scan"`
	// Store holds snapshot storage options.
	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// FrontendConfig locates the frontend sources.
type FrontendConfig struct {
	// Root is the frontend project root.
	Root string `mapstructure:"root" yaml:"root"`
	// SourceDir is the subdirectory scanned under Root when present.
	SourceDir string `mapstructure:"source_dir" yaml:"source_dir"`
}

// BackendConfig locates the backend sources and selects the scanning
// strategy.
type BackendConfig struct {
	// Root is the backend project root.
	Root string `mapstructure:"root" yaml:"root"`
	// Kind is the routing style: "aspnet" or "fastapi".
	Kind string `mapstructure:"kind" yaml:"kind"`
	// Entrypoint is "<file>.py:<variable>", required for fastapi.
	Entrypoint string `mapstructure:"entrypoint" yaml:"entrypoint,omitempty"`
}

// ScanConfig holds shared scanning options.
type ScanConfig struct {
	// Exclude lists glob patterns skipped by scans and the watcher.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// StoreConfig holds snapshot storage options.
type StoreConfig struct {
	// Path is the BadgerDB directory for scan snapshots.
	Path string `mapstructure:"path" yaml:"path"`
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// A specific config file set via CLI flag lives in the global viper.
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("APILENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; flags and env can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete enough to scan.
func (c *Config) Validate() error {
	if c.Frontend.Root == "" {
		return fmt.Errorf("frontend.root is required")
	}
	if c.Backend.Root == "" {
		return fmt.Errorf("backend.root is required")
	}

	switch c.Backend.Kind {
	case "aspnet":
	case "fastapi":
		if c.Backend.Entrypoint == "" {
			return fmt.Errorf("backend.entrypoint is required for fastapi backends")
		}
		if _, _, err := fastapi.ParseEntrypoint(c.Backend.Entrypoint); err != nil {
			return fmt.Errorf("backend.entrypoint: %w", err)
		}
	default:
		return fmt.Errorf("backend.kind must be 'aspnet' or 'fastapi', got %q", c.Backend.Kind)
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("frontend.source_dir", "src")
	v.SetDefault("backend.kind", "aspnet")
	v.SetDefault("store.path", ".apilens.db")
	v.SetDefault("scan.exclude", []string{
		"**/node_modules/**",
		"**/.git/**",
		"**/dist/**",
		"**/build/**",
		"**/bin/**",
		"**/obj/**",
		"**/__pycache__/**",
	})
}
