// Package config provides layered configuration for the openspec CLI and
// MCP server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/openspec/internal/fsutil"
)

const (
	// ProjectConfigFile lives in the project's openspec directory.
	ProjectConfigFile = "config.yaml"
	// UserConfigDir is the directory for user-level config, under $HOME.
	UserConfigDir = ".config/openspec"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"

	// DefaultConcurrency bounds bulk validation.
	DefaultConcurrency = 6
	// DefaultLogLevel keeps the CLI quiet unless asked.
	DefaultLogLevel = "warn"
	// DefaultSchema is the workflow schema used for new changes.
	DefaultSchema = "spec-driven"
)

// Config is the merged openspec configuration.
type Config struct {
	// DataDir is the global data directory. Schema overrides live under
	// <DataDir>/openspec/schemas and the history ledger under <DataDir>/openspec.
	DataDir       string   `yaml:"data_dir,omitempty"`
	DefaultSchema string   `yaml:"default_schema,omitempty"`
	Concurrency   int      `yaml:"concurrency,omitempty"`
	LogLevel      string   `yaml:"log_level,omitempty"`
	Tools         []string `yaml:"tools,omitempty"`
	Strict        bool     `yaml:"strict,omitempty"`
}

// DefaultConfig returns a Config with defaults. DataDir is left empty and
// resolved by the Loader.
func DefaultConfig() *Config {
	return &Config{
		DefaultSchema: DefaultSchema,
		Concurrency:   DefaultConcurrency,
		LogLevel:      DefaultLogLevel,
	}
}

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if strings.TrimSpace(c.DefaultSchema) == "" {
		return fmt.Errorf("default_schema is required")
	}
	return nil
}

// SlogLevel returns the configured level, or warn when unknown.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return slog.LevelWarn
}

// LoadFromFile reads one config file. Fields absent from the file are
// left zero so Merge can tell them apart.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML, atomically.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges other into c; non-zero values in other win.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if other.DefaultSchema != "" {
		c.DefaultSchema = other.DefaultSchema
	}
	if other.Concurrency != 0 {
		c.Concurrency = other.Concurrency
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if len(other.Tools) > 0 {
		c.Tools = append([]string(nil), other.Tools...)
	}
	if other.Strict {
		c.Strict = true
	}
}

// ProjectPath returns the project config path inside an openspec directory.
func ProjectPath(openspecDir string) string {
	return filepath.Join(openspecDir, ProjectConfigFile)
}
