package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Environment variables read by Load.
const (
	EnvDataDir     = "OPENSPEC_DATA_DIR"
	EnvXDGDataHome = "XDG_DATA_HOME"
	EnvConcurrency = "OPENSPEC_CONCURRENCY"
	EnvLogLevel    = "OPENSPEC_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
	getenv func(string) string
	home   func() (string, error)
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, getenv: os.Getenv, home: os.UserHomeDir}
}

// Load loads configuration with layered precedence:
//  1. Defaults
//  2. User config (~/.config/openspec/config.yaml)
//  3. Project config (<openspecDir>/config.yaml), skipped when openspecDir is empty
//  4. Environment variables
func (l *Loader) Load(openspecDir string) (*Config, error) {
	cfg := DefaultConfig()

	if path := l.userConfigPath(); path != "" {
		l.mergeFile(cfg, path, "user")
	}
	if openspecDir != "" {
		l.mergeFile(cfg, ProjectPath(openspecDir), "project")
	}
	l.applyEnv(cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = l.defaultDataDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) mergeFile(cfg *Config, path, layer string) {
	other, err := LoadFromFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load config", slog.String("layer", layer), slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}
	l.logger.Debug("Loaded config", slog.String("layer", layer), slog.String("path", path))
	cfg.Merge(other)
}

func (l *Loader) applyEnv(cfg *Config) {
	if v := l.getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := l.getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			l.logger.Warn("Ignoring invalid concurrency", slog.String("env", EnvConcurrency), slog.String("value", v))
			return
		}
		cfg.Concurrency = n
	}
}

// defaultDataDir is $XDG_DATA_HOME, else ~/.local/share.
func (l *Loader) defaultDataDir() string {
	if v := l.getenv(EnvXDGDataHome); v != "" {
		return v
	}
	home, err := l.home()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share")
}

// userConfigPath returns the path to the user config file.
func (l *Loader) userConfigPath() string {
	home, err := l.home()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
