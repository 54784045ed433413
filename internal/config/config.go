// Package config loads the gmxwrap configuration file and the environment
// fallbacks the discovery heuristics rely on.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the recognized configuration surface. Every field is optional;
// absence triggers the discovery heuristics in internal/registry.
type Config struct {
	// Release pins the GROMACS generation, e.g. "2023" or "4". Empty means
	// autodetect (modern first, classic fallback).
	Release string `yaml:"release"`

	// Tools lists driver names (modern generations) or tool names (classic).
	Tools []string `yaml:"tools"`

	// ExtraTools extends the classic tool list with site-local binaries.
	ExtraTools []string `yaml:"extra_tools"`

	// AppendSuffix controls whether a driver's precision suffix (gmx_d ->
	// "_d") is carried into the addressable name. Defaults to true.
	AppendSuffix *bool `yaml:"append_suffix"`

	// BinDir is the directory scanned for executables. Falls back to the
	// GMXBIN environment variable.
	BinDir string `yaml:"bindir"`

	// History is the path of the sqlite invocation log. Empty disables it.
	History string `yaml:"history"`
}

// AppendSuffixEnabled resolves the AppendSuffix default.
func (c *Config) AppendSuffixEnabled() bool {
	if c.AppendSuffix == nil {
		return true
	}
	return *c.AppendSuffix
}

// DefaultPath returns the per-user config location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gmxwrap.yaml"
	}
	return filepath.Join(home, ".gmxwrap.yaml")
}

// Load reads the config file at path. A missing file yields the zero config.
// The decoded document is validated against the embedded schema before it is
// accepted. A `.env` file in the working directory is loaded best-effort so
// GMXBIN can be provided either way.
func Load(path string, log *zap.Logger) (*Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded .env")
	}

	if path == "" {
		path = DefaultPath()
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug("no config file, using defaults", zap.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	} else {
		if err := validateDocument(data); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if cfg.BinDir == "" {
		cfg.BinDir = os.Getenv("GMXBIN")
	}

	return &cfg, nil
}
