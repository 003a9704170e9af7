package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rezlab/oplog/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DataDir is the store directory. Empty selects the OS default.
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Store selects the backend: "pebble" (durable) or "memory" (fallback,
	// development/testing only, no durability across restarts).
	Store string `json:"store" yaml:"store"`
	// Fsync is the pebble WAL sync policy: always|interval|never.
	Fsync string `json:"fsync" yaml:"fsync"`
	// FsyncIntervalMs is the group-commit window when Fsync=interval.
	FsyncIntervalMs int `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
	// ReplayMode is the journal mismatch policy: strict|best-effort.
	ReplayMode string `json:"replayMode" yaml:"replayMode"`
	// HTTPAddr is the inspection API listen address.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// Log configures the process logger.
	Log log.Config `json:"log" yaml:"log"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Store:           "pebble",
		Fsync:           "always",
		FsyncIntervalMs: 5,
		ReplayMode:      "strict",
		HTTPAddr:        ":8080",
		Log:             log.Config{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	return cfg, nil
}
