package config

import (
	"os"
	"strconv"
)

// FromEnv overlays OPLOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("OPLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OPLOG_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("OPLOG_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("OPLOG_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("OPLOG_REPLAY_MODE"); v != "" {
		cfg.ReplayMode = v
	}
	if v := os.Getenv("OPLOG_HTTP"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("OPLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OPLOG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
