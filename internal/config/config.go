package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all daemon configuration.
// It is immutable after creation via Load().
type Config struct {
	// DataDir is where the database, lock file, and config file live
	DataDir string `yaml:"data_dir"`

	// ListenAddr is the HTTP listen address
	ListenAddr string `yaml:"listen_addr"`

	// DefaultBranch is the merge target used when a repo does not set one
	DefaultBranch string `yaml:"default_branch"`

	// HeartbeatThresholdMs is how stale a worker heartbeat may be before
	// the sweeper flags it
	HeartbeatThresholdMs int `yaml:"heartbeat_threshold_ms"`

	// HeartbeatSweepMs is the sweeper poll interval
	HeartbeatSweepMs int `yaml:"heartbeat_sweep_ms"`

	// GitConcurrency caps concurrent git subprocesses
	GitConcurrency int `yaml:"git_concurrency"`

	// MergeLockTimeoutMs bounds how long a merge waits for the per-repo lock
	MergeLockTimeoutMs int `yaml:"merge_lock_timeout_ms"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// HeartbeatThreshold returns the staleness cutoff as a Duration.
func (c *Config) HeartbeatThreshold() time.Duration {
	return time.Duration(c.HeartbeatThresholdMs) * time.Millisecond
}

// HeartbeatSweep returns the sweeper interval as a Duration.
func (c *Config) HeartbeatSweep() time.Duration {
	return time.Duration(c.HeartbeatSweepMs) * time.Millisecond
}

// MergeLockTimeout returns the merge lock wait bound as a Duration.
func (c *Config) MergeLockTimeout() time.Duration {
	return time.Duration(c.MergeLockTimeoutMs) * time.Millisecond
}

// DBPath returns the SQLite database path under DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "chkd.db")
}

// Load builds configuration for the daemon.
// It applies defaults, then the optional config file at
// <dataDir>/config.yaml, then environment overrides, then validates.
//
// dataDir may be empty, in which case the default (~/.chkd) is used.
func Load(dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if v := os.Getenv("CHKD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Missing config file is not an error (use defaults).
	configPath := filepath.Join(cfg.DataDir, "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if !filepath.IsAbs(cfg.DataDir) {
		abs, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = abs
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
