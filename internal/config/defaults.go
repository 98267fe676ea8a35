package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultListenAddr           = "127.0.0.1:4711"
	DefaultBranch               = "main"
	DefaultHeartbeatThresholdMs = 120_000
	DefaultHeartbeatSweepMs     = 15_000
	DefaultGitConcurrency       = 4
	DefaultMergeLockTimeoutMs   = 30_000
	DefaultLogLevel             = "info"
)

// DefaultDataDir returns ~/.chkd, falling back to a relative path when the
// home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chkd"
	}
	return filepath.Join(home, ".chkd")
}

// DefaultConfig returns a Config with all default values applied.
func DefaultConfig() *Config {
	return &Config{
		DataDir:              DefaultDataDir(),
		ListenAddr:           DefaultListenAddr,
		DefaultBranch:        DefaultBranch,
		HeartbeatThresholdMs: DefaultHeartbeatThresholdMs,
		HeartbeatSweepMs:     DefaultHeartbeatSweepMs,
		GitConcurrency:       DefaultGitConcurrency,
		MergeLockTimeoutMs:   DefaultMergeLockTimeoutMs,
		LogLevel:             DefaultLogLevel,
	}
}
