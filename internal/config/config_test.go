package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, "main", cfg.DefaultBranch)
	assert.Equal(t, 120_000, cfg.HeartbeatThresholdMs)
	assert.Equal(t, 15_000, cfg.HeartbeatSweepMs)
	assert.Equal(t, 4, cfg.GitConcurrency)
	assert.Equal(t, 30_000, cfg.MergeLockTimeoutMs)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, 2*time.Minute, cfg.HeartbeatThreshold())
	assert.Equal(t, 15*time.Second, cfg.HeartbeatSweep())
	assert.Equal(t, 30*time.Second, cfg.MergeLockTimeout())
	assert.Equal(t, filepath.Join(dir, "chkd.db"), cfg.DBPath())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	body := "listen_addr: 127.0.0.1:9999\ngit_concurrency: 8\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
	assert.Equal(t, 8, cfg.GitConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Unset fields keep their defaults.
	assert.Equal(t, 120_000, cfg.HeartbeatThresholdMs)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("listen_addr: ["), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	body := "log_level: debug\nheartbeat_threshold_ms: 60000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))

	t.Setenv("CHKD_LOG_LEVEL", "warn")
	t.Setenv("CHKD_HEARTBEAT_THRESHOLD_MS", "90000")
	t.Setenv("CHKD_GIT_CONCURRENCY", "not-a-number") // ignored

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 90_000, cfg.HeartbeatThresholdMs)
	assert.Equal(t, DefaultGitConcurrency, cfg.GitConcurrency)
}

func TestEnvDataDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHKD_DATA_DIR", dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, "listen_addr"},
		{"empty default branch", func(c *Config) { c.DefaultBranch = "" }, "default_branch"},
		{"threshold too small", func(c *Config) { c.HeartbeatThresholdMs = 500 }, "heartbeat_threshold_ms"},
		{"sweep too small", func(c *Config) { c.HeartbeatSweepMs = 10 }, "heartbeat_sweep_ms"},
		{"zero concurrency", func(c *Config) { c.GitConcurrency = 0 }, "git_concurrency"},
		{"zero lock timeout", func(c *Config) { c.MergeLockTimeoutMs = 0 }, "merge_lock_timeout_ms"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
