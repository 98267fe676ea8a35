package config

import (
	"os"
	"strconv"
)

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "CHKD_LISTEN_ADDR",
		apply: func(c *Config, v string) {
			c.ListenAddr = v
		},
	},
	{
		envVar: "CHKD_DEFAULT_BRANCH",
		apply: func(c *Config, v string) {
			c.DefaultBranch = v
		},
	},
	{
		envVar: "CHKD_HEARTBEAT_THRESHOLD_MS",
		apply: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.HeartbeatThresholdMs = n
			}
		},
	},
	{
		envVar: "CHKD_HEARTBEAT_SWEEP_MS",
		apply: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.HeartbeatSweepMs = n
			}
		},
	},
	{
		envVar: "CHKD_GIT_CONCURRENCY",
		apply: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.GitConcurrency = n
			}
		},
	},
	{
		envVar: "CHKD_MERGE_LOCK_TIMEOUT_MS",
		apply: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.MergeLockTimeoutMs = n
			}
		},
	},
	{
		envVar: "CHKD_LOG_LEVEL",
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
