package config

import (
	"errors"
	"fmt"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.DataDir == "" {
		errs = append(errs, &ValidationError{
			Field:   "data_dir",
			Value:   cfg.DataDir,
			Message: "must not be empty",
		})
	}

	if cfg.ListenAddr == "" {
		errs = append(errs, &ValidationError{
			Field:   "listen_addr",
			Value:   cfg.ListenAddr,
			Message: "must not be empty",
		})
	}

	if cfg.DefaultBranch == "" {
		errs = append(errs, &ValidationError{
			Field:   "default_branch",
			Value:   cfg.DefaultBranch,
			Message: "must not be empty",
		})
	}

	if cfg.HeartbeatThresholdMs < 1000 {
		errs = append(errs, &ValidationError{
			Field:   "heartbeat_threshold_ms",
			Value:   cfg.HeartbeatThresholdMs,
			Message: "must be at least 1000",
		})
	}

	if cfg.HeartbeatSweepMs < 100 {
		errs = append(errs, &ValidationError{
			Field:   "heartbeat_sweep_ms",
			Value:   cfg.HeartbeatSweepMs,
			Message: "must be at least 100",
		})
	}

	if cfg.GitConcurrency < 1 {
		errs = append(errs, &ValidationError{
			Field:   "git_concurrency",
			Value:   cfg.GitConcurrency,
			Message: "must be at least 1",
		})
	}

	if cfg.MergeLockTimeoutMs < 1 {
		errs = append(errs, &ValidationError{
			Field:   "merge_lock_timeout_ms",
			Value:   cfg.MergeLockTimeoutMs,
			Message: "must be positive",
		})
	}

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of debug, info, warn, error",
		})
	}

	return errors.Join(errs...)
}
