package config

import (
	"errors"
	"fmt"
	"net"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.DisableSigterm && cfg.DisableSigkill && cfg.DisableFreeze {
		errs = append(errs, ValidationError{
			Field:   "phases",
			Message: "all three phases are disabled; nothing to do",
		})
	}

	if cfg.CatalogPath == "" {
		errs = append(errs, ValidationError{
			Field:   "targets",
			Message: "target catalog path is required",
		})
	}

	if cfg.CycleDelay <= 0 {
		errs = append(errs, ValidationError{
			Field:   "cycle_delay",
			Message: "must be positive",
		})
	}

	if cfg.ShutdownDelay <= 0 {
		errs = append(errs, ValidationError{
			Field:   "shutdown_delay",
			Message: "must be positive",
		})
	}

	if cfg.InterTargetDelay < cfg.ShutdownDelay {
		errs = append(errs, ValidationError{
			Field:   "inter_target_delay",
			Message: "must be at least the shutdown delay; a short settle window blames the wrong target for lingering instability",
		})
	}

	if cfg.FreezePollIterations < 1 {
		errs = append(errs, ValidationError{
			Field:   "freeze_poll_iterations",
			Message: "must be at least 1",
		})
	}

	if cfg.FreezePollInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "freeze_poll_interval",
			Message: "must be positive",
		})
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf(`must be "json" or "text" (got %q)`, cfg.LogFormat),
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics",
				Message: fmt.Sprintf("invalid listen address: %v", err),
			})
		}
	}

	if cfg.ProcRoot == "" {
		errs = append(errs, ValidationError{
			Field:   "proc_root",
			Message: "must not be empty",
		})
	}

	return errors.Join(errs...)
}
