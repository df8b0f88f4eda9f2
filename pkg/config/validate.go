package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every problem found during validation.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func Validate(cfg *Config) error {
	var errs ValidationErrors
	fail := func(field, format string, args ...interface{}) {
		errs = append(errs, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if cfg.Rules.Path == "" {
		fail("rules.path", "rules path is required")
	}
	if cfg.Rules.DebounceMillis < 0 {
		fail("rules.debounce_millis", "must not be negative, got %d", cfg.Rules.DebounceMillis)
	}

	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			fail("storage.sqlite_path", "sqlite backend requires a database path")
		}
	default:
		fail("storage.backend", "unknown backend %q (expected memory or sqlite)", cfg.Storage.Backend)
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		fail("journal.path", "journal requires a database path when enabled")
	}
	if cfg.Journal.RetentionDays < 0 {
		fail("journal.retention_days", "must not be negative, got %d", cfg.Journal.RetentionDays)
	}

	if cfg.Rollover.Schedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cfg.Rollover.Schedule); err != nil {
			fail("rollover.schedule", "invalid cron expression %q: %v", cfg.Rollover.Schedule, err)
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		fail("telemetry.logging.level", "unknown level %q (expected debug, info, warn, or error)", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		fail("telemetry.logging.format", "unknown format %q (expected json or text)", cfg.Telemetry.Logging.Format)
	}

	if cfg.Telemetry.Metrics.Enabled {
		if cfg.Telemetry.Metrics.ListenAddress == "" {
			fail("telemetry.metrics.listen_address", "metrics require a listen address when enabled")
		}
		if !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
			fail("telemetry.metrics.path", "metrics path must start with /, got %q", cfg.Telemetry.Metrics.Path)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
