package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
rules:
  path: /etc/quaestor/rules
  watch: true
storage:
  backend: sqlite
  sqlite_path: /var/lib/quaestor/state.db
journal:
  enabled: true
  path: /var/lib/quaestor/journal.db
  retention_days: 30
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Rules.Path != "/etc/quaestor/rules" {
		t.Errorf("Expected rules path from file, got %q", cfg.Rules.Path)
	}
	if !cfg.Rules.Watch {
		t.Error("Expected watch enabled")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Expected sqlite backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Journal.RetentionDays != 30 {
		t.Errorf("Expected retention 30, got %d", cfg.Journal.RetentionDays)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
rules:
  path: rules
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Storage.Backend != DefaultStorageBackend {
		t.Errorf("Expected default backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Rollover.Schedule != DefaultRolloverSchedule {
		t.Errorf("Expected default schedule, got %q", cfg.Rollover.Schedule)
	}
	if cfg.Telemetry.Logging.Level != DefaultLogLevel {
		t.Errorf("Expected default log level, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Rules.DebounceMillis != DefaultDebounceMillis {
		t.Errorf("Expected default debounce, got %d", cfg.Rules.DebounceMillis)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "rules: [broken")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestLoadConfig_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: postgres
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected validation error for unknown backend")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
rules:
  path: /from/file
telemetry:
  logging:
    level: info
`)

	t.Setenv("QUAESTOR_RULES_PATH", "/from/env")
	t.Setenv("QUAESTOR_RULES_WATCH", "true")
	t.Setenv("QUAESTOR_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("QUAESTOR_STORAGE_BACKEND", "sqlite")
	t.Setenv("QUAESTOR_STORAGE_SQLITE_PATH", "/tmp/state.db")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Rules.Path != "/from/env" {
		t.Errorf("Expected env override for rules path, got %q", cfg.Rules.Path)
	}
	if !cfg.Rules.Watch {
		t.Error("Expected env override for watch")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Expected env override for log level, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Expected env override for backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfig(t, `
rules:
  path: rules
`)

	t.Setenv("QUAESTOR_TELEMETRY_LOGGING_LEVEL", "verbose")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("Expected validation error after bad env override")
	}
}
