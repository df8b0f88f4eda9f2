package config

// Default values applied to unset configuration fields.
const (
	DefaultRulesPath         = "rules"
	DefaultDebounceMillis    = 100
	DefaultStorageBackend    = "memory"
	DefaultSQLitePath        = "quaestor.db"
	DefaultJournalPath       = "quaestor-journal.db"
	DefaultRetentionDays     = 90
	DefaultRolloverSchedule  = "5 0 * * *"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultMetricsListenAddr = ":9090"
	DefaultMetricsPath       = "/metrics"
)

// ApplyDefaults fills unset fields with default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.DebounceMillis == 0 {
		cfg.Rules.DebounceMillis = DefaultDebounceMillis
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = DefaultSQLitePath
	}

	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Journal.RetentionDays == 0 {
		cfg.Journal.RetentionDays = DefaultRetentionDays
	}

	if cfg.Rollover.Schedule == "" {
		cfg.Rollover.Schedule = DefaultRolloverSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddr
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
