package config

// Config is the root Quaestor configuration.
type Config struct {
	// Rules configures the policy rule source.
	Rules RulesConfig `yaml:"rules"`

	// Storage configures governance state persistence.
	Storage StorageConfig `yaml:"storage"`

	// Journal configures the audit journal.
	Journal JournalConfig `yaml:"journal"`

	// Rollover configures the period rollover scheduler.
	Rollover RolloverConfig `yaml:"rollover"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig configures where policy rules are loaded from.
type RulesConfig struct {
	// Path is the rule file or directory.
	Path string `yaml:"path"`

	// Watch enables hot reloading on file changes.
	Watch bool `yaml:"watch"`

	// DebounceMillis is the reload debounce interval in milliseconds.
	DebounceMillis int `yaml:"debounce_millis"`
}

// StorageConfig configures the state backend.
type StorageConfig struct {
	// Backend selects the persistence backend: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLitePath is the database path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
}

// JournalConfig configures the audit journal.
type JournalConfig struct {
	// Enabled turns audit journaling on.
	Enabled bool `yaml:"enabled"`

	// Path is the journal database path.
	Path string `yaml:"path"`

	// RetentionDays is how long entries are kept before pruning.
	RetentionDays int `yaml:"retention_days"`
}

// RolloverConfig configures the period rollover scheduler.
type RolloverConfig struct {
	// Schedule is a cron expression for rollover sweeps.
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is the output format: json or text.
	Format string `yaml:"format"`

	// RedactIdentities masks approver names and emails in log output.
	RedactIdentities bool `yaml:"redact_identities"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics HTTP listen address.
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics HTTP path.
	Path string `yaml:"path"`
}
