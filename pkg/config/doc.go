// Package config defines the Quaestor configuration schema and its
// loading pipeline.
//
// # Loading Sequence
//
// Configuration is loaded in four steps:
//
//  1. Parse YAML from the configuration file
//  2. Apply default values for unset fields
//  3. Apply environment variable overrides (QUAESTOR_SECTION_FIELD)
//  4. Validate the final configuration
//
// Environment variables always take precedence over file values, which
// makes container deployments easy to configure without editing files.
//
// # Example
//
//	rules:
//	  path: /etc/quaestor/rules
//	  watch: true
//	storage:
//	  backend: sqlite
//	  sqlite_path: /var/lib/quaestor/state.db
//	journal:
//	  enabled: true
//	  path: /var/lib/quaestor/journal.db
//	rollover:
//	  schedule: "5 0 * * *"
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
