// Package logging builds the structured slog logger used across
// Quaestor.
//
// # Formats and Levels
//
// The logger supports json and text output at the standard slog levels.
// Level and format come from the telemetry.logging configuration
// section.
//
// # Identity Redaction
//
// Approval workflows carry approver identities (names, email
// addresses) sourced from an external directory. When redaction is
// enabled, attribute keys that carry identity data are masked before
// the record is written, so log aggregation never stores personal data
// in the clear. Approver IDs are opaque and stay visible; they are
// needed to correlate audit trails.
package logging
