package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"corsa-hq/quaestor/pkg/config"
)

// Format is the log output format.
type Format string

const (
	// FormatJSON outputs one JSON object per record.
	FormatJSON Format = "json"

	// FormatText outputs logfmt-style key=value records.
	FormatText Format = "text"
)

// redactedValue replaces masked attribute values.
const redactedValue = "[REDACTED]"

// identityKeys are the attribute keys masked when identity redaction is
// enabled. Approver IDs are opaque and intentionally not listed.
var identityKeys = map[string]bool{
	"approver_name":  true,
	"approver_email": true,
	"name":           true,
	"email":          true,
}

// New builds a slog logger from the logging configuration, writing to
// the given writer (os.Stdout when nil).
func New(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.RedactIdentities {
		opts.ReplaceAttr = redactIdentity
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler), nil
}

// redactIdentity masks attribute values under identity-carrying keys.
func redactIdentity(groups []string, attr slog.Attr) slog.Attr {
	if identityKeys[strings.ToLower(attr.Key)] {
		attr.Value = slog.StringValue(redactedValue)
	}
	return attr
}

// ParseLevel parses a log level string. The empty string means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// ParseFormat parses a log format string. The empty string means json.
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", format)
	}
}
