// Package telemetry groups the observability subpackages: structured
// logging lives in telemetry/logging.
package telemetry
