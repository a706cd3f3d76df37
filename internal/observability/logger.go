// Package observability provides Prometheus metrics for labelgrid.
// Sentry error reporting lives in the telemetry package.
package observability

import "github.com/tphakala/labelgrid/internal/logger"

// GetLogger returns the observability package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
