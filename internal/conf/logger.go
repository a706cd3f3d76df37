// Package conf provides configuration management for labelgrid.
package conf

import "github.com/tphakala/labelgrid/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched on each call so it follows a global logger set after init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
