package previewcache

import "github.com/tphakala/labelgrid/internal/logger"

// GetLogger returns the previewcache package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("previewcache")
}
