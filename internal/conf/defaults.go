// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Slider ranges of the dashboard controls.
const (
	DefaultSampleMin  = 10
	DefaultSampleMax  = 200
	DefaultSampleStep = 10
	DefaultWidthMin   = 64
	DefaultWidthMax   = 512
	DefaultWidthStep  = 16
	DefaultWidth      = 128
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "labelgrid")

	viper.SetDefault("dataset.rootdirsfile", "data_dirs.csv")
	viper.SetDefault("dataset.roots", map[string]string{})
	viper.SetDefault("dataset.version", string(VersionTiny))
	viper.SetDefault("dataset.labelspace", string(LabelspaceObserved))
	viper.SetDefault("dataset.sampleperlabel", DefaultSampleMin)
	viper.SetDefault("dataset.shuffle", false)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.sessionsecret", "")
	viper.SetDefault("webserver.ratelimit", 20.0)
	viper.SetDefault("webserver.rateburst", 40)
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	viper.SetDefault("ui.sample.min", DefaultSampleMin)
	viper.SetDefault("ui.sample.max", DefaultSampleMax)
	viper.SetDefault("ui.sample.step", DefaultSampleStep)
	viper.SetDefault("ui.sample.default", DefaultSampleMin)
	viper.SetDefault("ui.width.min", DefaultWidthMin)
	viper.SetDefault("ui.width.max", DefaultWidthMax)
	viper.SetDefault("ui.width.step", DefaultWidthStep)
	viper.SetDefault("ui.width.default", DefaultWidth)
	viper.SetDefault("ui.previewrows", 20)

	viper.SetDefault("cache.ttl", 5*time.Minute)
	viper.SetDefault("cache.cleanup", 10*time.Minute)
	viper.SetDefault("cache.watch", true)
	viper.SetDefault("cache.debounce", 2*time.Second)

	viper.SetDefault("thumbnails.enabled", true)
	viper.SetDefault("thumbnails.quality", 85)
	viper.SetDefault("thumbnails.ttl", 30*time.Minute)

	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/labelgrid.log")
	viper.SetDefault("logging.file_output.level", "info")
}
