// config.go: settings struct and functions to load and save the configuration.
package conf

import (
	"crypto/rand"
	"embed"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings contains general application settings.
type MainSettings struct {
	Name    string // instance name shown in the dashboard title
	Version string `yaml:"-"` // build version, runtime value
}

// DatasetSettings selects and samples a dataset.
type DatasetSettings struct {
	RootDirsFile   string            // path to the version,path mapping file
	Roots          map[string]string // inline version to root overrides, merged over RootDirsFile
	Version        string            // default dataset version: full or tiny
	Labelspace     string            // observed or declared
	SamplePerLabel int               // items kept per label directory
	Shuffle        bool              // accepted for compatibility, does not reorder tables
}

// WebServerSettings contains settings for the dashboard server.
type WebServerSettings struct {
	Enabled         bool          // true to serve the dashboard
	Host            string        // listen host, empty for all interfaces
	Port            string        // listen port
	SessionSecret   string        // cookie store key, generated when empty
	RateLimit       float64       // render requests per second per client
	RateBurst       int           // render burst per client
	ShutdownTimeout time.Duration // graceful shutdown deadline
}

// RangeSettings describes a slider.
type RangeSettings struct {
	Min     int
	Max     int
	Step    int
	Default int
}

// UISettings contains dashboard control ranges.
type UISettings struct {
	Sample      RangeSettings // sample-per-label slider
	Width       RangeSettings // image width slider in pixels
	PreviewRows int           // rows shown in the data-preview table
}

// CacheSettings controls the indexed-table cache.
type CacheSettings struct {
	TTL      time.Duration // lifetime of an indexed snapshot
	Cleanup  time.Duration // expired entry sweep interval
	Watch    bool          // drop snapshots when a dataset root changes
	Debounce time.Duration // quiet period before a change invalidates
}

// ThumbnailSettings controls server-side image scaling.
type ThumbnailSettings struct {
	Enabled bool          // false serves originals scaled by the browser
	Quality int           // JPEG quality 1-100
	TTL     time.Duration // lifetime of a rendered thumbnail
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
}

// SentrySettings controls optional error reporting.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// Settings contains all configuration options for labelgrid.
type Settings struct {
	Debug bool // true to enable debug mode

	Main       MainSettings
	Dataset    DatasetSettings
	WebServer  WebServerSettings
	UI         UISettings
	Cache      CacheSettings
	Thumbnails ThumbnailSettings
	Metrics    MetricsSettings
	Sentry     SentrySettings
	Logging    logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
// A missing config file is not an error; defaults apply.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.ConfigError(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Context("operation", "unmarshal_config").
			Build()
	}

	if settings.WebServer.SessionSecret == "" {
		settings.WebServer.SessionSecret = GenerateRandomSecret()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.ConfigError(fmt.Errorf("error validating settings: %w", err)).
			Context("operation", "validate_config").
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults, env bindings and config paths, then reads the file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("no config file found, using defaults",
				logger.Any("searched", configPaths))
			return nil
		}
		return errors.ConfigError(fmt.Errorf("fatal error reading config file: %w", err)).
			Context("operation", "read_config").
			Build()
	}

	GetLogger().Debug("loaded config file", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// WriteDefaultConfig writes the embedded default config to path, refusing to
// overwrite an existing file unless force is set.
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.ConfigError(fmt.Errorf("config file %s already exists", path)).
				Context("operation", "write_default_config").
				Build()
		}
	}

	data, err := DefaultConfig()
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	return writeFileAtomic(path, data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath. Comments and key order in an
// existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return writeFileAtomic(configPath, yamlData)
}

// writeFileAtomic writes through a temp file in the target directory and renames it.
func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, path); err != nil {
		if err := moveFile(tempFileName, path); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

// GenerateRandomSecret returns 32 random bytes, URL-safe base64 encoded.
func GenerateRandomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		GetLogger().Error("failed to generate random secret", logger.Error(err))
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
