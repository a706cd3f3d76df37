// env.go - environment variable configuration and validation for labelgrid
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Dataset
		{"dataset.version", "LABELGRID_DATASET_VERSION", validateEnvVersion},
		{"dataset.labelspace", "LABELGRID_DATASET_LABELSPACE", validateEnvLabelspace},
		{"dataset.sampleperlabel", "LABELGRID_SAMPLE_PER_LABEL", validateEnvSample},
		{"dataset.rootdirsfile", "LABELGRID_ROOT_DIRS_FILE", validateEnvPath},
		{"dataset.shuffle", "LABELGRID_SHUFFLE", validateEnvBool},

		// Web server
		{"webserver.port", "LABELGRID_PORT", validateEnvPort},
		{"webserver.sessionsecret", "LABELGRID_SESSION_SECRET", nil},

		// Logging and reporting
		{"logging.default_level", "LABELGRID_LOG_LEVEL", validateEnvLogLevel},
		{"sentry.dsn", "LABELGRID_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvVersion(value string) error {
	_, err := ParseDatasetVersion(value)
	return err
}

func validateEnvLabelspace(value string) error {
	_, err := ParseLabelspace(value)
	return err
}

func validateEnvSample(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid sample size: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("sample size must not be negative, got %d", n)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("log level must be one of trace, debug, info, warn, error; got '%s'", value)
}
