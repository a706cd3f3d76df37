// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"strconv"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, err := range []error{
		validateDatasetSettings(&settings.Dataset),
		validateWebServerSettings(&settings.WebServer),
		validateUISettings(&settings.UI),
		validateCacheSettings(&settings.Cache),
		validateThumbnailSettings(&settings.Thumbnails),
		validateSentrySettings(&settings.Sentry),
	} {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatasetSettings(settings *DatasetSettings) error {
	var errs []error

	if _, err := ParseDatasetVersion(settings.Version); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLabelspace(settings.Labelspace); err != nil {
		errs = append(errs, err)
	}
	if settings.SamplePerLabel < 0 {
		errs = append(errs, fmt.Errorf("dataset sample per label must not be negative, got %d", settings.SamplePerLabel))
	}
	if settings.RootDirsFile == "" && len(settings.Roots) == 0 {
		errs = append(errs, fmt.Errorf("dataset needs a root dirs file or inline roots"))
	}
	for version := range settings.Roots {
		if _, err := ParseDatasetVersion(version); err != nil {
			errs = append(errs, fmt.Errorf("dataset roots: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []error
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("webserver port must be between 1 and 65535, got %q", settings.Port))
	}
	if settings.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("webserver rate limit must be positive, got %g", settings.RateLimit))
	}
	if settings.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("webserver rate burst must be at least 1, got %d", settings.RateBurst))
	}
	if settings.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webserver shutdown timeout must be positive, got %s", settings.ShutdownTimeout))
	}

	return errors.Join(errs...)
}

func validateUISettings(settings *UISettings) error {
	var errs []error
	if err := validateRange("ui sample", settings.Sample); err != nil {
		errs = append(errs, err)
	}
	if err := validateRange("ui width", settings.Width); err != nil {
		errs = append(errs, err)
	}
	if settings.Width.Min < 1 {
		errs = append(errs, fmt.Errorf("ui width min must be at least 1, got %d", settings.Width.Min))
	}
	if settings.PreviewRows < 0 {
		errs = append(errs, fmt.Errorf("ui preview rows must not be negative, got %d", settings.PreviewRows))
	}
	return errors.Join(errs...)
}

func validateRange(name string, r RangeSettings) error {
	switch {
	case r.Step <= 0:
		return fmt.Errorf("%s step must be positive, got %d", name, r.Step)
	case r.Min > r.Max:
		return fmt.Errorf("%s min %d is greater than max %d", name, r.Min, r.Max)
	case !r.Contains(r.Default):
		return fmt.Errorf("%s default %d is outside [%d, %d]", name, r.Default, r.Min, r.Max)
	}
	return nil
}

func validateCacheSettings(settings *CacheSettings) error {
	var errs []error
	if settings.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", settings.TTL))
	}
	if settings.Watch && settings.Debounce < 0 {
		errs = append(errs, fmt.Errorf("cache debounce must not be negative, got %s", settings.Debounce))
	}
	return errors.Join(errs...)
}

func validateThumbnailSettings(settings *ThumbnailSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Quality < 1 || settings.Quality > 100 {
		return fmt.Errorf("thumbnail quality must be between 1 and 100, got %d", settings.Quality)
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return fmt.Errorf("sentry is enabled but no DSN is set")
	}
	if settings.SampleRate < 0 || settings.SampleRate > 1 {
		return fmt.Errorf("sentry sample rate must be between 0 and 1, got %g", settings.SampleRate)
	}
	return nil
}
