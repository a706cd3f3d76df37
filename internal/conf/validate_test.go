package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Dataset: DatasetSettings{
			RootDirsFile:   "data_dirs.csv",
			Version:        "tiny",
			Labelspace:     "observed",
			SamplePerLabel: 10,
		},
		WebServer: WebServerSettings{
			Enabled:         true,
			Port:            "8080",
			RateLimit:       20,
			RateBurst:       40,
			ShutdownTimeout: 10 * time.Second,
		},
		UI: UISettings{
			Sample:      RangeSettings{Min: 10, Max: 200, Step: 10, Default: 10},
			Width:       RangeSettings{Min: 64, Max: 512, Step: 16, Default: 128},
			PreviewRows: 20,
		},
		Cache:      CacheSettings{TTL: 5 * time.Minute, Watch: true, Debounce: 2 * time.Second},
		Thumbnails: ThumbnailSettings{Enabled: true, Quality: 85},
	}
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsCollectsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(s *Settings)
		want   string
	}{
		{"unknown version", func(s *Settings) { s.Dataset.Version = "mini" }, `unsupported dataset version "mini"`},
		{"unknown labelspace", func(s *Settings) { s.Dataset.Labelspace = "all" }, "unknown labelspace"},
		{"negative sample", func(s *Settings) { s.Dataset.SamplePerLabel = -1 }, "must not be negative"},
		{"no roots", func(s *Settings) { s.Dataset.RootDirsFile = "" }, "root dirs file or inline roots"},
		{"bad port", func(s *Settings) { s.WebServer.Port = "http" }, "webserver port"},
		{"zero step", func(s *Settings) { s.UI.Width.Step = 0 }, "ui width step must be positive"},
		{"default outside range", func(s *Settings) { s.UI.Sample.Default = 500 }, "ui sample default 500"},
		{"quality", func(s *Settings) { s.Thumbnails.Quality = 101 }, "thumbnail quality"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true; s.Sentry.SampleRate = 1 }, "no DSN"},
		{"zero ttl", func(s *Settings) { s.Cache.TTL = 0 }, "cache ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			require.Error(t, err)

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateSettingsDisabledSectionsSkipped(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.WebServer.Enabled = false
	s.WebServer.Port = ""
	s.Thumbnails.Enabled = false
	s.Thumbnails.Quality = 0

	assert.NoError(t, ValidateSettings(s))
}
