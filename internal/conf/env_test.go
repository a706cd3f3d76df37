package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fn      func(string) error
		value   string
		wantErr bool
	}{
		{"version ok", validateEnvVersion, "full", false},
		{"version bad", validateEnvVersion, "mini", true},
		{"labelspace ok", validateEnvLabelspace, "declared", false},
		{"labelspace bad", validateEnvLabelspace, "every", true},
		{"sample ok", validateEnvSample, "0", false},
		{"sample negative", validateEnvSample, "-3", true},
		{"sample not a number", validateEnvSample, "ten", true},
		{"bool ok", validateEnvBool, "t", false},
		{"bool bad", validateEnvBool, "maybe", true},
		{"port ok", validateEnvPort, "8080", false},
		{"port range", validateEnvPort, "70000", true},
		{"level ok", validateEnvLogLevel, "WARNING", false},
		{"level bad", validateEnvLogLevel, "loud", true},
		{"path ok", validateEnvPath, "/data/dirs.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.fn(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvBindingsHaveUniqueVars(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, b := range getEnvBindings() {
		assert.False(t, seen[b.EnvVar], "duplicate binding for %s", b.EnvVar)
		seen[b.EnvVar] = true
		assert.NotEmpty(t, b.ConfigKey)
	}
}
