package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/labelgrid/internal/conf"
)

func TestRootCommand(t *testing.T) {
	settings := &conf.Settings{}
	root := RootCommand(settings)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "index", "labels", "page", "config", "license"} {
		assert.Contains(t, names, want)
	}

	// license skips dataset validation and logger setup
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"license", "--version", "huge"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Apache License")
	assert.Equal(t, "huge", settings.Dataset.Version)
}

func TestInitializeRejectsInvalidFlags(t *testing.T) {
	settings := &conf.Settings{}
	settings.Dataset.Version = "huge"

	err := initialize(settings)
	require.Error(t, err)
}
