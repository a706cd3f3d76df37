package previewcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/dataset"
)

func tinyLayout(t *testing.T) dataset.Layout {
	t.Helper()
	layout, err := dataset.LayoutFor(conf.VersionTiny)
	require.NoError(t, err)
	return layout
}
