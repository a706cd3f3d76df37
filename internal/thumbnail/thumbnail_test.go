package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/observability/metrics"
)

var widths = conf.RangeSettings{Min: 64, Max: 512, Step: 16, Default: 128}

func writeJPEG(t *testing.T, fs afero.Fs, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func decode(t *testing.T, data []byte) image.Config {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return cfg
}

func TestRenderScalesAndKeepsAspect(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeJPEG(t, fs, "/d/a.JPEG", 400, 200)

	rec := metrics.NewTestRecorder()
	r := NewRenderer(widths, &conf.ThumbnailSettings{Quality: 80, TTL: time.Minute}, rec)

	data, err := r.Render(fs, "/d/a.JPEG", 128)
	require.NoError(t, err)

	cfg := decode(t, data)
	assert.Equal(t, 128, cfg.Width)
	assert.Equal(t, 64, cfg.Height)
	assert.Equal(t, 1, rec.GetOperationCount(metrics.OpThumbnail, metrics.StatusSuccess))
}

func TestRenderNeverUpscales(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeJPEG(t, fs, "/d/small.JPEG", 64, 64)
	r := NewRenderer(widths, &conf.ThumbnailSettings{Quality: 80}, nil)

	data, err := r.Render(fs, "/d/small.JPEG", 512)
	require.NoError(t, err)
	assert.Equal(t, 64, decode(t, data).Width)
}

func TestRenderClampsWidth(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeJPEG(t, fs, "/d/big.JPEG", 1000, 500)
	r := NewRenderer(widths, &conf.ThumbnailSettings{Quality: 80}, nil)

	data, err := r.Render(fs, "/d/big.JPEG", 5000)
	require.NoError(t, err)
	assert.Equal(t, 512, decode(t, data).Width)

	data, err = r.Render(fs, "/d/big.JPEG", 1)
	require.NoError(t, err)
	assert.Equal(t, 64, decode(t, data).Width)
}

func TestRenderCachesResult(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeJPEG(t, fs, "/d/a.JPEG", 300, 300)
	rec := metrics.NewTestRecorder()
	r := NewRenderer(widths, &conf.ThumbnailSettings{Quality: 80}, rec)

	first, err := r.Render(fs, "/d/a.JPEG", 128)
	require.NoError(t, err)

	require.NoError(t, fs.Remove("/d/a.JPEG"))
	second, err := r.Render(fs, "/d/a.JPEG", 128)
	require.NoError(t, err, "served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.Len())
	assert.Len(t, rec.GetDurations(metrics.OpThumbnail), 1)
}

func TestRenderPNGSource(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 200, 100))))
	require.NoError(t, afero.WriteFile(fs, "/d/p.png", buf.Bytes(), 0o644))

	r := NewRenderer(widths, &conf.ThumbnailSettings{Quality: 80}, nil)
	data, err := r.Render(fs, "/d/p.png", 100)
	require.NoError(t, err)
	assert.Equal(t, 96, decode(t, data).Width, "snapped to the width step")
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/broken.JPEG", []byte("not an image"), 0o644))
	rec := metrics.NewTestRecorder()
	r := NewRenderer(widths, &conf.ThumbnailSettings{Quality: 80}, rec)

	_, err := r.Render(fs, "/d/broken.JPEG", 128)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
	assert.Equal(t, 1, rec.GetErrorCount(metrics.OpThumbnail, string(errors.CategoryImageDecode)))

	_, err = r.Render(fs, "/d/missing.JPEG", 128)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.Zero(t, r.Len())
}

func TestScaleZeroSized(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 0, 0))
	assert.Equal(t, src, Scale(src, 100))
}
