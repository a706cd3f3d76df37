// Package thumbnail scales dataset images to the dashboard's display width.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
	"github.com/tphakala/labelgrid/internal/observability/metrics"
)

// ContentType of every rendered thumbnail.
const ContentType = "image/jpeg"

// GetLogger returns the thumbnail package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("thumbnail")
}

// Renderer decodes, scales and re-encodes images, caching the result per
// source path and width. It is safe for concurrent use.
type Renderer struct {
	widths   conf.RangeSettings
	quality  int
	cache    *cache.Cache
	group    singleflight.Group
	recorder metrics.Recorder
}

// NewRenderer returns a renderer that clamps widths to widths and encodes at
// settings.Quality. A nil recorder disables metrics.
func NewRenderer(widths conf.RangeSettings, settings *conf.ThumbnailSettings, recorder metrics.Recorder) *Renderer {
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	ttl := settings.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Renderer{
		widths:   widths,
		quality:  settings.Quality,
		cache:    cache.New(ttl, 2*ttl),
		recorder: recorder,
	}
}

// Render returns a JPEG of the image at path scaled to width, keeping the
// aspect ratio. Images narrower than width are re-encoded at their own size.
func (r *Renderer) Render(fs afero.Fs, path string, width int) ([]byte, error) {
	width = r.widths.Clamp(width)
	key := path + "@" + strconv.Itoa(width)

	if v, ok := r.cache.Get(key); ok {
		return v.([]byte), nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		start := time.Now()
		data, err := r.render(fs, path, width)
		r.recorder.RecordDuration(metrics.OpThumbnail, time.Since(start).Seconds())
		if err != nil {
			r.recorder.RecordOperation(metrics.OpThumbnail, metrics.StatusError)
			r.recorder.RecordError(metrics.OpThumbnail, string(errors.CategoryOf(err)))
			return nil, err
		}
		r.recorder.RecordOperation(metrics.OpThumbnail, metrics.StatusSuccess)
		r.cache.Set(key, data, cache.DefaultExpiration)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *Renderer) render(fs afero.Fs, path string, width int) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "open_image").
			Build()
	}
	defer func() { _ = f.Close() }()

	src, format, err := image.Decode(f)
	if err != nil {
		var size int64
		if info, statErr := f.Stat(); statErr == nil {
			size = info.Size()
		}
		return nil, errors.New(fmt.Errorf("image: cannot decode %s: %w", path, err)).
			Category(errors.CategoryImageDecode).
			FileContext(path, size).
			Build()
	}

	dst := Scale(src, width)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryImageDecode).
			Context("operation", "encode_jpeg").
			Build()
	}

	GetLogger().Trace("rendered thumbnail",
		logger.String("format", format),
		logger.Int("width", dst.Bounds().Dx()),
		logger.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

// Scale resizes src to width with Catmull-Rom resampling. It never upscales.
func Scale(src image.Image, width int) image.Image {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return src
	}
	if width >= b.Dx() {
		width = b.Dx()
	}
	height := max(1, b.Dy()*width/b.Dx())

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// Len returns the number of cached thumbnails.
func (r *Renderer) Len() int {
	return r.cache.ItemCount()
}
