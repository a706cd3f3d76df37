// Package chart renders per-label sample counts as a PNG bar chart.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/tphakala/labelgrid/internal/dataset"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/observability/metrics"
)

// Default canvas size of the dashboard chart.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// maxTickLabel caps tick label length; label names can be long synset lists.
const maxTickLabel = 24

var barColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}

// RenderCounts draws one bar per label. Empty counts yield an empty chart.
func RenderCounts(counts []dataset.LabelCount, title string, w, h vg.Length) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "items"
	p.Y.Min = 0

	if len(counts) == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Max = 1
		p.X.Label.Text = "no items indexed"
	} else {
		values := make(plotter.Values, len(counts))
		names := make([]string, len(counts))
		for i, c := range counts {
			values[i] = float64(c.Count)
			names[i] = shorten(c.LabelName, maxTickLabel)
		}

		barWidth := max(vg.Points(2), (w-vg.Inch)/vg.Length(len(counts)+1))
		bars, err := plotter.NewBarChart(values, barWidth*0.8)
		if err != nil {
			return nil, errors.New(fmt.Errorf("chart: %w", err)).
				Category(errors.CategoryValidation).
				Build()
		}
		bars.Color = barColor
		bars.LineStyle.Width = 0
		p.Add(bars)

		if len(names) <= 60 {
			p.NominalX(names...)
			p.X.Tick.Label.Rotation = math.Pi / 2.5
			p.X.Tick.Label.XAlign = draw.XRight
			p.X.Tick.Label.YAlign = draw.YCenter
		} else {
			p.X.Label.Text = fmt.Sprintf("%d labels", len(names))
		}
		p.Add(plotter.NewGrid())
	}

	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, errors.New(fmt.Errorf("chart: %w", err)).
			Category(errors.CategoryImageDecode).
			Context("operation", "create_canvas").
			Build()
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, errors.New(fmt.Errorf("chart: %w", err)).
			Category(errors.CategoryImageDecode).
			Context("operation", "encode_png").
			Build()
	}
	return buf.Bytes(), nil
}

// Renderer wraps RenderCounts with metrics.
type Renderer struct {
	Width, Height vg.Length
	recorder      metrics.Recorder
}

// NewRenderer returns a renderer of DefaultWidth by DefaultHeight charts.
// A nil recorder disables metrics.
func NewRenderer(recorder metrics.Recorder) *Renderer {
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight, recorder: recorder}
}

// Render renders counts and records the outcome.
func (r *Renderer) Render(counts []dataset.LabelCount, title string) ([]byte, error) {
	start := time.Now()
	data, err := RenderCounts(counts, title, r.Width, r.Height)
	r.recorder.RecordDuration(metrics.OpChart, time.Since(start).Seconds())
	if err != nil {
		r.recorder.RecordOperation(metrics.OpChart, metrics.StatusError)
		r.recorder.RecordError(metrics.OpChart, string(errors.CategoryOf(err)))
		return nil, err
	}
	r.recorder.RecordOperation(metrics.OpChart, metrics.StatusSuccess)
	return data, nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
