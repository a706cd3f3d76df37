package httpcontroller

import (
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GetTemplateFunctions returns the functions available to the views.
func (s *Server) GetTemplateFunctions() template.FuncMap {
	return template.FuncMap{
		"add":   addFunc,
		"sub":   subFunc,
		"title": titleFunc,
		"ago":   humanize.Time,
		"comma": commaFunc,
		"bytes": bytesFunc,
		"secs":  secondsFunc,
	}
}

// simple math functions
func addFunc(a, b int) int { return a + b }
func subFunc(a, b int) int { return a - b }

// titleFunc title-cases s. A Caser is stateful, so each call gets its own.
func titleFunc(s string) string {
	return cases.Title(language.English).String(s)
}

func commaFunc(n int) string {
	return humanize.Comma(int64(n))
}

func bytesFunc(n int64) string {
	if n < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(n))
}

// secondsFunc renders a duration with millisecond precision.
func secondsFunc(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
