package httpcontroller

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

//go:embed views/*.html
var viewsFS embed.FS

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
}

// Render executes name into a buffer first so a failing template does not
// leave a half-written page.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		GetLogger().Error("template execution failed",
			logger.String("template", name),
			logger.Error(err))
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// setupTemplateRenderer parses the embedded views.
func (s *Server) setupTemplateRenderer() error {
	tmpl, err := template.New("").Funcs(s.GetTemplateFunctions()).ParseFS(viewsFS, "views/*.html")
	if err != nil {
		return errors.New(err).
			Component("http").
			Category(errors.CategorySystem).
			Context("operation", "parse_templates").
			Build()
	}
	s.Echo.Renderer = &TemplateRenderer{templates: tmpl}
	return nil
}
