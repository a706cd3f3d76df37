package httpcontroller

import (
	"context"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// statusFromError maps an error category to an HTTP status code.
func statusFromError(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}

	switch errors.CategoryOf(err) {
	case errors.CategoryConfiguration:
		return http.StatusInternalServerError
	case errors.CategoryUnsupportedVersion, errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryLookup:
		return http.StatusUnprocessableEntity
	case errors.CategoryIndexRange, errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryLimit:
		return http.StatusTooManyRequests
	case errors.CategoryImageDecode:
		return http.StatusUnsupportedMediaType
	case errors.CategoryFileIO:
		if errors.Is(err, fs.ErrNotExist) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorResponse is the JSON body of a failed API request.
type errorResponse struct {
	Error     string `json:"error"`
	Category  string `json:"category,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// errorPageData is passed to the error template.
type errorPageData struct {
	Title   string
	Status  int
	Message string
}

// httpErrorHandler renders errors as JSON for API clients and as an HTML
// page for the dashboard.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFromError(err)
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			message = m
		}
	} else if code < http.StatusInternalServerError || errors.IsConfigError(err) {
		message = err.Error()
	}

	log := GetLogger().WithContext(c.Request().Context())
	fields := []logger.Field{
		logger.String("path", c.Request().URL.Path),
		logger.Int("status", code),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}

	var respErr error
	switch {
	case c.Request().Method == http.MethodHead:
		respErr = c.NoContent(code)
	case wantsJSON(c):
		category := ""
		if cat := errors.CategoryOf(err); cat != errors.CategoryGeneric {
			category = string(cat)
		}
		respErr = c.JSON(code, errorResponse{
			Error:     message,
			Category:  category,
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		})
	default:
		respErr = c.Render(code, "error", errorPageData{
			Title:   s.Settings.Main.Name,
			Status:  code,
			Message: message,
		})
	}
	if respErr != nil {
		log.Warn("failed to write error response", logger.Error(respErr))
	}
}

// wantsJSON reports whether the client should get a JSON error body.
func wantsJSON(c echo.Context) bool {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/") {
		return true
	}
	if strings.HasPrefix(path, "/media/") || strings.HasPrefix(path, "/thumbs/") || strings.HasPrefix(path, "/chart/") {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
