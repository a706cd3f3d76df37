// Package httpcontroller serves the labelgrid dashboard and its JSON API.
package httpcontroller

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/labelgrid/internal/chart"
	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
	"github.com/tphakala/labelgrid/internal/observability"
	"github.com/tphakala/labelgrid/internal/observability/metrics"
	"github.com/tphakala/labelgrid/internal/previewcache"
	"github.com/tphakala/labelgrid/internal/securefs"
	"github.com/tphakala/labelgrid/internal/thumbnail"
)

// GetLogger returns the http module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("http")
}

// Server encapsulates the Echo server and the dashboard dependencies.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	Cache    *previewcache.Cache
	Thumbs   *thumbnail.Renderer
	Charts   *chart.Renderer
	Metrics  *observability.Metrics

	roots     map[conf.DatasetVersion]*securefs.SecureFS
	store     sessions.Store
	limiter   *ipLimiter
	startedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request and render metrics and serves /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// New builds the dashboard server over previews. Dataset roots that cannot
// be opened are logged and their media routes answer with an error.
func New(settings *conf.Settings, previews *previewcache.Cache, opts ...Option) (*Server, error) {
	s := &Server{
		Echo:      echo.New(),
		Settings:  settings,
		Cache:     previews,
		roots:     make(map[conf.DatasetVersion]*securefs.SecureFS),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var recorder metrics.Recorder = metrics.NoOpRecorder{}
	if s.Metrics != nil && s.Metrics.Render != nil {
		recorder = s.Metrics.Render
	}
	s.Thumbs = thumbnail.NewRenderer(settings.UI.Width, &settings.Thumbnails, recorder)
	s.Charts = chart.NewRenderer(recorder)

	for version, dir := range previews.Roots() {
		sfs, err := securefs.New(dir)
		if err != nil {
			GetLogger().Warn("dataset root unavailable",
				logger.String("version", version.String()),
				logger.String("root", dir),
				logger.Error(err))
			continue
		}
		s.roots[version] = sfs
	}

	s.store = newSessionStore(settings.WebServer.SessionSecret)
	s.limiter = newIPLimiter(settings.WebServer.RateLimit, settings.WebServer.RateBurst)

	if err := s.initializeServer(); err != nil {
		s.closeRoots()
		return nil, err
	}
	return s, nil
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() error {
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()
	s.Echo.HTTPErrorHandler = s.httpErrorHandler
	s.initLogger()

	if err := s.setupTemplateRenderer(); err != nil {
		return err
	}
	s.configureMiddleware()
	s.initRoutes()
	return nil
}

// Address returns the listen address.
func (s *Server) Address() string {
	return net.JoinHostPort(s.Settings.WebServer.Host, s.Settings.WebServer.Port)
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	GetLogger().Info("dashboard listening", logger.String("address", s.Address()))
	if err := s.Echo.Start(s.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component("http").
			Category(errors.CategoryHTTP).
			Context("operation", "listen").
			Build()
	}
	return nil
}

// Shutdown drains in-flight requests until ctx is done and releases the roots.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.closeRoots()
	return s.Echo.Shutdown(ctx)
}

// root returns the sandbox of a dataset version.
func (s *Server) root(version conf.DatasetVersion) (*securefs.SecureFS, error) {
	sfs, ok := s.roots[version]
	if !ok {
		if _, err := s.Cache.Roots().Root(version); err != nil {
			return nil, err
		}
		return nil, errors.Newf("dataset root for %s is not available", version).
			Category(errors.CategoryNotFound).
			Context("version", version.String()).
			Build()
	}
	return sfs, nil
}

func (s *Server) closeRoots() {
	for version, sfs := range s.roots {
		if err := sfs.Close(); err != nil {
			GetLogger().Warn("failed to close dataset root",
				logger.String("version", version.String()),
				logger.Error(err))
		}
	}
}
