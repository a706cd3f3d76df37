package httpcontroller

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// visitorTTL is how long an idle client's limiter is kept
const visitorTTL = 10 * time.Minute

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.RequestIDMiddleware())
	s.Echo.Use(s.requestLogger())
	s.Echo.Use(s.MetricsMiddleware())
	s.Echo.Use(s.GzipMiddleware())
	s.Echo.Use(s.CacheControlMiddleware())
}

// RequestIDMiddleware tags each request with a uuid and carries it in the
// request context so log lines can be correlated.
func (s *Server) RequestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
		},
	})
}

// GzipMiddleware compresses HTML and JSON. Images are already compressed.
func (s *Server) GzipMiddleware() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     6,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/media/") ||
				strings.HasPrefix(path, "/thumbs/") ||
				strings.HasPrefix(path, "/chart/")
		},
	})
}

// CacheControlMiddleware sets cache headers based on the request path
func (s *Server) CacheControlMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			h := c.Response().Header()

			switch {
			case strings.HasPrefix(path, "/media/"):
				h.Set("Cache-Control", "public, max-age=86400")
				h.Set("X-Content-Type-Options", "nosniff")
			case strings.HasPrefix(path, "/thumbs/"):
				h.Set("Cache-Control", "public, max-age=3600")
				h.Set("X-Content-Type-Options", "nosniff")
			case strings.HasPrefix(path, "/chart/"):
				// counts change when the dataset is reindexed
				h.Set("Cache-Control", "no-cache")
			default:
				h.Set("Cache-Control", "no-store")
			}
			return next(c)
		}
	}
}

// MetricsMiddleware records request count, latency and response size per
// route pattern.
func (s *Server) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.Metrics == nil || s.Metrics.HTTP == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var errorType string
			if err != nil {
				status = statusFromError(err)
				errorType = string(errors.CategoryOf(err))
			}
			s.Metrics.HTTP.RecordRequest(c.Request().Method, c.Path(), status,
				time.Since(start).Seconds(), c.Response().Size, errorType)
			return err
		}
	}
}

// RateLimitMiddleware applies the per-client token bucket. It guards the
// routes that decode or render images.
func (s *Server) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()
		if s.limiter.allow(ip) {
			return next(c)
		}
		if s.Metrics != nil && s.Metrics.HTTP != nil {
			s.Metrics.HTTP.RecordRateLimited(c.Path())
		}
		c.Response().Header().Set("Retry-After", s.limiter.retryAfter())
		return errors.Newf("rate limit exceeded for %s", ip).
			Component("http").
			Category(errors.CategoryLimit).
			Context("path", c.Path()).
			Build()
	}
}

// ipLimiter hands each client address its own token bucket. Idle buckets
// expire from the go-cache store.
type ipLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors *cache.Cache
}

// newIPLimiter returns a limiter of rps with burst per client. A non-positive
// rps disables limiting.
func newIPLimiter(rps float64, burst int) *ipLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		limit:    limit,
		burst:    burst,
		visitors: cache.New(visitorTTL, visitorTTL),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.visitors.Get(ip); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// refresh the expiry on every request
	l.visitors.Set(ip, lim, cache.DefaultExpiration)
	return lim.Allow()
}

// retryAfter is the Retry-After value in seconds sent with 429 responses.
func (l *ipLimiter) retryAfter() string {
	if l.limit == rate.Inf || l.limit <= 0 {
		return "1"
	}
	return strconv.Itoa(int(1/float64(l.limit)) + 1)
}
