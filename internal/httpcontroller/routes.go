package httpcontroller

import (
	"github.com/labstack/echo/v4"
)

// initRoutes registers the dashboard, API and asset routes.
func (s *Server) initRoutes() {
	s.Echo.GET("/", s.handleDashboard)
	s.Echo.GET("/healthz", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/labels", s.handleLabels)
	api.GET("/page", s.handlePage)
	api.GET("/items", s.handleItems)
	api.POST("/reindex", s.handleReindex)

	s.Echo.GET("/media/:version/*", s.handleMedia)
	if s.Settings.Thumbnails.Enabled {
		s.Echo.GET("/thumbs/:version/*", s.handleThumbnail, s.RateLimitMiddleware)
	}
	s.Echo.GET("/chart/:name", s.handleChart, s.RateLimitMiddleware)

	if s.Metrics != nil && s.Settings.Metrics.Enabled {
		s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}
}
