package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Matdata-eu/simple-cors-proxy/internal/config"
	"github.com/Matdata-eu/simple-cors-proxy/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
//
// The catch-all route makes the header-form destination work on any path;
// the /proxy/* route carries the path-form destination. OPTIONS requests
// never reach either: the CORS middleware answers them first.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		))
	}

	e.Any("/proxy/*", proxy.Handle)
	e.Any("/*", proxy.Handle)
}
