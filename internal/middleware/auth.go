package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Matdata-eu/simple-cors-proxy/internal/config"
	"github.com/Matdata-eu/simple-cors-proxy/internal/metrics"
	"github.com/Matdata-eu/simple-cors-proxy/internal/model"
)

// TokenAuth returns an Echo middleware enforcing the shared-secret check.
//
// When no token is configured the middleware passes every request through
// untouched. Otherwise the X-Proxy-Token header must equal the configured
// secret; a mismatch short-circuits with 401 and no later stage runs. On a
// match the credential header is stripped so it can never leak upstream.
//
// Operational routes (health, status, metrics) are exempt so liveness
// probes and scrapers need no credential.
// The metrics parameter is optional; pass nil to disable denial counting.
func TokenAuth(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	log := logger.With("component", "token_auth")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Proxy.AuthEnabled() {
				return next(c)
			}
			if operationalPath(c.Request().URL.Path, cfg) {
				return next(c)
			}

			got := c.Request().Header.Get(model.HeaderProxyToken)
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Proxy.Token)) != 1 {
				if m != nil {
					m.AuthDeniedTotal.Inc()
				}
				log.Warn("access denied",
					"path", c.Request().URL.Path,
					"remote_ip", c.RealIP(),
				)
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid or missing proxy token",
				})
			}

			c.Request().Header.Del(model.HeaderProxyToken)
			return next(c)
		}
	}
}

// operationalPath reports whether path serves the proxy's own health,
// status, or metrics endpoint rather than relayed traffic.
func operationalPath(path string, cfg *config.Config) bool {
	switch path {
	case "/healthz", "/status":
		return true
	}
	return cfg.Metrics.Enabled && path == cfg.Metrics.Path
}
