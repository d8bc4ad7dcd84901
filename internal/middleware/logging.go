// Package middleware provides Echo middleware for the relay pipeline:
// CORS/preflight handling, token authentication, logging, metrics, and
// security headers.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Matdata-eu/simple-cors-proxy/internal/model"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// The destination header is included when present so upstream failures can
// be correlated with the target they were aimed at.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if dest := req.Header.Get(model.HeaderDestination); dest != "" {
				attrs = append(attrs, "destination", dest)
			}
			if origin := req.Header.Get("Origin"); origin != "" {
				attrs = append(attrs, "origin", origin)
			}
			logger.Info("request", attrs...)

			return err
		}
	}
}
