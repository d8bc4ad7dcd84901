package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// The fixed CORS policy stamped on every response. The proxy owns these
// headers outright; whatever the upstream answered is discarded.
var (
	corsAllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"

	corsAllowHeaders = strings.Join([]string{
		"Accept",
		"Accept-Language",
		"Authorization",
		"Content-Language",
		"Content-Type",
		"Link",
		"Origin",
		"Slug",
		"X-Requested-With",
		"X-Url-Destination",
		"X-Headers-Delete",
		"X-Proxy-Token",
	}, ", ")

	corsExposeHeaders = strings.Join([]string{
		"Content-Length",
		"Content-Type",
		"Date",
		"ETag",
		"Last-Modified",
		"Link",
		"Location",
		"Vary",
		"WWW-Authenticate",
	}, ", ")
)

const corsMaxAge = "86400"

// CORS returns an Echo middleware that implements the cross-origin contract
// of the relay.
//
// Preflight OPTIONS requests are answered directly with 200 and an empty
// body on every route, before authentication or routing run: browsers issue
// preflight without trust headers, so the protected stages must not see it.
// For all other requests the full CORS header set is stamped onto the
// response before the handler writes, so success, error, and 404 responses
// alike carry it.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get("Origin")

			stampCORS(c.Response().Header(), origin)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

// stampCORS overwrites the CORS response headers. Each value is written
// under both its canonical-case and all-lower-case spelling: some non-browser
// consumers match response headers case-sensitively, and Go would otherwise
// canonicalize everything. Direct map writes bypass http.Header.Set's
// canonicalization.
func stampCORS(h http.Header, origin string) {
	if origin == "" {
		origin = "*"
	}
	set := func(name, value string) {
		h[http.CanonicalHeaderKey(name)] = []string{value}
		h[strings.ToLower(name)] = []string{value}
	}
	set("Access-Control-Allow-Origin", origin)
	set("Access-Control-Allow-Methods", corsAllowMethods)
	set("Access-Control-Allow-Headers", corsAllowHeaders)
	set("Access-Control-Allow-Credentials", "true")
	set("Access-Control-Max-Age", corsMaxAge)
	set("Access-Control-Expose-Headers", corsExposeHeaders)
}
