package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/Matdata-eu/simple-cors-proxy/internal/model"
	"github.com/Matdata-eu/simple-cors-proxy/internal/service"
)

// ProxyHandler relays requests to the destination they name and streams the
// response back.
type ProxyHandler struct {
	relay  *service.Relay
	logger *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(relay *service.Relay, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		relay:  relay,
		logger: logger.With("component", "proxy_handler"),
	}
}

// Handle forwards the request to its resolved destination and streams the
// upstream response back with its status and body verbatim.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	rr := &model.RelayRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header,
		Body:   req.Body,
	}

	resp, err := h.relay.Forward(rr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Copy filtered response headers; the CORS set was already stamped by
	// the middleware and must not be overwritten here.
	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"destination", req.Header.Get(model.HeaderDestination),
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("relay error",
		"err", err,
		"path", c.Request().URL.Path,
		"destination", c.Request().Header.Get(model.HeaderDestination),
	)

	if errors.Is(err, service.ErrMissingDestination) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": service.ErrMissingDestination.Error(),
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}
