// Package model defines shared types for the relay pipeline.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Control headers consumed by the proxy itself. They steer the pipeline and
// are never forwarded upstream.
const (
	// HeaderDestination carries the absolute URL of the upstream target.
	HeaderDestination = "X-Url-Destination"
	// HeaderDeleteList carries a comma-separated caller deny-list of
	// request headers to strip before forwarding.
	HeaderDeleteList = "X-Headers-Delete"
	// HeaderProxyToken carries the shared access secret when token
	// authentication is enabled.
	HeaderProxyToken = "X-Proxy-Token"
)

// RelayRequest represents a client request to be forwarded to the
// destination it names. It lives for exactly one request.
type RelayRequest struct {
	Ctx    context.Context
	Method string
	URL    *url.URL // inbound URL; the /proxy/ path form is extracted from it
	Header http.Header
	Body   io.ReadCloser
}

// RelayResponse represents the upstream response to be streamed back.
type RelayResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
