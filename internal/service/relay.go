// Package service implements the core relay pipeline: destination
// resolution, header sanitization, and upstream dispatch.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Matdata-eu/simple-cors-proxy/internal/client"
	"github.com/Matdata-eu/simple-cors-proxy/internal/config"
	"github.com/Matdata-eu/simple-cors-proxy/internal/metrics"
	"github.com/Matdata-eu/simple-cors-proxy/internal/model"
)

// ErrMissingDestination is returned when no parseable absolute destination
// URL is found. The request must never fall through to a default target.
var ErrMissingDestination = errors.New("destination URL required: set X-Url-Destination or use the /proxy/<encoded-url> path form")

// proxyPathPrefix introduces the path-form destination: everything after it,
// percent-decoded once, is the target URL.
const proxyPathPrefix = "/proxy/"

// controlHeaders steer the proxy itself and are never forwarded upstream.
var controlHeaders = map[string]bool{
	strings.ToLower(model.HeaderDestination): true,
	strings.ToLower(model.HeaderDeleteList):  true,
	strings.ToLower(model.HeaderProxyToken):  true,
}

// forwardedHeaders identify the proxy's own network position. The upstream
// must see a request indistinguishable from one addressed to it directly.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Forwarded-Host",
	"X-Forwarded-Proto",
	"X-Real-Ip",
}

// ResolveDestination derives the destination URL from the request.
//
// The path form (/proxy/<percent-encoded absolute URL>) takes priority: it is
// translated into the X-Url-Destination header, overwriting any
// caller-supplied value, so downstream logic has a single code path. The
// encoded form is decoded exactly once. The result must parse as an absolute
// URL; anything else fails closed with ErrMissingDestination.
func ResolveDestination(rr *model.RelayRequest) (*url.URL, error) {
	if raw, ok := pathDestination(rr.URL); ok {
		rr.Header.Set(model.HeaderDestination, raw)
	}

	raw := rr.Header.Get(model.HeaderDestination)
	if raw == "" {
		return nil, ErrMissingDestination
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrMissingDestination, raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// pathDestination extracts the encoded destination from a /proxy/ path.
// It works on the escaped form of the inbound path so that the destination
// is percent-decoded exactly once, regardless of how the router stores it.
func pathDestination(inbound *url.URL) (string, bool) {
	escaped := inbound.EscapedPath()
	if !strings.HasPrefix(escaped, proxyPathPrefix) {
		return "", false
	}
	enc := strings.TrimPrefix(escaped, proxyPathPrefix)
	if enc == "" {
		return "", false
	}

	raw, err := url.PathUnescape(enc)
	if err != nil {
		// Undecodable input still claims the path form; let the URL parse
		// reject it rather than falling back to a header value.
		raw = enc
	}
	if inbound.RawQuery != "" {
		raw += "?" + inbound.RawQuery
	}
	return raw, true
}

// Origin returns the scheme://host[:port] part of a destination URL.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// PathQuery returns the path plus query of a destination URL; an empty path
// becomes "/". Origin + PathQuery reconstructs the destination.
func PathQuery(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// Relay forwards sanitized requests to their resolved destinations.
type Relay struct {
	client   *client.Upstream
	logger   *slog.Logger
	metrics  *metrics.Metrics
	denyList []string // operator deny-list, lower-cased
}

// NewRelay creates a Relay. The metrics parameter is optional; pass nil to
// disable relay metrics recording.
func NewRelay(c *client.Upstream, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		client:   c,
		logger:   logger.With("component", "relay"),
		metrics:  m,
		denyList: cfg.Proxy.DenySet(),
	}
}

// Forward resolves the destination, derives the outbound header set, and
// dispatches the request. The caller is responsible for closing the response
// body. Upstream Access-Control-* headers are dropped from the response; the
// proxy stamps its own CORS set on every response.
func (s *Relay) Forward(rr *model.RelayRequest) (*model.RelayResponse, error) {
	dest, err := ResolveDestination(rr)
	if err != nil {
		return nil, err
	}

	origin := Origin(dest)
	target := origin + PathQuery(dest)
	header := s.outboundHeaders(rr.Header)

	if s.metrics != nil {
		s.metrics.DestinationsTotal.WithLabelValues(dest.Scheme).Inc()
	}
	s.logger.Debug("destination resolved",
		"method", rr.Method,
		"origin", origin,
		"path", PathQuery(dest),
	)

	resp, err := s.client.DoStream(rr.Ctx, rr.Method, target, header, rr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", origin, err)
	}

	resp.Header = filterResponseHeaders(resp.Header)
	return resp, nil
}

// outboundHeaders derives a fresh header map from the inbound one: the union
// of the operator deny-list and the caller's X-Headers-Delete list is
// removed (case-insensitively), along with the control headers themselves
// and the forwarded-* transport headers. The inbound map is left untouched.
func (s *Relay) outboundHeaders(src http.Header) http.Header {
	deny := make(map[string]bool, len(s.denyList))
	for _, name := range s.denyList {
		deny[name] = true
	}
	for _, name := range strings.Split(src.Get(model.HeaderDeleteList), ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			deny[name] = true
		}
	}
	for _, name := range forwardedHeaders {
		deny[strings.ToLower(name)] = true
	}

	dst := make(http.Header, len(src))
	stripped := 0
	for key, vals := range src {
		lower := strings.ToLower(key)
		if controlHeaders[lower] {
			continue
		}
		if deny[lower] {
			stripped++
			continue
		}
		dst[http.CanonicalHeaderKey(key)] = append([]string(nil), vals...)
	}

	if stripped > 0 {
		if s.metrics != nil {
			s.metrics.HeadersStrippedTotal.Add(float64(stripped))
		}
		s.logger.Debug("headers stripped", "count", stripped)
	}
	return dst
}

// Upstream response headers that must not reach the client: the proxy owns
// the CORS header set, and hop-by-hop fields do not survive the relay leg.
var (
	responseDropPrefix  = "access-control-"
	responseDropHeaders = map[string]bool{
		"connection":        true,
		"keep-alive":        true,
		"transfer-encoding": true,
		"upgrade":           true,
		"trailer":           true,
	}
)

func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, responseDropPrefix) || responseDropHeaders[lower] {
			continue
		}
		dst[key] = vals
	}
	return dst
}
