// Package proxy forwards unmatched requests to a real upstream so stubd
// can run in front of a live service, optionally recording the exchanges
// it observes.
package proxy

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getstubd/stubd/pkg/logging"
)

// maxCapturedBody bounds how much of an upstream response is retained in
// an Exchange.
const maxCapturedBody = 10 << 20

// hop-by-hop headers are stripped in both directions.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Exchange is one observed request/response pair.
type Exchange struct {
	Timestamp time.Time
	Duration  time.Duration
	Request   CapturedRequest
	Response  CapturedResponse
}

// CapturedRequest is the client request as sent upstream.
type CapturedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
}

// CapturedResponse is the upstream's answer.
type CapturedResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Forwarder relays requests to a single upstream target.
type Forwarder struct {
	target *url.URL
	client *http.Client
	log    *slog.Logger
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithClient overrides the HTTP client used for upstream calls.
func WithClient(c *http.Client) Option {
	return func(f *Forwarder) { f.client = c }
}

// WithLogger sets the forwarder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Forwarder) { f.log = l }
}

// NewForwarder creates a forwarder for the given base URL, e.g.
// "https://api.example.com".
func NewForwarder(target string, opts ...Option) (*Forwarder, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("proxy target %q must use http or https", target)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy target %q has no host", target)
	}

	f := &Forwarder{
		target: u,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				// Relay redirects to the client instead of following them.
				return http.ErrUseLastResponse
			},
		},
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Target returns the upstream base URL.
func (f *Forwarder) Target() string {
	return f.target.String()
}

// Forward relays the request to the upstream and captures the full
// exchange. The request body has already been read by the caller.
func (f *Forwarder) Forward(r *http.Request, body []byte) (*Exchange, error) {
	start := time.Now()

	out := *f.target
	out.Path = joinPath(f.target.Path, r.URL.Path)
	out.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, out.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = cloneHeader(r.Header)
	stripHopHeaders(req.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: %w", f.target.Host, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	respHeaders := cloneHeader(resp.Header)
	stripHopHeaders(respHeaders)

	ex := &Exchange{
		Timestamp: start,
		Duration:  time.Since(start),
		Request: CapturedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: cloneHeader(r.Header),
			Body:    body,
		},
		Response: CapturedResponse{
			Status:  resp.StatusCode,
			Headers: respHeaders,
			Body:    respBody,
		},
	}

	f.log.Debug("forwarded unmatched request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", resp.StatusCode,
		"upstream", f.target.Host)

	return ex, nil
}

// joinPath prepends the target's base path, so a target of
// http://host/api forwards /users to /api/users.
func joinPath(base, p string) string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return p
	}
	return base + p
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func stripHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
