package matching

import (
	"net/http"
	"net/url"
)

// Request is the read-only view of an incoming request used for matching.
// The body has already been fully read by the caller.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
	Body     []byte
}

// FromHTTP builds a matching view from an http.Request and its captured body.
func FromHTTP(r *http.Request, body []byte) *Request {
	return &Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Query:    r.URL.Query(),
		Header:   r.Header,
		Body:     body,
	}
}

// FullURL returns the path plus the query string, the form URL matchers
// compare against.
func (r *Request) FullURL() string {
	if r.RawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.RawQuery
}
