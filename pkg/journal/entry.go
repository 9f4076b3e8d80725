// Package journal records every request the engine serves, matched or not.
// The journal is append-only from the serve path; admin operations may
// clear it wholesale.
package journal

import (
	"net/http"
	"strings"
	"time"
)

// Entry is one journaled request/response exchange.
type Entry struct {
	// ID is a time-sortable identifier assigned on append.
	ID string `json:"id"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	Request  RequestRecord  `json:"request"`
	Response ResponseRecord `json:"response"`

	// Matched reports whether a stub mapping was selected.
	Matched bool `json:"matched"`

	// MappingID identifies the selected mapping when Matched is true.
	MappingID string `json:"mappingId,omitempty"`

	// Proxied reports whether the response came from the proxy upstream.
	Proxied bool `json:"proxied,omitempty"`

	// NearMissReasons summarizes why close candidates did not match, for
	// unmatched requests.
	NearMissReasons []string `json:"nearMissReasons,omitempty"`

	// DurationMs is the total time spent serving the request.
	DurationMs int64 `json:"durationMs"`
}

// RequestRecord captures the request half of an exchange.
type RequestRecord struct {
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Path     string      `json:"path"`
	Headers  http.Header `json:"headers,omitempty"`
	Body     string      `json:"body,omitempty"`
	ClientIP string      `json:"clientIp,omitempty"`
}

// ResponseRecord captures the response half of an exchange. For fault
// injected responses Status is zero and Fault names the injected fault.
type ResponseRecord struct {
	Status   int    `json:"status,omitempty"`
	BodySize int    `json:"bodySize"`
	Fault    string `json:"fault,omitempty"`
}

// Filter narrows journal queries. Zero values mean "no constraint".
type Filter struct {
	// Method filters by HTTP method, case-insensitive.
	Method string

	// PathPrefix filters entries whose path starts with the prefix.
	PathPrefix string

	// MappingID filters entries served by a specific mapping.
	MappingID string

	// Matched, when non-nil, filters by match outcome.
	Matched *bool

	// Since excludes entries older than the given time.
	Since time.Time

	// Limit caps the number of entries returned; zero means no cap.
	Limit int

	// Offset skips that many entries from the newest end.
	Offset int
}

func (f Filter) accepts(e Entry) bool {
	if f.Method != "" && !strings.EqualFold(f.Method, e.Request.Method) {
		return false
	}
	if f.PathPrefix != "" && !strings.HasPrefix(e.Request.Path, f.PathPrefix) {
		return false
	}
	if f.MappingID != "" && f.MappingID != e.MappingID {
		return false
	}
	if f.Matched != nil && *f.Matched != e.Matched {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
