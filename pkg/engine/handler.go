package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getstubd/stubd/internal/matching"
	"github.com/getstubd/stubd/pkg/content"
	"github.com/getstubd/stubd/pkg/fault"
	"github.com/getstubd/stubd/pkg/journal"
	"github.com/getstubd/stubd/pkg/proxy"
	"github.com/getstubd/stubd/pkg/stub"
)

// DefaultMaxBodyBytes caps request bodies read for matching.
const DefaultMaxBodyBytes = 10 << 20

// UnmatchedMode selects how requests without a matching mapping are
// answered.
type UnmatchedMode string

const (
	// UnmatchedDiagnose answers 404 with near-miss diagnostics.
	UnmatchedDiagnose UnmatchedMode = "diagnose"

	// UnmatchedProxy forwards the request to the configured upstream.
	UnmatchedProxy UnmatchedMode = "proxy"
)

// ExchangeSink receives proxied exchanges, typically the recording
// learner's queue. It must not block.
type ExchangeSink func(*proxy.Exchange)

// Handler serves stub traffic. Every request, matched or not, ends up in
// the journal exactly once.
type Handler struct {
	repo     *Repository
	renderer *Renderer
	journal  journal.Store
	log      *slog.Logger

	maxBodyBytes  int64
	unmatchedMode UnmatchedMode
	forwarder     *proxy.Forwarder
	sink          ExchangeSink
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "request_body_too_large", "request body exceeds limit")
		h.journalEntry(r, start, journal.Entry{
			Matched:  false,
			Response: journal.ResponseRecord{Status: http.StatusRequestEntityTooLarge},
		}, body)
		return
	}

	req := matching.FromHTTP(r, body)
	mapping, _, ok := h.repo.FindBestMatch(req)
	if !ok && r.Method == http.MethodHead {
		// HEAD falls back to GET mappings, as real servers answer HEAD
		// from their GET routes.
		fallback := *req
		fallback.Method = http.MethodGet
		mapping, _, ok = h.repo.FindBestMatch(&fallback)
	}

	if !ok {
		h.serveUnmatched(w, r, req, start, body)
		return
	}
	h.serveMatched(w, r, mapping, start, body)
}

func (h *Handler) serveMatched(w http.ResponseWriter, r *http.Request, m *stub.StubMapping, start time.Time, body []byte) {
	rendered, err := h.renderer.Render(&m.Response)
	if err != nil {
		status := http.StatusBadGateway
		code := "body_file_error"
		if !errors.Is(err, content.ErrNotFound) {
			code = "render_error"
		}
		h.log.Error("response rendering failed", "mapping", m.ID, "error", err)
		h.writeError(w, status, code, err.Error())
		h.journalEntry(r, start, journal.Entry{
			Matched:   true,
			MappingID: m.ID,
			Response:  journal.ResponseRecord{Status: status},
		}, body)
		return
	}

	if rendered.Delay > 0 {
		select {
		case <-time.After(rendered.Delay):
		case <-r.Context().Done():
			h.journalEntry(r, start, journal.Entry{
				Matched:   true,
				MappingID: m.ID,
			}, body)
			return
		}
	}

	if rendered.Fault != fault.None {
		if err := fault.Inject(w, rendered.Fault); err != nil {
			h.log.Error("fault injection failed", "mapping", m.ID, "fault", rendered.Fault, "error", err)
		}
		h.journalEntry(r, start, journal.Entry{
			Matched:   true,
			MappingID: m.ID,
			Response:  journal.ResponseRecord{Fault: string(rendered.Fault)},
		}, body)
		return
	}

	for k, v := range rendered.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(rendered.Status)
	if len(rendered.Body) > 0 && r.Method != http.MethodHead {
		_, _ = w.Write(rendered.Body)
	}

	h.log.Debug("served stub response",
		"method", r.Method, "path", r.URL.Path, "mapping", m.ID, "status", rendered.Status)

	h.journalEntry(r, start, journal.Entry{
		Matched:   true,
		MappingID: m.ID,
		Response:  journal.ResponseRecord{Status: rendered.Status, BodySize: len(rendered.Body)},
	}, body)
}

func (h *Handler) serveUnmatched(w http.ResponseWriter, r *http.Request, req *matching.Request, start time.Time, body []byte) {
	if h.unmatchedMode == UnmatchedProxy && h.forwarder != nil {
		h.serveProxied(w, r, start, body)
		return
	}

	misses := matching.CollectNearMisses(h.repo.List(), req, matching.DefaultNearMissLimit)
	reasons := make([]string, 0, len(misses))
	for _, nm := range misses {
		reasons = append(reasons, nm.Reason)
	}

	h.log.Debug("no stub matched", "method", r.Method, "path", r.URL.Path, "nearMisses", len(misses))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Stubd-Unmatched", "true")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      "no_stub_matched",
		"message":    "no registered stub mapping matched the request",
		"method":     r.Method,
		"url":        req.FullURL(),
		"nearMisses": misses,
	})

	h.journalEntry(r, start, journal.Entry{
		Matched:         false,
		NearMissReasons: reasons,
		Response:        journal.ResponseRecord{Status: http.StatusNotFound},
	}, body)
}

func (h *Handler) serveProxied(w http.ResponseWriter, r *http.Request, start time.Time, body []byte) {
	ex, err := h.forwarder.Forward(r, body)
	if err != nil {
		h.log.Error("proxying unmatched request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusBadGateway, "proxy_error", "upstream request failed")
		h.journalEntry(r, start, journal.Entry{
			Matched:  false,
			Proxied:  true,
			Response: journal.ResponseRecord{Status: http.StatusBadGateway},
		}, body)
		return
	}

	for k, vs := range ex.Response.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(ex.Response.Status)
	if len(ex.Response.Body) > 0 {
		_, _ = w.Write(ex.Response.Body)
	}

	if h.sink != nil {
		h.sink(ex)
	}

	h.journalEntry(r, start, journal.Entry{
		Matched:  false,
		Proxied:  true,
		Response: journal.ResponseRecord{Status: ex.Response.Status, BodySize: len(ex.Response.Body)},
	}, body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

func (h *Handler) journalEntry(r *http.Request, start time.Time, e journal.Entry, body []byte) {
	clientIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		clientIP = host
	}

	e.Timestamp = start
	e.DurationMs = time.Since(start).Milliseconds()
	e.Request = journal.RequestRecord{
		Method:   r.Method,
		URL:      r.URL.RequestURI(),
		Path:     r.URL.Path,
		Headers:  r.Header.Clone(),
		Body:     string(body),
		ClientIP: clientIP,
	}
	h.journal.Append(e)
}
