package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/pkg/content"
	"github.com/getstubd/stubd/pkg/fault"
	"github.com/getstubd/stubd/pkg/journal"
	"github.com/getstubd/stubd/pkg/proxy"
	"github.com/getstubd/stubd/pkg/stub"
)

func contextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Journal == nil {
		opts.Journal = journal.NewMemory(100)
	}
	return New(opts)
}

func register(t *testing.T, e *Engine, m *stub.StubMapping) *stub.StubMapping {
	t.Helper()
	out, err := e.Repository().Register(m)
	require.NoError(t, err)
	return out
}

func TestServeMatchedStub(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request: stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/ping"}},
		Response: stub.ResponseDefinition{
			Status:  200,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    `{"pong":true}`,
		},
	})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"pong":true}`, rec.Body.String())
}

func TestServeJournalsMatchedRequest(t *testing.T) {
	e := newEngine(t, Options{})
	m := register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "POST", URL: &stub.URLMatcher{Path: "/orders"}},
		Response: stub.ResponseDefinition{Status: 201},
	})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/orders", strings.NewReader(`{"sku":"A"}`)))

	entries := e.Journal().List(journal.Filter{})
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.True(t, entry.Matched)
	assert.Equal(t, m.ID, entry.MappingID)
	assert.Equal(t, "POST", entry.Request.Method)
	assert.Equal(t, `{"sku":"A"}`, entry.Request.Body)
	assert.Equal(t, 201, entry.Response.Status)
}

func TestServeUnmatchedDiagnostics(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "POST", URL: &stub.URLMatcher{Path: "/orders"}},
		Response: stub.ResponseDefinition{Status: 201},
	})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/orders", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Stubd-Unmatched"))

	var payload struct {
		Error      string `json:"error"`
		NearMisses []struct {
			Reason string `json:"reason"`
		} `json:"nearMisses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "no_stub_matched", payload.Error)
	require.NotEmpty(t, payload.NearMisses)
	assert.Contains(t, payload.NearMisses[0].Reason, "method")

	entries := e.Journal().List(journal.Filter{})
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Matched)
	assert.NotEmpty(t, entries[0].NearMissReasons)
}

func TestServeBodyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(`{"name":"jo"}`), 0o644))
	store, err := content.NewFileStore(dir)
	require.NoError(t, err)

	e := newEngine(t, Options{Content: store})
	register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/user"}},
		Response: stub.ResponseDefinition{Status: 200, BodyFile: "user.json"},
	})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/user", nil))

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"name":"jo"}`, rec.Body.String())
}

func TestServeMissingBodyFileIsBadGatewayAndJournaled(t *testing.T) {
	store, err := content.NewFileStore(t.TempDir())
	require.NoError(t, err)

	e := newEngine(t, Options{Content: store})
	m := register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/user"}},
		Response: stub.ResponseDefinition{Status: 200, BodyFile: "ghost.json"},
	})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/user", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "body_file_error")

	entries := e.Journal().List(journal.Filter{})
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Matched)
	assert.Equal(t, m.ID, entries[0].MappingID)
	assert.Equal(t, http.StatusBadGateway, entries[0].Response.Status)
}

func TestServeFixedDelay(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/slow"}},
		Response: stub.ResponseDefinition{Status: 200, FixedDelayMs: 80},
	})

	start := time.Now()
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/slow", nil))

	assert.Equal(t, 200, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestServeHeadFallsBackToGet(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/doc"}},
		Response: stub.ResponseDefinition{Status: 200, Body: "content"},
	})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("HEAD", "/doc", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Empty(t, rec.Body.String(), "HEAD responses carry no body")
}

func TestServeBodyTooLarge(t *testing.T) {
	e := newEngine(t, Options{MaxBodyBytes: 8})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/x", strings.NewReader("0123456789abcdef")))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Len(t, e.Journal().List(journal.Filter{}), 1)
}

func TestServeFaultOverRealConnection(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/broken"}},
		Response: stub.ResponseDefinition{Fault: fault.EmptyResponse},
	})

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	//nolint:bodyclose // the request is expected to fail before a body exists
	_, err := http.Get(srv.URL + "/broken")
	assert.Error(t, err)

	entries := e.Journal().List(journal.Filter{})
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Matched)
	assert.Equal(t, string(fault.EmptyResponse), entries[0].Response.Fault)
}

func TestServeScenarioFlow(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request:       stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/cart"}},
		Response:      stub.ResponseDefinition{Status: 200, Body: "empty"},
		ScenarioName:  "cart",
		RequiredState: "Started",
		NewState:      "filled",
	})
	register(t, e, &stub.StubMapping{
		Request:       stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/cart"}},
		Response:      stub.ResponseDefinition{Status: 200, Body: "one item"},
		ScenarioName:  "cart",
		RequiredState: "filled",
	})

	get := func() string {
		rec := httptest.NewRecorder()
		e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/cart", nil))
		return rec.Body.String()
	}

	assert.Equal(t, "empty", get())
	assert.Equal(t, "one item", get())
	assert.Equal(t, "one item", get())

	e.Scenarios().Reset("cart")
	assert.Equal(t, "empty", get())
}

func TestServeProxyMode(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Origin", "upstream")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("from upstream"))
	}))
	defer upstream.Close()

	fwd, err := proxy.NewForwarder(upstream.URL)
	require.NoError(t, err)

	var captured []*proxy.Exchange
	e := newEngine(t, Options{
		UnmatchedMode: UnmatchedProxy,
		Forwarder:     fwd,
		Sink:          func(ex *proxy.Exchange) { captured = append(captured, ex) },
	})
	register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/stubbed"}},
		Response: stub.ResponseDefinition{Status: 200, Body: "stubbed"},
	})

	// Stubbed path is served locally.
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/stubbed", nil))
	assert.Equal(t, "stubbed", rec.Body.String())

	// Unmatched path goes upstream.
	rec = httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "upstream", rec.Header().Get("X-Origin"))
	assert.Equal(t, "from upstream", rec.Body.String())

	require.Len(t, captured, 1)
	assert.Equal(t, "/live", captured[0].Request.Path)

	entries := e.Journal().List(journal.Filter{})
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Proxied)
	assert.False(t, entries[1].Proxied)
}

func TestServeProxyUpstreamFailure(t *testing.T) {
	fwd, err := proxy.NewForwarder("http://127.0.0.1:1")
	require.NoError(t, err)

	e := newEngine(t, Options{UnmatchedMode: UnmatchedProxy, Forwarder: fwd})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/live", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "proxy_error")
}

func TestEngineReset(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request:      stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/a"}},
		Response:     stub.ResponseDefinition{Status: 200},
		ScenarioName: "s",
	})
	e.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/a", nil))

	e.Reset()
	assert.Equal(t, 0, e.Repository().Count())
	assert.Empty(t, e.Journal().List(journal.Filter{}))
	assert.Empty(t, e.Scenarios().List())
}

func TestServerStartStop(t *testing.T) {
	e := newEngine(t, Options{})
	register(t, e, &stub.StubMapping{
		Request:  stub.RequestPattern{Method: "GET", URL: &stub.URLMatcher{Path: "/ping"}},
		Response: stub.ResponseDefinition{Status: 200, Body: "pong"},
	})

	cfg := DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	srv := NewServer(cfg, e.Handler(), nil)
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))
	assert.Greater(t, srv.Uptime(), time.Duration(0))

	ctx, cancel := contextWithTimeout(t)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}
