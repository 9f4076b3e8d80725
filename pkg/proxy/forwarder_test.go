package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewForwarderValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		ok     bool
	}{
		{"http", "http://upstream.local", true},
		{"https", "https://upstream.local:8443", true},
		{"missing scheme", "upstream.local", false},
		{"bad scheme", "ftp://upstream.local", false},
		{"empty host", "http://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewForwarder(tt.target)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestForwardRelaysRequestAndResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "state=open", r.URL.RawQuery)
		assert.Equal(t, "tenant-a", r.Header.Get("X-Tenant"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"sku":"A"}`, string(body))

		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer upstream.Close()

	f, err := NewForwarder(upstream.URL)
	require.NoError(t, err)

	body := `{"sku":"A"}`
	r := httptest.NewRequest("POST", "/orders?state=open", strings.NewReader(body))
	r.Header.Set("X-Tenant", "tenant-a")

	ex, err := f.Forward(r, []byte(body))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, ex.Response.Status)
	assert.Equal(t, "yes", ex.Response.Headers.Get("X-Upstream"))
	assert.JSONEq(t, `{"id":7}`, string(ex.Response.Body))

	assert.Equal(t, "POST", ex.Request.Method)
	assert.Equal(t, "/orders", ex.Request.Path)
	assert.Equal(t, "state=open", ex.Request.Query)
	assert.False(t, ex.Timestamp.IsZero())
}

func TestForwardKeepsTargetBasePath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/users", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	f, err := NewForwarder(upstream.URL + "/api/v2")
	require.NoError(t, err)

	_, err = f.Forward(httptest.NewRequest("GET", "/users", nil), nil)
	require.NoError(t, err)
}

func TestForwardStripsHopByHopHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Proxy-Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	f, err := NewForwarder(upstream.URL)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("Proxy-Authorization", "secret")

	_, err = f.Forward(r, nil)
	require.NoError(t, err)
}

func TestForwardUpstreamDown(t *testing.T) {
	f, err := NewForwarder("http://127.0.0.1:1")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/x", nil)
	_, err = f.Forward(r, nil)
	assert.Error(t, err)
}
