package fault

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{"connection-reset", ConnectionReset, false},
		{"empty-response", EmptyResponse, false},
		{"malformed-response", MalformedResponse, false},
		{"random-data-then-close", RandomDataThenClose, false},
		{"", None, false},
		{"explode", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, None.IsValid())
	assert.True(t, ConnectionReset.IsValid())
	assert.False(t, Type("timeout").IsValid())
}

func faultServer(t *testing.T, ft Type) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, Inject(w, ft))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInjectEmptyResponse(t *testing.T) {
	srv := faultServer(t, EmptyResponse)

	//nolint:bodyclose // the request is expected to fail before a body exists
	_, err := http.Get(srv.URL)
	assert.Error(t, err)
}

func TestInjectConnectionReset(t *testing.T) {
	srv := faultServer(t, ConnectionReset)

	//nolint:bodyclose // the request is expected to fail before a body exists
	_, err := http.Get(srv.URL)
	assert.Error(t, err)
}

func TestInjectMalformedResponse(t *testing.T) {
	srv := faultServer(t, MalformedResponse)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, body, garbageLen)
}

func TestInjectRandomDataThenClose(t *testing.T) {
	srv := faultServer(t, RandomDataThenClose)

	//nolint:bodyclose // the request is expected to fail before a body exists
	_, err := http.Get(srv.URL)
	assert.Error(t, err)
}

func TestInjectRequiresHijacker(t *testing.T) {
	rec := httptest.NewRecorder()
	err := Inject(rec, EmptyResponse)
	assert.Error(t, err)
}
