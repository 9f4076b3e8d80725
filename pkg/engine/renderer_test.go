package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/pkg/content"
	"github.com/getstubd/stubd/pkg/fault"
	"github.com/getstubd/stubd/pkg/stub"
)

func TestRenderLiteralBody(t *testing.T) {
	r := NewRenderer(nil)

	out, err := r.Render(&stub.ResponseDefinition{
		Status:  201,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    `{"ok":true}`,
	})
	require.NoError(t, err)

	assert.Equal(t, 201, out.Status)
	assert.Equal(t, "application/json", out.Headers["Content-Type"])
	assert.Equal(t, `{"ok":true}`, string(out.Body))
	assert.Equal(t, fault.None, out.Fault)
}

func TestRenderBodyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload.json"), []byte(`{"from":"file"}`), 0o644))
	store, err := content.NewFileStore(dir)
	require.NoError(t, err)

	r := NewRenderer(store)
	out, err := r.Render(&stub.ResponseDefinition{BodyFile: "payload.json"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(out.Body))
}

func TestRenderMissingBodyFile(t *testing.T) {
	store, err := content.NewFileStore(t.TempDir())
	require.NoError(t, err)

	r := NewRenderer(store)
	_, err = r.Render(&stub.ResponseDefinition{BodyFile: "ghost.json"})
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestRenderBodyFileWithoutStore(t *testing.T) {
	r := NewRenderer(nil)
	_, err := r.Render(&stub.ResponseDefinition{BodyFile: "payload.json"})
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestRenderFaultShortCircuits(t *testing.T) {
	r := NewRenderer(nil)

	out, err := r.Render(&stub.ResponseDefinition{
		BodyFile: "would-fail.json",
		Fault:    fault.ConnectionReset,
	})
	require.NoError(t, err)
	assert.Equal(t, fault.ConnectionReset, out.Fault)
	assert.Empty(t, out.Body)
}

func TestRenderDelay(t *testing.T) {
	r := NewRenderer(nil)

	out, err := r.Render(&stub.ResponseDefinition{FixedDelayMs: 250})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, out.Delay)
}
