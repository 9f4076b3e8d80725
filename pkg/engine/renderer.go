package engine

import (
	"fmt"
	"time"

	"github.com/getstubd/stubd/pkg/content"
	"github.com/getstubd/stubd/pkg/fault"
	"github.com/getstubd/stubd/pkg/stub"
)

// Rendered is a response ready to be written: either a concrete status,
// headers and body, or a fault to inject instead. The delay applies in
// both cases, before the first byte.
type Rendered struct {
	Status  int
	Headers map[string]string
	Body    []byte
	Fault   fault.Type
	Delay   time.Duration
}

// Renderer resolves response definitions into writable responses.
type Renderer struct {
	content content.Store
}

// NewRenderer creates a renderer. The content store may be nil, in which
// case bodyFile references fail as missing content.
func NewRenderer(store content.Store) *Renderer {
	return &Renderer{content: store}
}

// Render resolves the definition. A fault short-circuits body resolution
// entirely. A bodyFile that cannot be read returns an error wrapping
// content.ErrNotFound or the underlying read failure.
func (r *Renderer) Render(def *stub.ResponseDefinition) (*Rendered, error) {
	out := &Rendered{
		Delay: time.Duration(def.FixedDelayMs) * time.Millisecond,
	}

	if def.Fault != fault.None {
		out.Fault = def.Fault
		return out, nil
	}

	out.Status = def.Status
	out.Headers = def.Headers

	switch {
	case def.BodyFile != "":
		if r.content == nil {
			return nil, fmt.Errorf("bodyFile %q: %w", def.BodyFile, content.ErrNotFound)
		}
		data, err := r.content.Get(def.BodyFile)
		if err != nil {
			return nil, fmt.Errorf("bodyFile %q: %w", def.BodyFile, err)
		}
		out.Body = data
	case def.Body != "":
		out.Body = []byte(def.Body)
	}

	return out, nil
}
