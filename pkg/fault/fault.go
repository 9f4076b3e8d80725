// Package fault injects transport-level failures into HTTP responses.
// Faults operate below normal response rendering: they hijack the
// underlying connection and misbehave on purpose so clients can be tested
// against broken upstreams.
package fault

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/http"
)

// Type names an injectable fault.
type Type string

// The closed set of supported faults.
const (
	// None performs no fault injection.
	None Type = ""

	// ConnectionReset closes the connection with an RST so the client
	// observes "connection reset by peer".
	ConnectionReset Type = "connection-reset"

	// EmptyResponse closes the connection without writing any bytes.
	EmptyResponse Type = "empty-response"

	// MalformedResponse writes a valid status line and header block, then
	// a chunk of garbage where the body should be.
	MalformedResponse Type = "malformed-response"

	// RandomDataThenClose writes garbage instead of an HTTP response and
	// closes the connection.
	RandomDataThenClose Type = "random-data-then-close"
)

// IsValid reports whether t is a known fault type. None is valid.
func (t Type) IsValid() bool {
	switch t {
	case None, ConnectionReset, EmptyResponse, MalformedResponse, RandomDataThenClose:
		return true
	}
	return false
}

// Parse converts a string into a Type.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return None, fmt.Errorf("unknown fault type: %q", s)
	}
	return t, nil
}

// garbageLen is the size of the junk payload written by the data faults.
const garbageLen = 64

func garbage() []byte {
	b := make([]byte, garbageLen)
	_, _ = rand.Read(b)
	// Keep the first byte outside the printable ASCII range so the payload
	// can never start a parseable status line.
	b[0] = 0x01
	return b
}

// Inject applies the fault to the response. The response writer must
// support hijacking; callers should only invoke Inject for t != None.
func Inject(w http.ResponseWriter, t Type) error {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return fmt.Errorf("fault %q: response writer does not support hijacking", t)
	}

	conn, bufrw, err := hj.Hijack()
	if err != nil {
		return fmt.Errorf("fault %q: hijack: %w", t, err)
	}
	defer conn.Close()

	switch t {
	case ConnectionReset:
		// SetLinger(0) makes Close send RST instead of FIN.
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetLinger(0)
		}
		return nil

	case EmptyResponse:
		return nil

	case MalformedResponse:
		if _, err := bufrw.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\n\r\n"); err != nil {
			return err
		}
		if _, err := bufrw.Write(garbage()); err != nil {
			return err
		}
		return bufrw.Flush()

	case RandomDataThenClose:
		if _, err := bufrw.Write(garbage()); err != nil {
			return err
		}
		return bufrw.Flush()

	default:
		return fmt.Errorf("unknown fault type: %q", t)
	}
}
