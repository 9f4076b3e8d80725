package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/recording"
)

// Config holds admin listener settings.
type Config struct {
	Host string
	Port int
}

// DefaultConfig returns the standard admin listener settings.
func DefaultConfig() Config {
	return Config{Host: "127.0.0.1", Port: 8081}
}

// Server serves the admin API for one engine.
type Server struct {
	cfg      Config
	eng      *engine.Engine
	recorder *recording.Recorder
	log      *slog.Logger

	mux *http.ServeMux

	mu      sync.Mutex
	srv     *http.Server
	addr    string
	running bool
	started time.Time
}

// Option configures the admin server.
type Option func(*Server)

// WithRecorder exposes recording endpoints for the given recorder.
func WithRecorder(r *recording.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates an admin server for the engine.
func NewServer(cfg Config, eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		eng: eng,
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux = s.routes()
	return s
}

// Handler returns the admin API handler, useful for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the admin listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("admin server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.addr = ln.Addr().String()

	s.srv = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("admin server stopped", "error", err)
		}
	}()

	s.running = true
	s.started = time.Now()
	s.log.Info("admin api listening", "addr", s.addr)
	return nil
}

// Stop gracefully shuts the admin listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.srv.Shutdown(ctx)
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return time.Since(s.started)
}
