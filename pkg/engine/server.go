package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/getstubd/stubd/pkg/logging"
)

// ServerConfig holds listener settings for the stub traffic server.
type ServerConfig struct {
	Host string
	Port int

	// TLSPort enables an additional HTTPS listener when non-zero.
	TLSPort  int
	CertFile string
	KeyFile  string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the standard listener settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server runs the stub traffic listeners.
type Server struct {
	cfg     ServerConfig
	handler http.Handler
	log     *slog.Logger

	mu        sync.Mutex
	httpSrv   *http.Server
	httpsSrv  *http.Server
	httpAddr  string
	running   bool
	startTime time.Time
}

// NewServer creates a server for the handler. A nil logger disables
// logging.
func NewServer(cfg ServerConfig, handler http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{cfg: cfg, handler: handler, log: log}
}

// Start binds the listeners and begins serving in the background. It
// returns once the listeners are bound, so a zero port is resolved by the
// time Start returns.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.httpAddr = ln.Addr().String()

	s.httpSrv = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server stopped", "error", err)
		}
	}()
	s.log.Info("stub server listening", "addr", s.httpAddr)

	if s.cfg.TLSPort > 0 {
		tlsAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.TLSPort)
		tlsLn, err := net.Listen("tcp", tlsAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen on %s: %w", tlsAddr, err)
		}
		s.httpsSrv = &http.Server{
			Handler:      s.handler,
			ReadTimeout:  s.cfg.ReadTimeout,
			WriteTimeout: s.cfg.WriteTimeout,
			IdleTimeout:  s.cfg.IdleTimeout,
		}
		go func() {
			if err := s.httpsSrv.ServeTLS(tlsLn, s.cfg.CertFile, s.cfg.KeyFile); err != nil && err != http.ErrServerClosed {
				s.log.Error("https server stopped", "error", err)
			}
		}()
		s.log.Info("stub server listening (tls)", "addr", tlsLn.Addr().String())
	}

	s.running = true
	s.startTime = time.Now()
	return nil
}

// Stop gracefully shuts the listeners down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	var firstErr error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.httpsSrv != nil {
		if err := s.httpsSrv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.running = false
	s.log.Info("stub server stopped")
	return firstErr
}

// Addr returns the bound HTTP address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// Uptime reports how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startTime)
}
