package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// Config holds the listener configuration
type Config struct {
	Name string // Used in log lines ("portal", "api", "update")
	Host string
	Port int // 0 picks a free port
}

// Addr returns host:port
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Server hosts an http.Handler on one TCP listener.
type Server struct {
	config   Config
	handler  http.Handler
	httpSrv  *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// New creates a server. Requests are logged through RequestLogger.
func New(config Config, handler http.Handler) *Server {
	return &Server{
		config:  config,
		handler: RequestLogger(handler),
	}
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("%s server already started", s.config.Name)
	}

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.listener = listener
	s.httpSrv = httpSrv

	logging.Info("Server listening",
		zap.String("server", s.config.Name),
		zap.String("addr", listener.Addr().String()),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server stopped unexpectedly",
				zap.String("server", s.config.Name),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires or 10 seconds pass, whichever is first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.httpSrv = nil
	s.listener = nil
	s.mu.Unlock()

	if httpSrv == nil {
		return nil
	}

	logging.Info("Shutting down server...", zap.String("server", s.config.Name))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := httpSrv.Shutdown(ctx)
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close",
			zap.String("server", s.config.Name),
			zap.Error(err),
		)
		_ = httpSrv.Close()
	}

	s.wg.Wait()
	return err
}
