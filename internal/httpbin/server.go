package httpbin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server runs an App until its context is cancelled, then drains
// in-flight requests.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address. Default is "127.0.0.1:8080".
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		s.srv.Addr = addr
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests
// once its context is cancelled. Default is 10s.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithServerLogger sets the lifecycle logger.
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = log
	}
}

// NewServer wraps handler in a Server. Write timeouts are left unset so
// the slow endpoints (/drip, /delay) can run to completion.
func NewServer(handler http.Handler, opts ...ServerOption) *Server {
	s := Server{
		srv: &http.Server{
			Addr:              "127.0.0.1:8080",
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &s
}

// Run listens on the configured address and serves until ctx is done.
// ready, when not nil, receives the bound address once listening starts.
func (s *Server) Run(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	addr := ln.Addr().String()
	s.logger.Info("server started", "addr", addr)
	if ready != nil {
		ready(addr)
	}

	serverErrs := make(chan error, 1)
	go func() {
		serverErrs <- s.srv.Serve(ln)
	}()

	select {
	case err := <-serverErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.srv.Close()
			return fmt.Errorf("server didn't stop gracefully: %w", err)
		}

		s.logger.Info("shutdown complete")

		return nil
	}
}
