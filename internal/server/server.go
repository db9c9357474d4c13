package server

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultShutdownTimeout   = 30 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 2 * time.Minute
)

// Server runs the HTTP listener. There is no write timeout: a large blob may
// legitimately take a long time to stream, and a client that stops reading
// is dropped when its connection closes.
type Server struct {
	srv             *http.Server
	logger          zerolog.Logger
	shutdownTimeout time.Duration
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address used by Run, e.g. ":8080".
	Addr string

	// ShutdownTimeout bounds how long in-flight streams may drain after the
	// context passed to Run or Serve is cancelled. Defaults to 30s.
	ShutdownTimeout time.Duration
}

func New(logger zerolog.Logger, handler http.Handler, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ErrorLog:          stdlog.New(logger, "", 0),
		},
		logger:          logger,
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Dur("timeout", s.shutdownTimeout).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
