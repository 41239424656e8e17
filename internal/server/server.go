// Package server provides the loopback static file server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Options configures a Server.
type Options struct {
	// Quiet disables request logging.
	Quiet bool
	// ShutdownTimeout bounds graceful shutdown. Zero means 5 seconds.
	ShutdownTimeout time.Duration
	// Logger receives request logs. Nil means slog.Default().
	Logger *slog.Logger
}

// Server serves a directory over HTTP on an already bound listener.
type Server struct {
	listener        net.Listener
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Listen binds a TCP listener on host:port. Port 0 picks an ephemeral port.
func Listen(host string, port int) (net.Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// New creates a Server that serves root on ln.
func New(ln net.Listener, root string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var handler http.Handler = http.FileServer(http.Dir(root))
	if !opts.Quiet {
		handler = loggingMiddleware(logger, handler)
	}

	return &Server{
		listener: ln,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
		logger:          logger,
	}
}

// URL returns the base URL of the server, using the bound port.
func (s *Server) URL() string {
	host, port, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return "http://" + s.listener.Addr().String()
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Serve handles requests until ctx is cancelled, then shuts down gracefully.
// Connections still open after the shutdown timeout are closed. It returns
// nil after any shutdown triggered by ctx.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown timed out, closing open connections", slog.String("error", err.Error()))
		if err := s.httpServer.Close(); err != nil {
			s.logger.Warn("failed to close server", slog.String("error", err.Error()))
		}
	}
	return nil
}
