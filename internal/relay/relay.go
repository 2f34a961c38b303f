// Package relay serves the cached favorites feed over HTTP.
//
// Every inbound request, whatever its method or path, is answered with the
// feed JSON. When fetching with the current bearer token fails, the token is
// refreshed once and the fetch retried once; any remaining error becomes an
// HTTP 500 with a JSON error body.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server represents the relay HTTP server
type Server struct {
	mux    *http.ServeMux
	server *http.Server
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// New creates a relay server that answers every request from feed, using
// tokens for bearer credentials.
func New(feed FeedSource, tokens TokenSource) (*Server, error) {
	if feed == nil {
		return nil, errors.New("missing feed source")
	}
	if tokens == nil {
		return nil, errors.New("missing token source")
	}

	logger := slog.Default()

	mux := http.NewServeMux()
	mux.Handle("/", applyMiddlewares(&FeedHandler{Feed: feed, Tokens: tokens},
		Logging(logger),
		RequestID,
		TraceContext,
		Recovery,
	))

	return &Server{mux: mux}, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	// Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	return s.Serve(ctx, listener), nil
}

// Serve serves on an existing listener in the background. See Start.
func (s *Server) Serve(ctx context.Context, listener net.Listener) <-chan error {
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Covers a cache miss with token refresh: up to three upstream calls
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
