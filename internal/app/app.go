package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/favorites-relay/internal/feed"
	"github.com/florianilch/favorites-relay/internal/relay"
	"github.com/florianilch/favorites-relay/internal/secretstore"
	"github.com/florianilch/favorites-relay/internal/tokensource"
)

// App orchestrates the lifecycle of the relay server and related services.
type App struct {
	cfg     *Config
	secrets secretstore.Store
}

// New creates a new App instance.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// I/O deferred to Start
	secrets, err := cfg.Auth.NewSecretStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create secret store: %w", err)
	}

	return &App{
		cfg:     cfg,
		secrets: secrets,
	}, nil
}

// Address returns the configured listen address.
func (a *App) Address() string {
	return net.JoinHostPort(a.cfg.Server.Host, strconv.FormatUint(uint64(a.cfg.Server.Port), 10))
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.Address())
	if err != nil {
		return fmt.Errorf("relay startup failed: failed to listen on %s: %w", a.Address(), err)
	}
	return a.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (a *App) Serve(ctx context.Context, listener net.Listener) error {
	tokens, server, err := a.build(ctx)
	if err != nil {
		_ = listener.Close()
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	address := listener.Addr().String()
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting relay server", "address", address)
	serverErrCh := server.Serve(gCtx, listener)
	shutdownFuncs = append(shutdownFuncs, server.Shutdown)

	// Initial token acquisition runs alongside the server; requests that
	// arrive first join it through their own refresh. Unless configured
	// otherwise a failure only logs, since every request retries the exchange.
	g.Go(func() error {
		if err := tokens.Acquire(gCtx); err != nil {
			if a.cfg.Auth.ExitOnStartupFailure {
				slog.ErrorContext(gCtx, "initial token acquisition failed", "error", err)
				return fmt.Errorf("initial token: %w", err)
			}
			slog.WarnContext(gCtx, "initial token acquisition failed, retrying on first request", "error", err)
		}
		return nil
	})

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "relay runtime error", "error", err)
				return fmt.Errorf("relay: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}

// build reads the client secret and wires token manager, feed cache and relay server.
func (a *App) build(ctx context.Context) (*tokensource.Manager, *relay.Server, error) {
	secret, err := a.secrets.Read(ctx)
	if errors.Is(err, secretstore.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: run `favrelay secret set --auth--storage %s` first", err, a.cfg.Auth.Storage)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read client secret: %w", err)
	}

	tokens := tokensource.NewManager(
		a.cfg.Auth.ClientID,
		secret,
		tokensource.EndpointFor(a.cfg.Upstream.BaseURL),
		tokensource.WithTimeout(a.cfg.Upstream.Timeout),
	)

	cache, err := feed.New(a.cfg.Upstream.BaseURL, a.cfg.Feed.ScreenName,
		feed.WithCount(a.cfg.Feed.Count),
		feed.WithTTL(a.cfg.Feed.TTL),
		feed.WithTimeout(a.cfg.Upstream.Timeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create feed cache: %w", err)
	}

	server, err := relay.New(cache, tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create relay: %w", err)
	}

	return tokens, server, nil
}
