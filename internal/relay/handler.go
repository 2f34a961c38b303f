package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/florianilch/favorites-relay/internal/feed"
	"github.com/florianilch/favorites-relay/internal/tokensource"
)

// FeedSource returns the feed payload using the given bearer token.
type FeedSource interface {
	Get(ctx context.Context, token string) ([]byte, error)
}

// TokenSource holds the current bearer token and can replace it.
type TokenSource interface {
	Current() string
	Acquire(ctx context.Context) error
}

// Compile-time checks against the concrete implementations
var (
	_ FeedSource  = (*feed.Cache)(nil)
	_ TokenSource = (*tokensource.Manager)(nil)
)

// FeedHandler serves the feed, refreshing the bearer token once when a fetch fails.
type FeedHandler struct {
	Feed   FeedSource
	Tokens TokenSource
}

// Compile-time check to ensure FeedHandler implements http.Handler
var _ http.Handler = (*FeedHandler)(nil)

// ServeHTTP implements http.Handler interface. Method and path are ignored.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Upstream work runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	payload, err := h.resolve(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "serving feed failed", "stage", failedStage(err), "error", err)
		writeJSONError(ctx, w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeRaw(ctx, w, payload, http.StatusOK)
}

// resolve performs at most two fetches with one token refresh in between.
func (h *FeedHandler) resolve(ctx context.Context) ([]byte, error) {
	payload, err := h.Feed.Get(ctx, h.Tokens.Current())
	if err == nil {
		return payload, nil
	}

	slog.InfoContext(ctx, "fetch failed, refreshing token", "error", err)

	if err := h.Tokens.Acquire(ctx); err != nil {
		return nil, err
	}

	return h.Feed.Get(ctx, h.Tokens.Current())
}

// failedStage names the step that produced err for logging.
func failedStage(err error) string {
	var authErr *tokensource.AuthError
	if errors.As(err, &authErr) {
		return "token"
	}
	return "fetch"
}
