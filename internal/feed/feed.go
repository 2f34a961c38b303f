// Package feed fetches the favorites list of a single account from the
// upstream API and keeps the last successful response for a fixed window.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Defaults for Cache configuration.
const (
	DefaultCount   = 12
	DefaultTTL     = 30 * time.Minute
	DefaultTimeout = 30 * time.Second
)

// favoritesPath is the favorites list endpoint relative to the base URL.
const favoritesPath = "/1.1/favorites/list.json"

// Option configures a Cache.
type Option func(*config)

type config struct {
	count     int
	ttl       time.Duration
	timeout   time.Duration
	transport http.RoundTripper
	now       func() time.Time
}

// WithCount sets how many items are requested from upstream.
func WithCount(count int) Option {
	return func(c *config) {
		c.count = count
	}
}

// WithTTL sets how long a fetched feed is served from memory.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithTimeout sets the HTTP client timeout for upstream fetches.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithTransport sets the base transport for upstream fetches.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *config) {
		c.transport = transport
	}
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// Cache serves the favorites feed of one account, holding the last
// successful upstream response in a single slot. It is safe for concurrent use.
type Cache struct {
	endpoint string
	client   *http.Client
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	payload []byte
	updated time.Time

	group singleflight.Group
}

// New creates a Cache for the favorites of screenName on the upstream at baseURL.
func New(baseURL, screenName string, opts ...Option) (*Cache, error) {
	cfg := &config{
		count:     DefaultCount,
		ttl:       DefaultTTL,
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if screenName == "" {
		return nil, errors.New("screen name cannot be empty")
	}

	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	endpoint := base.JoinPath(favoritesPath)
	query := url.Values{}
	query.Set("count", strconv.Itoa(cfg.count))
	query.Set("screen_name", screenName)
	endpoint.RawQuery = query.Encode()

	return &Cache{
		endpoint: endpoint.String(),
		client: &http.Client{
			Timeout:   cfg.timeout,
			Transport: cfg.transport,
		},
		ttl: cfg.ttl,
		now: cfg.now,
	}, nil
}

// Get returns the cached feed while it is fresh, otherwise fetches it from
// upstream with token as bearer credential. A fresh cache entry is returned
// even if token is no longer valid.
//
// The returned slice is shared between callers and must not be modified.
// Concurrent misses with the same token share one upstream request, which is
// not cancelled when ctx is.
func (c *Cache) Get(ctx context.Context, token string) ([]byte, error) {
	if payload, ok := c.cached(); ok {
		slog.DebugContext(ctx, "serving feed from cache")
		return payload, nil
	}

	ctx = context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(token, func() (any, error) {
		return c.fetch(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// cached returns the stored payload if it is still inside the validity window.
func (c *Cache) cached() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.payload == nil {
		return nil, false
	}
	if !c.now().Before(c.updated.Add(c.ttl)) {
		return nil, false
	}
	return c.payload, true
}

func (c *Cache) store(payload []byte) {
	c.mu.Lock()
	c.payload = payload
	c.updated = c.now()
	c.mu.Unlock()
}

func (c *Cache) fetch(ctx context.Context, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, Err: err}
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: FetchUnauthorized, Status: resp.StatusCode, Body: string(body)}
	}

	payload, err := Indent(body)
	if err != nil {
		return nil, &FetchError{Kind: FetchMalformedResponse, Err: err}
	}

	c.store(payload)
	slog.InfoContext(ctx, "fetched new feed", "bytes", len(payload))

	return payload, nil
}

// Indent validates raw JSON and re-indents it with two spaces per level.
// Key order and number literals are kept as sent by upstream.
func Indent(raw []byte) ([]byte, error) {
	if !json.Valid(raw) {
		return nil, errors.New("invalid JSON in response body")
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return nil, fmt.Errorf("indenting JSON: %w", err)
	}
	return buf.Bytes(), nil
}
