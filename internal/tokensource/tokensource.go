package tokensource

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single token exchange.
const DefaultTimeout = 30 * time.Second

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// managerConfig holds configuration for NewManager.
type managerConfig struct {
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithTransport sets a custom base transport for exchange requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) ManagerOption {
	return func(c *managerConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout sets the HTTP client timeout for exchange requests.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(c *managerConfig) {
		c.timeout = timeout
	}
}

// Manager performs the client-credentials exchange and holds the most recently
// acquired bearer token. It is safe for concurrent use.
type Manager struct {
	config     *clientcredentials.Config
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	group singleflight.Group
}

// NewManager creates a Manager for the given client credentials.
// No I/O is performed until the first Acquire call.
func NewManager(clientID, clientSecret string, endpoint oauth2.Endpoint, opts ...ManagerOption) *Manager {
	cfg := &managerConfig{
		baseTransport: http.DefaultTransport,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Manager{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     endpoint.TokenURL,
			AuthStyle:    endpoint.AuthStyle,
		},
		httpClient: &http.Client{
			Timeout: cfg.timeout,
			Transport: &tokenResponseTransport{
				base: cfg.baseTransport,
			},
		},
	}
}

// Current returns the last successfully acquired token, or "" if none has been acquired yet.
func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Acquire exchanges the client credentials for a new bearer token and stores it.
// On failure the previously stored token is kept and an *AuthError is returned.
//
// Concurrent calls share a single exchange. The exchange is not cancelled when
// ctx is; it always runs to completion.
func (m *Manager) Acquire(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	_, err, _ := m.group.Do("token", func() (any, error) {
		return nil, m.exchange(ctx)
	})
	return err
}

func (m *Manager) exchange(ctx context.Context) error {
	// oauth2 picks up custom HTTP clients via the oauth2.HTTPClient context key.
	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.config.Token(oauthCtx)
	if err != nil {
		return classify(err)
	}

	m.mu.Lock()
	m.token = tok.AccessToken
	m.mu.Unlock()

	slog.InfoContext(ctx, "acquired new bearer token", "token_type", tok.TokenType)
	return nil
}

// tokenResponseTransport labels successful exchange responses as JSON.
// oauth2 decodes any other Content-Type as a form body, while the upstream
// contract is a JSON object with access_token regardless of the header sent.
type tokenResponseTransport struct {
	base http.RoundTripper
}

// Compile-time check that tokenResponseTransport implements http.RoundTripper.
var _ http.RoundTripper = (*tokenResponseTransport)(nil)

// RoundTrip forwards the exchange and overrides Content-Type on 2xx responses.
func (t *tokenResponseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp.Header.Set("Content-Type", "application/json")
	}
	return resp, nil
}
