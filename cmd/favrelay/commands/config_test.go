package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/florianilch/favorites-relay/internal/app"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
log_level = "debug"
log_format = "json"

[server]
host = "127.0.0.1"
port = 8080

[feed]
screen_name = "Rancher_Labs"
count = 20
ttl = "5m"

[auth]
client_id = "consumer"
client_secret = "secret"
`)

	cfg, err := loadConfig(path, nil, environ())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.LogLevel.String() != "DEBUG" || cfg.LogFormat != app.LogFormatJSON {
		t.Errorf("unexpected logging config %v %v", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Feed.ScreenName != "Rancher_Labs" || cfg.Feed.Count != 20 || cfg.Feed.TTL != 5*time.Minute {
		t.Errorf("unexpected feed config %+v", cfg.Feed)
	}
	if cfg.Upstream.BaseURL != app.DefaultConfigUpstreamBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.Upstream.BaseURL)
	}
}

func TestLoadConfigLegacyEnvironment(t *testing.T) {
	cfg, err := loadConfig("", nil, environ(
		"USERNAME=Rancher_Labs",
		"TWITTER_CONSUMER=consumer",
		"TWITTER_SECRET=secret",
		"PORT=8080",
		"UNRELATED=value",
	))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Feed.ScreenName != "Rancher_Labs" {
		t.Errorf("unexpected screen name %q", cfg.Feed.ScreenName)
	}
	if cfg.Auth.ClientID != "consumer" || cfg.Auth.ClientSecret != "secret" {
		t.Errorf("unexpected auth config %+v", cfg.Auth)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected port %d", cfg.Server.Port)
	}
}

func TestLoadConfigPrefixedEnvironmentWins(t *testing.T) {
	cfg, err := loadConfig("", nil, environ(
		"USERNAME=legacy",
		"FAVRELAY_FEED__SCREEN_NAME=prefixed",
		"FAVRELAY_AUTH__CLIENT_ID=consumer",
		"FAVRELAY_AUTH__CLIENT_SECRET=secret",
		"FAVRELAY_UPSTREAM__TIMEOUT=10s",
	))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Feed.ScreenName != "prefixed" {
		t.Errorf("expected prefixed variable to win, got %q", cfg.Feed.ScreenName)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("unexpected upstream timeout %v", cfg.Upstream.Timeout)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		env  []string
	}{
		{name: "no screen name", env: []string{"TWITTER_CONSUMER=c", "TWITTER_SECRET=s"}},
		{name: "no client id", env: []string{"USERNAME=u", "TWITTER_SECRET=s"}},
		{name: "no client secret", env: []string{"USERNAME=u", "TWITTER_CONSUMER=c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig("", nil, environ(tt.env...)); err == nil {
				t.Fatal("expected error for missing required configuration")
			}
		})
	}
}

func TestLoadAuthConfig(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "secret")
	auth, err := loadAuthConfig("", nil, environ(
		"FAVRELAY_AUTH__STORAGE=file",
		"FAVRELAY_AUTH__FILE="+secretPath,
	))
	if err != nil {
		t.Fatalf("loadAuthConfig failed: %v", err)
	}
	if auth.Storage != app.SecretStorageTypeFile || auth.File != secretPath {
		t.Errorf("unexpected auth config %+v", auth)
	}
}
