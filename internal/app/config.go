package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/favorites-relay/internal/feed"
	"github.com/florianilch/favorites-relay/internal/observability"
	"github.com/florianilch/favorites-relay/internal/secretstore"
	"github.com/florianilch/favorites-relay/internal/tokensource"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// SecretStorageType represents where the client secret is kept.
type SecretStorageType string

const (
	SecretStorageTypeConfig  SecretStorageType = "config"
	SecretStorageTypeFile    SecretStorageType = "file"
	SecretStorageTypeKeyring SecretStorageType = "keyring"
)

// KeyringService is the service name under which the client secret is kept in the OS keyring.
const KeyringService = "favorites-relay-client-secret"

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigServerHost      = "0.0.0.0"
	DefaultConfigServerPort      = 80
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigUpstreamBaseURL = tokensource.DefaultBaseURL
	DefaultConfigUpstreamTimeout = 30 * time.Second
	DefaultConfigFeedCount       = feed.DefaultCount
	DefaultConfigFeedTTL         = feed.DefaultTTL
	DefaultConfigAuthStorage     = SecretStorageTypeConfig
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// UpstreamConfig holds upstream API configuration.
type UpstreamConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// Timeout bounds each upstream HTTP call (token exchange or fetch).
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
}

// FeedConfig describes which favorites are served and for how long they are cached.
type FeedConfig struct {
	ScreenName string        `json:"screen_name" validate:"required"`
	Count      int           `json:"count" validate:"min=1,max=200"`
	TTL        time.Duration `json:"ttl" validate:"gt=0"`
}

// AuthConfig holds the OAuth2 client credentials and where the secret is read from.
type AuthConfig struct {
	ClientID string `json:"client_id" validate:"required"`

	Storage SecretStorageType `json:"storage" validate:"required,oneof=config file keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	ClientSecret string `json:"client_secret,omitempty"` // For config storage
	File         string `json:"file,omitempty"`          // For file storage: path to secret file
	KeyringUser  string `json:"keyring_user,omitempty"`  // For keyring storage: user identifier

	// ExitOnStartupFailure stops the application when the first token exchange fails.
	ExitOnStartupFailure bool `json:"exit_on_startup_failure"`
}

// NewSecretStore creates a secretstore.Store from the authentication configuration.
func (a *AuthConfig) NewSecretStore() (secretstore.Store, error) {
	switch a.Storage {
	case SecretStorageTypeConfig:
		return secretstore.NewStaticStore(a.ClientSecret)
	case SecretStorageTypeFile:
		return secretstore.NewFileStore(a.File)
	case SecretStorageTypeKeyring:
		return secretstore.NewKeyringStore(KeyringService, a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// TelemetryConfig selects an optional OpenTelemetry log exporter.
type TelemetryConfig struct {
	Exporter observability.Exporter `json:"exporter" validate:"omitempty,oneof=stdout otlp-http otlp-grpc"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level      `json:"log_level"`
	LogFormat LogFormat       `json:"log_format" validate:"oneof=text json"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Server    ServerConfig    `json:"server"`
	Shutdown  ShutdownConfig  `json:"shutdown"`
	Upstream  UpstreamConfig  `json:"upstream"`
	Feed      FeedConfig      `json:"feed"`
	Auth      AuthConfig      `json:"auth"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultConfigUpstreamBaseURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultConfigUpstreamTimeout
	}
	if c.Feed.Count == 0 {
		c.Feed.Count = DefaultConfigFeedCount
	}
	if c.Feed.TTL == 0 {
		c.Feed.TTL = DefaultConfigFeedTTL
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case SecretStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "favorites-relay", "secret")
		}
	case SecretStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case SecretStorageTypeConfig:
		// client_secret must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case SecretStorageTypeConfig:
		if c.Auth.ClientSecret == "" {
			return errors.New("auth.client_secret required for config storage")
		}
	case SecretStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("auth.file required for file storage")
		}
	case SecretStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("auth.keyring_user required for keyring storage")
		}
	}

	return nil
}
