package commands

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/favorites-relay/internal/app"
)

// envPrefix is stripped from environment variables during config loading (e.g., FAVRELAY_SERVER__HOST → server.host)
const envPrefix = "FAVRELAY_"

// legacyEnvKeys maps the unprefixed variables of earlier deployments to config keys.
// Prefixed variables take precedence over these.
var legacyEnvKeys = map[string]string{
	"USERNAME":         "feed.screen_name",
	"TWITTER_CONSUMER": "auth.client_id",
	"TWITTER_SECRET":   "auth.client_secret",
	"PORT":             "server.port",
}

// loadConfig loads application configuration from various sources with precedence:
// config file → legacy environment variables → environment variables → CLI flags → defaults
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	k, err := loadSources(configPath, cmd, environFunc)
	if err != nil {
		return nil, err
	}

	config := &app.Config{}
	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// loadAuthConfig loads only the auth section, with defaults applied and no validation
// of the rest of the configuration.
func loadAuthConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.AuthConfig, error) {
	k, err := loadSources(configPath, cmd, environFunc)
	if err != nil {
		return nil, err
	}

	config := &app.Config{}
	if err := k.UnmarshalWithConf("auth", &config.Auth, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling auth config: %w", err)
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	return &config.Auth, nil
}

// loadSources merges all configuration sources into a single koanf instance.
func loadSources(configPath string, cmd *cli.Command, environFunc func() []string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	// 1. Load from config file if provided
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// 2. Load from legacy environment variables
	legacyProvider := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			// Unknown and empty variables are skipped by returning an empty key
			if value == "" {
				return "", nil
			}
			return legacyEnvKeys[key], value
		},
		EnvironFunc: environFunc,
	})
	if err := k.Load(legacyProvider, nil); err != nil {
		return nil, fmt.Errorf("loading legacy environment variables: %w", err)
	}

	// 3. Load from environment variables
	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			stripped := strings.TrimPrefix(key, envPrefix)
			nested := strings.ToLower(strings.ReplaceAll(stripped, "__", "."))
			return nested, value
		},
		EnvironFunc: environFunc,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	// 4. Load from CLI flags if provided
	if cmd != nil {
		flagValues := extractAndTransformFlags(cmd)
		if err := k.Load(confmap.Provider(flagValues, "."), nil); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	return k, nil
}

// extractAndTransformFlags transforms CLI flag names to match config structure.
// Includes parent flags. Examples: --server--host → server.host, --log-level → log_level
func extractAndTransformFlags(cmd *cli.Command) map[string]any {
	values := make(map[string]any)

	// FlagNames() includes flags from parent commands (via lineage)
	for _, name := range cmd.FlagNames() {
		// Skip unset flags to preserve precedence from earlier config sources
		if !cmd.IsSet(name) {
			continue
		}

		if value := cmd.Value(name); value != nil {
			key := strings.ReplaceAll(name, "--", ".")
			key = strings.ReplaceAll(key, "-", "_")
			values[key] = value
		}
	}

	return values
}
