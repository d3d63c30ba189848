// Package config loads the service configuration from environment
// variables.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/cloudplayer/identity/pkg/db"
	"github.com/cloudplayer/identity/pkg/logger"
	"github.com/cloudplayer/identity/pkg/provider"
)

// ErrNoProviders is returned when no OAuth provider is configured at
// all; the service would have nothing to link.
var ErrNoProviders = errors.New("config: no OAuth providers configured")

// ProviderCredentials holds one provider's OAuth client credentials.
// The provider is enabled when both values are set.
type ProviderCredentials struct {
	Key    string `env:"KEY"`
	Secret string `env:"SECRET"`
}

func (c ProviderCredentials) enabled() bool {
	return c.Key != "" && c.Secret != ""
}

// Config is the full service configuration.
type Config struct {
	Addr    string `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// LandingURL is where the browser is sent after every provider
	// callback, success or failure.
	LandingURL string `env:"AUTH_LANDING_URL" envDefault:"/static/close.html"`

	// Referer identifies this service to providers that allowlist API
	// consumers by referer.
	Referer string `env:"PROVIDER_REFERER" envDefault:"https://api.cloud-player.io"`

	// ProviderTimeout bounds each outbound provider call.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"5s"`

	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionCookie string        `env:"SESSION_COOKIE" envDefault:"cloudplayer.session"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`

	Database db.Config

	// RedisURL switches the claim token store to Redis when set;
	// otherwise tokens live in process memory.
	RedisURL      string        `env:"REDIS_URL"`
	ClaimTokenTTL time.Duration `env:"CLAIM_TOKEN_TTL" envDefault:"10m"`

	// Janitor settings for pruning stale anonymous users.
	JanitorSchedule string        `env:"JANITOR_SCHEDULE" envDefault:"@hourly"`
	AnonymousMaxAge time.Duration `env:"ANONYMOUS_MAX_AGE" envDefault:"168h"`

	Soundcloud ProviderCredentials `envPrefix:"SOUNDCLOUD_"`
	Youtube    ProviderCredentials `envPrefix:"YOUTUBE_"`

	Sentry logger.SentryConfig
}

// Load parses the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Providers builds the provider registry from the configured
// credentials. Providers without credentials are simply absent.
func (c Config) Providers() (*provider.Registry, error) {
	var configs []provider.Config
	if c.Soundcloud.enabled() {
		configs = append(configs, provider.Soundcloud(c.Soundcloud.Key, c.Soundcloud.Secret))
	}
	if c.Youtube.enabled() {
		configs = append(configs, provider.Youtube(c.Youtube.Key, c.Youtube.Secret))
	}
	if len(configs) == 0 {
		return nil, ErrNoProviders
	}
	return provider.NewRegistry(configs...)
}
