package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (BAZAAR_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BAZAAR_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	PublicURL   string `usage:"Public base URL buyers return to after payment" flag:"public-url"`
	Auth        AuthConfig
	Payment     PaymentConfig
	Expiry      ExpiryConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// AuthConfig controls bearer token verification.
type AuthConfig struct {
	Secret string `usage:"HS256 secret shared with the token issuer"`
}

// PaymentConfig configures the payment provider.
type PaymentConfig struct {
	APIURL             string        `env:"API_URL" default:"https://api.stripe.com" usage:"Payment provider API base URL"`
	SecretKey          string        `usage:"Payment provider API key"`
	WebhookSecret      string        `usage:"Secret used to verify payment notifications"`
	Currency           string        `default:"pln" usage:"Currency charged at checkout"`
	Timeout            time.Duration `default:"10s" usage:"Payment provider request timeout"`
	SignatureTolerance time.Duration `default:"5m" usage:"Accepted age of a notification signature"`
}

// ExpiryConfig controls the listing expiry sweep.
type ExpiryConfig struct {
	Interval time.Duration `default:"1m" usage:"How often overdue listings are expired"`
}

// RateLimitConfig controls per-client request rate limiting.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per client per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window"`
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	Origins          []string `default:"*"     usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials in CORS requests" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration"`
}

// LoadConfig loads .env, then environment variables, flags and YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "BAZAAR"
	base.Files = []string{"config.yaml", "/etc/bazaar/config.yaml"}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set BAZAAR_DATABASE_URL or DATABASE_URL")
	case c.Auth.Secret == "":
		return errors.New("auth secret is required: set BAZAAR_AUTH_SECRET")
	case c.Payment.WebhookSecret == "":
		return errors.New("payment webhook secret is required: set BAZAAR_PAYMENT_WEBHOOK_SECRET")
	case c.Expiry.Interval <= 0:
		return errors.New("expiry interval must be positive")
	case c.RateLimit.Max < 0:
		return errors.New("rate limit max must not be negative")
	case c.RateLimit.Max > 0 && c.RateLimit.Window <= 0:
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT to the
// BAZAAR_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
