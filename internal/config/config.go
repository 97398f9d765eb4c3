// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the credential and blacklist tables.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address for the shared rate counter (e.g. localhost:6379).
	// Empty means the in-process counter is used instead.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis database number.
	RedisDB int `mapstructure:"REDIS_DB"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "relay-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "relay-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// AccessTTLRaw is the access token lifetime (e.g. "15m").
	AccessTTLRaw string `mapstructure:"ACCESS_TTL"`
	// RefreshTTLRaw is the refresh token lifetime (e.g. "720h" for 30 days).
	RefreshTTLRaw string `mapstructure:"REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// RateLoginLimit / RateLoginWindowRaw bound unauthenticated login attempts per source address.
	RateLoginLimit     int    `mapstructure:"RATE_LOGIN_LIMIT"`
	RateLoginWindowRaw string `mapstructure:"RATE_LOGIN_WINDOW"`
	// RateMessageLimit / RateMessageWindowRaw bound message sends per authenticated owner.
	RateMessageLimit     int    `mapstructure:"RATE_MESSAGE_LIMIT"`
	RateMessageWindowRaw string `mapstructure:"RATE_MESSAGE_WINDOW"`
	// RateAPILimit / RateAPIWindowRaw bound general API calls per authenticated owner.
	RateAPILimit     int    `mapstructure:"RATE_API_LIMIT"`
	RateAPIWindowRaw string `mapstructure:"RATE_API_WINDOW"`

	// JanitorIntervalRaw is the interval between expiry sweeps (e.g. "24h").
	JanitorIntervalRaw string `mapstructure:"JANITOR_INTERVAL"`

	// OTLPEndpoint is the optional OTLP gRPC endpoint for metrics (e.g. http://localhost:4317).
	// Empty disables metric export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ISSUER", "relay-auth")
	v.SetDefault("JWT_AUDIENCE", "relay-api")
	v.SetDefault("ACCESS_TTL", "15m")
	v.SetDefault("REFRESH_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RATE_LOGIN_LIMIT", 5)
	v.SetDefault("RATE_LOGIN_WINDOW", "1m")
	v.SetDefault("RATE_MESSAGE_LIMIT", 30)
	v.SetDefault("RATE_MESSAGE_WINDOW", "1m")
	v.SetDefault("RATE_API_LIMIT", 100)
	v.SetDefault("RATE_API_WINDOW", "1m")
	v.SetDefault("JANITOR_INTERVAL", "24h")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.RateLoginLimit <= 0 || cfg.RateMessageLimit <= 0 || cfg.RateAPILimit <= 0 {
		return nil, errors.New("config: rate limits must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses ACCESS_TTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.AccessTTLRaw, 15*time.Minute)
}

// RefreshTTL parses REFRESH_TTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.RefreshTTLRaw, 720*time.Hour)
}

// LoginWindow parses RATE_LOGIN_WINDOW. Returns 1m if unset or invalid.
func (c *Config) LoginWindow() time.Duration {
	return durationOr(c.RateLoginWindowRaw, time.Minute)
}

// MessageWindow parses RATE_MESSAGE_WINDOW. Returns 1m if unset or invalid.
func (c *Config) MessageWindow() time.Duration {
	return durationOr(c.RateMessageWindowRaw, time.Minute)
}

// APIWindow parses RATE_API_WINDOW. Returns 1m if unset or invalid.
func (c *Config) APIWindow() time.Duration {
	return durationOr(c.RateAPIWindowRaw, time.Minute)
}

// JanitorInterval parses JANITOR_INTERVAL. Returns 24h if unset or invalid.
func (c *Config) JanitorInterval() time.Duration {
	return durationOr(c.JanitorIntervalRaw, 24*time.Hour)
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
