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
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the HMAC secret used to sign session credentials; required when auth is enabled.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "session-hub").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4 to 31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// ZaloAppID is the Zalo OAuth application ID sent on token refresh.
	ZaloAppID string `mapstructure:"ZALO_APP_ID"`
	// ZaloAppSecret is the Zalo OAuth application secret, sent as the secret_key header.
	ZaloAppSecret string `mapstructure:"ZALO_APP_SECRET"`
	// ZaloOAuthBaseURL is the Zalo OAuth endpoint base (default https://oauth.zaloapp.com).
	ZaloOAuthBaseURL string `mapstructure:"ZALO_OAUTH_BASE_URL"`
	// ZaloRefreshTimeout bounds a single outbound refresh call (e.g. "10s").
	ZaloRefreshTimeout string `mapstructure:"ZALO_REFRESH_TIMEOUT"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317).
	// Empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

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
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "session-hub")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ZALO_APP_ID", "")
	v.SetDefault("ZALO_APP_SECRET", "")
	v.SetDefault("ZALO_OAUTH_BASE_URL", "https://oauth.zaloapp.com")
	v.SetDefault("ZALO_REFRESH_TIMEOUT", "10s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
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

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// RefreshTimeout parses ZaloRefreshTimeout as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) RefreshTimeout() time.Duration {
	d, err := time.ParseDuration(c.ZaloRefreshTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
