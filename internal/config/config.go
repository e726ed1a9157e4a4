package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string   `mapstructure:"REDIS_URL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`
	// AuthDevSigningKey enables HMAC-signed tokens for local development and
	// tests. Refused by Validate in production.
	AuthDevSigningKey string `mapstructure:"AUTH_DEV_SIGNING_KEY"`

	// AgentAPIKeyHash is the SHA-256 hex of the AI agent's API key. The agent
	// authenticates with the raw key and is mapped to a service-account user.
	AgentAPIKeyHash string `mapstructure:"AGENT_API_KEY_HASH"`

	// Per-route-class rate limits, requests per window.
	RateLimitWindowSecs int `mapstructure:"RATE_LIMIT_WINDOW_SECS"`
	RateLimitAPI        int `mapstructure:"RATE_LIMIT_API"`
	RateLimitAuth       int `mapstructure:"RATE_LIMIT_AUTH"`
	RateLimitPublic     int `mapstructure:"RATE_LIMIT_PUBLIC"`

	RequestTimeoutSecs int `mapstructure:"REQUEST_TIMEOUT_SECS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_WINDOW_SECS", 60)
	v.SetDefault("RATE_LIMIT_API", 120)
	v.SetDefault("RATE_LIMIT_AUTH", 20)
	v.SetDefault("RATE_LIMIT_PUBLIC", 300)
	v.SetDefault("REQUEST_TIMEOUT_SECS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "CORS_ORIGINS",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_DEV_SIGNING_KEY",
		"AGENT_API_KEY_HASH",
		"RATE_LIMIT_WINDOW_SECS", "RATE_LIMIT_API", "RATE_LIMIT_AUTH", "RATE_LIMIT_PUBLIC",
		"REQUEST_TIMEOUT_SECS",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Dev-signed tokens are accepted and the rate limiter uses")
		log.Println("WARNING: in-process counters. Do NOT use this in production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production a real
// identity provider must be configured and the development signing key must
// be absent, so the dev identity path is unreachable in a production binary.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.AuthIssuer == "" {
			return fmt.Errorf("AUTH_ISSUER is required in production; refusing to start without authentication")
		}
		if c.AuthDevSigningKey != "" {
			return fmt.Errorf("AUTH_DEV_SIGNING_KEY must not be set in production")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in production (shared rate-limit counters)")
		}
	}
	if c.RateLimitWindowSecs <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECS must be positive, got %d", c.RateLimitWindowSecs)
	}
	for name, limit := range map[string]int{
		"RATE_LIMIT_API":    c.RateLimitAPI,
		"RATE_LIMIT_AUTH":   c.RateLimitAuth,
		"RATE_LIMIT_PUBLIC": c.RateLimitPublic,
	} {
		if limit <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, limit)
		}
	}
	return nil
}
