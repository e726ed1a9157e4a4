package config

import "testing"

func base() *Config {
	return &Config{
		Port:                "8000",
		Env:                 "production",
		DatabaseURL:         "postgres://localhost/careflow",
		RedisURL:            "redis://localhost:6379",
		AuthIssuer:          "https://id.example.com",
		RateLimitWindowSecs: 60,
		RateLimitAPI:        120,
		RateLimitAuth:       20,
		RateLimitPublic:     300,
	}
}

func TestValidateAcceptsCompleteProductionConfig(t *testing.T) {
	if err := base().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsProductionWithoutIssuer(t *testing.T) {
	cfg := base()
	cfg.AuthIssuer = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("production without AUTH_ISSUER must refuse to start")
	}
}

func TestValidateRejectsDevKeyInProduction(t *testing.T) {
	cfg := base()
	cfg.AuthDevSigningKey = "local-secret"
	if err := cfg.Validate(); err == nil {
		t.Fatal("dev signing key must be refused in production")
	}
}

func TestValidateRejectsProductionWithoutRedis(t *testing.T) {
	cfg := base()
	cfg.RedisURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("production without REDIS_URL must refuse to start")
	}
}

func TestValidateAllowsDevWithoutIssuer(t *testing.T) {
	cfg := base()
	cfg.Env = "development"
	cfg.AuthIssuer = ""
	cfg.RedisURL = ""
	cfg.AuthDevSigningKey = "local-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil in development", err)
	}
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cfg := base()
	cfg.RateLimitAuth = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero rate limit must be rejected")
	}

	cfg = base()
	cfg.RateLimitWindowSecs = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative window must be rejected")
	}
}
