package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:          "postgres://localhost/groundops",
		JWTSecret:            "dev-secret",
		Environment:          "development",
		ProvisionDepartment:  "Unassigned",
		DefaultScore:         80,
		IdentityCheckTimeout: 5 * time.Second,
		SessionTTL:           8 * time.Hour,
		LoginRatePerMinute:   10,
		MaxBodyBytes:         1 << 20,
		InsightTimeout:       30 * time.Second,
	}
}

func TestValidateAcceptsDevelopmentDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateProductionRequiresStrongSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected short JWT secret to be rejected in production")
	}

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing encryption key to be rejected in production")
	}

	cfg.DataEncryptionKey = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected hardened production config to validate, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeScore(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultScore = 120
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default score above 100 to be rejected")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("IDENTITY_CHECK_TIMEOUT", "2s")
	t.Setenv("DEFAULT_SCORE", "75")
	t.Setenv("RUN_SEED", "false")
	t.Setenv("API_KEY", "legacy-key")

	cfg := Load()
	if cfg.IdentityCheckTimeout != 2*time.Second {
		t.Fatalf("expected 2s identity timeout, got %v", cfg.IdentityCheckTimeout)
	}
	if cfg.DefaultScore != 75 {
		t.Fatalf("expected default score 75, got %d", cfg.DefaultScore)
	}
	if cfg.RunSeed {
		t.Fatal("expected RUN_SEED=false to disable seeding")
	}
	if cfg.InsightAPIKey != "legacy-key" {
		t.Fatalf("expected API_KEY fallback for insight key, got %q", cfg.InsightAPIKey)
	}
}
