package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                 string
	DatabaseURL          string
	JWTSecret            string
	DataEncryptionKey    string
	FrontendDir          string
	Environment          string
	MigrationsDir        string
	RunMigrations        bool
	RunSeed              bool
	SeedAdminEmail       string
	SeedAdminPassword    string
	ProvisionDepartment  string
	DefaultScore         int
	IdentityCheckTimeout time.Duration
	SessionTTL           time.Duration
	LoginRatePerMinute   int
	MaxBodyBytes         int64
	InsightAPIKey        string
	InsightAPIBase       string
	InsightModel         string
	InsightTimeout       time.Duration
	RedisURL             string
	InsightCacheTTL      time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		DataEncryptionKey:    getEnv("DATA_ENCRYPTION_KEY", ""),
		FrontendDir:          getEnv("FRONTEND_DIR", "frontend/dist"),
		Environment:          getEnv("APP_ENV", "development"),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:              getEnvBool("RUN_SEED", true),
		SeedAdminEmail:       getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:    getEnv("SEED_ADMIN_PASSWORD", ""),
		ProvisionDepartment:  getEnv("PROVISION_DEPARTMENT", "Unassigned"),
		DefaultScore:         getEnvInt("DEFAULT_SCORE", 80),
		IdentityCheckTimeout: getEnvDuration("IDENTITY_CHECK_TIMEOUT", 5*time.Second),
		SessionTTL:           getEnvDuration("SESSION_TTL", 8*time.Hour),
		LoginRatePerMinute:   getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 4<<20)),
		InsightAPIKey:        getEnv("INSIGHT_API_KEY", getEnv("API_KEY", "")),
		InsightAPIBase:       getEnv("INSIGHT_API_BASE", "https://generativelanguage.googleapis.com"),
		InsightModel:         getEnv("INSIGHT_MODEL", "gemini-2.5-flash"),
		InsightTimeout:       getEnvDuration("INSIGHT_TIMEOUT", 30*time.Second),
		RedisURL:             getEnv("REDIS_URL", ""),
		InsightCacheTTL:      getEnvDuration("INSIGHT_CACHE_TTL", 6*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.ProvisionDepartment) == "" {
		return fmt.Errorf("PROVISION_DEPARTMENT must not be empty")
	}
	if c.Environment == "production" {
		if len(strings.TrimSpace(c.JWTSecret)) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for MFA secrets at rest")
		}
	} else if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DefaultScore < 0 || c.DefaultScore > 100 {
		return fmt.Errorf("DEFAULT_SCORE must be between 0 and 100")
	}
	if c.IdentityCheckTimeout <= 0 {
		return fmt.Errorf("IDENTITY_CHECK_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.LoginRatePerMinute <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_MINUTE must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.InsightTimeout <= 0 {
		return fmt.Errorf("INSIGHT_TIMEOUT must be positive")
	}
	return nil
}
