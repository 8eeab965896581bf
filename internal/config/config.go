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
	AppEnv         string
	Port           string
	AllowedOrigins []string

	DatabaseURL      string
	DBHost           string
	DBUser           string
	DBPass           string
	DBName           string
	DBPort           string
	DBMaxOpenConns   int
	DBConnectTimeout time.Duration

	RedisURL string

	JWTSecret       string
	JWTTTL          time.Duration
	AdminIdentifier string
	AdminPassword   string

	TelegramBotToken string
	InitDataMaxAge   time.Duration

	CloudinaryCloudName string
	EvidenceFolder      string

	MaxTaskRetries  int
	RequestTimeout  time.Duration
	WeeklyResetCron string

	RateLimitScore time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getEnv("DB_NAME", "earnhub"),
		DBPort:      getEnv("DB_PORT", "5432"),

		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AdminIdentifier: os.Getenv("ADMIN_IDENTIFIER"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		EvidenceFolder:      getEnv("EVIDENCE_FOLDER", "earnhub_evidence"),

		WeeklyResetCron: getEnv("WEEKLY_RESET_CRON", "0 12 * * 0"),
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret"
	}
	if cfg.TelegramBotToken == "" && cfg.AppEnv == "production" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required in production")
	}

	var err error
	if cfg.DBMaxOpenConns, err = strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20")); err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.MaxTaskRetries, err = strconv.Atoi(getEnv("MAX_TASK_RETRIES", "3")); err != nil {
		return nil, fmt.Errorf("invalid MAX_TASK_RETRIES: %w", err)
	}
	if cfg.MaxTaskRetries < 0 {
		return nil, fmt.Errorf("invalid MAX_TASK_RETRIES: must not be negative")
	}

	// Parsing durations
	if cfg.DBConnectTimeout, err = time.ParseDuration(getEnv("DB_CONNECT_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid DB_CONNECT_TIMEOUT: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.InitDataMaxAge, err = time.ParseDuration(getEnv("INIT_DATA_MAX_AGE", "24h")); err != nil {
		return nil, fmt.Errorf("invalid INIT_DATA_MAX_AGE: %w", err)
	}
	if cfg.RateLimitScore, err = time.ParseDuration(getEnv("RATE_LIMIT_SCORE", "2s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SCORE: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
