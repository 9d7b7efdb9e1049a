package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultHTTPAddr              = ":8080"
	defaultDatabaseURL           = "jobmarket.db"
	defaultJWTSecret             = "change-me-jwt-secret"
	defaultJWTTTL                = "24h"
	defaultFeedServerWindow      = "100"
	defaultFeedDefaultLimit      = "20"
	defaultNotificationRetention = "2160h"
	defaultNotificationCleanup   = "@daily"
	defaultSubscriptionPoll      = "0"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string

	RefdataFile string

	FeedServerWindow int
	FeedDefaultLimit int

	NotificationRetention   time.Duration
	NotificationCleanupCron string

	// SubscriptionPoll re-runs snapshot queries on this interval in
	// addition to change signals. Zero disables it.
	SubscriptionPoll time.Duration

	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RefdataFile = strings.TrimSpace(os.Getenv("REFDATA_FILE"))
	cfg.NotificationCleanupCron = strings.TrimSpace(getEnv("NOTIFICATION_CLEANUP_CRON", defaultNotificationCleanup))
	cfg.CORSAllowedOrigins = parseListEnv("CORS_ALLOWED_ORIGINS")

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	cfg.NotificationRetention, err = parseDurationEnv("NOTIFICATION_RETENTION", defaultNotificationRetention)
	if err != nil {
		return nil, err
	}

	cfg.SubscriptionPoll, err = parseDurationEnv("SUBSCRIPTION_POLL", defaultSubscriptionPoll)
	if err != nil {
		return nil, err
	}

	cfg.FeedServerWindow, err = parseIntEnv("FEED_SERVER_WINDOW", defaultFeedServerWindow)
	if err != nil {
		return nil, err
	}

	cfg.FeedDefaultLimit, err = parseIntEnv("FEED_DEFAULT_LIMIT", defaultFeedDefaultLimit)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s addr=%s redis=%t poll=%s", cfg.AppEnv, cfg.HTTPAddr, cfg.RedisAddr != "", cfg.SubscriptionPoll)

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.NotificationRetention <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must be > 0")
	}
	if cfg.SubscriptionPoll < 0 {
		return fmt.Errorf("SUBSCRIPTION_POLL must be >= 0")
	}
	if cfg.FeedServerWindow <= 0 {
		return fmt.Errorf("FEED_SERVER_WINDOW must be > 0")
	}
	if cfg.FeedDefaultLimit <= 0 || cfg.FeedDefaultLimit > cfg.FeedServerWindow {
		return fmt.Errorf("FEED_DEFAULT_LIMIT must be between 1 and FEED_SERVER_WINDOW")
	}
	if _, err := cron.ParseStandard(cfg.NotificationCleanupCron); err != nil {
		return fmt.Errorf("invalid NOTIFICATION_CLEANUP_CRON %q: %w", cfg.NotificationCleanupCron, err)
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseListEnv(name string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
