package config

import (
	"os"
	"time"
)

type Config struct {
	ListenAddr  string
	AppName     string
	AppVersion  string
	StoreMode   string
	DatabaseURL string

	ExchangeBaseURL string
	UserAgent       string
	HTTPTimeout     time.Duration

	SecretName     string
	SecretDocument string
	SecretDir      string
	SecretCacheTTL time.Duration

	CacheTTL      time.Duration
	DefaultUserID string

	AdminUsername string
	AdminPassword string
	JWTSecret     string
}

func Load() Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":18090"),
		AppName:     getEnv("APP_NAME", "holdingsd"),
		AppVersion:  getEnv("APP_VERSION", "0.2.0"),
		StoreMode:   getEnv("STORE_MODE", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		ExchangeBaseURL: getEnv("EXCHANGE_BASE_URL", "https://api-public.sandbox.exchange.coinbase.com"),
		UserAgent:       getEnv("EXCHANGE_USER_AGENT", "holdingsd/0.2"),
		HTTPTimeout:     getDuration("EXCHANGE_HTTP_TIMEOUT", 20*time.Second),

		SecretName:     getEnv("EXCHANGE_SECRET_NAME", "coinbase_exchange_sandbox"),
		SecretDocument: getEnv("EXCHANGE_SECRET_JSON", ""),
		SecretDir:      getEnv("EXCHANGE_SECRET_DIR", "secrets"),
		SecretCacheTTL: getDuration("SECRET_CACHE_TTL", 5*time.Minute),

		CacheTTL:      getDuration("CACHE_TTL", 3*time.Minute),
		DefaultUserID: getEnv("DEFAULT_USER_ID", "demo-user"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "change-me"),
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
