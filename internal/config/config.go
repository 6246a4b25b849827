package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// Reward terms applied at intake. RewardDelay is how long after
	// order creation the discount code is issued; keep it small in
	// development (minutes) and 720h in production.
	CashbackPercent float64
	RewardDelay     time.Duration
	CodeExpiryDays  int
	CodePrefix      string
	VIPTag          string

	DispatchInterval  time.Duration
	DispatchBatchSize int
	ClaimLease        time.Duration
	MaxAttempts       int
	ExternalTimeout   time.Duration

	ShopifyAPIVersion string

	ResendAPIKey string
	EmailFrom    string

	// Optional bearer token required by the manual dispatch trigger.
	CronSecret string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	dispatchInterval := getenvDuration("DISPATCH_INTERVAL", 0)
	if dispatchInterval <= 0 {
		if environment == "production" {
			dispatchInterval = 24 * time.Hour
		} else {
			dispatchInterval = time.Minute
		}
	}

	return Config{
		AppName:     getenv("APP_SERVICE", "cashback"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "cashback"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		CashbackPercent: getenvFloat("CASHBACK_PERCENT", 5),
		RewardDelay:     getenvDuration("CASHBACK_DELAY", 720*time.Hour),
		CodeExpiryDays:  getenvInt("CODE_EXPIRY_DAYS", 365),
		CodePrefix:      getenv("DISCOUNT_CODE_PREFIX", "CASHBACK"),
		VIPTag:          getenv("VIP_TAG", "VIP-CASHBACK"),

		DispatchInterval:  dispatchInterval,
		DispatchBatchSize: getenvInt("DISPATCH_BATCH_SIZE", 50),
		ClaimLease:        getenvDuration("DISPATCH_CLAIM_LEASE", 5*time.Minute),
		MaxAttempts:       getenvInt("DISPATCH_MAX_ATTEMPTS", 30),
		ExternalTimeout:   getenvDuration("EXTERNAL_CALL_TIMEOUT", 15*time.Second),

		ShopifyAPIVersion: getenv("SHOPIFY_API_VERSION", "2025-10"),

		ResendAPIKey: strings.TrimSpace(getenv("RESEND_API_KEY", "")),
		EmailFrom:    getenv("RESEND_FROM_EMAIL", "noreply@example.com"),

		CronSecret: strings.TrimSpace(getenv("CRON_SECRET", "")),
	}
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		// Bare numbers are treated as minutes, matching the
		// CASHBACK_DELAY_MINUTES convention used by deployments.
		minutes, convErr := strconv.Atoi(value)
		if convErr != nil {
			return fallback
		}
		return time.Duration(minutes) * time.Minute
	}
	return parsed
}
