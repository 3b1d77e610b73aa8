package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Validation token configuration
	QRSecretKey     string
	TokenExpiry     time.Duration
	DefaultMaxScans int

	// Gate protection
	GateKeyHash     string // bcrypt hash of the shared gate key; empty disables the check
	RateLimitWindow time.Duration
	RateLimitMax    int

	// PubNub scan feed
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	ScanFeedChannel    string

	// Google Drive gallery
	GoogleServiceAccountEmail string
	GooglePrivateKey          string
	GoogleDriveFolderID       string
	GalleryFolderPrefix       string
	GalleryCacheTTL           time.Duration

	// Google Wallet
	GoogleWalletIssuerID string
	GoogleWalletClass    string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Tokens
		QRSecretKey:     getEnv("QR_SECRET_KEY", ""),
		TokenExpiry:     getEnvAsDuration("TOKEN_EXPIRY", "4320h"), // 180 days
		DefaultMaxScans: getEnvAsInt("DEFAULT_MAX_SCANS", 10),

		// Gate protection
		GateKeyHash:     getEnv("GATE_KEY_HASH", ""),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),
		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 30),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "festival-backend"),
		ScanFeedChannel:    getEnv("SCAN_FEED_CHANNEL", "scans"),

		// Google Drive
		GoogleServiceAccountEmail: getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		GooglePrivateKey:          getEnvMultiline("GOOGLE_PRIVATE_KEY", ""),
		GoogleDriveFolderID:       getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		GalleryFolderPrefix:       getEnv("GALLERY_FOLDER_PREFIX", "BoulderFest"),
		GalleryCacheTTL:           getEnvAsDuration("GALLERY_CACHE_TTL", "15m"),

		// Google Wallet
		GoogleWalletIssuerID: getEnv("GOOGLE_WALLET_ISSUER_ID", ""),
		GoogleWalletClass:    getEnv("GOOGLE_WALLET_CLASS", "festival-pass"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvMultiline unescapes "\n" sequences so PEM keys can be supplied
// through single-line environment variables.
func getEnvMultiline(key, defaultValue string) string {
	return strings.ReplaceAll(getEnv(key, defaultValue), `\n`, "\n")
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
