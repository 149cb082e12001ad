// Package configs provides application configuration loaded from environment
// variables. All configuration is externalized; a .env file is honored for
// local development.
package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// AppConfig holds all application configuration. Load it once at startup
// with AppLoad().
type AppConfig struct {
	// ServerPort is the API listen port.
	ServerPort string

	// Store selects the persistence backend: "memory" or "redis".
	Store StoreConfig

	// Sync contains market sync loop settings.
	Sync SyncConfig

	// Kafka mirrors market updates to a topic when Broker is set.
	Kafka KafkaConfig

	// ArchiveDSN enables the ClickHouse transaction archive when non-empty.
	ArchiveDSN string

	// IPO contains CDSC proxy settings.
	IPO IPOConfig

	Logger *logrus.Logger
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string

	// RedisAddr is the host:port of the Redis server.
	RedisAddr string

	// RedisPassword may be empty.
	RedisPassword string

	// RedisDB is the logical database index.
	RedisDB int
}

// SyncConfig holds market sync loop settings.
type SyncConfig struct {
	// MarketURL is the live-trading page to scrape.
	MarketURL string

	// Interval between sync cycles.
	Interval time.Duration

	// RequestsPerMin caps upstream fetches.
	RequestsPerMin float64
}

// KafkaConfig holds the optional market feed settings.
type KafkaConfig struct {
	// Broker is the Kafka broker address; empty disables the feed.
	Broker string

	// Topic is the quote feed topic.
	Topic string
}

// IPOConfig holds CDSC proxy settings.
type IPOConfig struct {
	// Enabled toggles the proxy routes.
	Enabled bool

	// BaseURL of the result checker.
	BaseURL string

	// SessionCap bounds the captcha session cache.
	SessionCap int

	// SessionTTL expires captcha sessions.
	SessionTTL time.Duration
}

// NewLogger builds the application logger.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// AppLoad loads all application configuration from environment variables.
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // .env is optional

	return &AppConfig{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", "memory"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Sync: SyncConfig{
			MarketURL:      getEnv("MARKET_URL", ""),
			Interval:       time.Duration(getEnvInt("SYNC_INTERVAL_SECONDS", 60)) * time.Second,
			RequestsPerMin: float64(getEnvInt("SYNC_REQUESTS_PER_MIN", 6)),
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_QUOTE_TOPIC", "nepfolio_quotes"),
		},
		ArchiveDSN: getEnv("CLICKHOUSE_DSN", ""),
		IPO: IPOConfig{
			Enabled:    getEnvBool("IPO_PROXY_ENABLED", true),
			BaseURL:    getEnv("IPO_BASE_URL", ""),
			SessionCap: getEnvInt("IPO_SESSION_CAP", 1000),
			SessionTTL: time.Duration(getEnvInt("IPO_SESSION_TTL_SECONDS", 300)) * time.Second,
		},
		Logger: NewLogger(),
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
