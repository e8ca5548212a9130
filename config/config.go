package config

import (
	"os"
	"strings"
	"time"
)

// Config holds the runtime configuration for the service. Values come from
// environment variables with defaults suitable for local development; main
// loads a .env file before calling Load.
type Config struct {
	ListenAddr string

	KafkaBrokers  []string
	KafkaClientID string
	ConsumerGroup string

	// Catalog database (PostgreSQL).
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Analytics store (ClickHouse).
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string

	// Optional catalog cache. Empty RedisAddr disables caching.
	RedisAddr       string
	RedisPassword   string
	CatalogCacheTTL time.Duration

	JaegerEndpoint string

	// ShutdownGrace bounds graceful shutdown; the process exits
	// unconditionally once it elapses.
	ShutdownGrace time.Duration
}

func Load() *Config {
	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8001"),
		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaClientID:      getEnv("KAFKA_CLIENT_ID", "ecommerce-api"),
		ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", "ecommerce-consumer-group"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "admin"),
		DBPassword:         getEnv("DB_PASSWORD", "admin123"),
		DBName:             getEnv("DB_NAME", "ecommerce_db"),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DB", "ecommerce_db"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		CatalogCacheTTL:    getDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		JaegerEndpoint:     getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		ShutdownGrace:      getDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
