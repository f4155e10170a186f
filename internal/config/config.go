package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"luxtravel/internal/cache"
	"luxtravel/internal/database"
	"luxtravel/internal/external"
	"luxtravel/internal/messaging"
	"luxtravel/internal/notify"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration
	DefaultUserID  string
	CORSOrigins    []string

	StorageBackend string
	CatalogBackend string

	Database      database.Config
	Elasticsearch ElasticsearchConfig
	Cache         cache.Config
	NATS          messaging.Config
	Payment       external.PaymentConfig
	Notify        notify.Config
	Jobs          JobsConfig
}

// JobsConfig управляет фоновыми задачами истечения и завершения бронирований
type JobsConfig struct {
	ExpirationTTL time.Duration
	Interval      time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		DefaultUserID:  getEnv("DEFAULT_USER_ID", "user-123"),
		CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),
		CatalogBackend: getEnv("CATALOG_BACKEND", "static"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "luxtravel"),
			Password:           getEnv("DB_PASSWORD", "luxtravel"),
			DBName:             getEnv("DB_NAME", "luxtravel"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Cache: cache.Config{
			Enabled:        getEnvBool("CACHE_ENABLED", false),
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			CatalogTTL:     getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
			IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", false),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "luxtravel"),
			ClientID:  getEnv("NATS_CLIENT_ID", "luxtravel-api"),
		},

		Payment: external.PaymentConfig{
			Mode:       getEnv("PAYMENT_MODE", "simulated"),
			BaseURL:    getEnv("PAYMENT_GATEWAY_URL", ""),
			TeamSlug:   getEnv("PAYMENT_TEAM_SLUG", ""),
			Password:   getEnv("PAYMENT_PASSWORD", ""),
			Timeout:    time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 15)) * time.Second,
			MaxRetries: getEnvInt("PAYMENT_MAX_RETRIES", 2),
		},

		Notify: notify.Config{
			Driver:  getEnv("NOTIFY_DRIVER", "log"),
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "booking-notifications"),
		},

		Jobs: JobsConfig{
			ExpirationTTL: getEnvDuration("EXPIRATION_TTL", 30*time.Minute),
			Interval:      getEnvDuration("JOB_INTERVAL", time.Minute),
		},
	}
}

// Validate отклоняет несовместимые комбинации настроек
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", c.StorageBackend)
	}

	switch c.CatalogBackend {
	case "static", "elasticsearch":
	default:
		return fmt.Errorf("CATALOG_BACKEND must be static or elasticsearch, got %q", c.CatalogBackend)
	}

	switch c.Payment.Mode {
	case "simulated":
	case "http":
		if c.Payment.BaseURL == "" {
			return fmt.Errorf("PAYMENT_GATEWAY_URL is required when PAYMENT_MODE=http")
		}
		if c.Payment.TeamSlug == "" {
			return fmt.Errorf("PAYMENT_TEAM_SLUG is required when PAYMENT_MODE=http")
		}
	default:
		return fmt.Errorf("PAYMENT_MODE must be simulated or http, got %q", c.Payment.Mode)
	}
	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT_SEC must be positive")
	}
	if c.Payment.MaxRetries < 0 {
		return fmt.Errorf("PAYMENT_MAX_RETRIES must not be negative")
	}

	switch c.Notify.Driver {
	case "log":
	case "kafka":
		if len(c.Notify.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when NOTIFY_DRIVER=kafka")
		}
	default:
		return fmt.Errorf("NOTIFY_DRIVER must be log or kafka, got %q", c.Notify.Driver)
	}

	if c.Jobs.ExpirationTTL <= 0 || c.Jobs.Interval <= 0 {
		return fmt.Errorf("EXPIRATION_TTL and JOB_INTERVAL must be positive")
	}
	if c.DefaultUserID == "" {
		return fmt.Errorf("DEFAULT_USER_ID must not be empty")
	}
	return nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration принимает как "90s", так и число секунд
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(value); err == nil {
		return time.Duration(sec) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
