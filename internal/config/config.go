package config

import (
	"os"
	"strconv"
	"time"

	"kestrel/internal/cache"
	"kestrel/internal/database"
	"kestrel/internal/messaging"
	"kestrel/internal/search"
)

// Booking содержит политику бронирования. Передаётся явным параметром в
// сервисы, а не глобальным состоянием.
type Booking struct {
	// RTBMode: off, pay_later или confirm
	RTBMode string
	// HoldTimeout ограничивает жизнь pending_request до approve/decline
	HoldTimeout time.Duration
	// BlockCapacityForPending: учитывать ли pending-холды в capacity ledger
	BlockCapacityForPending bool
	// DefaultCurrency для новых experiences
	DefaultCurrency string
	// DefaultSlotCapacity используется, когда слот не задаёт свою вместимость
	DefaultSlotCapacity int
	// SweepInterval - период фонового сканирования истёкших холдов
	SweepInterval time.Duration
}

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Booking       Booking
	Database      database.Config
	NATS          messaging.Config
	Cache         cache.Config
	Elasticsearch search.Config
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8082"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Booking: Booking{
			RTBMode:                 getEnv("RTB_MODE", "off"),
			HoldTimeout:             time.Duration(getEnvInt("RTB_HOLD_TIMEOUT_MIN", 30)) * time.Minute,
			BlockCapacityForPending: getEnv("RTB_BLOCK_CAPACITY_FOR_PENDING", "true") == "true",
			DefaultCurrency:         getEnv("DEFAULT_CURRENCY", "EUR"),
			DefaultSlotCapacity:     getEnvInt("DEFAULT_SLOT_CAPACITY", 10),
			SweepInterval:           time.Duration(getEnvInt("HOLD_SWEEP_INTERVAL_SEC", 30)) * time.Second,
		},

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "kestrel"),
			Password:           getEnv("DB_PASSWORD", "kestrel123"),
			DBName:             getEnv("DB_NAME", "kestrel"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "kestrel"),
			ClientID:  getEnv("NATS_CLIENT_ID", "kestrel-api"),
		},

		Cache: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			SlotsTTL: time.Duration(getEnvInt("SLOTS_CACHE_TTL_SEC", 15)) * time.Second,
		},

		Elasticsearch: search.Config{
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_INDEX", "experiences"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},
	}
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
