package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saveup/marketplace/internal/messaging/kafka"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	// StorageDriverMemory — in-memory хранилище для разработки и тестов.
	StorageDriverMemory StorageDriver = "memory"
	// StorageDriverPostgres — боевое хранилище в PostgreSQL.
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers   string
	OutboxTopic    string
	OutboxDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	OutboxMaxPending   int

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	RefundGatewayURL     string
	RefundGatewayAPIKey  string
	RefundGatewayTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		OutboxTopic:                 kafka.TopicOrderEvents,
		OutboxDLQTopic:              kafka.TopicDeadLetterQueue,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            100 * time.Millisecond,
		OutboxMaxPending:            1000,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		RefundGatewayTimeout:        10 * time.Second,
	}
}

// LoadConfigFromEnv читает конфигурацию из переменных окружения SAVEUP_*,
// начиная с дефолтов DefaultConfig. Непустой SAVEUP_POSTGRES_DSN переключает
// хранилище на postgres, если драйвер не задан явно.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = getEnv("SAVEUP_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = getEnv("SAVEUP_METRICS_ADDR", cfg.MetricsAddr)

	cfg.PostgresDSN = getEnv("SAVEUP_POSTGRES_DSN", cfg.PostgresDSN)
	if driver := getEnv("SAVEUP_STORAGE_DRIVER", ""); driver != "" {
		cfg.StorageDriver = StorageDriver(strings.ToLower(driver))
	} else if cfg.PostgresDSN != "" {
		cfg.StorageDriver = StorageDriverPostgres
	}
	cfg.PostgresAutoMigrate = getEnvAsBool("SAVEUP_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)

	cfg.KafkaBrokers = getEnv("SAVEUP_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.OutboxTopic = getEnv("SAVEUP_OUTBOX_TOPIC", cfg.OutboxTopic)
	cfg.OutboxDLQTopic = getEnv("SAVEUP_OUTBOX_DLQ_TOPIC", cfg.OutboxDLQTopic)

	cfg.OutboxPollInterval = getEnvAsDuration("SAVEUP_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = getEnvAsInt("SAVEUP_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = getEnvAsInt("SAVEUP_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = getEnvAsDuration("SAVEUP_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)
	cfg.OutboxMaxPending = getEnvAsInt("SAVEUP_OUTBOX_MAX_PENDING", cfg.OutboxMaxPending)

	cfg.IdempotencyCleanupInterval = getEnvAsDuration("SAVEUP_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)
	cfg.IdempotencyCleanupBatchSize = getEnvAsInt("SAVEUP_IDEMPOTENCY_CLEANUP_BATCH_SIZE", cfg.IdempotencyCleanupBatchSize)

	cfg.RefundGatewayURL = getEnv("SAVEUP_REFUND_GATEWAY_URL", cfg.RefundGatewayURL)
	cfg.RefundGatewayAPIKey = getEnv("SAVEUP_REFUND_GATEWAY_API_KEY", cfg.RefundGatewayAPIKey)
	cfg.RefundGatewayTimeout = getEnvAsDuration("SAVEUP_REFUND_GATEWAY_TIMEOUT", cfg.RefundGatewayTimeout)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}
