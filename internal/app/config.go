package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

// Поддерживаемые хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	SeedDemoData        bool

	// EnforceEligibility включает проверку правил покупки перед оплатой.
	EnforceEligibility bool

	KafkaBrokers     []string
	KafkaTopic       string
	KafkaDLQTopic    string
	OutboxPoll       time.Duration
	OutboxBatchSize  int
	OutboxAttempts   int
	OutboxRetryDelay time.Duration

	// OutboxRetention — сколько хранить доставленные события перед очисткой.
	OutboxRetention       time.Duration
	OutboxCleanupInterval time.Duration

	LogLevel log.Level
}

// DefaultConfig возвращает настройки для локального запуска на in-memory хранилище.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:              ":8080",
		MetricsAddr:           ":9090",
		StorageDriver:         StorageDriverMemory,
		PostgresAutoMigrate:   true,
		SeedDemoData:          true,
		EnforceEligibility:    true,
		KafkaTopic:            kafka.TopicOrderEvents,
		KafkaDLQTopic:         kafka.TopicDeadLetter,
		OutboxPoll:            time.Second,
		OutboxBatchSize:       100,
		OutboxAttempts:        3,
		OutboxRetryDelay:      200 * time.Millisecond,
		OutboxRetention:       24 * time.Hour,
		OutboxCleanupInterval: 10 * time.Minute,
		LogLevel:              log.InfoLevel,
	}
}

// LoadConfigFromEnv читает переменные окружения поверх DefaultConfig.
// Ошибки разбора собираются вместе, чтобы показать все проблемы за один запуск.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	var errs []error

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	readBool := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = parsed
		}
	}
	readInt := func(key string, dst *int) {
		if v, ok := get(key); ok {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = parsed
		}
	}
	readDuration := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = parsed
		}
	}

	if v, ok := get("CHECKOUT_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := get("CHECKOUT_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("CHECKOUT_STORAGE_DRIVER"); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := get("CHECKOUT_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	readBool("CHECKOUT_POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)
	readBool("CHECKOUT_SEED_DEMO_DATA", &cfg.SeedDemoData)
	readBool("CHECKOUT_ENFORCE_ELIGIBILITY", &cfg.EnforceEligibility)

	if v, ok := get("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitBrokers(v)
	}
	if v, ok := get("CHECKOUT_KAFKA_TOPIC"); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := get("CHECKOUT_KAFKA_DLQ_TOPIC"); ok {
		cfg.KafkaDLQTopic = v
	}
	readDuration("CHECKOUT_OUTBOX_POLL_INTERVAL", &cfg.OutboxPoll)
	readInt("CHECKOUT_OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	readInt("CHECKOUT_OUTBOX_MAX_ATTEMPTS", &cfg.OutboxAttempts)
	readDuration("CHECKOUT_OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)
	readDuration("CHECKOUT_OUTBOX_RETENTION", &cfg.OutboxRetention)
	readDuration("CHECKOUT_OUTBOX_CLEANUP_INTERVAL", &cfg.OutboxCleanupInterval)

	if v, ok := get("CHECKOUT_LOG_LEVEL"); ok {
		level, err := log.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CHECKOUT_LOG_LEVEL: %w", err))
		} else {
			cfg.LogLevel = level
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.MetricsAddr == "" {
		errs = append(errs, errors.New("metrics address is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("CHECKOUT_POSTGRES_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.OutboxPoll <= 0 {
		errs = append(errs, errors.New("outbox poll interval must be positive"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("outbox batch size must be positive"))
	}
	if c.OutboxAttempts <= 0 {
		errs = append(errs, errors.New("outbox max attempts must be positive"))
	}
	if c.OutboxRetryDelay < 0 {
		errs = append(errs, errors.New("outbox retry delay must not be negative"))
	}
	if c.OutboxRetention <= 0 || c.OutboxCleanupInterval <= 0 {
		errs = append(errs, errors.New("outbox retention and cleanup interval must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}

	return errors.Join(errs...)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
