package app

import "time"

// Драйверы хранилища заказов, избранного и outbox.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Хранилища локального состояния сессий.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	SessionStore string
	RedisAddr    string
	SessionTTL   time.Duration

	CommerceURL     string
	CommerceAPIKey  string
	RegionID        string
	CommerceTimeout time.Duration

	PaymentBackendURL     string
	AllowMockIntegrations bool
	FirebaseProjectID     string

	// TaxRate — доля НДС, включённого в цену, десятичной строкой ("0.25").
	TaxRate                    string
	FreeShippingThresholdMinor int64
	ShippingFeeMinor           int64

	CacheMaxEntries int
	CacheTTL        time.Duration

	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxRetention — сколько хранить опубликованные сообщения перед удалением.
	OutboxRetention     time.Duration
	OutboxPruneInterval time.Duration
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей,
// кроме commerce API.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		SessionStore: SessionStoreMemory,
		RedisAddr:    "localhost:6379",
		SessionTTL:   30 * 24 * time.Hour,

		CommerceURL:     "http://localhost:9000",
		CommerceTimeout: 10 * time.Second,

		TaxRate:                    "0.25",
		FreeShippingThresholdMinor: 100000,
		ShippingFeeMinor:           9900,

		CacheMaxEntries: 100,
		CacheTTL:        5 * time.Minute,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   100 * time.Millisecond,

		OutboxRetention:     72 * time.Hour,
		OutboxPruneInterval: 10 * time.Minute,
	}
}
