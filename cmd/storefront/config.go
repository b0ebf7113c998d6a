package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

const (
	envHTTPAddr                   = "STOREFRONT_HTTP_ADDR"
	envGRPCAddr                   = "STOREFRONT_GRPC_ADDR"
	envMetricsAddr                = "STOREFRONT_METRICS_ADDR"
	envStorageDriver              = "STOREFRONT_STORAGE_DRIVER"
	envPostgresDSN                = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate        = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envSessionStore               = "STOREFRONT_SESSION_STORE"
	envRedisAddr                  = "STOREFRONT_REDIS_ADDR"
	envSessionTTL                 = "STOREFRONT_SESSION_TTL"
	envCommerceURL                = "STOREFRONT_COMMERCE_URL"
	envCommerceAPIKey             = "STOREFRONT_COMMERCE_API_KEY"
	envRegionID                   = "STOREFRONT_REGION_ID"
	envCommerceTimeout            = "STOREFRONT_COMMERCE_TIMEOUT"
	envPaymentBackendURL          = "STOREFRONT_PAYMENT_BACKEND_URL"
	envAllowMockIntegrations      = "STOREFRONT_ALLOW_MOCK_INTEGRATIONS"
	envFirebaseProjectID          = "STOREFRONT_FIREBASE_PROJECT_ID"
	envTaxRate                    = "STOREFRONT_TAX_RATE"
	envFreeShippingThresholdMinor = "STOREFRONT_FREE_SHIPPING_THRESHOLD_MINOR"
	envShippingFeeMinor           = "STOREFRONT_SHIPPING_FEE_MINOR"
	envCacheMaxEntries            = "STOREFRONT_CACHE_MAX_ENTRIES"
	envCacheTTL                   = "STOREFRONT_CACHE_TTL"
	envKafkaBrokers               = "KAFKA_BROKERS"
	envOutboxPollInterval         = "STOREFRONT_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize            = "STOREFRONT_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts          = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay           = "STOREFRONT_OUTBOX_RETRY_DELAY"
	envOutboxRetention            = "STOREFRONT_OUTBOX_RETENTION"
	envOutboxPruneInterval        = "STOREFRONT_OUTBOX_PRUNE_INTERVAL"
)

type envLookup func(key string) (string, bool)

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не применяются и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	setString := func(key string, target *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
	setBool := func(key string, target *bool) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := parseBool(raw)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*target = v
	}
	setInt := func(key string, target *int, validate func(int) bool, msg string) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := parseInt(raw, validate, msg)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*target = v
	}
	setMinor := func(key string, target *int64) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := parseInt(raw, func(v int) bool { return v >= 0 }, "must be >= 0")
		if err != nil {
			warn(key, raw, err)
			return
		}
		*target = int64(v)
	}
	setDuration := func(key string, target *time.Duration, validate func(time.Duration) bool, msg string) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := parseDuration(raw, validate, msg)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*target = v
	}
	positive := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }

	setString(envHTTPAddr, &cfg.HTTPAddr)
	setString(envGRPCAddr, &cfg.GRPCAddr)
	setString(envMetricsAddr, &cfg.MetricsAddr)

	setString(envStorageDriver, &cfg.StorageDriver)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	setString(envPostgresDSN, &cfg.PostgresDSN)
	setBool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	setString(envSessionStore, &cfg.SessionStore)
	cfg.SessionStore = strings.ToLower(cfg.SessionStore)
	setString(envRedisAddr, &cfg.RedisAddr)
	setDuration(envSessionTTL, &cfg.SessionTTL, positiveDuration, "must be > 0")

	setString(envCommerceURL, &cfg.CommerceURL)
	setString(envCommerceAPIKey, &cfg.CommerceAPIKey)
	setString(envRegionID, &cfg.RegionID)
	setDuration(envCommerceTimeout, &cfg.CommerceTimeout, positiveDuration, "must be > 0")

	setString(envPaymentBackendURL, &cfg.PaymentBackendURL)
	setBool(envAllowMockIntegrations, &cfg.AllowMockIntegrations)
	setString(envFirebaseProjectID, &cfg.FirebaseProjectID)

	if raw, ok := lookup(envTaxRate); ok && strings.TrimSpace(raw) != "" {
		if rate, err := parseTaxRate(raw); err != nil {
			warn(envTaxRate, raw, err)
		} else {
			cfg.TaxRate = rate
		}
	}
	setMinor(envFreeShippingThresholdMinor, &cfg.FreeShippingThresholdMinor)
	setMinor(envShippingFeeMinor, &cfg.ShippingFeeMinor)

	setInt(envCacheMaxEntries, &cfg.CacheMaxEntries, positive, "must be > 0")
	setDuration(envCacheTTL, &cfg.CacheTTL, positiveDuration, "must be > 0")

	setString(envKafkaBrokers, &cfg.KafkaBrokers)
	setDuration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	setInt(envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	setInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	setDuration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, func(v time.Duration) bool { return v >= 0 }, "must be >= 0")
	setDuration(envOutboxRetention, &cfg.OutboxRetention, positiveDuration, "must be > 0")
	setDuration(envOutboxPruneInterval, &cfg.OutboxPruneInterval, positiveDuration, "must be > 0")

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, validate func(int) bool, msg string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(v) {
		return 0, fmt.Errorf("%s", msg)
	}
	return v, nil
}

func parseDuration(raw string, validate func(time.Duration) bool, msg string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(v) {
		return 0, fmt.Errorf("%s", msg)
	}
	return v, nil
}

// parseTaxRate принимает долю (0.25) и возвращает её нормализованной строкой.
func parseTaxRate(raw string) (string, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return "", fmt.Errorf("must be in [0, 1)")
	}
	return rate.String(), nil
}
