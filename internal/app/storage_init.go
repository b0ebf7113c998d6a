package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// runtimeDependencies — хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	orders     domain.OrderRepository
	wishlist   domain.WishlistRepository
	customers  domain.CustomerRepository
	outboxRepo domain.OutboxRepository
	sessions   domain.KeyValueStore

	storageChecker healthcheck.Checker
	sessionChecker healthcheck.Checker

	closers []func() error
}

// closeFn закрывает соединения в обратном порядке открытия.
func (d *runtimeDependencies) closeFn() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{}

	if err := initStorage(ctx, cfg, deps, logger); err != nil {
		_ = deps.closeFn()
		return nil, err
	}
	if err := initSessions(ctx, cfg, deps, logger); err != nil {
		_ = deps.closeFn()
		return nil, err
	}
	return deps, nil
}

func initStorage(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case StorageDriverMemory:
		deps.orders = memory.NewOrderRepository()
		deps.wishlist = memory.NewWishlistRepository()
		deps.customers = memory.NewCustomerRepository()
		deps.outboxRepo = memory.NewOutboxRepository()
		logger.WithField("storage_driver", StorageDriverMemory).Info("storage initialized")
		return nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return errors.New("postgres dsn is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return fmt.Errorf("open postgres storage: %w", err)
		}
		deps.closers = append(deps.closers, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				return fmt.Errorf("apply postgres migrations: %w", err)
			}
		}

		deps.orders = postgres.NewOrderRepository(store)
		deps.wishlist = postgres.NewWishlistRepository(store)
		deps.customers = postgres.NewCustomerRepository(store)
		deps.outboxRepo = postgres.NewOutboxRepository(store)
		deps.storageChecker = healthcheck.NewPingChecker("postgres", 0, store.Ping)
		logger.WithFields(log.Fields{
			"storage_driver": StorageDriverPostgres,
			"auto_migrate":   cfg.PostgresAutoMigrate,
		}).Info("storage initialized")
		return nil

	default:
		return fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

func initSessions(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	switch strings.ToLower(strings.TrimSpace(cfg.SessionStore)) {
	case SessionStoreMemory, "":
		deps.sessions = memory.NewKVStore()
		logger.WithField("session_store", SessionStoreMemory).Info("session store initialized")
		return nil

	case SessionStoreRedis:
		client := redisstore.NewClient(strings.TrimSpace(cfg.RedisAddr))
		kv := redisstore.NewKVStore(client, redisstore.Options{TTL: cfg.SessionTTL})
		deps.closers = append(deps.closers, kv.Close)
		if err := kv.Ping(ctx); err != nil {
			return fmt.Errorf("connect session redis: %w", err)
		}
		deps.sessions = kv
		deps.sessionChecker = healthcheck.NewPingChecker("redis", 0, kv.Ping)
		logger.WithFields(log.Fields{
			"session_store": SessionStoreRedis,
			"redis_addr":    cfg.RedisAddr,
		}).Info("session store initialized")
		return nil

	default:
		return fmt.Errorf("unsupported session store: %q", cfg.SessionStore)
	}
}
