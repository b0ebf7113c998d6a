// Package redis хранит локальное состояние сессий витрины в Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultKeyPrefix = "storefront:session:"
	defaultTTL       = 30 * 24 * time.Hour
	pingTimeout      = 5 * time.Second
)

// Options задаёт параметры KVStore.
type Options struct {
	KeyPrefix string
	// TTL — время жизни ключей сессии; продлевается при каждой записи.
	TTL time.Duration
}

// KVStore — реализация domain.KeyValueStore поверх Redis.
type KVStore struct {
	client    goredis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewClient создаёт клиента Redis по адресу "host:port" или URL "redis://...".
func NewClient(addr string) *goredis.Client {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  180 * time.Second,
		}
	}
	return goredis.NewClient(opts)
}

// NewKVStore создаёт хранилище сессий.
func NewKVStore(client goredis.UniversalClient, opts Options) *KVStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	return &KVStore{client: client, keyPrefix: opts.KeyPrefix, ttl: opts.TTL}
}

// Get возвращает значение или ErrKeyNotFound.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Set сохраняет значение и продлевает TTL ключа.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete удаляет ключи одной командой.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.keyPrefix+key)
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis; используется health-проверкой.
func (s *KVStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.client.Ping(pingCtx).Err()
}

// Close закрывает клиента.
func (s *KVStore) Close() error {
	return s.client.Close()
}

var _ domain.KeyValueStore = (*KVStore)(nil)
