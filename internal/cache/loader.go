package cache

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Producer загружает значение при промахе кэша.
type Producer[V any] func(ctx context.Context) (V, error)

// WithCache возвращает значение из кэша или вызывает producer и кэширует результат.
// Два параллельных вызова по одному холодному ключу могут оба вызвать producer;
// побеждает последний Set. Для данных каталога повторная загрузка безопасна.
func WithCache[V any](ctx context.Context, c *Cache[V], key string, producer Producer[V], ttl time.Duration) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := producer(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.SetWithTTL(key, value, ttl)
	return value, nil
}

// Preload прогревает ключ в фоне. Ничего не возвращает; ошибки только логируются.
// Если ключ уже тёплый, ничего не делает. Отмена ctx вызывающего не прерывает загрузку.
func Preload[V any](ctx context.Context, c *Cache[V], key string, producer Producer[V], ttl time.Duration) {
	if c.Has(key) {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		value, err := producer(detached)
		if err != nil {
			c.logger.WithError(err).WithFields(log.Fields{
				"key": key,
			}).Warn("cache preload failed")
			return
		}
		c.SetWithTTL(key, value, ttl)
	}()
}
