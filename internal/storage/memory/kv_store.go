package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// kvStoreInMemory — in-memory хранилище сессий для локальной разработки и тестов.
type kvStoreInMemory struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewKVStore возвращает in-memory реализацию KeyValueStore.
func NewKVStore() *kvStoreInMemory {
	return &kvStoreInMemory{items: make(map[string]string)}
}

// Get возвращает значение или ErrKeyNotFound.
func (s *kvStoreInMemory) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

// Set сохраняет значение.
func (s *kvStoreInMemory) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = value
	return nil
}

// Delete удаляет ключи; отсутствующие игнорируются.
func (s *kvStoreInMemory) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}

// Len возвращает число ключей (используется в тестах).
func (s *kvStoreInMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ domain.KeyValueStore = (*kvStoreInMemory)(nil)
