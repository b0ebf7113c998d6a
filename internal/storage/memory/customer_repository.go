package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type customerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.CustomerProfile
}

// NewCustomerRepository возвращает in-memory репозиторий профилей.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{items: make(map[string]domain.CustomerProfile)}
}

func (r *customerRepositoryInMemory) Get(_ context.Context, id string) (domain.CustomerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.items[id]
	if !ok {
		return domain.CustomerProfile{}, domain.ErrCustomerNotFound
	}
	return profile, nil
}

// Upsert создаёт профиль или обновляет email и имя существующего, сохраняя CreatedAt.
func (r *customerRepositoryInMemory) Upsert(_ context.Context, profile domain.CustomerProfile) (domain.CustomerProfile, error) {
	if profile.ID == "" {
		return domain.CustomerProfile{}, domain.ErrCustomerRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if current, ok := r.items[profile.ID]; ok {
		profile.CreatedAt = current.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	r.items[profile.ID] = profile
	return profile, nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
