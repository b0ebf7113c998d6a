package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type wishlistRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]map[string]domain.WishlistItem
	now   func() time.Time
}

// NewWishlistRepository возвращает in-memory репозиторий избранного.
func NewWishlistRepository() domain.WishlistRepository {
	return &wishlistRepositoryInMemory{
		items: make(map[string]map[string]domain.WishlistItem),
		now:   time.Now,
	}
}

// Add добавляет товар; повторное добавление не меняет дату.
func (r *wishlistRepositoryInMemory) Add(_ context.Context, customerID, productID string) error {
	if customerID == "" {
		return domain.ErrCustomerRequired
	}
	if productID == "" {
		return domain.ErrProductIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byProduct, ok := r.items[customerID]
	if !ok {
		byProduct = make(map[string]domain.WishlistItem)
		r.items[customerID] = byProduct
	}
	if _, exists := byProduct[productID]; exists {
		return nil
	}
	byProduct[productID] = domain.WishlistItem{
		CustomerID: customerID,
		ProductID:  productID,
		CreatedAt:  r.now().UTC(),
	}
	return nil
}

func (r *wishlistRepositoryInMemory) Remove(_ context.Context, customerID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items[customerID], productID)
	return nil
}

// List возвращает избранное, старые записи первыми.
func (r *wishlistRepositoryInMemory) List(_ context.Context, customerID string) ([]domain.WishlistItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byProduct := r.items[customerID]
	result := make([]domain.WishlistItem, 0, len(byProduct))
	for _, item := range byProduct {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ProductID < result[j].ProductID
	})
	return result, nil
}

var _ domain.WishlistRepository = (*wishlistRepositoryInMemory)(nil)
