package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository создаёт PostgreSQL-реализацию WishlistRepository.
func NewWishlistRepository(store *Store) domain.WishlistRepository {
	return &wishlistRepository{db: store.DB()}
}

func (r *wishlistRepository) Add(ctx context.Context, customerID, productID string) error {
	if customerID == "" {
		return domain.ErrCustomerRequired
	}
	if productID == "" {
		return domain.ErrProductIDRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (customer_id, product_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (customer_id, product_id) DO NOTHING
	`, customerID, productID); err != nil {
		return fmt.Errorf("insert wishlist item: %w", err)
	}
	return nil
}

func (r *wishlistRepository) Remove(ctx context.Context, customerID, productID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist_items WHERE customer_id = $1 AND product_id = $2
	`, customerID, productID); err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return nil
}

func (r *wishlistRepository) List(ctx context.Context, customerID string) ([]domain.WishlistItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, product_id, created_at
		FROM wishlist_items
		WHERE customer_id = $1
		ORDER BY created_at ASC, product_id ASC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	items := make([]domain.WishlistItem, 0)
	for rows.Next() {
		var item domain.WishlistItem
		if err := rows.Scan(&item.CustomerID, &item.ProductID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}
	return items, nil
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Get(ctx context.Context, id string) (domain.CustomerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var profile domain.CustomerProfile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&profile.ID, &profile.Email, &profile.FullName, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CustomerProfile{}, domain.ErrCustomerNotFound
		}
		return domain.CustomerProfile{}, fmt.Errorf("select customer: %w", err)
	}
	return normalizeProfile(profile), nil
}

func (r *customerRepository) Upsert(ctx context.Context, profile domain.CustomerProfile) (domain.CustomerProfile, error) {
	if profile.ID == "" {
		return domain.CustomerProfile{}, domain.ErrCustomerRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var stored domain.CustomerProfile
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (id, email, full_name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = EXCLUDED.full_name,
		    updated_at = NOW()
		RETURNING id, email, full_name, created_at, updated_at
	`, profile.ID, profile.Email, profile.FullName).Scan(
		&stored.ID, &stored.Email, &stored.FullName, &stored.CreatedAt, &stored.UpdatedAt,
	)
	if err != nil {
		return domain.CustomerProfile{}, fmt.Errorf("upsert customer: %w", err)
	}
	return normalizeProfile(stored), nil
}

func normalizeProfile(p domain.CustomerProfile) domain.CustomerProfile {
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p
}

var (
	_ domain.WishlistRepository = (*wishlistRepository)(nil)
	_ domain.CustomerRepository = (*customerRepository)(nil)
)
