package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const orderColumns = `id, customer_id, session_id, provider, payment_id, transaction_id,
	amount_minor, currency, status, created_at`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// Create вставляет заказ и его позиции одной транзакцией.
// ON CONFLICT DO NOTHING делает повторную сверку того же платежа безопасной.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	if order.ID == "" {
		return domain.ErrOrderIDRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO NOTHING
		`,
			order.ID, order.CustomerID, order.SessionID, string(order.Provider),
			order.PaymentID, order.TransactionID, order.AmountMinor, order.Currency,
			string(order.Status), order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return domain.ErrOrderAlreadyExists
		}

		for i, line := range order.Lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_lines (
					order_id, position, product_id, variant_id, quantity,
					unit_price_minor, product_name, image_url, category
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			`,
				order.ID, i, line.ProductID, line.VariantID, line.Quantity,
				line.UnitPriceMinor, line.Product.Name, line.Product.ImageURL, line.Product.Category,
			); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("insert order line %s: %w", line.ProductID, domain.ErrDuplicateLine)
				}
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.store.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	if order.Lines, err = r.loadLines(ctx, order.ID); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{customerID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		if orders[i].Lines, err = r.loadLines(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order            domain.Order
		provider, status string
	)
	if err := row.Scan(
		&order.ID, &order.CustomerID, &order.SessionID, &provider,
		&order.PaymentID, &order.TransactionID, &order.AmountMinor, &order.Currency,
		&status, &order.CreatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Provider = domain.PaymentProvider(provider)
	order.Status = domain.OrderStatus(status)
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) (domain.Lines, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT product_id, variant_id, quantity, unit_price_minor, product_name, image_url, category
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make(domain.Lines, 0)
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ProductID, &line.VariantID, &line.Quantity, &line.UnitPriceMinor,
			&line.Product.Name, &line.Product.ImageURL, &line.Product.Category,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
