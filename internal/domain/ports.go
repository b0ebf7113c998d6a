package domain

import (
	"context"
	"time"
)

// KeyValueStore — локальное хранилище сессии (аналог localStorage браузера).
// Значения — строки; сериализация лежит на вызывающей стороне.
type KeyValueStore interface {
	// Get возвращает значение или ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// CommerceAPI описывает корзинную часть удалённого commerce API.
type CommerceAPI interface {
	CreateCart(ctx context.Context, req CreateCartRequest) (RemoteCart, error)
	GetCart(ctx context.Context, cartID CartID) (RemoteCart, error)
	AddLineItem(ctx context.Context, cartID CartID, variantID string, qty int) (RemoteCart, error)
	UpdateLineItem(ctx context.Context, cartID CartID, lineID string, qty int) (RemoteCart, error)
	DeleteLineItem(ctx context.Context, cartID CartID, lineID string) (RemoteCart, error)
	CompleteCart(ctx context.Context, cartID CartID) (CompletedCart, error)
}

// CatalogAPI описывает чтение каталога товаров.
type CatalogAPI interface {
	ListProducts(ctx context.Context, query ProductQuery) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}

// OrderRepository хранит заказы покупателей.
type OrderRepository interface {
	// Create сохраняет заказ. Повторное сохранение того же ID возвращает ErrOrderAlreadyExists
	// и не создаёт дубликат.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// ListByCustomer возвращает заказы покупателя, новые первыми; limit <= 0 — без ограничения.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
}

// WishlistRepository хранит избранное покупателя.
type WishlistRepository interface {
	// Add идемпотентно добавляет товар.
	Add(ctx context.Context, customerID, productID string) error
	Remove(ctx context.Context, customerID, productID string) error
	List(ctx context.Context, customerID string) ([]WishlistItem, error)
}

// CustomerRepository хранит профили покупателей.
type CustomerRepository interface {
	Get(ctx context.Context, id string) (CustomerProfile, error)
	Upsert(ctx context.Context, profile CustomerProfile) (CustomerProfile, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPruner удаляет опубликованные сообщения, обновлённые не позже before, не более limit за вызов.
type OutboxPruner interface {
	DeleteSentBefore(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
