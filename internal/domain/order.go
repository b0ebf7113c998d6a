package domain

import "time"

// OrderStatus описывает состояние сохранённого заказа.
type OrderStatus string

const (
	// OrderStatusPaid — оплата подтверждена, заказ зафиксирован.
	OrderStatusPaid OrderStatus = "paid"
)

// Order — запись о заказе в базе покупателей, ключ — идентификатор заказа из платежа.
type Order struct {
	ID            string
	CustomerID    string // Пустой для гостевого заказа.
	SessionID     string
	Provider      PaymentProvider
	PaymentID     string
	TransactionID string
	AmountMinor   int64
	Currency      string
	Status        OrderStatus
	Lines         Lines
	CreatedAt     time.Time
}

// NewPaidOrder собирает заказ из подтверждённой проверки платежа и содержимого корзины.
func NewPaidOrder(v PaymentVerification, customerID, sessionID string, lines Lines, now time.Time) Order {
	return Order{
		ID:            v.OrderID,
		CustomerID:    customerID,
		SessionID:     sessionID,
		Provider:      v.Provider,
		PaymentID:     v.PaymentID,
		TransactionID: v.TransactionID,
		AmountMinor:   v.AmountMinor,
		Currency:      v.Currency,
		Status:        OrderStatusPaid,
		Lines:         lines.Clone(),
		CreatedAt:     now.UTC(),
	}
}

// WishlistItem — товар в избранном покупателя.
type WishlistItem struct {
	CustomerID string    `json:"customer_id"`
	ProductID  string    `json:"product_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomerProfile — профиль покупателя в сервисе учётных записей.
type CustomerProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
