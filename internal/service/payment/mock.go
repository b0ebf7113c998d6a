package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockVerifier — конфигурируемая заглушка Verifier для разработки и тестов.
// По умолчанию подтверждает любой возврат со статусом COMPLETE.
type MockVerifier struct {
	mu sync.Mutex

	Provider    domain.PaymentProvider
	Status      domain.PaymentStatus
	Verified    bool
	AmountMinor int64
	Currency    string
	Message     string
	Err         error

	Calls int
}

// NewMockVerifier возвращает mock с успешным сценарием по умолчанию.
func NewMockVerifier(provider domain.PaymentProvider) *MockVerifier {
	return &MockVerifier{
		Provider: provider,
		Status:   domain.PaymentStatusComplete,
		Verified: true,
		Currency: "NOK",
	}
}

// Verify возвращает заранее настроенный результат и считает вызовы.
// OrderID берётся из параметра order_id, payment id генерируется, если его нет в параметрах.
func (m *MockVerifier) Verify(_ context.Context, params Params) (domain.PaymentVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.Err != nil {
		return domain.PaymentVerification{}, m.Err
	}

	paymentID := params.Get("payment_id")
	if paymentID == "" {
		paymentID = "mock_" + uuid.NewString()
	}
	return domain.PaymentVerification{
		Verified:    m.Verified,
		Provider:    m.Provider,
		OrderID:     params.Get("order_id"),
		PaymentID:   paymentID,
		AmountMinor: m.AmountMinor,
		Currency:    m.Currency,
		Status:      m.Status,
		Message:     m.Message,
	}, nil
}

// CallCount возвращает число вызовов Verify.
func (m *MockVerifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

var _ Verifier = (*MockVerifier)(nil)
