package domain

// PaymentProvider — закрытый набор платёжных провайдеров.
type PaymentProvider string

const (
	// PaymentProviderStripe — карточные платежи с редиректом через payment intent.
	PaymentProviderStripe PaymentProvider = "stripe"
	// PaymentProviderVipps — мобильный кошелёк с возвратом по reference.
	PaymentProviderVipps PaymentProvider = "vipps"
)

// Valid проверяет, что провайдер поддерживается.
func (p PaymentProvider) Valid() bool {
	switch p {
	case PaymentProviderStripe, PaymentProviderVipps:
		return true
	default:
		return false
	}
}

// PaymentStatus — статус платежа, сообщённый провайдером.
type PaymentStatus string

const (
	PaymentStatusComplete  PaymentStatus = "COMPLETE"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusPending   PaymentStatus = "PENDING"
)

// PaymentVerification — результат проверки одного возврата от провайдера.
// Создаётся один раз и больше не изменяется.
type PaymentVerification struct {
	Verified      bool            `json:"verified"`
	Provider      PaymentProvider `json:"provider"`
	OrderID       string          `json:"order_id"`
	PaymentID     string          `json:"payment_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	AmountMinor   int64           `json:"amount_minor"`
	Currency      string          `json:"currency,omitempty"`
	Status        PaymentStatus   `json:"status"`
	Message       string          `json:"message,omitempty"`
}

// Succeeded сообщает, что платёж подтверждён и завершён.
func (v PaymentVerification) Succeeded() bool {
	return v.Verified && v.Status == PaymentStatusComplete
}

// Validate проверяет поля, нужные для сохранения заказа.
func (v PaymentVerification) Validate() []error {
	var errs []error
	if v.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if v.AmountMinor < 0 {
		errs = append(errs, ErrPaymentAmountNegative)
	}
	return errs
}

// PaymentState — состояние попытки оплаты.
type PaymentState string

const (
	// PaymentStateVerifying — промежуточное состояние на время проверки.
	PaymentStateVerifying PaymentState = "VERIFYING"
	PaymentStateSuccess   PaymentState = "SUCCESS"
	PaymentStateFailed    PaymentState = "FAILED"
	PaymentStateCancelled PaymentState = "CANCELLED"
)

// Terminal сообщает, что попытка оплаты завершена.
func (s PaymentState) Terminal() bool {
	switch s {
	case PaymentStateSuccess, PaymentStateFailed, PaymentStateCancelled:
		return true
	default:
		return false
	}
}
