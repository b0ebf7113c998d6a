// Package payment сверяет результат внешней оплаты и превращает его в заказ ровно один раз.
//
// Попытка оплаты проходит VERIFYING и заканчивается в SUCCESS, FAILED или CANCELLED.
// Автоматических повторов проверки нет: после FAILED покупатель начинает checkout заново.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventOrderCompleted — тип outbox-события о сохранённом оплаченном заказе.
const EventOrderCompleted = "order.completed"

// Verifier проверяет возврат от одного провайдера.
type Verifier interface {
	Verify(ctx context.Context, params Params) (domain.PaymentVerification, error)
}

// VerifierFunc адаптирует функцию к Verifier.
type VerifierFunc func(ctx context.Context, params Params) (domain.PaymentVerification, error)

// Verify вызывает f.
func (f VerifierFunc) Verify(ctx context.Context, params Params) (domain.PaymentVerification, error) {
	return f(ctx, params)
}

// NextStep подсказывает UI, что делать после завершения попытки.
type NextStep string

const (
	NextStepViewOrder     NextStep = "view_order"
	NextStepRetryCheckout NextStep = "retry_checkout"
	NextStepReturnToCart  NextStep = "return_to_cart"
)

// Outcome — терминальный результат попытки оплаты.
type Outcome struct {
	State        domain.PaymentState
	Provider     domain.PaymentProvider
	Verification *domain.PaymentVerification
	OrderID      string
	// Duplicate — заказ уже был сохранён предыдущим вызовом (повторная навигация).
	Duplicate bool
	Message   string
	NextStep  NextStep
	Err       error
}

// Recorder собирает метрики сверки.
type Recorder interface {
	RecordPaymentOutcome(provider, state string)
}

// Option настраивает Reconciler.
type Option func(*Reconciler)

// WithOutbox включает публикацию order.completed через transactional outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(r *Reconciler) {
		r.outbox = outbox
	}
}

// WithRecorder подключает метрики.
func WithRecorder(recorder Recorder) Option {
	return func(r *Reconciler) {
		r.recorder = recorder
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// Reconciler проводит возврат от провайдера через проверку к сохранённому заказу.
type Reconciler struct {
	verifiers map[domain.PaymentProvider]Verifier
	orders    domain.OrderRepository
	outbox    domain.OutboxRepository
	recorder  Recorder
	logger    *log.Entry
	now       func() time.Time
}

// NewReconciler создаёт сверку с таблицей verifier'ов по провайдерам.
func NewReconciler(verifiers map[domain.PaymentProvider]Verifier, orders domain.OrderRepository, options ...Option) *Reconciler {
	table := make(map[domain.PaymentProvider]Verifier, len(verifiers))
	for provider, verifier := range verifiers {
		table[provider] = verifier
	}
	r := &Reconciler{
		verifiers: table,
		orders:    orders,
		now:       time.Now,
	}
	for _, option := range options {
		option(r)
	}
	if r.logger == nil {
		r.logger = log.WithField("component", "payment-reconciler")
	}
	return r
}

// HandleReturn обрабатывает возврат от провайдера.
//
// При подтверждённом COMPLETE заказ сохраняется по OrderID; повторное сохранение
// того же заказа считается успехом. Корзина сессии очищается только после сохранения.
// Любой другой исход даёт FAILED, корзина остаётся нетронутой.
func (r *Reconciler) HandleReturn(ctx context.Context, store *cartstore.Store, identity domain.Identity, params Params) Outcome {
	logger := r.logger.WithField("session_id", store.SessionID())

	provider, err := ResolveProvider(params)
	if err != nil {
		logger.WithError(err).Warn("payment return without recognizable provider")
		return r.finish(Outcome{
			State:    domain.PaymentStateFailed,
			Message:  "We could not identify your payment. Please return to your cart and try again.",
			NextStep: NextStepReturnToCart,
			Err:      err,
		})
	}
	logger = logger.WithField("provider", provider)

	verifier, ok := r.verifiers[provider]
	if !ok {
		logger.Error("no verifier configured for provider")
		return r.finish(Outcome{
			State:    domain.PaymentStateFailed,
			Provider: provider,
			Message:  "This payment method is not available right now.",
			NextStep: NextStepReturnToCart,
			Err:      fmt.Errorf("%w: %s has no verifier", domain.ErrUnknownProvider, provider),
		})
	}

	logger.WithField("state", domain.PaymentStateVerifying).Debug("verifying payment")
	verification, err := verifier.Verify(ctx, params)
	if err != nil {
		logger.WithError(err).Warn("payment verification call failed")
		return r.finish(Outcome{
			State:    domain.PaymentStateFailed,
			Provider: provider,
			Message:  "We could not confirm your payment. Your cart is unchanged, please try again.",
			NextStep: NextStepRetryCheckout,
			Err:      fmt.Errorf("verify %s payment: %w", provider, err),
		})
	}

	outcome := Outcome{Provider: provider, Verification: &verification, OrderID: verification.OrderID}
	if !verification.Succeeded() {
		logger.WithFields(log.Fields{
			"order_id": verification.OrderID,
			"verified": verification.Verified,
			"status":   verification.Status,
		}).Info("payment not completed")
		outcome.State = domain.PaymentStateFailed
		outcome.Message = failureMessage(verification)
		outcome.NextStep = NextStepRetryCheckout
		return r.finish(outcome)
	}
	if errs := verification.Validate(); len(errs) > 0 {
		err := errors.Join(errs...)
		logger.WithError(err).Error("verified payment is missing order data")
		outcome.State = domain.PaymentStateFailed
		outcome.Message = "Your payment was received but the order could not be recorded. Please contact support."
		outcome.NextStep = NextStepReturnToCart
		outcome.Err = err
		return r.finish(outcome)
	}

	order := domain.NewPaidOrder(verification, identity.CustomerID, store.SessionID(), store.GetLocalCart(ctx), r.now())
	err = r.orders.Create(ctx, order)
	switch {
	case err == nil:
		r.emitOrderCompleted(logger, order)
	case errors.Is(err, domain.ErrOrderAlreadyExists):
		outcome.Duplicate = true
		logger.WithField("order_id", order.ID).Info("order already persisted, treating return as success")
	default:
		logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist paid order")
		outcome.State = domain.PaymentStateFailed
		outcome.Message = "Your payment was received but the order could not be recorded. Please contact support."
		outcome.NextStep = NextStepReturnToCart
		outcome.Err = fmt.Errorf("persist order %s: %w", order.ID, err)
		return r.finish(outcome)
	}

	store.ClearCart(ctx)
	logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"payment_id": order.PaymentID,
		"duplicate":  outcome.Duplicate,
	}).Info("payment reconciled")

	outcome.State = domain.PaymentStateSuccess
	outcome.Message = "Thank you! Your order has been placed."
	outcome.NextStep = NextStepViewOrder
	return r.finish(outcome)
}

// HandleCancel обрабатывает явную отмену у провайдера: проверка не вызывается, корзина сохраняется.
func (r *Reconciler) HandleCancel(_ context.Context, store *cartstore.Store, params Params) Outcome {
	provider, _ := ResolveProvider(params)
	r.logger.WithFields(log.Fields{
		"session_id": store.SessionID(),
		"provider":   provider,
	}).Info("payment cancelled by customer")

	return r.finish(Outcome{
		State:    domain.PaymentStateCancelled,
		Provider: provider,
		OrderID:  params.Get("order_id"),
		Message:  "Payment was cancelled. Your cart has been kept.",
		NextStep: NextStepReturnToCart,
	})
}

func (r *Reconciler) finish(outcome Outcome) Outcome {
	if r.recorder != nil {
		provider := string(outcome.Provider)
		if provider == "" {
			provider = "unknown"
		}
		r.recorder.RecordPaymentOutcome(provider, string(outcome.State))
	}
	return outcome
}

func (r *Reconciler) emitOrderCompleted(logger *log.Entry, order domain.Order) {
	if r.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":     order.ID,
		"customer_id":  order.CustomerID,
		"provider":     order.Provider,
		"payment_id":   order.PaymentID,
		"amount_minor": order.AmountMinor,
		"currency":     order.Currency,
		"items":        order.Lines.ItemCount(),
		"created_at":   order.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		logger.WithError(err).WithField("order_id", order.ID).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     EventOrderCompleted,
		Payload:       payload,
	}
	if _, err := r.outbox.Enqueue(msg); err != nil {
		logger.WithError(err).WithField("order_id", order.ID).Error("enqueue event failed")
	}
}

func failureMessage(v domain.PaymentVerification) string {
	if v.Message != "" {
		return v.Message
	}
	switch v.Status {
	case domain.PaymentStatusCancelled:
		return "The payment was cancelled by the provider. Your cart is unchanged."
	case domain.PaymentStatusPending:
		return "Your payment is still being processed. Please try again in a moment."
	default:
		return "Your payment could not be completed. Your cart is unchanged, please try again."
	}
}
