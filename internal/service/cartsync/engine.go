// Package cartsync — движок синхронизации корзины между локальным хранилищем сессии
// и удалённой корзиной commerce API.
//
// Гость работает только с локальным хранилищем. Для авторизованного покупателя
// авторитетна удалённая корзина, а локальное зеркало обновляется после каждой операции.
// Ошибки удалённой стороны не возвращаются вызывающему: операция деградирует до
// локального результата и возвращает предупреждение в Result.
package cartsync

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/storefront/internal/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/commerce"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Source показывает, откуда получен итоговый список позиций.
type Source string

const (
	// SourceLocal — гостевая корзина в локальном хранилище.
	SourceLocal Source = "local"
	// SourceRemote — авторитетная удалённая корзина.
	SourceRemote Source = "remote"
	// SourceLocalFallback — удалённая операция не удалась, изменение применено локально.
	SourceLocalFallback Source = "local_fallback"
)

// Result — итог операции с корзиной.
type Result struct {
	Lines  domain.Lines
	Source Source
	// Warning — текст мягкой ошибки для пользователя; пустой, если всё прошло успешно.
	Warning string
	// Err — исходная ошибка мягкого сбоя (для логов и метрик).
	Err error
	// Rejected — локальные позиции, которые не удалось перенести при слиянии корзин.
	Rejected domain.Lines
}

// Notification — уведомление пользователя о мягком сбое.
type Notification struct {
	SessionID string
	Operation string
	Message   string
	Err       error
}

// Notifier доставляет уведомления в UI.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Recorder собирает метрики движка.
type Recorder interface {
	RecordCartOperation(op string, source Source, result string)
	RecordStaleCartRecovery(op string)
	RecordRemoteFallback(op string)
	RecordLoginMerge(replayed, failed int)
}

// Dependencies — всё, что нужно движку для одной сессии.
type Dependencies struct {
	API          domain.CommerceAPI
	Store        *cartstore.Store
	StoreContext domain.StoreContext
	Pricing      domain.PricingPolicy
	Notifier     Notifier
	Recorder     Recorder
	Logger       *log.Entry
}

// Engine выполняет операции с корзиной одной сессии.
// Вызовы для одной сессии ожидаются последовательными; движок их не сериализует.
type Engine struct {
	store        *cartstore.Store
	remote       *RemoteCartClient
	storeContext domain.StoreContext
	pricing      domain.PricingPolicy
	notifier     Notifier
	recorder     Recorder
	logger       *log.Entry
	tracer       trace.Tracer
}

// NewEngine создаёт движок синхронизации.
func NewEngine(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-sync")
	}
	logger = logger.WithField("session_id", deps.Store.SessionID())

	return &Engine{
		store:        deps.Store,
		remote:       NewRemoteCartClient(deps.API, deps.Store, logger),
		storeContext: deps.StoreContext,
		pricing:      deps.Pricing,
		notifier:     deps.Notifier,
		recorder:     deps.Recorder,
		logger:       logger,
		tracer:       otel.Tracer("storefront/cartsync"),
	}
}

// Remote возвращает клиента удалённой корзины сессии.
func (e *Engine) Remote() *RemoteCartClient {
	return e.remote
}

// AddItem добавляет qty единиц товара.
func (e *Engine) AddItem(ctx context.Context, identity domain.Identity, product domain.Product, qty int) Result {
	ctx, span := e.startSpan(ctx, "add_item", identity, attribute.String("product.id", product.ID), attribute.Int("quantity", qty))
	defer span.End()

	if product.ID == "" {
		return e.rejected(ctx, "add_item", domain.ErrProductIDRequired)
	}
	if qty <= 0 {
		return e.rejected(ctx, "add_item", domain.ErrLineQtyInvalid)
	}

	line := product.Line(qty)
	local := func(lines domain.Lines) domain.Lines { return lines.Upsert(line) }
	if identity.IsGuest() {
		return e.applyLocal(ctx, "add_item", local)
	}
	return e.mutateRemote(ctx, "add_item", identity, func(ctx context.Context, cartID domain.CartID) (domain.Lines, error) {
		return e.remote.addProductLine(ctx, cartID, line, qty)
	}, local)
}

// UpdateQuantity задаёт количество товара; qty <= 0 эквивалентно RemoveItem.
func (e *Engine) UpdateQuantity(ctx context.Context, identity domain.Identity, productID string, qty int) Result {
	if qty <= 0 {
		return e.RemoveItem(ctx, identity, productID)
	}

	ctx, span := e.startSpan(ctx, "update_quantity", identity, attribute.String("product.id", productID), attribute.Int("quantity", qty))
	defer span.End()

	local := func(lines domain.Lines) domain.Lines { return lines.SetQuantity(productID, qty) }
	if identity.IsGuest() {
		return e.applyLocal(ctx, "update_quantity", local)
	}
	return e.mutateRemote(ctx, "update_quantity", identity, func(ctx context.Context, cartID domain.CartID) (domain.Lines, error) {
		lines, err := e.remote.UpdateLineQuantity(ctx, cartID, productID, qty)
		if !isLineMissing(err) {
			return lines, err
		}
		// Позиция есть в зеркале, но не в удалённой корзине: добавляем её с нужным количеством.
		mirrored, ok := e.store.GetLocalCart(ctx).Find(productID)
		if !ok {
			// Товара нет ни там, ни здесь: менять нечего, возвращаем удалённое состояние.
			return e.remote.Refresh(ctx, cartID)
		}
		return e.remote.addProductLine(ctx, cartID, mirrored, qty)
	}, local)
}

// RemoveItem удаляет товар из корзины.
func (e *Engine) RemoveItem(ctx context.Context, identity domain.Identity, productID string) Result {
	ctx, span := e.startSpan(ctx, "remove_item", identity, attribute.String("product.id", productID))
	defer span.End()

	local := func(lines domain.Lines) domain.Lines { return lines.Remove(productID) }
	if identity.IsGuest() {
		return e.applyLocal(ctx, "remove_item", local)
	}
	return e.mutateRemote(ctx, "remove_item", identity, func(ctx context.Context, cartID domain.CartID) (domain.Lines, error) {
		return e.remote.RemoveLine(ctx, cartID, productID)
	}, local)
}

// ClearCart удаляет зеркало и запомненный CartId. Удалённая корзина не трогается:
// следующая операция создаст новую.
func (e *Engine) ClearCart(ctx context.Context, identity domain.Identity) Result {
	_, span := e.startSpan(ctx, "clear_cart", identity)
	defer span.End()

	e.store.ClearCart(ctx)
	source := SourceLocal
	if !identity.IsGuest() {
		source = SourceRemote
	}
	e.recordOperation("clear_cart", source, "ok")
	return Result{Lines: domain.Lines{}, Source: source}
}

// SyncLocalCart переносит гостевую корзину в новую удалённую корзину покупателя при входе.
//
// Запомненный CartId всегда отбрасывается. Позиции воспроизводятся по одной в исходном
// порядке; сбой отдельной позиции логируется и не прерывает слияние. Итоговое зеркало —
// состояние удалённой корзины после воспроизведения. Если удалённую корзину создать
// не удалось, локальные позиции возвращаются без изменений.
func (e *Engine) SyncLocalCart(ctx context.Context, identity domain.Identity) Result {
	ctx, span := e.startSpan(ctx, "sync_local_cart", identity)
	defer span.End()

	if identity.IsGuest() {
		return e.rejected(ctx, "sync_local_cart", domain.ErrCustomerRequired)
	}
	ctx = commerce.WithBearerToken(ctx, identity.Token)

	e.remote.ForgetCart(ctx)
	localLines := e.store.GetLocalCart(ctx)
	if len(localLines) == 0 {
		e.recordOperation("sync_local_cart", SourceRemote, "empty")
		return Result{Lines: domain.Lines{}, Source: SourceRemote}
	}

	cartID, err := e.remote.GetOrCreateCart(ctx, e.storeContext, identity.CustomerID)
	if err != nil {
		e.logger.WithError(err).WithField("customer_id", identity.CustomerID).Error("login merge failed: cannot create remote cart")
		e.recordOperation("sync_local_cart", SourceLocalFallback, "failed")
		return e.soft(ctx, "sync_local_cart", Result{Lines: localLines, Source: SourceLocalFallback}, err)
	}

	var (
		lastLines domain.Lines
		rejected  domain.Lines
		lastErr   error
	)
	for _, line := range localLines {
		lines, err := e.remote.addProductLine(ctx, cartID, line, line.Quantity)
		if err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"cart_id":    cartID,
				"product_id": line.ProductID,
			}).Warn("login merge: failed to replay line")
			rejected = append(rejected, line)
			lastErr = err
			continue
		}
		lastLines = lines
	}

	final, err := e.remote.fetch(ctx, cartID, identity.CustomerID)
	switch {
	case err == nil:
		final = enrichSnapshots(final, localLines)
	case lastLines != nil:
		e.logger.WithError(err).WithField("cart_id", cartID).Warn("login merge: final fetch failed, using last mutation result")
		final = lastLines
	default:
		// Ни одна позиция не перенесена и корзину не удалось прочитать: локальные данные сохраняются.
		e.recordOperation("sync_local_cart", SourceLocalFallback, "failed")
		e.store.SaveLocalCart(ctx, localLines)
		return e.soft(ctx, "sync_local_cart", Result{Lines: localLines, Source: SourceLocalFallback}, err)
	}
	e.store.SaveLocalCart(ctx, final)

	replayed := len(localLines) - len(rejected)
	if e.recorder != nil {
		e.recorder.RecordLoginMerge(replayed, len(rejected))
	}
	e.logger.WithFields(log.Fields{
		"cart_id":  cartID,
		"replayed": replayed,
		"failed":   len(rejected),
	}).Info("login merge completed")

	result := Result{Lines: final, Source: SourceRemote, Rejected: rejected}
	if len(rejected) > 0 {
		e.recordOperation("sync_local_cart", SourceRemote, "partial")
		return e.soft(ctx, "sync_local_cart", result, lastErr)
	}
	e.recordOperation("sync_local_cart", SourceRemote, "ok")
	return result
}

// LoadCart восстанавливает корзину при перезагрузке. Для покупателя с запомненным CartId
// читает удалённую корзину и обновляет зеркало; без CartId возвращает пустой список
// и корзину не создаёт. Корзина другого покупателя обрабатывается как устаревшая:
// CartId забывается, зеркало очищается.
func (e *Engine) LoadCart(ctx context.Context, identity domain.Identity) Result {
	ctx, span := e.startSpan(ctx, "load_cart", identity)
	defer span.End()

	if identity.IsGuest() {
		e.recordOperation("load_cart", SourceLocal, "ok")
		return Result{Lines: e.store.GetLocalCart(ctx), Source: SourceLocal}
	}
	ctx = commerce.WithBearerToken(ctx, identity.Token)

	cartID, ok := e.store.CartID(ctx)
	if !ok {
		e.recordOperation("load_cart", SourceRemote, "empty")
		return Result{Lines: domain.Lines{}, Source: SourceRemote}
	}

	lines, err := e.remote.fetch(ctx, cartID, identity.CustomerID)
	switch {
	case err == nil:
		lines = enrichSnapshots(lines, e.store.GetLocalCart(ctx))
		e.store.SaveLocalCart(ctx, lines)
		e.recordOperation("load_cart", SourceRemote, "ok")
		return Result{Lines: lines, Source: SourceRemote}
	case domain.IsStaleCart(err):
		e.logger.WithField("cart_id", cartID).Info("remembered cart is gone, local mirror cleared")
		e.store.ClearCart(ctx)
		e.recordOperation("load_cart", SourceRemote, "stale")
		return Result{Lines: domain.Lines{}, Source: SourceRemote}
	default:
		e.recordOperation("load_cart", SourceLocalFallback, "failed")
		return e.soft(ctx, "load_cart", Result{Lines: e.store.GetLocalCart(ctx), Source: SourceLocalFallback}, err)
	}
}

// Lines возвращает текущее зеркало корзины без сетевых вызовов.
func (e *Engine) Lines(ctx context.Context) domain.Lines {
	return e.store.GetLocalCart(ctx)
}

// Totals считает суммы по текущему зеркалу.
func (e *Engine) Totals(ctx context.Context) domain.Totals {
	return domain.ComputeTotals(e.store.GetLocalCart(ctx), e.pricing)
}

// CompleteCheckout завершает удалённую корзину и возвращает ссылку на заказ.
// CartId после этого забывается, зеркало очищается.
func (e *Engine) CompleteCheckout(ctx context.Context, identity domain.Identity) (domain.CompletedCart, error) {
	ctx, span := e.startSpan(ctx, "complete_checkout", identity)
	defer span.End()

	ctx = commerce.WithBearerToken(ctx, identity.Token)
	cartID, ok := e.store.CartID(ctx)
	if !ok {
		return domain.CompletedCart{}, domain.ErrCartNotFound
	}

	completed, err := e.remote.CompleteCart(ctx, cartID)
	if err != nil {
		if domain.IsStaleCart(err) {
			e.remote.ForgetCart(ctx)
		}
		e.recordOperation("complete_checkout", SourceRemote, resultLabel(err))
		return domain.CompletedCart{}, err
	}
	e.recordOperation("complete_checkout", SourceRemote, "ok")
	e.logger.WithFields(log.Fields{
		"cart_id":  cartID,
		"order_id": completed.OrderID,
	}).Info("checkout completed")
	return completed, nil
}

type remoteMutation func(ctx context.Context, cartID domain.CartID) (domain.Lines, error)

type localMutation func(lines domain.Lines) domain.Lines

// mutateRemote выполняет getOrCreateCart + мутацию. Устаревший CartId забывается
// и вся последовательность повторяется один раз; временная ошибка тоже повторяется один раз.
// Конфликт не повторяется и не применяется локально. Остальные сбои приводят к
// локальной мутации и мягкому предупреждению.
func (e *Engine) mutateRemote(ctx context.Context, op string, identity domain.Identity, mutate remoteMutation, local localMutation) Result {
	ctx = commerce.WithBearerToken(ctx, identity.Token)

	attempt := func() (domain.Lines, error) {
		cartID, err := e.remote.GetOrCreateCart(ctx, e.storeContext, identity.CustomerID)
		if err != nil {
			return nil, err
		}
		return mutate(ctx, cartID)
	}

	lines, err := attempt()
	if err != nil && (domain.IsStaleCart(err) || domain.IsTransient(err)) {
		if domain.IsStaleCart(err) {
			e.remote.ForgetCart(ctx)
			if e.recorder != nil {
				e.recorder.RecordStaleCartRecovery(op)
			}
		}
		e.logger.WithError(err).WithField("op", op).Info("retrying cart operation once")
		lines, err = attempt()
	}
	if err == nil {
		e.recordOperation(op, SourceRemote, "ok")
		return Result{Lines: lines, Source: SourceRemote}
	}

	if domain.IsConflict(err) {
		e.logger.WithError(err).WithField("op", op).Warn("cart operation rejected by commerce api")
		e.recordOperation(op, SourceRemote, "conflict")
		return e.soft(ctx, op, Result{Lines: e.store.GetLocalCart(ctx), Source: SourceRemote}, err)
	}

	e.logger.WithError(err).WithField("op", op).Warn("cart operation failed remotely, applying locally")
	if e.recorder != nil {
		e.recorder.RecordRemoteFallback(op)
	}
	e.recordOperation(op, SourceLocalFallback, resultLabel(err))
	lines = local(e.store.GetLocalCart(ctx))
	e.store.SaveLocalCart(ctx, lines)
	return e.soft(ctx, op, Result{Lines: lines, Source: SourceLocalFallback}, err)
}

func (e *Engine) applyLocal(ctx context.Context, op string, local localMutation) Result {
	lines := local(e.store.GetLocalCart(ctx))
	e.store.SaveLocalCart(ctx, lines)
	e.recordOperation(op, SourceLocal, "ok")
	return Result{Lines: lines, Source: SourceLocal}
}

func (e *Engine) rejected(ctx context.Context, op string, err error) Result {
	e.recordOperation(op, SourceLocal, "invalid")
	return e.soft(ctx, op, Result{Lines: e.store.GetLocalCart(ctx), Source: SourceLocal}, err)
}

func (e *Engine) soft(ctx context.Context, op string, result Result, err error) Result {
	result.Err = err
	result.Warning = warningFor(err, result)
	if e.notifier != nil {
		e.notifier.Notify(ctx, Notification{
			SessionID: e.store.SessionID(),
			Operation: op,
			Message:   result.Warning,
			Err:       err,
		})
	}
	return result
}

func warningFor(err error, result Result) string {
	switch {
	case len(result.Rejected) > 0 && result.Source == SourceRemote:
		return "Some items from your cart could not be moved to your account."
	case errors.Is(err, domain.ErrLineQtyInvalid):
		return "Quantity must be greater than zero."
	case errors.Is(err, domain.ErrProductIDRequired):
		return "Choose a product to add to the cart."
	case errors.Is(err, domain.ErrCustomerRequired):
		return "Sign in to sync your cart."
	default:
		return domain.UserMessage(err)
	}
}

func (e *Engine) recordOperation(op string, source Source, result string) {
	if e.recorder != nil {
		e.recorder.RecordCartOperation(op, source, result)
	}
}

func (e *Engine) startSpan(ctx context.Context, op string, identity domain.Identity, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("session.id", e.store.SessionID()),
		attribute.Bool("customer.guest", identity.IsGuest()),
	)
	return e.tracer.Start(ctx, "cartsync."+op, trace.WithAttributes(attrs...), trace.WithTimestamp(time.Now()))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsStaleCart(err):
		return "not_found"
	case domain.IsConflict(err):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case domain.IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
