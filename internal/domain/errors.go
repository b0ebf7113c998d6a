package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductIDRequired — позиция корзины без идентификатора товара.
	ErrProductIDRequired = errors.New("product_id is required")
	// ErrLineQtyInvalid — количество в позиции должно быть больше нуля.
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// ErrLinePriceInvalid — цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line unit price must be non-negative")
	// ErrDuplicateLine — в корзине две позиции с одним и тем же product_id.
	ErrDuplicateLine = errors.New("cart contains duplicate product lines")

	// ErrCartNotFound — удалённая корзина с таким CartId неизвестна или истекла (stale reference).
	ErrCartNotFound = errors.New("remote cart not found")
	// ErrCartConflict — бизнес-ошибка commerce API (например, у товара нет цены в регионе).
	ErrCartConflict = errors.New("remote cart conflict")
	// ErrRemoteTransient — сетевая ошибка или 5xx; операцию можно повторить.
	ErrRemoteTransient = errors.New("remote commerce temporary error")
	// ErrUnauthenticated — удалённый сервис отклонил токен покупателя.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrLineNotFound — в удалённой корзине нет позиции для указанного товара.
	ErrLineNotFound = errors.New("line item not found in remote cart")
	// ErrProductNotFound возвращается каталогом, если товара нет.
	ErrProductNotFound = errors.New("product not found")

	// ErrLocalStorage — запись в локальное хранилище сессии не удалась (persistence-lost).
	ErrLocalStorage = errors.New("local storage write failed")
	// ErrKeyNotFound возвращается KeyValueStore для отсутствующего ключа.
	ErrKeyNotFound = errors.New("key not found")

	// ErrOrderIDRequired — отсутствует идентификатор заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists — заказ с таким ID уже сохранён (повторная сверка платежа).
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrCustomerRequired — операция требует авторизованного покупателя.
	ErrCustomerRequired = errors.New("customer_id is required")
	// ErrCustomerNotFound возвращается, если профиля покупателя нет.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrUnknownProvider — не удалось определить платёжного провайдера по параметрам возврата.
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrPaymentVerification — вызов проверки платежа завершился ошибкой.
	ErrPaymentVerification = errors.New("payment verification failed")
	// ErrPaymentAmountNegative — сумма платежа отрицательная.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// RemoteError описывает ответ удалённого сервиса с кодом и сообщением.
// Unwrap возвращает sentinel из таксономии, поэтому errors.Is продолжает работать.
type RemoteError struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}

// IsStaleCart сообщает, что CartId больше не действителен и корзину нужно пересоздать.
func IsStaleCart(err error) bool {
	return errors.Is(err, ErrCartNotFound)
}

// IsTransient проверяет, является ли ошибка временной.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteTransient)
}

// IsConflict проверяет, является ли ошибка бизнес-конфликтом, который показывается пользователю как есть.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCartConflict)
}

// UserMessage возвращает текст для уведомления пользователя.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	if errors.As(err, &remote) && errors.Is(remote.Kind, ErrCartConflict) && remote.Message != "" {
		return remote.Message
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrRemoteTransient), errors.Is(err, ErrCartNotFound):
		return "We could not reach the store right now. Your cart was saved on this device."
	case errors.Is(err, ErrCartConflict):
		return "This item cannot be added to the cart right now."
	default:
		return "Something went wrong while updating your cart."
	}
}
