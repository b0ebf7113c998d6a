// Package cartstore хранит локальное состояние корзины одной сессии витрины:
// зеркало позиций, запомненный CartId и кэшированный токен.
//
// Все значения сериализуются в JSON. Повреждённые или отсутствующие значения
// читаются как пустые, запись выполняется по принципу best-effort.
package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	keyCart      = "cart"
	keyCartID    = "cart_id"
	keyAuthToken = "auth_token"
	keyCustomer  = "customer_id"
)

// Store — локальное хранилище корзины, привязанное к одной сессии.
type Store struct {
	kv        domain.KeyValueStore
	sessionID string
	logger    *log.Entry
}

// New создаёт Store для сессии sessionID поверх kv.
func New(kv domain.KeyValueStore, sessionID string, logger *log.Entry) *Store {
	if logger == nil {
		logger = log.WithField("component", "cartstore")
	}
	return &Store{
		kv:        kv,
		sessionID: sessionID,
		logger:    logger.WithField("session_id", sessionID),
	}
}

// SessionID возвращает идентификатор сессии.
func (s *Store) SessionID() string {
	return s.sessionID
}

// GetLocalCart возвращает зеркало корзины. Никогда не возвращает ошибку:
// отсутствие ключа, сбой хранилища и повреждённый JSON дают пустой список.
func (s *Store) GetLocalCart(ctx context.Context) domain.Lines {
	var lines domain.Lines
	if !s.readJSON(ctx, keyCart, &lines) {
		return domain.Lines{}
	}
	return lines.Normalize()
}

// SaveLocalCart записывает зеркало корзины. Ошибки логируются и не возвращаются.
func (s *Store) SaveLocalCart(ctx context.Context, lines domain.Lines) {
	if lines == nil {
		lines = domain.Lines{}
	}
	if err := s.writeJSON(ctx, keyCart, lines); err != nil {
		s.logger.WithError(err).WithField("lines", len(lines)).Warn("failed to save local cart")
	}
}

// ClearCart удаляет зеркало корзины и запомненный CartId.
func (s *Store) ClearCart(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key(keyCart), s.key(keyCartID)); err != nil {
		s.logger.WithError(err).Warn("failed to clear local cart")
	}
}

// CartID возвращает запомненный CartId.
func (s *Store) CartID(ctx context.Context) (domain.CartID, bool) {
	var id string
	if !s.readJSON(ctx, keyCartID, &id) || id == "" {
		return "", false
	}
	return domain.CartID(id), true
}

// RememberCartID запоминает CartId. Ошибка возвращается, потому что потеря id
// приводит к созданию лишней удалённой корзины; вызывающий решает, логировать ли её.
func (s *Store) RememberCartID(ctx context.Context, id domain.CartID) error {
	return s.writeJSON(ctx, keyCartID, string(id))
}

// ForgetCartID удаляет запомненный CartId.
func (s *Store) ForgetCartID(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key(keyCartID)); err != nil {
		s.logger.WithError(err).Warn("failed to forget cart id")
	}
}

// AuthToken возвращает кэшированный bearer-токен.
func (s *Store) AuthToken(ctx context.Context) (string, bool) {
	var token string
	if !s.readJSON(ctx, keyAuthToken, &token) || token == "" {
		return "", false
	}
	return token, true
}

// SaveAuthToken кэширует bearer-токен.
func (s *Store) SaveAuthToken(ctx context.Context, token string) {
	if err := s.writeJSON(ctx, keyAuthToken, token); err != nil {
		s.logger.WithError(err).Warn("failed to save auth token")
	}
}

// ForgetAuthToken удаляет кэшированный токен.
func (s *Store) ForgetAuthToken(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key(keyAuthToken)); err != nil {
		s.logger.WithError(err).Warn("failed to forget auth token")
	}
}

// CustomerID возвращает покупателя, которому принадлежат зеркало и CartId сессии.
func (s *Store) CustomerID(ctx context.Context) (string, bool) {
	var id string
	if !s.readJSON(ctx, keyCustomer, &id) || id == "" {
		return "", false
	}
	return id, true
}

// RememberCustomer запоминает владельца корзины сессии.
func (s *Store) RememberCustomer(ctx context.Context, customerID string) {
	if err := s.writeJSON(ctx, keyCustomer, customerID); err != nil {
		s.logger.WithError(err).Warn("failed to remember customer")
	}
}

// ForgetCustomer удаляет запомненного покупателя.
func (s *Store) ForgetCustomer(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key(keyCustomer)); err != nil {
		s.logger.WithError(err).Warn("failed to forget customer")
	}
}

func (s *Store) key(name string) string {
	return s.sessionID + ":" + name
}

func (s *Store) readJSON(ctx context.Context, name string, dst any) bool {
	raw, err := s.kv.Get(ctx, s.key(name))
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.WithError(err).WithField("key", name).Warn("failed to read local storage")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.WithError(err).WithField("key", name).Warn("corrupt local storage value ignored")
		return false
	}
	return true
}

func (s *Store) writeJSON(ctx context.Context, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, s.key(name), string(payload)); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrLocalStorage, name, err)
	}
	return nil
}
