// Package auth превращает bearer-токен покупателя в domain.Identity.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Verifier проверяет токен и возвращает личность покупателя.
// Любая ошибка проверки оборачивает domain.ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// StaticVerifier сопоставляет заранее известные токены покупателям.
// Используется в разработке и тестах вместо Firebase.
type StaticVerifier struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewStaticVerifier создаёт verifier по таблице token → customer_id.
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	copied := make(map[string]string, len(tokens))
	for token, customerID := range tokens {
		copied[token] = customerID
	}
	return &StaticVerifier{tokens: copied}
}

// Grant добавляет токен.
func (v *StaticVerifier) Grant(token, customerID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = customerID
}

// Verify реализует Verifier.
func (v *StaticVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Guest(), fmt.Errorf("empty token: %w", domain.ErrUnauthenticated)
	}

	v.mu.RLock()
	customerID, ok := v.tokens[token]
	v.mu.RUnlock()
	if !ok {
		return domain.Guest(), fmt.Errorf("unknown token: %w", domain.ErrUnauthenticated)
	}
	return domain.Authenticated(customerID, token), nil
}
