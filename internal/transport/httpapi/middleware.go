package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// HeaderSessionID — заголовок с идентификатором сессии.
const HeaderSessionID = "X-Session-ID"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type ctxKey struct{ name string }

var (
	ctxKeyStore    = ctxKey{name: "cart-store"}
	ctxKeyIdentity = ctxKey{name: "identity"}
)

func storeFrom(ctx context.Context) *cartstore.Store {
	store, _ := ctx.Value(ctxKeyStore).(*cartstore.Store)
	return store
}

func identityFrom(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(ctxKeyIdentity).(domain.Identity)
	return identity
}

// observe пишет access-лог и метрику длительности по шаблону маршрута.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		if s.deps.HTTPRecorder != nil {
			s.deps.HTTPRecorder.ObserveHTTPRequest(r.Method, route, status, elapsed)
		}
		entry := s.logger.WithFields(log.Fields{
			"method":      r.Method,
			"route":       route,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	})
}

// session привязывает запрос к локальному хранилищу сессии.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
		switch {
		case sessionID == "":
			sessionID = uuid.NewString()
		case !sessionIDPattern.MatchString(sessionID):
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		w.Header().Set(HeaderSessionID, sessionID)

		store := cartstore.New(s.deps.Sessions, sessionID, s.logger)
		ctx := context.WithValue(r.Context(), ctxKeyStore, store)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity проверяет bearer-токен и отслеживает смену личности в сессии.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := domain.Guest()

		if header := r.Header.Get("Authorization"); header != "" {
			token, ok := auth.BearerToken(header)
			if !ok {
				writeError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}
			if s.deps.Verifier == nil {
				writeError(w, http.StatusUnauthorized, "authentication is not configured")
				return
			}
			verified, err := s.deps.Verifier.Verify(ctx, token)
			if err != nil {
				s.logger.WithError(err).Info("bearer token rejected")
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			identity = verified
		}

		trackIdentity(ctx, storeFrom(ctx), identity)
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKeyIdentity, identity)))
	})
}

// trackIdentity следит за сменой личности в сессии. Выход из аккаунта очищает
// корзину, токен и владельца. Вход другим покупателем очищает зеркало и CartId
// прежнего владельца; вход гостя сохраняет гостевую корзину для слияния.
func trackIdentity(ctx context.Context, store *cartstore.Store, identity domain.Identity) {
	previousToken, hadToken := store.AuthToken(ctx)
	previousCustomer, hadCustomer := store.CustomerID(ctx)

	if identity.IsGuest() {
		if hadToken || hadCustomer {
			store.ClearCart(ctx)
			store.ForgetAuthToken(ctx)
			store.ForgetCustomer(ctx)
		}
		return
	}

	if hadCustomer && previousCustomer != identity.CustomerID {
		store.ClearCart(ctx)
	}
	if !hadCustomer || previousCustomer != identity.CustomerID {
		store.RememberCustomer(ctx, identity.CustomerID)
	}
	if identity.Token != "" && (!hadToken || previousToken != identity.Token) {
		store.SaveAuthToken(ctx, identity.Token)
	}
}

func requireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()).IsGuest() {
			writeError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
