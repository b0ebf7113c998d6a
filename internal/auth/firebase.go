package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// idTokenVerifier — часть *fbauth.Client, нужная для проверки ID-токенов.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier проверяет Firebase ID-токены.
// Если задан CustomerRepository, профиль покупателя обновляется из claims токена.
type FirebaseVerifier struct {
	client    idTokenVerifier
	customers domain.CustomerRepository
	now       func() time.Time
	logger    *log.Entry
}

// FirebaseOption настраивает FirebaseVerifier.
type FirebaseOption func(*FirebaseVerifier)

// WithProfileSync включает upsert профиля при каждой успешной проверке.
func WithProfileSync(customers domain.CustomerRepository) FirebaseOption {
	return func(v *FirebaseVerifier) {
		v.customers = customers
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) FirebaseOption {
	return func(v *FirebaseVerifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewFirebaseVerifier инициализирует Firebase App для projectID.
// Учётные данные берутся из окружения (GOOGLE_APPLICATION_CREDENTIALS) или из clientOpts.
func NewFirebaseVerifier(ctx context.Context, projectID string, clientOpts []option.ClientOption, options ...FirebaseOption) (*FirebaseVerifier, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return newFirebaseVerifier(client, options...), nil
}

func newFirebaseVerifier(client idTokenVerifier, options ...FirebaseOption) *FirebaseVerifier {
	v := &FirebaseVerifier{
		client: client,
		now:    time.Now,
		logger: log.WithField("component", "auth"),
	}
	for _, option := range options {
		option(v)
	}
	return v
}

// Verify реализует Verifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (domain.Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return domain.Guest(), fmt.Errorf("empty token: %w", domain.ErrUnauthenticated)
	}

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.Guest(), fmt.Errorf("verify id token: %v: %w", err, domain.ErrUnauthenticated)
	}
	uid := strings.TrimSpace(token.UID)
	if uid == "" {
		return domain.Guest(), fmt.Errorf("token without uid: %w", domain.ErrUnauthenticated)
	}

	if v.customers != nil {
		v.syncProfile(ctx, uid, token.Claims)
	}
	return domain.Authenticated(uid, idToken), nil
}

// syncProfile best-effort: ошибка репозитория не мешает входу.
func (v *FirebaseVerifier) syncProfile(ctx context.Context, uid string, claims map[string]any) {
	profile := domain.CustomerProfile{
		ID:        uid,
		Email:     claimString(claims, "email"),
		FullName:  claimString(claims, "name"),
		UpdatedAt: v.now().UTC(),
	}
	if _, err := v.customers.Upsert(ctx, profile); err != nil {
		v.logger.WithError(err).WithField("customer_id", uid).Warn("failed to sync customer profile")
	}
}

func claimString(claims map[string]any, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}
