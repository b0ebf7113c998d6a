package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/commerce"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartsync"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// integrations — клиенты внешних систем витрины.
type integrations struct {
	commerce   *commerce.Client
	catalog    *commerce.CachedCatalog
	reconciler *payment.Reconciler
	verifier   auth.Verifier
	pricing    domain.PricingPolicy
	store      domain.StoreContext
}

func pricingPolicy(cfg Config) (domain.PricingPolicy, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRate))
	if err != nil {
		return domain.PricingPolicy{}, fmt.Errorf("parse tax rate %q: %w", cfg.TaxRate, err)
	}
	if rate.IsNegative() {
		return domain.PricingPolicy{}, fmt.Errorf("tax rate must not be negative: %s", rate)
	}
	if cfg.FreeShippingThresholdMinor < 0 || cfg.ShippingFeeMinor < 0 {
		return domain.PricingPolicy{}, errors.New("shipping amounts must not be negative")
	}
	return domain.PricingPolicy{
		TaxRate:                    rate,
		FreeShippingThresholdMinor: cfg.FreeShippingThresholdMinor,
		ShippingFeeMinor:           cfg.ShippingFeeMinor,
	}, nil
}

func initIntegrations(ctx context.Context, cfg Config, deps *runtimeDependencies, recorder *metrics.StorefrontMetrics, logger *log.Entry) (*integrations, error) {
	pricing, err := pricingPolicy(cfg)
	if err != nil {
		return nil, err
	}

	client, err := commerce.NewClient(commerce.Config{
		BaseURL: cfg.CommerceURL,
		APIKey:  cfg.CommerceAPIKey,
		Timeout: cfg.CommerceTimeout,
	},
		commerce.WithLogger(logger.WithField("component", "commerce-client")),
		commerce.WithLatencyRecorder(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("create commerce client: %w", err)
	}

	catalog := commerce.NewCachedCatalog(client, commerce.CatalogOptions{
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        cfg.CacheTTL,
		Recorder:   recorder,
		Logger:     logger.WithField("component", "catalog-cache"),
	})

	verifiers, err := paymentVerifiers(cfg, logger)
	if err != nil {
		return nil, err
	}
	reconciler := payment.NewReconciler(verifiers, deps.orders,
		payment.WithOutbox(deps.outboxRepo),
		payment.WithRecorder(recorder),
		payment.WithLogger(logger.WithField("component", "payment-reconciler")),
	)

	verifier, err := initVerifier(ctx, cfg, deps, logger)
	if err != nil {
		return nil, err
	}

	return &integrations{
		commerce:   client,
		catalog:    catalog,
		reconciler: reconciler,
		verifier:   verifier,
		pricing:    pricing,
		store:      domain.StoreContext{RegionID: cfg.RegionID},
	}, nil
}

// paymentVerifiers выбирает проверку платежей: backend по HTTP или mock для локального запуска.
// Без обоих вариантов карта пуста и любой возврат от провайдера завершается FAILED.
func paymentVerifiers(cfg Config, logger *log.Entry) (map[domain.PaymentProvider]payment.Verifier, error) {
	providers := []domain.PaymentProvider{domain.PaymentProviderStripe, domain.PaymentProviderVipps}
	verifiers := make(map[domain.PaymentProvider]payment.Verifier, len(providers))

	baseURL := strings.TrimSpace(cfg.PaymentBackendURL)
	switch {
	case baseURL != "":
		httpClient := &http.Client{Timeout: cfg.CommerceTimeout}
		for _, provider := range providers {
			v, err := payment.NewHTTPVerifier(baseURL, provider, httpClient, logger.WithField("component", "payment-verifier"))
			if err != nil {
				return nil, fmt.Errorf("create %s verifier: %w", provider, err)
			}
			verifiers[provider] = v
		}
	case cfg.AllowMockIntegrations:
		for _, provider := range providers {
			verifiers[provider] = payment.NewMockVerifier(provider)
		}
		logger.Warn("payment verification uses mock providers")
	default:
		logger.Warn("payment backend is not configured; payment returns will fail verification")
	}
	return verifiers, nil
}

func initVerifier(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) (auth.Verifier, error) {
	projectID := strings.TrimSpace(cfg.FirebaseProjectID)
	if projectID == "" {
		logger.Warn("firebase project is not configured; bearer tokens will be rejected")
		return nil, nil
	}
	verifier, err := auth.NewFirebaseVerifier(ctx, projectID, nil,
		auth.WithProfileSync(deps.customers),
		auth.WithLogger(logger.WithField("component", "auth")),
	)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return verifier, nil
}

// logNotifier пишет уведомления о мягких сбоях в лог; UI получает их в поле warning ответа.
type logNotifier struct {
	logger *log.Entry
}

func (n logNotifier) Notify(_ context.Context, notification cartsync.Notification) {
	entry := n.logger.WithFields(log.Fields{
		"session_id": notification.SessionID,
		"operation":  notification.Operation,
	})
	if notification.Err != nil {
		entry = entry.WithError(notification.Err)
	}
	entry.Warn(notification.Message)
}
