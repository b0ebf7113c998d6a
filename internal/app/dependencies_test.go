package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartsync"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

func TestPricingPolicy_RejectsInvalidValues(t *testing.T) {
	cases := []Config{
		{TaxRate: "abc"},
		{TaxRate: "-0.1"},
		{TaxRate: "0.25", ShippingFeeMinor: -1},
	}
	for _, cfg := range cases {
		if _, err := pricingPolicy(cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestPaymentVerifiers(t *testing.T) {
	logger := log.WithField("test", "payment")

	none, err := paymentVerifiers(Config{}, logger)
	require.NoError(t, err)
	require.Empty(t, none)

	mocks, err := paymentVerifiers(Config{AllowMockIntegrations: true}, logger)
	require.NoError(t, err)
	require.Len(t, mocks, 2)
	require.IsType(t, &payment.MockVerifier{}, mocks[domain.PaymentProviderStripe])

	backend, err := paymentVerifiers(Config{PaymentBackendURL: "http://payments.internal", AllowMockIntegrations: true}, logger)
	require.NoError(t, err)
	require.IsType(t, &payment.HTTPVerifier{}, backend[domain.PaymentProviderVipps])
}

func TestInitIntegrations_Defaults(t *testing.T) {
	logger := log.WithField("test", "integrations")
	cfg := DefaultConfig()

	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer func() { _ = deps.closeFn() }()

	recorder := metrics.New(prometheus.NewRegistry())
	svc, err := initIntegrations(context.Background(), cfg, deps, recorder, logger)
	require.NoError(t, err)
	require.NotNil(t, svc.commerce)
	require.NotNil(t, svc.catalog)
	require.NotNil(t, svc.reconciler)
	require.Nil(t, svc.verifier, "without firebase project bearer tokens are not verified")
}

func TestInitIntegrations_InvalidTaxRate(t *testing.T) {
	logger := log.WithField("test", "integrations")
	cfg := DefaultConfig()
	cfg.TaxRate = "twenty"

	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)

	_, err = initIntegrations(context.Background(), cfg, deps, metrics.New(prometheus.NewRegistry()), logger)
	require.Error(t, err)
}

func TestLogNotifier_DoesNotPanic(_ *testing.T) {
	n := logNotifier{logger: log.WithField("test", "notifier")}
	n.Notify(context.Background(), cartsync.Notification{
		SessionID: "sess",
		Operation: "add_item",
		Message:   "cart service unavailable",
		Err:       errors.New("timeout"),
	})
	n.Notify(context.Background(), cartsync.Notification{Operation: "load_cart"})
}
