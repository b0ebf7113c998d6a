package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultVerifyTimeout = 15 * time.Second
	maxVerifyErrorBytes  = 16 << 10
)

// HTTPVerifier проверяет возврат через платёжный backend:
// POST {baseURL}/payments/{provider}/verify с параметрами возврата в теле.
type HTTPVerifier struct {
	provider domain.PaymentProvider
	endpoint string
	http     *http.Client
	logger   *log.Entry
	tracer   trace.Tracer
}

// NewHTTPVerifier создаёт verifier для одного провайдера.
func NewHTTPVerifier(baseURL string, provider domain.PaymentProvider, httpClient *http.Client, logger *log.Entry) (*HTTPVerifier, error) {
	if !provider.Valid() {
		return nil, domain.ErrUnknownProvider
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse payment backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("payment backend url must be absolute: %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultVerifyTimeout}
	}
	if logger == nil {
		logger = log.WithField("component", "payment-verifier")
	}

	return &HTTPVerifier{
		provider: provider,
		endpoint: base.String() + "/payments/" + string(provider) + "/verify",
		http:     httpClient,
		logger:   logger.WithField("provider", provider),
		tracer:   otel.Tracer("storefront/payment"),
	}, nil
}

// Verify передаёт backend все параметры возврата и возвращает его вердикт.
func (v *HTTPVerifier) Verify(ctx context.Context, params Params) (domain.PaymentVerification, error) {
	ctx, span := v.tracer.Start(ctx, "payment.verify", trace.WithAttributes(
		attribute.String("payment.provider", string(v.provider)),
	))
	defer span.End()

	payload, err := json.Marshal(params)
	if err != nil {
		return domain.PaymentVerification{}, fmt.Errorf("%w: marshal params: %v", domain.ErrPaymentVerification, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.PaymentVerification{}, fmt.Errorf("%w: build request: %v", domain.ErrPaymentVerification, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := v.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return domain.PaymentVerification{}, fmt.Errorf("%w: %v", domain.ErrPaymentVerification, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxVerifyErrorBytes))
		span.SetStatus(codes.Error, resp.Status)
		v.logger.WithFields(log.Fields{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(raw)),
		}).Warn("payment backend rejected verification")
		return domain.PaymentVerification{}, fmt.Errorf("%w: backend status %d", domain.ErrPaymentVerification, resp.StatusCode)
	}

	var verification domain.PaymentVerification
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		span.SetStatus(codes.Error, "decode failed")
		return domain.PaymentVerification{}, fmt.Errorf("%w: decode response: %v", domain.ErrPaymentVerification, err)
	}
	if verification.Provider == "" {
		verification.Provider = v.provider
	}
	return verification, nil
}

var _ Verifier = (*HTTPVerifier)(nil)
