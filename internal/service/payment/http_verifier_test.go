package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type backendRequest struct {
	provider string
	params   Params
}

func newPaymentBackend(t *testing.T, status int, response any) (*httptest.Server, *backendRequest) {
	t.Helper()

	received := &backendRequest{}
	router := chi.NewRouter()
	router.Post("/payments/{provider}/verify", func(w http.ResponseWriter, r *http.Request) {
		received.provider = chi.URLParam(r, "provider")
		if err := json.NewDecoder(r.Body).Decode(&received.params); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, received
}

func TestHTTPVerifier_ReturnsBackendVerdict(t *testing.T) {
	server, received := newPaymentBackend(t, http.StatusOK, map[string]any{
		"verified":     true,
		"order_id":     "ord-7",
		"payment_id":   "pi_1",
		"amount_minor": 19900,
		"currency":     "NOK",
		"status":       "COMPLETE",
	})

	verifier, err := NewHTTPVerifier(server.URL+"/", domain.PaymentProviderStripe, server.Client(), nil)
	require.NoError(t, err)

	v, err := verifier.Verify(context.Background(), Params{"payment_intent": "pi_1", "redirect_status": "succeeded"})
	require.NoError(t, err)
	require.True(t, v.Succeeded())
	require.Equal(t, domain.PaymentProviderStripe, v.Provider)
	require.Equal(t, "ord-7", v.OrderID)
	require.Equal(t, int64(19900), v.AmountMinor)
	require.Equal(t, "stripe", received.provider)
	require.Equal(t, "succeeded", received.params["redirect_status"], "all return parameters are forwarded")
}

func TestHTTPVerifier_BackendErrorIsVerificationFailure(t *testing.T) {
	server, _ := newPaymentBackend(t, http.StatusBadGateway, map[string]string{"message": "upstream"})

	verifier, err := NewHTTPVerifier(server.URL, domain.PaymentProviderStripe, server.Client(), nil)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), Params{"payment_intent": "pi_1"})
	require.ErrorIs(t, err, domain.ErrPaymentVerification)
}

func TestNewHTTPVerifier_Validation(t *testing.T) {
	_, err := NewHTTPVerifier("http://payments.local", "paypal", nil, nil)
	require.ErrorIs(t, err, domain.ErrUnknownProvider)

	_, err = NewHTTPVerifier("/relative", domain.PaymentProviderVipps, nil, nil)
	require.Error(t, err)
}
