package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

type paymentResponse struct {
	State        domain.PaymentState         `json:"state"`
	Provider     domain.PaymentProvider      `json:"provider,omitempty"`
	OrderID      string                      `json:"order_id,omitempty"`
	Duplicate    bool                        `json:"duplicate,omitempty"`
	Message      string                      `json:"message,omitempty"`
	NextStep     payment.NextStep            `json:"next_step,omitempty"`
	Verification *domain.PaymentVerification `json:"verification,omitempty"`
}

func toPaymentResponse(outcome payment.Outcome) paymentResponse {
	return paymentResponse{
		State:        outcome.State,
		Provider:     outcome.Provider,
		OrderID:      outcome.OrderID,
		Duplicate:    outcome.Duplicate,
		Message:      outcome.Message,
		NextStep:     outcome.NextStep,
		Verification: outcome.Verification,
	}
}

// paymentReturn — адрес возврата от провайдера. Исход оплаты всегда в теле ответа со статусом 200.
func (s *Server) paymentReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	outcome := s.deps.Reconciler.HandleReturn(ctx, storeFrom(ctx), identityFrom(ctx), payment.ParamsFromQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, toPaymentResponse(outcome))
}

func (s *Server) paymentCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	outcome := s.deps.Reconciler.HandleCancel(ctx, storeFrom(ctx), payment.ParamsFromQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, toPaymentResponse(outcome))
}
