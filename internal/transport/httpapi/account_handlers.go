package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultOrdersLimit = 20

type wishlistResponse struct {
	Items []domain.WishlistItem `json:"items"`
}

type orderResponse struct {
	ID            string                 `json:"id"`
	Provider      domain.PaymentProvider `json:"provider"`
	PaymentID     string                 `json:"payment_id"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	AmountMinor   int64                  `json:"amount_minor"`
	Currency      string                 `json:"currency"`
	Status        domain.OrderStatus     `json:"status"`
	Lines         domain.Lines           `json:"lines"`
	CreatedAt     time.Time              `json:"created_at"`
}

type ordersResponse struct {
	Orders []orderResponse `json:"orders"`
}

func (s *Server) listWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := s.deps.Wishlist.List(ctx, identityFrom(ctx).CustomerID)
	if err != nil {
		s.logger.WithError(err).Error("failed to list wishlist")
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []domain.WishlistItem{}
	}
	writeJSON(w, http.StatusOK, wishlistResponse{Items: items})
}

func (s *Server) addToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := chi.URLParam(r, "productID")
	if _, err := s.deps.Catalog.GetProduct(ctx, productID); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.deps.Wishlist.Add(ctx, identityFrom(ctx).CustomerID, productID); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Error("failed to add wishlist item")
		writeDomainError(w, err)
		return
	}
	s.listWishlist(w, r)
}

func (s *Server) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := chi.URLParam(r, "productID")
	if err := s.deps.Wishlist.Remove(ctx, identityFrom(ctx).CustomerID, productID); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Error("failed to remove wishlist item")
		writeDomainError(w, err)
		return
	}
	s.listWishlist(w, r)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, ok := queryInt(r.URL.Query().Get("limit"), 0, maxProductsLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be between 0 and 100")
		return
	}
	if limit == 0 {
		limit = defaultOrdersLimit
	}

	orders, err := s.deps.Orders.ListByCustomer(ctx, identityFrom(ctx).CustomerID, limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list orders")
		writeDomainError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, orderResponse{
			ID:            order.ID,
			Provider:      order.Provider,
			PaymentID:     order.PaymentID,
			TransactionID: order.TransactionID,
			AmountMinor:   order.AmountMinor,
			Currency:      order.Currency,
			Status:        order.Status,
			Lines:         order.Lines,
			CreatedAt:     order.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: out})
}
