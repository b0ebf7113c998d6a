package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartsync"
)

type cartResponse struct {
	Lines    domain.Lines    `json:"lines"`
	Source   cartsync.Source `json:"source"`
	Warning  string          `json:"warning,omitempty"`
	Rejected domain.Lines    `json:"rejected,omitempty"`
	Totals   domain.Totals   `json:"totals"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutResponse struct {
	OrderID string        `json:"order_id"`
	CartID  domain.CartID `json:"cart_id"`
}

func (s *Server) respondCart(w http.ResponseWriter, result cartsync.Result) {
	lines := result.Lines
	if lines == nil {
		lines = domain.Lines{}
	}
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:    lines,
		Source:   result.Source,
		Warning:  result.Warning,
		Rejected: result.Rejected,
		Totals:   domain.ComputeTotals(lines, s.deps.Pricing),
	})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source := cartsync.SourceLocal
	if !identityFrom(ctx).IsGuest() {
		source = cartsync.SourceRemote
	}
	s.respondCart(w, cartsync.Result{Lines: s.engine(storeFrom(ctx)).Lines(ctx), Source: source})
}

func (s *Server) getTotals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, s.engine(storeFrom(ctx)).Totals(ctx))
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Пустой product_id и неположительное количество движок отклоняет мягко.
	product := domain.Product{ID: req.ProductID}
	if req.ProductID != "" && req.Quantity > 0 {
		var err error
		product, err = s.deps.Catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	s.respondCart(w, s.engine(storeFrom(ctx)).AddItem(ctx, identityFrom(ctx), product, req.Quantity))
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	productID := chi.URLParam(r, "productID")
	s.respondCart(w, s.engine(storeFrom(ctx)).UpdateQuantity(ctx, identityFrom(ctx), productID, req.Quantity))
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := chi.URLParam(r, "productID")
	s.respondCart(w, s.engine(storeFrom(ctx)).RemoveItem(ctx, identityFrom(ctx), productID))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.respondCart(w, s.engine(storeFrom(ctx)).ClearCart(ctx, identityFrom(ctx)))
}

func (s *Server) syncCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFrom(ctx)
	if identity.IsGuest() {
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}
	s.respondCart(w, s.engine(storeFrom(ctx)).SyncLocalCart(ctx, identity))
}

func (s *Server) loadCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.respondCart(w, s.engine(storeFrom(ctx)).LoadCart(ctx, identityFrom(ctx)))
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFrom(ctx)
	if identity.IsGuest() {
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}
	completed, err := s.engine(storeFrom(ctx)).CompleteCheckout(ctx, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{OrderID: completed.OrderID, CartID: completed.CartID})
}
