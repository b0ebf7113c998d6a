package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const maxProductsLimit = 100

type productsResponse struct {
	Products []domain.Product `json:"products"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	query := domain.ProductQuery{Category: strings.TrimSpace(values.Get("category"))}

	var ok bool
	if query.Limit, ok = queryInt(values.Get("limit"), 0, maxProductsLimit); !ok {
		writeError(w, http.StatusBadRequest, "limit must be between 0 and 100")
		return
	}
	if query.Offset, ok = queryInt(values.Get("offset"), 0, -1); !ok {
		writeError(w, http.StatusBadRequest, "offset must be non-negative")
		return
	}

	products, err := s.deps.Catalog.ListProducts(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, productsResponse{Products: products})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.deps.Catalog.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// queryInt разбирает необязательный целый параметр; max < 0 — без верхней границы.
func queryInt(raw string, min, max int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || (max >= 0 && value > max) {
		return 0, false
	}
	return value, true
}
