// Package httpapi — HTTP API витрины поверх движка корзины и сверки платежей.
//
// Сессия выбирается заголовком X-Session-ID (при отсутствии создаётся новая и
// возвращается в ответе). Заголовок Authorization: Bearer превращается в личность
// покупателя через auth.Verifier; без него запрос выполняется как гостевой.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartsync"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// HTTPRecorder собирает метрики HTTP-запросов.
type HTTPRecorder interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Dependencies — зависимости API.
type Dependencies struct {
	Sessions     domain.KeyValueStore
	Commerce     domain.CommerceAPI
	Catalog      domain.CatalogAPI
	Reconciler   *payment.Reconciler
	Orders       domain.OrderRepository
	Wishlist     domain.WishlistRepository
	Verifier     auth.Verifier
	StoreContext domain.StoreContext
	Pricing      domain.PricingPolicy
	Notifier     cartsync.Notifier
	CartRecorder cartsync.Recorder
	HTTPRecorder HTTPRecorder
	Logger       *log.Entry
}

// Server обслуживает HTTP API.
type Server struct {
	deps   Dependencies
	logger *log.Entry
}

// New создаёт API.
func New(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Server{deps: deps, logger: logger}
}

// Handler возвращает chi-роутер со всеми маршрутами.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(s.session)
	r.Use(s.identity)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.getCart)
		r.Delete("/", s.clearCart)
		r.Get("/totals", s.getTotals)
		r.Post("/items", s.addItem)
		r.Patch("/items/{productID}", s.updateItem)
		r.Delete("/items/{productID}", s.removeItem)
		r.Post("/sync", s.syncCart)
		r.Post("/load", s.loadCart)
		r.Post("/checkout", s.checkout)
	})

	r.Get("/products", s.listProducts)
	r.Get("/products/{productID}", s.getProduct)

	r.Get("/payments/return", s.paymentReturn)
	r.Get("/payments/cancel", s.paymentCancel)

	r.Group(func(r chi.Router) {
		r.Use(requireCustomer)
		r.Get("/wishlist", s.listWishlist)
		r.Post("/wishlist/{productID}", s.addToWishlist)
		r.Delete("/wishlist/{productID}", s.removeFromWishlist)
		r.Get("/me/orders", s.listOrders)
	})

	return r
}

func (s *Server) engine(store *cartstore.Store) *cartsync.Engine {
	return cartsync.NewEngine(cartsync.Dependencies{
		API:          s.deps.Commerce,
		Store:        store,
		StoreContext: s.deps.StoreContext,
		Pricing:      s.deps.Pricing,
		Notifier:     s.deps.Notifier,
		Recorder:     s.deps.CartRecorder,
		Logger:       s.logger,
	})
}
