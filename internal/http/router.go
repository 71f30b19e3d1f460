package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const ServiceName = "storefront"

type Handlers struct {
	Cart     *CartHandler
	Product  *ProductHandler
	Orders   *OrdersHandler
	Checkout *CheckoutHandler
}

func NewRouter(h Handlers, requestTimeout time.Duration, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(otelhttp.NewMiddleware(ServiceName))
	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts/{cart_id}", func(r chi.Router) {
			r.Put("/", h.Cart.CreateCart)
			r.Get("/items", h.Cart.GetCart)
			r.Post("/items", h.Cart.AddItem)
			r.Delete("/items", h.Cart.ClearCart)
			r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})
		r.Route("/catalogs/{catalog_id}", func(r chi.Router) {
			r.Put("/", h.Product.CreateCatalog)
			r.Get("/products", h.Product.ListProducts)
			r.Post("/products", h.Product.AddProduct)
			r.Get("/products/{product_id}", h.Product.GetProduct)
		})
		r.Route("/orders/{orders_id}", func(r chi.Router) {
			r.Put("/", h.Orders.CreateOrders)
			r.Get("/", h.Orders.ListOrders)
			r.Post("/", h.Orders.AddOrder)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.Checkout.Checkout)
			r.Get("/{run_id}", h.Checkout.GetRun)
		})
	})

	return r
}
