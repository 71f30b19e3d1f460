package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrdersService interface {
	CreateOrders(ctx context.Context, ordersID string) error
	AddOrder(ctx context.Context, ordersID string, order *domain.Order) (bool, error)
	GetOrders(ctx context.Context, ordersID string) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrdersService
	timeout time.Duration
}

func NewOrdersHandler(orders OrdersService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrdersResponseDTO struct {
	OrdersID string          `json:"orders_id"`
	Orders   []*domain.Order `json:"orders"`
}

type AddOrderResponseDTO struct {
	OrderID  string `json:"order_id"`
	Inserted bool   `json:"inserted"`
}

// PUT /api/v1/orders/{orders_id}
func (h *OrdersHandler) CreateOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ordersID := chi.URLParam(r, "orders_id")
	if err := h.orders.CreateOrders(ctx, ordersID); err != nil {
		handleGRPCError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"orders_id": ordersID})
}

// GET /api/v1/orders/{orders_id}
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ordersID := chi.URLParam(r, "orders_id")
	orders, err := h.orders.GetOrders(ctx, ordersID)
	if err != nil {
		handleGRPCError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, OrdersResponseDTO{OrdersID: ordersID, Orders: orders})
}

// POST /api/v1/orders/{orders_id}
func (h *OrdersHandler) AddOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var order domain.Order
	if !decodeBody(w, r, &order) {
		return
	}

	inserted, err := h.orders.AddOrder(ctx, chi.URLParam(r, "orders_id"), &order)
	if err != nil {
		handleGRPCError(w, err)
		return
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	respondJSON(w, status, AddOrderResponseDTO{OrderID: order.OrderID, Inserted: inserted})
}
