package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	RunIDHeader          = "X-Checkout-Run-ID"
)

type CheckoutHandler struct {
	checkout service.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	CartID   string            `json:"cart_id"`
	OrdersID string            `json:"orders_id"`
	Card     domain.CreditCard `json:"credit_card"`
	Address  domain.Address    `json:"address"`
}

// POST /api/v1/checkout
//
// The Idempotency-Key header names the run; retrying with the same key
// continues or replays that run instead of starting a new one.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}

	request := &domain.CheckoutRequest{
		RunID:    r.Header.Get(IdempotencyKeyHeader),
		CartID:   req.CartID,
		OrdersID: req.OrdersID,
		Card:     req.Card,
		Address:  req.Address,
	}
	if request.OrdersID == "" {
		request.OrdersID = request.CartID
	}

	confirmation, err := h.checkout.Run(ctx, request)
	if request.RunID != "" {
		w.Header().Set(RunIDHeader, request.RunID)
	}
	if err != nil {
		handleGRPCError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, confirmation)
}

// GET /api/v1/checkout/{run_id}
func (h *CheckoutHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.checkout.GetRun(ctx, chi.URLParam(r, "run_id"))
	if err != nil {
		handleGRPCError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}
