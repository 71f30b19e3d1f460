package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	CreateCart(ctx context.Context, cartID string) error
	AddItemCreatingCart(ctx context.Context, cartID, productID string, quantity int) error
	GetItems(ctx context.Context, cartID string) ([]domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	EmptyCart(ctx context.Context, cartID string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	CartID        string            `json:"cart_id"`
	Items         []domain.CartItem `json:"items"`
	SubtotalCents int64             `json:"subtotal_cents"`
}

// PUT /api/v1/carts/{cart_id}
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")
	if err := h.carts.CreateCart(ctx, cartID); err != nil {
		handleGRPCError(w, err)
		return
	}
	h.respondCart(ctx, w, cartID, http.StatusOK)
}

// POST /api/v1/carts/{cart_id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	cartID := chi.URLParam(r, "cart_id")
	if err := h.carts.AddItemCreatingCart(ctx, cartID, req.ProductID, req.Quantity); err != nil {
		handleGRPCError(w, err)
		return
	}
	h.respondCart(ctx, w, cartID, http.StatusCreated)
}

// GET /api/v1/carts/{cart_id}/items
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respondCart(ctx, w, chi.URLParam(r, "cart_id"), http.StatusOK)
}

// PUT /api/v1/carts/{cart_id}/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	cartID := chi.URLParam(r, "cart_id")
	if err := h.carts.UpdateItemQuantity(ctx, cartID, chi.URLParam(r, "product_id"), req.Quantity); err != nil {
		handleGRPCError(w, err)
		return
	}
	h.respondCart(ctx, w, cartID, http.StatusOK)
}

// DELETE /api/v1/carts/{cart_id}/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")
	if err := h.carts.RemoveItem(ctx, cartID, chi.URLParam(r, "product_id")); err != nil {
		handleGRPCError(w, err)
		return
	}
	h.respondCart(ctx, w, cartID, http.StatusOK)
}

// DELETE /api/v1/carts/{cart_id}/items
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")
	if err := h.carts.EmptyCart(ctx, cartID); err != nil {
		handleGRPCError(w, err)
		return
	}
	h.respondCart(ctx, w, cartID, http.StatusOK)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, cartID string, status int) {
	items, err := h.carts.GetItems(ctx, cartID)
	if err != nil {
		handleGRPCError(w, err)
		return
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	respondJSON(w, status, CartResponseDTO{
		CartID:        cartID,
		Items:         items,
		SubtotalCents: domain.SubtotalCents(items),
	})
}
