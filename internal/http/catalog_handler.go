package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	CreateCatalog(ctx context.Context, catalogID string) error
	AddProduct(ctx context.Context, catalogID string, product *domain.Product) error
	GetProduct(ctx context.Context, catalogID, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, catalogID string) ([]*domain.Product, error)
	SearchProducts(ctx context.Context, catalogID, query string) ([]*domain.Product, error)
}

type ProductHandler struct {
	catalog CatalogService
	timeout time.Duration
}

func NewProductHandler(catalog CatalogService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductListResponseDTO struct {
	Products []*domain.Product `json:"products"`
}

// PUT /api/v1/catalogs/{catalog_id}
func (h *ProductHandler) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	catalogID := chi.URLParam(r, "catalog_id")
	if err := h.catalog.CreateCatalog(ctx, catalogID); err != nil {
		handleGRPCError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"catalog_id": catalogID})
}

// GET /api/v1/catalogs/{catalog_id}/products[?query=]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	catalogID := chi.URLParam(r, "catalog_id")

	var (
		products []*domain.Product
		err      error
	)
	if query := r.URL.Query().Get("query"); query != "" {
		products, err = h.catalog.SearchProducts(ctx, catalogID, query)
	} else {
		products, err = h.catalog.ListProducts(ctx, catalogID)
	}
	if err != nil {
		handleGRPCError(w, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, ProductListResponseDTO{Products: products})
}

// GET /api/v1/catalogs/{catalog_id}/products/{product_id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "catalog_id"), chi.URLParam(r, "product_id"))
	if err != nil {
		handleGRPCError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// POST /api/v1/catalogs/{catalog_id}/products
func (h *ProductHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var product domain.Product
	if !decodeBody(w, r, &product) {
		return
	}
	if err := h.catalog.AddProduct(ctx, chi.URLParam(r, "catalog_id"), &product); err != nil {
		handleGRPCError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &product)
}
