package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type CartServiceMock struct {
	items   map[string][]domain.CartItem
	created []string
	err     error
}

func (m *CartServiceMock) CreateCart(_ context.Context, cartID string) error {
	m.created = append(m.created, cartID)
	return nil
}

func (m *CartServiceMock) AddItemCreatingCart(_ context.Context, cartID, productID string, quantity int) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, cartID)
	m.items[cartID] = append(m.items[cartID], domain.CartItem{ProductID: productID, Quantity: quantity, PriceCents: 500})
	return nil
}

func (m *CartServiceMock) GetItems(_ context.Context, cartID string) ([]domain.CartItem, error) {
	items, ok := m.items[cartID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "cart %s not constructed", cartID)
	}
	return items, nil
}

func (m *CartServiceMock) UpdateItemQuantity(_ context.Context, cartID, productID string, quantity int) error {
	if m.err != nil {
		return m.err
	}
	for i := range m.items[cartID] {
		if m.items[cartID][i].ProductID == productID {
			m.items[cartID][i].Quantity = quantity
		}
	}
	return nil
}

func (m *CartServiceMock) RemoveItem(_ context.Context, cartID, productID string) error {
	return m.err
}

func (m *CartServiceMock) EmptyCart(_ context.Context, cartID string) error {
	if m.err != nil {
		return m.err
	}
	m.items[cartID] = []domain.CartItem{}
	return nil
}

type CatalogServiceMock struct {
	products map[string]*domain.Product
	searched string
	err      error
}

func (m *CatalogServiceMock) CreateCatalog(context.Context, string) error { return nil }

func (m *CatalogServiceMock) AddProduct(_ context.Context, _ string, product *domain.Product) error {
	if _, ok := m.products[product.ID]; ok {
		return status.Errorf(codes.AlreadyExists, "product %s already exists", product.ID)
	}
	m.products[product.ID] = product
	return nil
}

func (m *CatalogServiceMock) GetProduct(_ context.Context, _, productID string) (*domain.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "product %s not found", productID)
	}
	return p, nil
}

func (m *CatalogServiceMock) ListProducts(context.Context, string) ([]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *CatalogServiceMock) SearchProducts(_ context.Context, _, query string) ([]*domain.Product, error) {
	m.searched = query
	return nil, nil
}

type OrdersServiceMock struct {
	orders map[string][]*domain.Order
}

func (m *OrdersServiceMock) CreateOrders(_ context.Context, ordersID string) error {
	if _, ok := m.orders[ordersID]; !ok {
		m.orders[ordersID] = nil
	}
	return nil
}

func (m *OrdersServiceMock) AddOrder(_ context.Context, ordersID string, order *domain.Order) (bool, error) {
	for _, o := range m.orders[ordersID] {
		if o.OrderID == order.OrderID {
			return false, nil
		}
	}
	m.orders[ordersID] = append(m.orders[ordersID], order)
	return true, nil
}

func (m *OrdersServiceMock) GetOrders(_ context.Context, ordersID string) ([]*domain.Order, error) {
	orders, ok := m.orders[ordersID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "orders %s not constructed", ordersID)
	}
	return orders, nil
}

type CheckoutServiceMock struct {
	request *domain.CheckoutRequest
	err     error
}

func (m *CheckoutServiceMock) Run(_ context.Context, request *domain.CheckoutRequest) (*domain.Confirmation, error) {
	if request.RunID == "" {
		request.RunID = "generated-run"
	}
	m.request = request
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Confirmation{
		RunID:         request.RunID,
		Order:         domain.Order{OrderID: "order_1", SubtotalCents: 1000, ShippingCostCents: 300, TotalCents: 1300},
		CardLastFour:  request.Card.LastFour(),
		ShipmentState: "shipped",
	}, nil
}

func (m *CheckoutServiceMock) Resume(context.Context, string) (*domain.Confirmation, error) {
	return nil, errors.New("not implemented")
}

func (m *CheckoutServiceMock) GetRun(_ context.Context, runID string) (*service.RunStatus, error) {
	if runID != "run-1" {
		return nil, status.Errorf(codes.NotFound, "checkout run %s not found", runID)
	}
	return &service.RunStatus{ID: runID, Status: domain.CheckoutStatusCompleted, Attempts: 1}, nil
}

type testServer struct {
	carts    *CartServiceMock
	catalog  *CatalogServiceMock
	orders   *OrdersServiceMock
	checkout *CheckoutServiceMock
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		carts:    &CartServiceMock{items: map[string][]domain.CartItem{}},
		catalog:  &CatalogServiceMock{products: map[string]*domain.Product{}},
		orders:   &OrdersServiceMock{orders: map[string][]*domain.Order{}},
		checkout: &CheckoutServiceMock{},
	}
	timeout := 5 * time.Second
	s.handler = NewRouter(Handlers{
		Cart:     NewCartHandler(s.carts, timeout),
		Product:  NewProductHandler(s.catalog, timeout),
		Orders:   NewOrdersHandler(s.orders, timeout),
		Checkout: NewCheckoutHandler(s.checkout, timeout),
	}, timeout, zaptest.NewLogger(t))
	return s
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	recorder := s.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-Id"))
}

func TestAddItem_CreatesCart(t *testing.T) {
	s := newTestServer(t)
	recorder := s.do(t, http.MethodPost, "/api/v1/carts/user-1/items", `{"product_id":"A","quantity":2}`)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, []string{"user-1"}, s.carts.created)

	response := decode[CartResponseDTO](t, recorder)
	assert.Equal(t, "user-1", response.CartID)
	require.Len(t, response.Items, 1)
	assert.Equal(t, int64(1000), response.SubtotalCents)
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{`, "invalid_request"},
		{"missing product", `{"quantity":1}`, "invalid_product_id"},
		{"zero quantity", `{"product_id":"A","quantity":0}`, "invalid_quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			recorder := s.do(t, http.MethodPost, "/api/v1/carts/user-1/items", tt.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, recorder).Code)
			assert.Empty(t, s.carts.created)
		})
	}
}

func TestAddItem_UnknownProduct(t *testing.T) {
	s := newTestServer(t)
	s.carts.err = status.Error(codes.NotFound, "product Z not found")

	recorder := s.do(t, http.MethodPost, "/api/v1/carts/user-1/items", `{"product_id":"Z","quantity":1}`)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	response := decode[ErrorResponse](t, recorder)
	assert.Equal(t, "not_found", response.Code)
	assert.Equal(t, "product Z not found", response.Error)
	assert.Empty(t, s.carts.created)
}

func TestGetCart_NotConstructed(t *testing.T) {
	s := newTestServer(t)
	recorder := s.do(t, http.MethodGet, "/api/v1/carts/ghost/items", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCartLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.carts.items["user-1"] = []domain.CartItem{{ProductID: "A", Quantity: 1, PriceCents: 500}}

	recorder := s.do(t, http.MethodPut, "/api/v1/carts/user-1/items/A", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, int64(1500), decode[CartResponseDTO](t, recorder).SubtotalCents)

	recorder = s.do(t, http.MethodDelete, "/api/v1/carts/user-1/items/A", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = s.do(t, http.MethodDelete, "/api/v1/carts/user-1/items", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, decode[CartResponseDTO](t, recorder).Items)
}

func TestUpdateQuantity_ServiceRejects(t *testing.T) {
	s := newTestServer(t)
	s.carts.items["user-1"] = []domain.CartItem{}
	s.carts.err = status.Error(codes.InvalidArgument, "quantity must be at least 1")

	recorder := s.do(t, http.MethodPut, "/api/v1/carts/user-1/items/A", `{"quantity":2}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_argument", decode[ErrorResponse](t, recorder).Code)
}

func TestProducts(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodPost, "/api/v1/catalogs/main/products",
		`{"id":"OLJCESPC7Z","name":"Sunglasses","price_cents":1999,"categories":["accessories"]}`)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = s.do(t, http.MethodPost, "/api/v1/catalogs/main/products", `{"id":"OLJCESPC7Z","name":"Again"}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	recorder = s.do(t, http.MethodGet, "/api/v1/catalogs/main/products/OLJCESPC7Z", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Sunglasses", decode[domain.Product](t, recorder).Name)

	recorder = s.do(t, http.MethodGet, "/api/v1/catalogs/main/products/missing", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = s.do(t, http.MethodGet, "/api/v1/catalogs/main/products", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decode[ProductListResponseDTO](t, recorder).Products, 1)
}

func TestListProducts_Search(t *testing.T) {
	s := newTestServer(t)
	recorder := s.do(t, http.MethodGet, "/api/v1/catalogs/main/products?query=sun+glass", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "sun glass", s.catalog.searched)
	assert.NotNil(t, decode[ProductListResponseDTO](t, recorder).Products)
}

func TestListProducts_InternalError(t *testing.T) {
	s := newTestServer(t)
	s.catalog.err = fmt.Errorf("query ordered map: %w", errors.New("disk I/O error"))

	recorder := s.do(t, http.MethodGet, "/api/v1/catalogs/main/products", "")

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "internal server error", decode[ErrorResponse](t, recorder).Error)
}

func TestOrders(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodGet, "/api/v1/orders/user-1", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = s.do(t, http.MethodPut, "/api/v1/orders/user-1", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	body := `{"order_id":"order_1","subtotal_cents":1000,"shipping_cost_cents":300,"total_cents":1300}`
	recorder = s.do(t, http.MethodPost, "/api/v1/orders/user-1", body)
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.True(t, decode[AddOrderResponseDTO](t, recorder).Inserted)

	recorder = s.do(t, http.MethodPost, "/api/v1/orders/user-1", body)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.False(t, decode[AddOrderResponseDTO](t, recorder).Inserted)

	recorder = s.do(t, http.MethodGet, "/api/v1/orders/user-1", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	response := decode[OrdersResponseDTO](t, recorder)
	require.Len(t, response.Orders, 1)
	assert.Equal(t, int64(1300), response.Orders[0].TotalCents)
}

const checkoutBody = `{
	"cart_id": "user-1",
	"credit_card": {"number": "4432801561520454", "cvv": "672", "expiration_year": 2030, "expiration_month": 1},
	"address": {"street_address": "1600 Amphitheatre Parkway", "city": "Mountain View", "state": "CA", "country": "United States", "zip_code": "94043"}
}`

func TestCheckout_UsesIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	recorder := s.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, IdempotencyKeyHeader, "run-1")

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "run-1", recorder.Header().Get(RunIDHeader))
	assert.Equal(t, "run-1", s.checkout.request.RunID)
	assert.Equal(t, "user-1", s.checkout.request.OrdersID)

	confirmation := decode[domain.Confirmation](t, recorder)
	assert.Equal(t, "0454", confirmation.CardLastFour)
	assert.Equal(t, int64(1300), confirmation.Order.TotalCents)
}

func TestCheckout_GeneratedRunID(t *testing.T) {
	s := newTestServer(t)
	recorder := s.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "generated-run", recorder.Header().Get(RunIDHeader))
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		httpStatus int
		code       string
	}{
		{"empty cart", service.ErrEmptyCart, http.StatusConflict, "aborted"},
		{"provider outage", &service.ProviderError{Step: "Charge credit card", Err: errors.New("timeout")}, http.StatusServiceUnavailable, "service_unavailable"},
		{"recorded failure", status.Error(codes.FailedPrecondition, "card declined"), http.StatusBadRequest, "failed_precondition"},
		{"invalid", status.Error(codes.InvalidArgument, "cart_id is required"), http.StatusBadRequest, "invalid_argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.checkout.err = tt.err

			recorder := s.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, IdempotencyKeyHeader, "run-9")

			assert.Equal(t, tt.httpStatus, recorder.Code)
			assert.Equal(t, "run-9", recorder.Header().Get(RunIDHeader))
			assert.Equal(t, tt.code, decode[ErrorResponse](t, recorder).Code)
		})
	}
}

func TestGetRun(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodGet, "/api/v1/checkout/run-1", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	run := decode[service.RunStatus](t, recorder)
	assert.Equal(t, domain.CheckoutStatusCompleted, run.Status)

	recorder = s.do(t, http.MethodGet, "/api/v1/checkout/run-2", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
