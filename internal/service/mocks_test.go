package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/providers"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const testCatalogID = "main"

type MockQuoter struct {
	Calls     int32
	CostCents int64
	Err       error
}

func (m *MockQuoter) Quote(_ context.Context, _ []domain.CartItem, _ domain.Address) (providers.ShippingQuote, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.Err != nil {
		return providers.ShippingQuote{}, m.Err
	}
	return providers.ShippingQuote{CostCents: m.CostCents, Carrier: providers.MockCarrier, EstimatedDays: 5}, nil
}

type MockCharger struct {
	Calls int32
	Err   error
}

func (m *MockCharger) Charge(_ context.Context, card domain.CreditCard, amountCents int64) (providers.ChargeResult, error) {
	n := atomic.AddInt32(&m.Calls, 1)
	if m.Err != nil {
		return providers.ChargeResult{}, m.Err
	}
	return providers.ChargeResult{
		TransactionID: fmt.Sprintf("txn_%06d", n),
		LastFour:      card.LastFour(),
		AmountCents:   amountCents,
	}, nil
}

type MockShipper struct {
	Calls int32
	Err   error
}

func (m *MockShipper) Ship(_ context.Context, _ []domain.CartItem, _ domain.Address, carrier string) (providers.Shipment, error) {
	n := atomic.AddInt32(&m.Calls, 1)
	if m.Err != nil {
		return providers.Shipment{}, m.Err
	}
	return providers.Shipment{TrackingNumber: fmt.Sprintf("TRACK%010d", n), Carrier: carrier, Status: "shipped"}, nil
}

type testEnv struct {
	repo     *repository.Repository
	journal  *journal.Journal
	catalog  *CatalogService
	carts    *CartService
	orders   *OrdersService
	checkout *CheckoutServiceImpl
	quoter   *MockQuoter
	charger  *MockCharger
	shipper  *MockShipper
	logger   *zap.Logger
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())
	t.Cleanup(func() { _ = repo.Close() })

	logger := zaptest.NewLogger(t)
	env := &testEnv{
		repo:    repo,
		journal: journal.New(repo.DB(), logger),
		quoter:  &MockQuoter{CostCents: 300},
		charger: &MockCharger{},
		shipper: &MockShipper{},
		logger:  logger,
	}
	env.catalog = NewCatalogService(repo, logger)
	env.carts = NewCartService(repo, env.catalog, testCatalogID, logger)
	env.orders = NewOrdersService(repo, logger)
	env.checkout = NewCheckoutService(
		repo,
		env.journal,
		env.carts,
		env.orders,
		NewShippingHandler(env.quoter, env.shipper, time.Second),
		NewPaymentHandler(env.charger, time.Second),
		logger,
	)

	require.NoError(t, env.catalog.CreateCatalog(context.Background(), testCatalogID))
	return env
}

func (e *testEnv) addProduct(t *testing.T, id string, priceCents int64) {
	t.Helper()
	require.NoError(t, e.catalog.AddProduct(context.Background(), testCatalogID, &domain.Product{
		ID:            id,
		Name:          "Product " + id,
		Description:   "Description of " + id,
		Picture:       "/static/img/products/" + id + ".jpg",
		PriceCents:    priceCents,
		Categories:    []string{"test"},
		StockQuantity: 10,
	}))
}

func (e *testEnv) cartWith(t *testing.T, cartID string, lines map[string]int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.carts.CreateCart(ctx, cartID))
	for productID, qty := range lines {
		require.NoError(t, e.carts.AddItem(ctx, cartID, productID, qty))
	}
}
