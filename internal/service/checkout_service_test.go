package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newCheckoutRequest(runID string) *domain.CheckoutRequest {
	return &domain.CheckoutRequest{
		RunID:    runID,
		CartID:   "user-1",
		OrdersID: "user-1",
		Card: domain.CreditCard{
			Number:          "4432801561520454",
			CVV:             "672",
			ExpirationYear:  2030,
			ExpirationMonth: 1,
		},
		Address: domain.Address{
			StreetAddress: "1600 Amphitheatre Parkway",
			City:          "Mountain View",
			State:         "CA",
			Country:       "United States",
			ZipCode:       "94043",
		},
	}
}

func TestCheckout_PricesAndRecordsOrder(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.addProduct(t, "A", 500)
	env.cartWith(t, "user-1", map[string]int{"A": 2})

	conf, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", conf.RunID)
	assert.Equal(t, int64(1000), conf.Order.SubtotalCents)
	assert.Equal(t, int64(300), conf.Order.ShippingCostCents)
	assert.Equal(t, int64(1300), conf.Order.TotalCents)
	assert.Equal(t, "txn_000001", conf.Order.TransactionID)
	assert.Equal(t, "TRACK0000000001", conf.Order.TrackingNumber)
	assert.Equal(t, providers.MockCarrier, conf.Order.Carrier)
	assert.Equal(t, "0454", conf.CardLastFour)
	assert.Equal(t, "shipped", conf.ShipmentState)
	assert.Regexp(t, `^order_[0-9a-f-]{36}$`, conf.Order.OrderID)

	orders, err := env.orders.GetOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, conf.Order.OrderID, orders[0].OrderID)
	assert.Equal(t, int64(1000), orders[0].SubtotalCents)
	assert.Equal(t, int64(300), orders[0].ShippingCostCents)
	assert.Equal(t, int64(1300), orders[0].TotalCents)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, 2, orders[0].Items[0].Quantity)

	items, err := env.carts.GetItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	run, err := env.checkout.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusCompleted, run.Status)
	assert.Equal(t, conf.Order.OrderID, run.OrderID)
	assert.Equal(t, 1, run.Attempts)
	require.NotNil(t, run.Confirmation)
	assert.Equal(t, conf.Order.OrderID, run.Confirmation.Order.OrderID)
	assert.Len(t, run.Steps, 5)
}

func TestCheckout_EmptyCartAborts(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.carts.CreateCart(ctx, "user-1"))

	_, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	assert.Equal(t, codes.Aborted, status.Code(err))
	assert.ErrorIs(t, err, ErrEmptyCart)

	steps, err := env.journal.Steps(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, steps)

	assert.Equal(t, int32(0), env.quoter.Calls)
	assert.Equal(t, int32(0), env.charger.Calls)
	assert.Equal(t, int32(0), env.shipper.Calls)

	_, err = env.orders.GetOrders(ctx, "user-1")
	assert.Equal(t, codes.NotFound, status.Code(err), "no orders ledger is created")

	run, err := env.checkout.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusFailed, run.Status)
	assert.Contains(t, run.LastError, "cart is empty")
}

func TestCheckout_UnconstructedCartAborts(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.checkout.Run(context.Background(), newCheckoutRequest("run-1"))
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestCheckout_Validation(t *testing.T) {
	env := setupTestEnv(t)

	req := newCheckoutRequest("run-1")
	req.Card.Number = ""
	_, err := env.checkout.Run(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req = newCheckoutRequest("run-1")
	req.CartID = ""
	_, err = env.checkout.Run(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCheckout_GeneratesRunID(t *testing.T) {
	env := setupTestEnv(t)
	env.addProduct(t, "A", 500)
	env.cartWith(t, "user-1", map[string]int{"A": 1})

	req := newCheckoutRequest("")
	conf, err := env.checkout.Run(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, conf.RunID)
	assert.Equal(t, req.RunID, conf.RunID)
}

func TestCheckout_RepeatedRunIDReturnsStoredConfirmation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.addProduct(t, "A", 500)
	env.cartWith(t, "user-1", map[string]int{"A": 2})

	first, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	require.NoError(t, err)

	// the cart is refilled but the completed run must not be executed again
	env.cartWith(t, "user-1", map[string]int{"A": 5})
	second, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	require.NoError(t, err)

	assert.Equal(t, first.Order.OrderID, second.Order.OrderID)
	assert.Equal(t, first.Order.TotalCents, second.Order.TotalCents)
	assert.Equal(t, int32(1), env.quoter.Calls)
	assert.Equal(t, int32(1), env.charger.Calls)
	assert.Equal(t, int32(1), env.shipper.Calls)

	orders, err := env.orders.GetOrders(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckout_ProviderFailureResumesWithoutRecharging(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.addProduct(t, "A", 500)
	env.cartWith(t, "user-1", map[string]int{"A": 2})

	env.shipper.Err = providers.ErrProviderUnavailable
	_, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, StepShipOrder, providerErr.Step)

	run, err := env.checkout.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusRunning, run.Status)
	assert.Contains(t, run.LastError, "provider unavailable")
	assert.Len(t, run.Steps, 3, "snapshot, quote and charge are committed")

	_, err = env.orders.GetOrders(ctx, "user-1")
	assert.Equal(t, codes.NotFound, status.Code(err))

	env.shipper.Err = nil
	conf, err := env.checkout.Resume(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), env.quoter.Calls)
	assert.Equal(t, int32(1), env.charger.Calls)
	assert.Equal(t, int32(2), env.shipper.Calls)
	assert.Equal(t, "txn_000001", conf.Order.TransactionID)
	assert.Equal(t, int64(1300), conf.Order.TotalCents)

	run, err = env.checkout.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Attempts)
}

func TestCheckout_ReplayUsesCartSnapshot(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.addProduct(t, "A", 500)
	env.addProduct(t, "B", 100)
	env.cartWith(t, "user-1", map[string]int{"A": 2})

	env.charger.Err = errors.New("connection reset")
	_, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	assert.Equal(t, codes.Unavailable, status.Code(err))

	// the cart changes while the run is parked
	require.NoError(t, env.carts.AddItem(ctx, "user-1", "B", 3))

	env.charger.Err = nil
	conf, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), conf.Order.SubtotalCents)
	assert.Len(t, conf.Order.Items, 1)
}

func TestCheckout_DeclinedCardFailsPermanently(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.addProduct(t, "A", 500)
	env.cartWith(t, "user-1", map[string]int{"A": 1})

	env.charger.Err = fmt.Errorf("charge card ending 0454: %w", providers.ErrCardDeclined)
	_, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	var failure *journal.RecordedFailure
	assert.ErrorAs(t, err, &failure)

	env.charger.Err = nil
	_, err = env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = env.checkout.Resume(ctx, "run-1")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, int32(1), env.charger.Calls)
	assert.Equal(t, int32(0), env.shipper.Calls)

	run, err := env.checkout.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusFailed, run.Status)

	items, err := env.carts.GetItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "a failed checkout keeps the cart")
}

func TestCheckout_ResumeUnknownRun(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.checkout.Resume(context.Background(), "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = env.checkout.GetRun(context.Background(), "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRecoverer_DrivesStuckRuns(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.addProduct(t, "A", 500)
	env.cartWith(t, "user-1", map[string]int{"A": 2})

	env.quoter.Err = providers.ErrProviderUnavailable
	_, err := env.checkout.Run(ctx, newCheckoutRequest("run-1"))
	require.Error(t, err)

	// a negative stale window makes every running run eligible
	recoverer := NewRecoverer(env.repo, env.checkout, time.Hour, -time.Minute, env.logger)

	recoverer.recoverStuckRuns(ctx)
	run, err := env.checkout.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusRunning, run.Status, "a failing run stays parked")
	assert.Equal(t, 2, run.Attempts)

	env.quoter.Err = nil
	recoverer.recoverStuckRuns(ctx)
	run, err = env.checkout.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusCompleted, run.Status)
	assert.Equal(t, int32(1), env.charger.Calls)

	// settled runs are no longer picked up
	recoverer.recoverStuckRuns(ctx)
	assert.Equal(t, int32(1), env.charger.Calls)
}

func TestRecoverer_StopsOnContextCancel(t *testing.T) {
	env := setupTestEnv(t)
	recoverer := NewRecoverer(env.repo, env.checkout, time.Millisecond, time.Minute, env.logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		recoverer.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recoverer did not stop")
	}
}
