package service

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/providers"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	StepSnapshotCart    = "Snapshot cart"
	StepShippingQuote   = "Get shipping quote"
	StepChargeCard      = "Charge credit card"
	StepShipOrder       = "Ship order"
	StepGenerateOrderID = "Generate order ID"
)

type orderRef struct {
	OrderID   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

// execute runs the checkout steps in order. Each journaled step is invoked at
// most until its outcome is committed; after that every attempt reuses it.
func (s *CheckoutServiceImpl) execute(ctx context.Context, request *domain.CheckoutRequest) (*domain.Confirmation, error) {
	runID := request.RunID

	items, err := journal.AtLeastOnce(ctx, s.journal, runID, StepSnapshotCart, func(ctx context.Context) ([]domain.CartItem, error) {
		return s.snapshotCart(ctx, request.CartID)
	})
	if err != nil {
		return nil, err
	}

	subtotal := domain.SubtotalCents(items)

	quote, err := journal.AtLeastOnce(ctx, s.journal, runID, StepShippingQuote, func(ctx context.Context) (providers.ShippingQuote, error) {
		return s.shipping.quote(ctx, items, request.Address)
	})
	if err != nil {
		return nil, err
	}

	total := subtotal + quote.CostCents

	charge, err := journal.AtLeastOnce(ctx, s.journal, runID, StepChargeCard, func(ctx context.Context) (providers.ChargeResult, error) {
		return s.payment.charge(ctx, request.Card, total)
	})
	if err != nil {
		return nil, err
	}

	shipment, err := journal.AtLeastOnce(ctx, s.journal, runID, StepShipOrder, func(ctx context.Context) (providers.Shipment, error) {
		return s.shipping.ship(ctx, items, request.Address, quote.Carrier)
	})
	if err != nil {
		return nil, err
	}

	ref, err := journal.AtLeastOnce(ctx, s.journal, runID, StepGenerateOrderID, func(context.Context) (orderRef, error) {
		return orderRef{OrderID: "order_" + uuid.NewString(), CreatedAt: time.Now().UTC()}, nil
	})
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		OrderID:           ref.OrderID,
		Items:             items,
		TransactionID:     charge.TransactionID,
		SubtotalCents:     subtotal,
		ShippingCostCents: quote.CostCents,
		TotalCents:        total,
		TrackingNumber:    shipment.TrackingNumber,
		Carrier:           shipment.Carrier,
		CreatedAt:         ref.CreatedAt,
		ShippingAddress:   request.Address,
	}

	if err := s.orders.CreateOrders(ctx, request.OrdersID); err != nil {
		return nil, err
	}
	if _, err := s.orders.AddOrder(ctx, request.OrdersID, order); err != nil {
		return nil, err
	}

	if err := s.carts.EmptyCart(ctx, request.CartID); err != nil {
		return nil, err
	}

	return &domain.Confirmation{
		RunID:         runID,
		Order:         *order,
		CardLastFour:  charge.LastFour,
		ShipmentState: shipment.Status,
	}, nil
}

// snapshotCart loads the items to check out. An empty or never created cart
// aborts the checkout before any step is recorded.
func (s *CheckoutServiceImpl) snapshotCart(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	items, err := s.carts.GetItems(ctx, cartID)
	if status.Code(err) == codes.NotFound {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}
