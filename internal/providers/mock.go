package providers

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

const (
	MockCarrier      = "Mock Shipping Co."
	baseShippingCost = 500
	costPerPound     = 50
	poundsPerItem    = 2
)

type MockShipping struct {
	decider Decider
	logger  *zap.Logger
}

func NewMockShipping(decider Decider, logger *zap.Logger) *MockShipping {
	if decider == nil {
		decider = FixedDecider(OutcomeSuccess)
	}
	return &MockShipping{decider: decider, logger: logger}
}

// Quote charges a flat base plus a per-pound rate, weighing every line at two pounds.
func (m *MockShipping) Quote(_ context.Context, items []domain.CartItem, _ domain.Address) (ShippingQuote, error) {
	if m.decider.Decide() != OutcomeSuccess {
		return ShippingQuote{}, fmt.Errorf("shipping quote: %w", ErrProviderUnavailable)
	}

	weight := int64(len(items) * poundsPerItem)
	return ShippingQuote{
		CostCents:     baseShippingCost + weight*costPerPound,
		Carrier:       MockCarrier,
		EstimatedDays: 3 + rand.Intn(5),
	}, nil
}

func (m *MockShipping) Ship(_ context.Context, items []domain.CartItem, address domain.Address, carrier string) (Shipment, error) {
	if m.decider.Decide() != OutcomeSuccess {
		return Shipment{}, fmt.Errorf("ship order: %w", ErrProviderUnavailable)
	}

	shipment := Shipment{
		TrackingNumber: fmt.Sprintf("TRACK%d", 1_000_000_000+rand.Int63n(9_000_000_000)),
		Carrier:        carrier,
		Status:         "shipped",
	}
	m.logger.Info("order shipped",
		zap.String("tracking_number", shipment.TrackingNumber),
		zap.Int("lines", len(items)),
		zap.String("city", address.City))
	return shipment, nil
}

type MockPayment struct {
	decider Decider
	logger  *zap.Logger
}

func NewMockPayment(decider Decider, logger *zap.Logger) *MockPayment {
	if decider == nil {
		decider = FixedDecider(OutcomeSuccess)
	}
	return &MockPayment{decider: decider, logger: logger}
}

func (m *MockPayment) Charge(_ context.Context, card domain.CreditCard, amountCents int64) (ChargeResult, error) {
	switch m.decider.Decide() {
	case OutcomeDeclined:
		return ChargeResult{}, fmt.Errorf("charge card ending %s: %w", card.LastFour(), ErrCardDeclined)
	case OutcomeUnavailable:
		return ChargeResult{}, fmt.Errorf("charge card: %w", ErrProviderUnavailable)
	}

	result := ChargeResult{
		TransactionID: fmt.Sprintf("txn_%06d", 100_000+rand.Intn(900_000)),
		LastFour:      card.LastFour(),
		AmountCents:   amountCents,
	}
	m.logger.Info("card charged",
		zap.String("transaction_id", result.TransactionID),
		zap.Int64("amount_cents", amountCents))
	return result, nil
}

// StalledPayment never completes a charge; calls block until their context
// ends. It parks checkouts in front of the payment step.
type StalledPayment struct{}

func (StalledPayment) Charge(ctx context.Context, _ domain.CreditCard, _ int64) (ChargeResult, error) {
	<-ctx.Done()
	return ChargeResult{}, fmt.Errorf("charge card: %w: %w", ErrProviderUnavailable, ctx.Err())
}
