// Package providers holds the contracts of the external shipping and payment
// systems the checkout calls, plus mock implementations of them.
package providers

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrCardDeclined        = errors.New("card declined")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

type ShippingQuote struct {
	CostCents     int64  `json:"cost_cents"`
	Carrier       string `json:"carrier"`
	EstimatedDays int    `json:"estimated_days"`
}

type ChargeResult struct {
	TransactionID string `json:"transaction_id"`
	LastFour      string `json:"last_four"`
	AmountCents   int64  `json:"amount_cents"`
}

type Shipment struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Status         string `json:"status"`
}

type ShippingQuoter interface {
	Quote(ctx context.Context, items []domain.CartItem, address domain.Address) (ShippingQuote, error)
}

// PaymentCharger is not idempotent: every successful call moves money.
type PaymentCharger interface {
	Charge(ctx context.Context, card domain.CreditCard, amountCents int64) (ChargeResult, error)
}

// Shipper is not idempotent: every successful call dispatches a parcel.
type Shipper interface {
	Ship(ctx context.Context, items []domain.CartItem, address domain.Address, carrier string) (Shipment, error)
}
