package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/providers"
)

type ShippingHandler struct {
	quoter  providers.ShippingQuoter
	shipper providers.Shipper
	timeout time.Duration
}

func NewShippingHandler(quoter providers.ShippingQuoter, shipper providers.Shipper, timeout time.Duration) *ShippingHandler {
	return &ShippingHandler{
		quoter:  quoter,
		shipper: shipper,
		timeout: timeout,
	}
}

func (h *ShippingHandler) quote(ctx context.Context, items []domain.CartItem, address domain.Address) (providers.ShippingQuote, error) {
	quoteCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	quote, err := h.quoter.Quote(quoteCtx, items, address)
	if err != nil {
		return quote, &ProviderError{Step: StepShippingQuote, Err: err}
	}
	return quote, nil
}

func (h *ShippingHandler) ship(ctx context.Context, items []domain.CartItem, address domain.Address, carrier string) (providers.Shipment, error) {
	shipCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	shipment, err := h.shipper.Ship(shipCtx, items, address, carrier)
	if err != nil {
		return shipment, &ProviderError{Step: StepShipOrder, Err: err}
	}
	return shipment, nil
}

type PaymentHandler struct {
	charger providers.PaymentCharger
	timeout time.Duration
}

func NewPaymentHandler(charger providers.PaymentCharger, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		charger: charger,
		timeout: timeout,
	}
}

// charge marks declines as permanent so a retried run never charges the card again.
func (h *PaymentHandler) charge(ctx context.Context, card domain.CreditCard, amountCents int64) (providers.ChargeResult, error) {
	chargeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result, err := h.charger.Charge(chargeCtx, card, amountCents)
	if errors.Is(err, providers.ErrCardDeclined) {
		return result, journal.Permanent(err)
	}
	if err != nil {
		return result, &ProviderError{Step: StepChargeCard, Err: err}
	}
	return result, nil
}
