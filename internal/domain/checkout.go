package domain

type CheckoutStatus string

const (
	CheckoutStatusRunning   CheckoutStatus = "RUNNING"
	CheckoutStatusCompleted CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed    CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// CanTransitionTo only allows a running checkout to settle; terminal states are final.
func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	return s == CheckoutStatusRunning && next.IsTerminal()
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

type CreditCard struct {
	Number          string `json:"number"`
	CVV             string `json:"cvv"`
	ExpirationYear  int    `json:"expiration_year"`
	ExpirationMonth int    `json:"expiration_month"`
}

// LastFour returns the trailing four digits of the card number.
func (c CreditCard) LastFour() string {
	if len(c.Number) <= 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

type CheckoutRequest struct {
	RunID    string     `json:"run_id"`
	CartID   string     `json:"cart_id"`
	OrdersID string     `json:"orders_id"`
	Card     CreditCard `json:"card"`
	Address  Address    `json:"address"`
}

// Confirmation is what a completed checkout hands back to its caller.
type Confirmation struct {
	RunID         string `json:"run_id"`
	Order         Order  `json:"order"`
	CardLastFour  string `json:"card_last_four"`
	ShipmentState string `json:"shipment_status"`
}
