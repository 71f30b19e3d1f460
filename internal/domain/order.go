package domain

import "time"

type Address struct {
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	ZipCode       string `json:"zip_code"`
}

type Order struct {
	OrderID           string     `json:"order_id"`
	Items             []CartItem `json:"items"`
	TransactionID     string     `json:"transaction_id"`
	SubtotalCents     int64      `json:"subtotal_cents"`
	ShippingCostCents int64      `json:"shipping_cost_cents"`
	TotalCents        int64      `json:"total_cents"`
	TrackingNumber    string     `json:"tracking_number"`
	Carrier           string     `json:"carrier"`
	CreatedAt         time.Time  `json:"created_at"`
	ShippingAddress   Address    `json:"shipping_address"`
}

func (o *Order) TotalsConsistent() bool {
	return o.TotalCents == o.SubtotalCents+o.ShippingCostCents
}

// OrdersState points at the ordered map holding the ledger's orders.
type OrdersState struct {
	OrderedMapID string `json:"ordered_map_id"`
}

const EventTypeOrderPlaced = "order.placed"

// OrderPlacedEvent is the outbox payload written alongside a new order.
type OrderPlacedEvent struct {
	OrdersID      string    `json:"orders_id"`
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	TotalCents    int64     `json:"total_cents"`
	ItemCount     int       `json:"item_count"`
	CreatedAt     time.Time `json:"created_at"`
}
