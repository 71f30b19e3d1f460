package domain

import "time"

// CartItem is a snapshot of catalog data taken when the line was added.
// It is never re-synced with the catalog afterwards.
type CartItem struct {
	ProductID  string     `json:"product_id"`
	Quantity   int        `json:"quantity"`
	Name       string     `json:"name"`
	PriceCents int64      `json:"price_cents"`
	Picture    string     `json:"picture"`
	AddedAt    *time.Time `json:"added_at,omitempty"`
}

func (i CartItem) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

type CartState struct {
	Items []CartItem `json:"items"`
}

func (s *CartState) Find(productID string) int {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// SubtotalCents sums price times quantity over every line.
func SubtotalCents(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	return total
}
