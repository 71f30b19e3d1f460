package domain

import "strings"

type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Picture       string   `json:"picture"`
	PriceCents    int64    `json:"price_cents"`
	Categories    []string `json:"categories"`
	StockQuantity int64    `json:"stock_quantity"`
}

// CatalogState points at the ordered map holding the catalog's products.
type CatalogState struct {
	OrderedMapID string `json:"ordered_map_id"`
}

// Matches reports whether any of the lowercase terms is a substring of the
// product's name, description or one of its categories.
func (p *Product) Matches(terms []string) bool {
	name := strings.ToLower(p.Name)
	description := strings.ToLower(p.Description)
	for _, term := range terms {
		if strings.Contains(name, term) || strings.Contains(description, term) {
			return true
		}
		for _, category := range p.Categories {
			if strings.Contains(strings.ToLower(category), term) {
				return true
			}
		}
	}
	return false
}
