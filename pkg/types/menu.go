package types

import "fmt"

const (
	// DefaultMenuVersion is the version tag used when seeding an empty menu
	DefaultMenuVersion = "RestoVersion"

	// MaxPrice caps a single menu price. At the largest line quantity an
	// order still has room for millions of lines before its total nears
	// the int64 limit.
	MaxPrice int64 = 100_000_000
)

// MenuItem is a sellable dish within one menu version
type MenuItem struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	ItemKey     string `json:"item_key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
}

// Validate checks the fields a menu row must carry
func (m *MenuItem) Validate() error {
	if m.ItemKey == "" {
		return NewValidationError("item_key", "is required")
	}
	if m.Name == "" {
		return NewValidationError("name", "is required")
	}
	if m.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	if m.Price > MaxPrice {
		return NewValidationError("price", fmt.Sprintf("exceeds %d", MaxPrice))
	}
	return nil
}

// ItemRequest asks for qty of a menu item. Name and Price are filled from
// the menu snapshot before the request reaches an order.
type ItemRequest struct {
	ItemKey string `json:"item_key"`
	Name    string `json:"name,omitempty"`
	Qty     int    `json:"qty"`
	Price   int64  `json:"price,omitempty"`
}
