// Package cart holds the customer's scanned products for one session.
//
// A Cart is not safe for concurrent use. It is owned by the session
// controller's goroutine; other goroutines send events instead of
// touching it.
package cart

import (
	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/shopspring/decimal"
)

type Cart struct {
	items []domain.Product
}

func New() *Cart {
	return &Cart{}
}

// Add appends the product unless a product with the same uid is already present.
func (c *Cart) Add(p domain.Product) error {
	if _, ok := c.Position(p.UID); ok {
		return domain.ErrDuplicateItem
	}
	c.items = append(c.items, p)
	return nil
}

func (c *Cart) Remove(uid string) error {
	for i, p := range c.items {
		if p.UID == uid {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrItemNotInCart
}

// Total is recomputed on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.items {
		total = total.Add(p.SellingPrice)
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Items returns a copy in insertion (display) order.
func (c *Cart) Items() []domain.Product {
	out := make([]domain.Product, len(c.items))
	copy(out, c.items)
	return out
}

// Position returns the 1-based display position of uid.
func (c *Cart) Position(uid string) (int, bool) {
	for i, p := range c.items {
		if p.UID == uid {
			return i + 1, true
		}
	}
	return 0, false
}

func (c *Cart) Clear() {
	c.items = nil
}
