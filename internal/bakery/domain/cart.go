package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const MaxCartItems = 30

type Cart struct {
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) Add(item LineItem) error {
	if item.Quantity <= 0 {
		return Invalid("quantity", "quantity must be positive")
	}
	if len(c.Items) >= MaxCartItems {
		return Invalid("items", "a cart holds at most %d items", MaxCartItems)
	}
	c.Items = append(c.Items, item)
	return nil
}

func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.Items) {
		return Invalid("index", "no cart item at position %d", index)
	}
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	return nil
}

// Estimate returns the cart subtotal, or false when an item is pending.
func (c *Cart) Estimate() (decimal.Decimal, bool) {
	o := Order{Items: c.Items}
	o.Recalculate()
	if o.Subtotal == nil {
		return decimal.Zero, false
	}
	return *o.Subtotal, true
}
