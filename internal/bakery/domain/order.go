package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is applied to the subtotal of every order.
var TaxRate = decimal.RequireFromString("0.03")

type Order struct {
	ID            string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Items         []LineItem
	Subtotal      *decimal.Decimal
	Tax           *decimal.Decimal
	Total         *decimal.Decimal
	Status        OrderStatus
	PaymentStatus PaymentStatus
	PickupDate    string
	PickupTime    string
	Notes         string
	QuoteID       string

	CancelRequestedBy string
	CancelReason      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is one product on an order. A nil Price marks the item as pending
// until an owner sets it.
type LineItem struct {
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Details   string           `json:"details,omitempty"`
	PhotoPath string           `json:"photo_path,omitempty"`
}

func (i LineItem) Pending() bool { return i.Price == nil }

// Subtotal returns price × quantity, or false when the item is still pending.
func (i LineItem) Subtotal() (decimal.Decimal, bool) {
	if i.Price == nil {
		return decimal.Zero, false
	}
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))), true
}

// HasPendingPrice reports whether any item lacks a concrete price.
func (o *Order) HasPendingPrice() bool {
	for _, it := range o.Items {
		if it.Pending() {
			return true
		}
	}
	return false
}

// Recalculate refreshes Subtotal, Tax and Total from the items. All three are
// left nil while any item is pending.
func (o *Order) Recalculate() {
	if o.HasPendingPrice() {
		o.Subtotal, o.Tax, o.Total = nil, nil, nil
		return
	}
	sub := decimal.Zero
	for _, it := range o.Items {
		s, _ := it.Subtotal()
		sub = sub.Add(s)
	}
	sub = sub.Round(2)
	tax := sub.Mul(TaxRate).Round(2)
	total := sub.Add(tax)
	o.Subtotal, o.Tax, o.Total = &sub, &tax, &total
}

func (o *Order) CancellationRequested() bool { return o.CancelRequestedBy != "" }

type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "unpaid"
	PaymentPaid      PaymentStatus = "paid"
	PaymentRefundDue PaymentStatus = "refund_due"
)
