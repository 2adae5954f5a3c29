package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuoteStatus string

const (
	QuotePending   QuoteStatus = "pending"
	QuoteResponded QuoteStatus = "responded"
	QuoteAccepted  QuoteStatus = "accepted"
	QuoteRejected  QuoteStatus = "rejected"
)

func ParseQuoteStatus(s string) (QuoteStatus, bool) {
	switch st := QuoteStatus(s); st {
	case QuotePending, QuoteResponded, QuoteAccepted, QuoteRejected:
		return st, true
	}
	return "", false
}

// CanMoveTo encodes pending -> responded -> accepted|rejected. A pending quote
// may also be rejected outright, and staff may respond again to refine a price.
func (s QuoteStatus) CanMoveTo(to QuoteStatus) bool {
	switch s {
	case QuotePending:
		return to == QuoteResponded || to == QuoteRejected
	case QuoteResponded:
		return to == QuoteResponded || to == QuoteAccepted || to == QuoteRejected
	}
	return false
}

type Quote struct {
	ID             string
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Occasion       string
	Theme          string
	Budget         string
	Servings       string
	EventDate      string
	Details        string
	PhotoPath      string
	Status         QuoteStatus
	EstimatedPrice *decimal.Decimal
	Response       string
	OrderID        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ToOrder copies the quote into a new order. The estimated price becomes the
// single line item's price; without one the item stays pending.
func (q *Quote) ToOrder(id string, pickupDate, pickupTime string, now time.Time) *Order {
	details := q.Theme
	if q.Details != "" {
		if details != "" {
			details += " | "
		}
		details += q.Details
	}
	o := &Order{
		ID:            id,
		CustomerID:    q.CustomerID,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		CustomerPhone: q.CustomerPhone,
		Items: []LineItem{{
			Name:      "Custom order: " + q.Occasion,
			Quantity:  1,
			Price:     q.EstimatedPrice,
			Details:   details,
			PhotoPath: q.PhotoPath,
		}},
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		PickupDate:    pickupDate,
		PickupTime:    pickupTime,
		QuoteID:       q.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.Recalculate()
	return o
}
