// Package ports declares what the bakery services need from the outside
// world. Adapters under internal/bakery/adapters implement them.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
)

type OrderFilter struct {
	CustomerID string
	Status     domain.OrderStatus
	Limit      int
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, f OrderFilter) ([]*domain.Order, error)
	// Update overwrites the mutable columns of an existing order.
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id string) error
	// CountByStatus tallies every stored order, grouped by raw status.
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]StatusCount, error)
}

// StatusCount is the dashboard tally of the orders in one status.
type StatusCount struct {
	Orders               int
	PendingPrice         int
	CancellationRequests int
	Unpaid               int
}

type QuoteFilter struct {
	CustomerID string
	Status     domain.QuoteStatus
	Limit      int
}

type QuoteRepository interface {
	Create(ctx context.Context, q *domain.Quote) error
	Get(ctx context.Context, id string) (*domain.Quote, error)
	List(ctx context.Context, f QuoteFilter) ([]*domain.Quote, error)
	Update(ctx context.Context, q *domain.Quote) error
	Delete(ctx context.Context, id string) error
}

type ProfileRepository interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	// Ensure inserts the profile when missing and returns the stored row.
	Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	Update(ctx context.Context, p *domain.Profile) error
	List(ctx context.Context) ([]*domain.Profile, error)
}

// Notifier calls the bakery's notification functions.
type Notifier interface {
	// SendNotificationEmail calls send-notification-email.
	SendNotificationEmail(ctx context.Context, n OrderNotification) error
	// SendQuoteResponse calls send-quote-response.
	SendQuoteResponse(ctx context.Context, n QuoteNotification) error
}

type OrderEvent string

const (
	EventOrderCreated       OrderEvent = "order_created"
	EventOrderStatusChanged OrderEvent = "order_status_changed"
	EventPriceApproved      OrderEvent = "price_approved"
	EventOrderCancelled     OrderEvent = "order_cancelled"
	EventCancelRequested    OrderEvent = "cancellation_requested"
	EventQuoteReceived      OrderEvent = "quote_received"
)

type OrderNotification struct {
	Event OrderEvent
	Order *domain.Order
	Quote *domain.Quote
}

type QuoteNotification struct {
	Quote *domain.Quote
}

// ObjectStore is the temp-uploads bucket.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	SignURL(key string, ttl time.Duration) (string, error)
	VerifyURL(key, token string) error
}

// CartStore keeps per-user carts.
type CartStore interface {
	Load(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, userID string, c *domain.Cart) error
	Clear(ctx context.Context, userID string) error
}

// IdempotencyStore remembers which order a client key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (string, error)
	Remember(ctx context.Context, key, orderID string) error
}
