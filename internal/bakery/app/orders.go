package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

// MaxItemQuantity caps a single order line.
const MaxItemQuantity = 50

type OrderService struct {
	orders      ports.OrderRepository
	notifier    ports.Notifier
	idempotency ports.IdempotencyStore
	now         Clock
}

// NewOrderService wires the order use cases. idempotency may be nil, which
// disables idempotent creation.
func NewOrderService(orders ports.OrderRepository, notifier ports.Notifier, idempotency ports.IdempotencyStore) *OrderService {
	return &OrderService{orders: orders, notifier: notifier, idempotency: idempotency, now: time.Now}
}

func (s *OrderService) WithClock(now Clock) *OrderService {
	s.now = now
	return s
}

type CreateOrderInput struct {
	Contact
	PickupDate     string
	PickupTime     string
	Notes          string
	Items          []domain.LineItem
	IdempotencyKey string
}

func (s *OrderService) Create(ctx context.Context, p domain.Principal, in CreateOrderInput) (*domain.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	in.Contact.normalize()
	if in.Email == "" {
		in.Email = p.Email
	}
	if err := in.Contact.validate(false); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := validatePickup(in.PickupDate, in.PickupTime, now); err != nil {
		return nil, err
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	key := ""
	if in.IdempotencyKey != "" && s.idempotency != nil {
		key = p.UserID + ":" + in.IdempotencyKey
		if o, ok := s.replay(ctx, key); ok {
			return o, nil
		}
	}

	o := &domain.Order{
		ID:            uuid.NewString(),
		CustomerID:    p.UserID,
		CustomerName:  in.Name,
		CustomerEmail: in.Email,
		CustomerPhone: in.Phone,
		Items:         in.Items,
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentUnpaid,
		PickupDate:    in.PickupDate,
		PickupTime:    in.PickupTime,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.Recalculate()

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if key != "" {
		if err := s.idempotency.Remember(ctx, key, o.ID); err != nil {
			slog.WarnContext(ctx, "failed to remember idempotency key", "order_id", o.ID, "error", err)
		}
	}
	slog.InfoContext(ctx, "order created", "order_id", o.ID, "pending_price", o.HasPendingPrice())

	deliver(ctx, s.notifier, ports.OrderNotification{Event: ports.EventOrderCreated, Order: o})
	return o, nil
}

// replay returns the order an earlier request with the same key created.
func (s *OrderService) replay(ctx context.Context, key string) (*domain.Order, bool) {
	id, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "idempotency lookup failed", "error", err)
		return nil, false
	}
	if id == "" {
		return nil, false
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "idempotent order vanished", "order_id", id, "error", err)
		return nil, false
	}
	slog.InfoContext(ctx, "replaying idempotent order", "order_id", id)
	return o, true
}

func validateItems(items []domain.LineItem) error {
	if len(items) == 0 {
		return domain.Invalid("items", "an order needs at least one item")
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return domain.Invalid("items", "item %d has no name", i+1)
		}
		if it.Quantity < 1 || it.Quantity > MaxItemQuantity {
			return domain.Invalid("items", "item %d quantity must be between 1 and %d", i+1, MaxItemQuantity)
		}
		if it.Price != nil && it.Price.IsNegative() {
			return domain.Invalid("items", "item %d has a negative price", i+1)
		}
	}
	return nil
}

// Get hides orders of other customers behind ErrNotFound.
func (s *OrderService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsStaff() && o.CustomerID != p.UserID {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

// Track looks an order up by id and contact email, without an account.
func (s *OrderService) Track(ctx context.Context, id, email string) (*domain.Order, error) {
	email = strings.TrimSpace(email)
	if id == "" || email == "" {
		return nil, domain.Invalid("email", "order id and email are required")
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(o.CustomerEmail, email) {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, p domain.Principal, f ports.OrderFilter) ([]*domain.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if !p.IsStaff() {
		f.CustomerID = p.UserID
	}
	return s.orders.List(ctx, f)
}

// Advance moves an order one step along the progression. An empty target
// means the next step.
func (s *OrderService) Advance(ctx context.Context, p domain.Principal, id string, to domain.OrderStatus) (*domain.Order, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == "" {
		next, ok := o.Status.Next()
		if !ok {
			return nil, fmt.Errorf("order %s is %s: %w", id, o.Status, domain.ErrInvalidTransition)
		}
		to = next
	}
	if to == domain.StatusCancelled || !domain.CanTransition(o.Status, to) {
		return nil, fmt.Errorf("order %s: %s -> %s: %w", id, o.Status, to, domain.ErrInvalidTransition)
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = s.now().UTC()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("advance order: %w", err)
	}
	slog.InfoContext(ctx, "order advanced", "order_id", id, "from", from, "to", to, "by", p.UserID)

	deliver(ctx, s.notifier, ports.OrderNotification{Event: ports.EventOrderStatusChanged, Order: o})
	return o, nil
}

// Cancel cancels directly for owners and for customers whose order is still
// pending. An employee call only records a cancellation request.
func (s *OrderService) Cancel(ctx context.Context, p domain.Principal, id, reason string) (*domain.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	switch p.Role {
	case domain.RoleOwner:
		return s.cancel(ctx, p, o, reason)

	case domain.RoleEmployee:
		if o.Status.Terminal() {
			return nil, fmt.Errorf("order %s is %s: %w", id, o.Status, domain.ErrInvalidTransition)
		}
		if o.CancellationRequested() {
			return nil, fmt.Errorf("order %s already has a cancellation request: %w", id, domain.ErrConflict)
		}
		if reason == "" {
			return nil, domain.Invalid("reason", "a reason is required to request a cancellation")
		}
		o.CancelRequestedBy = p.UserID
		o.CancelReason = reason
		o.UpdatedAt = s.now().UTC()
		if err := s.orders.Update(ctx, o); err != nil {
			return nil, fmt.Errorf("request cancellation: %w", err)
		}
		slog.InfoContext(ctx, "cancellation requested", "order_id", id, "by", p.UserID)
		deliver(ctx, s.notifier, ports.OrderNotification{Event: ports.EventCancelRequested, Order: o})
		return o, nil

	default:
		if o.CustomerID != p.UserID {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		if o.Status.Canonical() != domain.StatusPending {
			return nil, fmt.Errorf("order %s is already %s: %w", id, o.Status, domain.ErrInvalidTransition)
		}
		return s.cancel(ctx, p, o, reason)
	}
}

func (s *OrderService) cancel(ctx context.Context, p domain.Principal, o *domain.Order, reason string) (*domain.Order, error) {
	if !domain.CanTransition(o.Status, domain.StatusCancelled) {
		return nil, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, domain.ErrInvalidTransition)
	}
	o.Status = domain.StatusCancelled
	if reason != "" {
		o.CancelReason = reason
	}
	o.CancelRequestedBy = ""
	if o.PaymentStatus == domain.PaymentPaid {
		o.PaymentStatus = domain.PaymentRefundDue
	}
	o.UpdatedAt = s.now().UTC()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	slog.InfoContext(ctx, "order cancelled", "order_id", o.ID, "by", p.UserID, "payment_status", o.PaymentStatus)

	deliver(ctx, s.notifier, ports.OrderNotification{Event: ports.EventOrderCancelled, Order: o})
	return o, nil
}

// ResolveCancellation approves or dismisses an employee's request.
func (s *OrderService) ResolveCancellation(ctx context.Context, p domain.Principal, id string, approve bool) (*domain.Order, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.CancellationRequested() {
		return nil, fmt.Errorf("order %s has no cancellation request: %w", id, domain.ErrConflict)
	}
	if approve {
		return s.cancel(ctx, p, o, o.CancelReason)
	}

	o.CancelRequestedBy = ""
	o.CancelReason = ""
	o.UpdatedAt = s.now().UTC()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("dismiss cancellation: %w", err)
	}
	slog.InfoContext(ctx, "cancellation request dismissed", "order_id", id)
	return o, nil
}

// ApprovePrices sets prices, keyed by item index, on pending items and
// recomputes the totals.
func (s *OrderService) ApprovePrices(ctx context.Context, p domain.Principal, id string, prices map[int]decimal.Decimal) (*domain.Order, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, domain.Invalid("prices", "no prices given")
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.Canonical() == domain.StatusCancelled {
		return nil, fmt.Errorf("order %s is cancelled: %w", id, domain.ErrInvalidTransition)
	}
	for i, price := range prices {
		if i < 0 || i >= len(o.Items) {
			return nil, domain.Invalid("prices", "order has no item %d", i)
		}
		if !o.Items[i].Pending() {
			return nil, domain.Invalid("prices", "item %d is already priced", i)
		}
		if !price.IsPositive() {
			return nil, domain.Invalid("prices", "price of item %d must be positive", i)
		}
	}
	for i, price := range prices {
		v := price.Round(2)
		o.Items[i].Price = &v
	}
	o.Recalculate()
	o.UpdatedAt = s.now().UTC()

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("approve prices: %w", err)
	}
	slog.InfoContext(ctx, "prices approved", "order_id", id, "still_pending", o.HasPendingPrice())

	deliver(ctx, s.notifier, ports.OrderNotification{Event: ports.EventPriceApproved, Order: o})
	return o, nil
}

// Pay records that the customer paid. Only the payment status changes.
func (s *OrderService) Pay(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	o, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	switch {
	case o.Status.Canonical() == domain.StatusCancelled:
		return nil, fmt.Errorf("order %s is cancelled: %w", id, domain.ErrInvalidTransition)
	case o.HasPendingPrice():
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrPricePending)
	case o.PaymentStatus != domain.PaymentUnpaid:
		return nil, fmt.Errorf("order %s is %s: %w", id, o.PaymentStatus, domain.ErrConflict)
	}
	o.PaymentStatus = domain.PaymentPaid
	o.UpdatedAt = s.now().UTC()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	slog.InfoContext(ctx, "payment recorded", "order_id", id, "total", o.Total.StringFixed(2))
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if err := requireOwner(p); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "order deleted", "order_id", id, "by", p.UserID)
	return nil
}

type Summary struct {
	Total                int                        `json:"total"`
	ByStatus             map[domain.OrderStatus]int `json:"by_status"`
	PendingPrice         int                        `json:"pending_price"`
	CancellationRequests int                        `json:"cancellation_requests"`
	Unpaid               int                        `json:"unpaid"`
}

// Summary feeds the dashboard. Legacy statuses are folded into current ones.
func (s *OrderService) Summary(ctx context.Context, p domain.Principal) (*Summary, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	sum := &Summary{ByStatus: map[domain.OrderStatus]int{}}
	for st, c := range counts {
		sum.ByStatus[st.Canonical()] += c.Orders
		sum.Total += c.Orders
		if st.Terminal() {
			continue
		}
		sum.PendingPrice += c.PendingPrice
		sum.CancellationRequests += c.CancellationRequests
		sum.Unpaid += c.Unpaid
	}
	return sum, nil
}

// IsClientError reports whether err is the caller's fault.
func IsClientError(err error) bool {
	return domain.IsValidation(err) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrUnauthenticated) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrPricePending) ||
		errors.Is(err, domain.ErrConflict)
}
