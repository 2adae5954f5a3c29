package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/workflowlog"
)

const maxQuoteDetails = 2000

type QuoteService struct {
	quotes   ports.QuoteRepository
	orders   ports.OrderRepository
	notifier ports.Notifier
	log      workflowlog.Repository
	now      Clock
}

// NewQuoteService wires the quote use cases. log may be nil.
func NewQuoteService(quotes ports.QuoteRepository, orders ports.OrderRepository, notifier ports.Notifier, log workflowlog.Repository) *QuoteService {
	return &QuoteService{quotes: quotes, orders: orders, notifier: notifier, log: log, now: time.Now}
}

func (s *QuoteService) WithClock(now Clock) *QuoteService {
	s.now = now
	return s
}

type SubmitQuoteInput struct {
	Contact
	Occasion  string
	Theme     string
	Budget    string
	Servings  string
	EventDate string
	Details   string
	PhotoPath string
}

// Submit is open to guests. Signed-in customers get the quote linked to
// their account.
func (s *QuoteService) Submit(ctx context.Context, p domain.Principal, in SubmitQuoteInput) (*domain.Quote, error) {
	in.Contact.normalize()
	if in.Email == "" {
		in.Email = p.Email
	}
	if err := in.Contact.validate(true); err != nil {
		return nil, err
	}
	in.Occasion = strings.TrimSpace(in.Occasion)
	if in.Occasion == "" {
		return nil, domain.Invalid("occasion", "occasion is required")
	}
	if len(in.Details) > maxQuoteDetails {
		return nil, domain.Invalid("details", "details must be at most %d characters", maxQuoteDetails)
	}
	if in.EventDate != "" {
		if _, err := time.Parse(dateLayout, in.EventDate); err != nil {
			return nil, domain.Invalid("event_date", "event date must look like 2006-01-02")
		}
	}

	now := s.now().UTC()
	q := &domain.Quote{
		ID:            uuid.NewString(),
		CustomerID:    p.UserID,
		CustomerName:  in.Name,
		CustomerEmail: in.Email,
		CustomerPhone: in.Phone,
		Occasion:      in.Occasion,
		Theme:         strings.TrimSpace(in.Theme),
		Budget:        strings.TrimSpace(in.Budget),
		Servings:      strings.TrimSpace(in.Servings),
		EventDate:     in.EventDate,
		Details:       strings.TrimSpace(in.Details),
		PhotoPath:     in.PhotoPath,
		Status:        domain.QuotePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.quotes.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	slog.InfoContext(ctx, "quote submitted", "quote_id", q.ID, "guest", !p.Authenticated())

	deliver(ctx, s.notifier, ports.OrderNotification{Event: ports.EventQuoteReceived, Quote: q})
	return q, nil
}

func (s *QuoteService) List(ctx context.Context, p domain.Principal, f ports.QuoteFilter) ([]*domain.Quote, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if !p.IsStaff() {
		f.CustomerID = p.UserID
	}
	return s.quotes.List(ctx, f)
}

func (s *QuoteService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Quote, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsStaff() && (q.CustomerID == "" || q.CustomerID != p.UserID) {
		return nil, fmt.Errorf("quote %s: %w", id, domain.ErrNotFound)
	}
	return q, nil
}

// Respond records the staff answer and emails it to the customer. A failed
// email is logged; the response itself is kept.
func (s *QuoteService) Respond(ctx context.Context, p domain.Principal, id string, estimate *decimal.Decimal, message string) (*domain.Quote, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if estimate == nil && message == "" {
		return nil, domain.Invalid("response", "a price estimate or a message is required")
	}
	if estimate != nil && !estimate.IsPositive() {
		return nil, domain.Invalid("estimated_price", "estimated price must be positive")
	}
	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanMoveTo(domain.QuoteResponded) {
		return nil, fmt.Errorf("quote %s is %s: %w", id, q.Status, domain.ErrInvalidTransition)
	}

	if estimate != nil {
		v := estimate.Round(2)
		q.EstimatedPrice = &v
	}
	q.Response = message
	q.Status = domain.QuoteResponded
	q.UpdatedAt = s.now().UTC()
	if err := s.quotes.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("respond to quote: %w", err)
	}
	slog.InfoContext(ctx, "quote responded", "quote_id", id, "by", p.UserID)

	if s.notifier != nil {
		if err := s.notifier.SendQuoteResponse(context.WithoutCancel(ctx), ports.QuoteNotification{Quote: q}); err != nil {
			slog.WarnContext(ctx, "quote response email failed", "quote_id", id, "error", err)
		}
	}
	return q, nil
}

type acceptancePayload struct {
	QuoteID    string `json:"quote_id"`
	OrderID    string `json:"order_id"`
	AcceptedBy string `json:"accepted_by"`
}

// Accept turns a responded quote into an order. The order insert and the
// quote update run as one coordinated workflow keyed by the quote id.
func (s *QuoteService) Accept(ctx context.Context, p domain.Principal, id, pickupDate, pickupTime string) (*domain.Order, error) {
	q, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanMoveTo(domain.QuoteAccepted) {
		return nil, fmt.Errorf("quote %s is %s: %w", id, q.Status, domain.ErrInvalidTransition)
	}
	now := s.now().UTC()
	if err := validatePickup(pickupDate, pickupTime, now); err != nil {
		return nil, err
	}

	order := q.ToOrder(uuid.NewString(), pickupDate, pickupTime, now)
	payload, _ := json.Marshal(acceptancePayload{QuoteID: q.ID, OrderID: order.ID, AcceptedBy: p.UserID})

	err = coordinator.NewOrchestrator([]coordinator.Step{
		coordinator.NewCreateOrderFromQuoteStep(s.orders, order),
		coordinator.NewMarkQuoteAcceptedStep(s.quotes, q, order.ID, now),
	}).WithLog(s.log, q.ID, coordinator.KindQuoteAcceptance, string(payload)).Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("accept quote %s: %w", id, err)
	}

	deliver(ctx, s.notifier, ports.OrderNotification{Event: ports.EventOrderCreated, Order: order, Quote: q})
	return order, nil
}

func (s *QuoteService) Reject(ctx context.Context, p domain.Principal, id string) (*domain.Quote, error) {
	q, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanMoveTo(domain.QuoteRejected) {
		return nil, fmt.Errorf("quote %s is %s: %w", id, q.Status, domain.ErrInvalidTransition)
	}
	q.Status = domain.QuoteRejected
	q.UpdatedAt = s.now().UTC()
	if err := s.quotes.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("reject quote: %w", err)
	}
	slog.InfoContext(ctx, "quote rejected", "quote_id", id, "by", p.UserID)
	return q, nil
}

func (s *QuoteService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if err := requireOwner(p); err != nil {
		return err
	}
	return s.quotes.Delete(ctx, id)
}

// Workflow returns the log of a quote acceptance, latest entry last.
func (s *QuoteService) Workflow(ctx context.Context, p domain.Principal, id string) ([]*workflowlog.Entry, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	if s.log == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
	}
	entries, err := s.log.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
	}
	return entries, nil
}
