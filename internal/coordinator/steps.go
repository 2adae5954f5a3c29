package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

// KindQuoteAcceptance names the workflow in the log.
const KindQuoteAcceptance = "quote_acceptance"

// --- CreateOrderFromQuoteStep ---

type CreateOrderFromQuoteStep struct {
	orders ports.OrderRepository
	order  *domain.Order
}

func NewCreateOrderFromQuoteStep(orders ports.OrderRepository, order *domain.Order) *CreateOrderFromQuoteStep {
	return &CreateOrderFromQuoteStep{orders: orders, order: order}
}

func (s *CreateOrderFromQuoteStep) Name() string { return "Create_Order_From_Quote" }

func (s *CreateOrderFromQuoteStep) Execute(ctx context.Context) error {
	if err := s.orders.Create(ctx, s.order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *CreateOrderFromQuoteStep) Compensate(ctx context.Context) error {
	return s.orders.Delete(ctx, s.order.ID)
}

// --- MarkQuoteAcceptedStep ---

type MarkQuoteAcceptedStep struct {
	quotes  ports.QuoteRepository
	quote   *domain.Quote
	orderID string
	now     time.Time

	prevStatus  domain.QuoteStatus
	prevOrderID string
	prevUpdated time.Time
}

func NewMarkQuoteAcceptedStep(quotes ports.QuoteRepository, quote *domain.Quote, orderID string, now time.Time) *MarkQuoteAcceptedStep {
	return &MarkQuoteAcceptedStep{quotes: quotes, quote: quote, orderID: orderID, now: now}
}

func (s *MarkQuoteAcceptedStep) Name() string { return "Mark_Quote_Accepted" }

func (s *MarkQuoteAcceptedStep) Execute(ctx context.Context) error {
	if !s.quote.Status.CanMoveTo(domain.QuoteAccepted) {
		return fmt.Errorf("quote %s is %s: %w", s.quote.ID, s.quote.Status, domain.ErrInvalidTransition)
	}
	s.prevStatus, s.prevOrderID, s.prevUpdated = s.quote.Status, s.quote.OrderID, s.quote.UpdatedAt

	s.quote.Status = domain.QuoteAccepted
	s.quote.OrderID = s.orderID
	s.quote.UpdatedAt = s.now
	if err := s.quotes.Update(ctx, s.quote); err != nil {
		s.restore()
		return fmt.Errorf("failed to accept quote: %w", err)
	}
	return nil
}

func (s *MarkQuoteAcceptedStep) Compensate(ctx context.Context) error {
	s.restore()
	return s.quotes.Update(ctx, s.quote)
}

func (s *MarkQuoteAcceptedStep) restore() {
	s.quote.Status, s.quote.OrderID, s.quote.UpdatedAt = s.prevStatus, s.prevOrderID, s.prevUpdated
}
