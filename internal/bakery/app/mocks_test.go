package app_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

var (
	now      = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock    = func() time.Time { return now }
	tomorrow = "2026-05-02"

	owner    = domain.Principal{UserID: "owner-1", Email: "owner@example.com", Role: domain.RoleOwner}
	employee = domain.Principal{UserID: "emp-1", Email: "emp@example.com", Role: domain.RoleEmployee}
	customer = domain.Principal{UserID: "cust-1", Email: "ana@example.com", Role: domain.RoleCustomer}
	other    = domain.Principal{UserID: "cust-2", Email: "luis@example.com", Role: domain.RoleCustomer}
	guest    = domain.Principal{}
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order

	CreateImpl func(*domain.Order) error
}

func newMemOrders() *memOrders { return &memOrders{orders: map[string]domain.Order{}} }

var _ ports.OrderRepository = (*memOrders)(nil)

func clone(o domain.Order) *domain.Order {
	o.Items = append([]domain.LineItem(nil), o.Items...)
	return &o
}

func (m *memOrders) Create(_ context.Context, o *domain.Order) error {
	if m.CreateImpl != nil {
		if err := m.CreateImpl(o); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return fmt.Errorf("duplicate order %s: %w", o.ID, domain.ErrConflict)
	}
	m.orders[o.ID] = *clone(*o)
	return nil
}

func (m *memOrders) Get(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return clone(o), nil
}

func (m *memOrders) List(_ context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, clone(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memOrders) Update(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrNotFound)
	}
	m.orders[o.ID] = *clone(*o)
	return nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	delete(m.orders, id)
	return nil
}

func (m *memOrders) CountByStatus(context.Context) (map[domain.OrderStatus]ports.StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.OrderStatus]ports.StatusCount{}
	for _, o := range m.orders {
		c := out[o.Status]
		c.Orders++
		if o.HasPendingPrice() {
			c.PendingPrice++
		}
		if o.CancellationRequested() {
			c.CancellationRequests++
		}
		if o.PaymentStatus == domain.PaymentUnpaid {
			c.Unpaid++
		}
		out[o.Status] = c
	}
	return out, nil
}

func (m *memOrders) put(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *clone(*o)
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memQuotes struct {
	mu     sync.Mutex
	quotes map[string]domain.Quote

	UpdateImpl func(*domain.Quote) error
}

func newMemQuotes() *memQuotes { return &memQuotes{quotes: map[string]domain.Quote{}} }

var _ ports.QuoteRepository = (*memQuotes)(nil)

func (m *memQuotes) Create(_ context.Context, q *domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.ID] = *q
	return nil
}

func (m *memQuotes) Get(_ context.Context, id string) (*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", id, domain.ErrNotFound)
	}
	return &q, nil
}

func (m *memQuotes) List(_ context.Context, f ports.QuoteFilter) ([]*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Quote
	for _, q := range m.quotes {
		if f.CustomerID != "" && q.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && q.Status != f.Status {
			continue
		}
		q := q
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memQuotes) Update(_ context.Context, q *domain.Quote) error {
	if m.UpdateImpl != nil {
		if err := m.UpdateImpl(q); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[q.ID]; !ok {
		return fmt.Errorf("quote %s: %w", q.ID, domain.ErrNotFound)
	}
	m.quotes[q.ID] = *q
	return nil
}

func (m *memQuotes) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[id]; !ok {
		return fmt.Errorf("quote %s: %w", id, domain.ErrNotFound)
	}
	delete(m.quotes, id)
	return nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newMemProfiles(ps ...domain.Profile) *memProfiles {
	m := &memProfiles{profiles: map[string]domain.Profile{}}
	for _, p := range ps {
		m.profiles[p.ID] = p
	}
	return m
}

var _ ports.ProfileRepository = (*memProfiles)(nil)

func (m *memProfiles) Get(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (m *memProfiles) Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	m.mu.Lock()
	if _, ok := m.profiles[p.ID]; !ok {
		m.profiles[p.ID] = *p
	}
	m.mu.Unlock()
	return m.Get(ctx, p.ID)
}

func (m *memProfiles) Update(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		return fmt.Errorf("profile %s: %w", p.ID, domain.ErrNotFound)
	}
	m.profiles[p.ID] = *p
	return nil
}

func (m *memProfiles) List(context.Context) ([]*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Profile
	for _, p := range m.profiles {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mockNotifier records every call; Impl fields override the result.
type mockNotifier struct {
	mu     sync.Mutex
	events []ports.OrderEvent
	quotes []string

	SendNotificationEmailImpl func(ports.OrderNotification) error
	SendQuoteResponseImpl     func(ports.QuoteNotification) error
}

var _ ports.Notifier = (*mockNotifier)(nil)

func (m *mockNotifier) SendNotificationEmail(_ context.Context, n ports.OrderNotification) error {
	m.mu.Lock()
	m.events = append(m.events, n.Event)
	m.mu.Unlock()
	if m.SendNotificationEmailImpl != nil {
		return m.SendNotificationEmailImpl(n)
	}
	return nil
}

func (m *mockNotifier) SendQuoteResponse(_ context.Context, n ports.QuoteNotification) error {
	m.mu.Lock()
	m.quotes = append(m.quotes, n.Quote.ID)
	m.mu.Unlock()
	if m.SendQuoteResponseImpl != nil {
		return m.SendQuoteResponseImpl(n)
	}
	return nil
}

func (m *mockNotifier) Events() []ports.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.OrderEvent(nil), m.events...)
}
