package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/pricing"
)

type CartService struct {
	carts  ports.CartStore
	calc   *pricing.Calculator
	orders *OrderService
	now    Clock
}

func NewCartService(carts ports.CartStore, calc *pricing.Calculator, orders *OrderService) *CartService {
	return &CartService{carts: carts, calc: calc, orders: orders, now: time.Now}
}

func (s *CartService) WithClock(now Clock) *CartService {
	s.now = now
	return s
}

func (s *CartService) Get(ctx context.Context, p domain.Principal) (*domain.Cart, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.carts.Load(ctx, p.UserID)
}

// AddMenuItem adds a catalog product. Products without a list price enter
// the cart as pending items.
func (s *CartService) AddMenuItem(ctx context.Context, p domain.Principal, itemID string, quantity int, details string) (*domain.Cart, error) {
	item, ok := s.calc.Catalog().MenuItem(itemID)
	if !ok {
		return nil, domain.Invalid("item_id", "unknown menu item %q", itemID)
	}
	return s.add(ctx, p, domain.LineItem{
		Name:     item.Name,
		Quantity: quantity,
		Price:    item.Price,
		Details:  strings.TrimSpace(details),
	})
}

// AddCake prices a customized cake on the server and adds it as one line.
func (s *CartService) AddCake(ctx context.Context, p domain.Principal, sel domain.CakeSelection, quantity int, photoPath string) (*domain.Cart, error) {
	b, err := s.calc.Price(&sel, quantity)
	if err != nil {
		return nil, err
	}
	return s.add(ctx, p, s.calc.Flatten(sel, b, photoPath))
}

func (s *CartService) add(ctx context.Context, p domain.Principal, item domain.LineItem) (*domain.Cart, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if item.Quantity > MaxItemQuantity {
		return nil, domain.Invalid("quantity", "quantity must be at most %d", MaxItemQuantity)
	}
	cart, err := s.carts.Load(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if err := cart.Add(item); err != nil {
		return nil, err
	}
	return cart, s.save(ctx, p.UserID, cart)
}

func (s *CartService) Remove(ctx context.Context, p domain.Principal, index int) (*domain.Cart, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	cart, err := s.carts.Load(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if err := cart.Remove(index); err != nil {
		return nil, err
	}
	return cart, s.save(ctx, p.UserID, cart)
}

func (s *CartService) Clear(ctx context.Context, p domain.Principal) error {
	if err := requireUser(p); err != nil {
		return err
	}
	return s.carts.Clear(ctx, p.UserID)
}

type CheckoutInput struct {
	Contact
	PickupDate     string
	PickupTime     string
	Notes          string
	IdempotencyKey string
}

// Checkout places an order with the cart contents and empties the cart.
func (s *CartService) Checkout(ctx context.Context, p domain.Principal, in CheckoutInput) (*domain.Order, error) {
	cart, err := s.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.Invalid("items", "the cart is empty")
	}
	o, err := s.orders.Create(ctx, p, CreateOrderInput{
		Contact:        in.Contact,
		PickupDate:     in.PickupDate,
		PickupTime:     in.PickupTime,
		Notes:          in.Notes,
		Items:          cart.Items,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, p.UserID); err != nil {
		return nil, fmt.Errorf("order %s placed but the cart was not cleared: %w", o.ID, err)
	}
	return o, nil
}

func (s *CartService) save(ctx context.Context, userID string, cart *domain.Cart) error {
	cart.UpdatedAt = s.now().UTC()
	return s.carts.Save(ctx, userID, cart)
}
