// Package cartstore keeps carts and idempotency keys in the shared cache.
package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
)

const (
	CartTTL        = 7 * 24 * time.Hour
	IdempotencyTTL = 24 * time.Hour
)

type Carts struct {
	cache cache.Cache
}

func NewCarts(c cache.Cache) *Carts { return &Carts{cache: c} }

var _ ports.CartStore = (*Carts)(nil)

// Load returns an empty cart for users without one.
func (s *Carts) Load(ctx context.Context, userID string) (*domain.Cart, error) {
	raw, err := s.cache.Get(ctx, s.cache.GenerateKey("cart", userID))
	if err != nil {
		return nil, fmt.Errorf("cartstore: load cart of %s: %w", userID, err)
	}
	cart := &domain.Cart{}
	if raw == "" {
		return cart, nil
	}
	if err := json.Unmarshal([]byte(raw), cart); err != nil {
		return nil, fmt.Errorf("cartstore: decode cart of %s: %w", userID, err)
	}
	return cart, nil
}

// Save stores the cart and restarts its expiry.
func (s *Carts) Save(ctx context.Context, userID string, c *domain.Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cartstore: encode cart of %s: %w", userID, err)
	}
	if err := s.cache.Set(ctx, s.cache.GenerateKey("cart", userID), raw, CartTTL); err != nil {
		return fmt.Errorf("cartstore: save cart of %s: %w", userID, err)
	}
	return nil
}

func (s *Carts) Clear(ctx context.Context, userID string) error {
	if err := s.cache.Del(ctx, s.cache.GenerateKey("cart", userID)); err != nil {
		return fmt.Errorf("cartstore: clear cart of %s: %w", userID, err)
	}
	return nil
}

// IdempotencyKeys maps a client-supplied key to the order it created.
type IdempotencyKeys struct {
	cache cache.Cache
}

func NewIdempotencyKeys(c cache.Cache) *IdempotencyKeys { return &IdempotencyKeys{cache: c} }

var _ ports.IdempotencyStore = (*IdempotencyKeys)(nil)

// Lookup returns "" when the key is unknown.
func (s *IdempotencyKeys) Lookup(ctx context.Context, key string) (string, error) {
	id, err := s.cache.Get(ctx, s.cache.GenerateKey("idempotency", key))
	if err != nil {
		return "", fmt.Errorf("cartstore: lookup idempotency key: %w", err)
	}
	return id, nil
}

// Remember keeps the first order recorded for a key.
func (s *IdempotencyKeys) Remember(ctx context.Context, key, orderID string) error {
	if _, err := s.cache.SetNX(ctx, s.cache.GenerateKey("idempotency", key), orderID, IdempotencyTTL); err != nil {
		return fmt.Errorf("cartstore: remember idempotency key: %w", err)
	}
	return nil
}
