package cartstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/cartstore"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
)

func TestCarts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mem := cache.NewMemory("storefront")
	mem.SetClock(func() time.Time { return now })
	carts := cartstore.NewCarts(mem)

	t.Run("a user without a cart gets an empty one", func(t *testing.T) {
		c, err := carts.Load(ctx, "u-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(c.Items) != 0 {
			t.Errorf("items = %v, want none", c.Items)
		}
	})

	t.Run("a saved cart survives until its ttl runs out", func(t *testing.T) {
		p := decimal.RequireFromString("3.25")
		want := &domain.Cart{Items: []domain.LineItem{{Name: "Vanilla cupcake", Quantity: 6, Price: &p}}, UpdatedAt: now}
		if err := carts.Save(ctx, "u-1", want); err != nil {
			t.Fatal(err)
		}

		got, err := carts.Load(ctx, "u-1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("cart (-want +got):\n%s", diff)
		}

		now = now.Add(cartstore.CartTTL)
		got, _ = carts.Load(ctx, "u-1")
		if len(got.Items) != 0 {
			t.Errorf("cart should have expired, got %v", got.Items)
		}
	})

	t.Run("Clear empties the cart", func(t *testing.T) {
		_ = carts.Save(ctx, "u-2", &domain.Cart{Items: []domain.LineItem{{Name: "Concha", Quantity: 1}}})
		if err := carts.Clear(ctx, "u-2"); err != nil {
			t.Fatal(err)
		}
		got, _ := carts.Load(ctx, "u-2")
		if len(got.Items) != 0 {
			t.Errorf("items = %v, want none", got.Items)
		}
	})
}

func TestIdempotencyKeysKeepTheFirstOrder(t *testing.T) {
	ctx := context.Background()
	keys := cartstore.NewIdempotencyKeys(cache.NewMemory("storefront"))

	if id, _ := keys.Lookup(ctx, "k-1"); id != "" {
		t.Errorf("unknown key resolved to %q", id)
	}
	_ = keys.Remember(ctx, "k-1", "o-1")
	_ = keys.Remember(ctx, "k-1", "o-2")
	if id, _ := keys.Lookup(ctx, "k-1"); id != "o-1" {
		t.Errorf("id = %q, want o-1", id)
	}
}
