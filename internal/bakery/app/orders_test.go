package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/cartstore"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
)

func newOrderService() (*app.OrderService, *memOrders, *mockNotifier) {
	repo := newMemOrders()
	n := &mockNotifier{}
	idem := cartstore.NewIdempotencyKeys(cache.NewMemory("test"))
	return app.NewOrderService(repo, n, idem).WithClock(clock), repo, n
}

func validInput() app.CreateOrderInput {
	return app.CreateOrderInput{
		Contact:    app.Contact{Name: "Ana", Email: "ana@example.com"},
		PickupDate: tomorrow,
		PickupTime: "10:30",
		Items: []domain.LineItem{
			{Name: "Croissant", Quantity: 4, Price: price("2.50")},
			{Name: "Chocolate cake", Quantity: 1, Price: price("35")},
		},
	}
}

func seed(repo *memOrders, id string, p domain.Principal, status domain.OrderStatus, items ...domain.LineItem) *domain.Order {
	if len(items) == 0 {
		items = []domain.LineItem{{Name: "Cake", Quantity: 1, Price: price("40")}}
	}
	o := &domain.Order{
		ID: id, CustomerID: p.UserID, CustomerEmail: p.Email, Items: items,
		Status: status, PaymentStatus: domain.PaymentUnpaid, CreatedAt: now, UpdatedAt: now,
	}
	o.Recalculate()
	repo.put(o)
	return o
}

func TestOrderCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("it computes totals, stores the order and notifies", func(t *testing.T) {
		svc, repo, n := newOrderService()
		o, err := svc.Create(ctx, customer, validInput())
		if err != nil {
			t.Fatal(err)
		}
		if o.Total == nil || !o.Total.Equal(decimal.RequireFromString("46.35")) {
			t.Errorf("total = %v, want 46.35", o.Total)
		}
		if o.CustomerID != customer.UserID || o.Status != domain.StatusPending || o.PaymentStatus != domain.PaymentUnpaid {
			t.Errorf("unexpected order: %+v", o)
		}
		if repo.count() != 1 {
			t.Errorf("stored %d orders, want 1", repo.count())
		}
		if diff := cmp.Diff([]ports.OrderEvent{ports.EventOrderCreated}, n.Events()); diff != "" {
			t.Errorf("events (-want +got):\n%s", diff)
		}
	})

	t.Run("an unpriced item leaves the totals pending", func(t *testing.T) {
		svc, _, _ := newOrderService()
		in := validInput()
		in.Items = append(in.Items, domain.LineItem{Name: "Custom Cake (heart)", Quantity: 1})
		o, err := svc.Create(ctx, customer, in)
		if err != nil {
			t.Fatal(err)
		}
		if o.Subtotal != nil || o.Tax != nil || o.Total != nil {
			t.Errorf("totals = %v/%v/%v, want pending", o.Subtotal, o.Tax, o.Total)
		}
	})

	t.Run("the same idempotency key returns the first order", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		in := validInput()
		in.IdempotencyKey = "key-1"
		first, err := svc.Create(ctx, customer, in)
		if err != nil {
			t.Fatal(err)
		}
		second, err := svc.Create(ctx, customer, in)
		if err != nil {
			t.Fatal(err)
		}
		if first.ID != second.ID || repo.count() != 1 {
			t.Errorf("got orders %s and %s (%d stored), want one", first.ID, second.ID, repo.count())
		}
	})

	t.Run("a notification failure does not fail the order", func(t *testing.T) {
		svc, _, n := newOrderService()
		n.SendNotificationEmailImpl = func(ports.OrderNotification) error { return errors.New("smtp down") }
		if _, err := svc.Create(ctx, customer, validInput()); err != nil {
			t.Errorf("err = %v, want nil", err)
		}
	})

	for name, testcase := range map[string]struct {
		mutate func(*app.CreateOrderInput)
		field  string
	}{
		"a missing name":        {func(in *app.CreateOrderInput) { in.Name = " " }, "customer_name"},
		"a bad email":           {func(in *app.CreateOrderInput) { in.Email = "nope" }, "customer_email"},
		"a pickup in the past":  {func(in *app.CreateOrderInput) { in.PickupDate = "2026-04-30" }, "pickup_date"},
		"a malformed pickup":    {func(in *app.CreateOrderInput) { in.PickupTime = "10am" }, "pickup_time"},
		"an empty order":        {func(in *app.CreateOrderInput) { in.Items = nil }, "items"},
		"a zero quantity":       {func(in *app.CreateOrderInput) { in.Items[0].Quantity = 0 }, "items"},
		"a negative item price": {func(in *app.CreateOrderInput) { in.Items[0].Price = price("-1") }, "items"},
	} {
		t.Run("it rejects "+name, func(t *testing.T) {
			svc, _, _ := newOrderService()
			in := validInput()
			testcase.mutate(&in)
			_, err := svc.Create(ctx, customer, in)
			assertInvalid(t, err, testcase.field)
		})
	}

	t.Run("it needs an email or a phone", func(t *testing.T) {
		svc, _, _ := newOrderService()
		noEmail := customer
		noEmail.Email = ""
		in := validInput()
		in.Email = ""
		_, err := svc.Create(ctx, noEmail, in)
		assertInvalid(t, err, "customer_email")

		in.Phone = "555 123 4567"
		if _, err := svc.Create(ctx, noEmail, in); err != nil {
			t.Errorf("phone only: %v", err)
		}
	})

	t.Run("guests cannot place orders", func(t *testing.T) {
		svc, _, _ := newOrderService()
		if _, err := svc.Create(ctx, guest, validInput()); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("err = %v, want ErrUnauthenticated", err)
		}
	})
}

func assertInvalid(t *testing.T, err error, field string) {
	t.Helper()
	var v *domain.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("err = %v, want a validation error", err)
	}
	if v.Field != field {
		t.Errorf("field = %q, want %q", v.Field, field)
	}
}

func TestOrderVisibility(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderService()
	seed(repo, "o-1", customer, domain.StatusPending)
	seed(repo, "o-2", other, domain.StatusPending)

	t.Run("customers only see their own orders", func(t *testing.T) {
		if _, err := svc.Get(ctx, customer, "o-2"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		list, err := svc.List(ctx, customer, ports.OrderFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].ID != "o-1" {
			t.Errorf("list = %v", list)
		}
	})

	t.Run("staff see every order", func(t *testing.T) {
		list, err := svc.List(ctx, employee, ports.OrderFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 {
			t.Errorf("got %d orders, want 2", len(list))
		}
	})

	t.Run("tracking needs the matching email", func(t *testing.T) {
		if _, err := svc.Track(ctx, "o-1", "ANA@example.com"); err != nil {
			t.Errorf("Track: %v", err)
		}
		if _, err := svc.Track(ctx, "o-1", "luis@example.com"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestOrderAdvance(t *testing.T) {
	ctx := context.Background()

	t.Run("staff move an order one step at a time", func(t *testing.T) {
		svc, repo, n := newOrderService()
		seed(repo, "o-1", customer, domain.StatusPending)

		var got []domain.OrderStatus
		for range 4 {
			o, err := svc.Advance(ctx, employee, "o-1", "")
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, o.Status)
		}
		want := []domain.OrderStatus{domain.StatusBaking, domain.StatusDecorating, domain.StatusReady, domain.StatusCompleted}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("statuses (-want +got):\n%s", diff)
		}
		if len(n.Events()) != 4 {
			t.Errorf("got %d notifications, want 4", len(n.Events()))
		}
		if _, err := svc.Advance(ctx, employee, "o-1", ""); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("skipping a step is refused", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		seed(repo, "o-1", customer, domain.StatusPending)
		if _, err := svc.Advance(ctx, owner, "o-1", domain.StatusReady); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("a legacy received order advances to baking", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		seed(repo, "o-1", customer, domain.StatusReceived)
		o, err := svc.Advance(ctx, owner, "o-1", domain.StatusBaking)
		if err != nil {
			t.Fatal(err)
		}
		if o.Status != domain.StatusBaking {
			t.Errorf("status = %s", o.Status)
		}
	})

	t.Run("customers cannot advance orders", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		seed(repo, "o-1", customer, domain.StatusPending)
		if _, err := svc.Advance(ctx, customer, "o-1", ""); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})
}

func TestOrderCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("an owner cancels directly and a paid order becomes refund due", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		o := seed(repo, "o-1", customer, domain.StatusBaking)
		o.PaymentStatus = domain.PaymentPaid
		repo.put(o)

		got, err := svc.Cancel(ctx, owner, "o-1", "oven broke")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.StatusCancelled || got.PaymentStatus != domain.PaymentRefundDue {
			t.Errorf("got %s/%s, want cancelled/refund_due", got.Status, got.PaymentStatus)
		}
	})

	t.Run("an employee only records a request, which the owner resolves", func(t *testing.T) {
		svc, repo, n := newOrderService()
		seed(repo, "o-1", customer, domain.StatusDecorating)

		got, err := svc.Cancel(ctx, employee, "o-1", "customer called")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.StatusDecorating || got.CancelRequestedBy != employee.UserID {
			t.Errorf("got %s requested by %q", got.Status, got.CancelRequestedBy)
		}
		if _, err := svc.Cancel(ctx, employee, "o-1", "again"); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("duplicate request err = %v, want ErrConflict", err)
		}
		if _, err := svc.ResolveCancellation(ctx, employee, "o-1", true); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("employee resolve err = %v, want ErrForbidden", err)
		}

		got, err = svc.ResolveCancellation(ctx, owner, "o-1", true)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.StatusCancelled || got.CancellationRequested() || got.CancelReason != "customer called" {
			t.Errorf("unexpected order after approval: %+v", got)
		}
		want := []ports.OrderEvent{ports.EventCancelRequested, ports.EventOrderCancelled}
		if diff := cmp.Diff(want, n.Events()); diff != "" {
			t.Errorf("events (-want +got):\n%s", diff)
		}
	})

	t.Run("a dismissed request leaves the order running", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		seed(repo, "o-1", customer, domain.StatusBaking)
		_, _ = svc.Cancel(ctx, employee, "o-1", "mistake")

		got, err := svc.ResolveCancellation(ctx, owner, "o-1", false)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.StatusBaking || got.CancellationRequested() {
			t.Errorf("unexpected order after dismissal: %+v", got)
		}
	})

	t.Run("customers can cancel only while pending", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		seed(repo, "o-1", customer, domain.StatusPending)
		seed(repo, "o-2", customer, domain.StatusBaking)

		if _, err := svc.Cancel(ctx, customer, "o-1", ""); err != nil {
			t.Errorf("cancel pending: %v", err)
		}
		if _, err := svc.Cancel(ctx, customer, "o-2", ""); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
		if _, err := svc.Cancel(ctx, other, "o-2", ""); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("a completed order cannot be cancelled", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		seed(repo, "o-1", customer, domain.StatusCompleted)
		if _, err := svc.Cancel(ctx, owner, "o-1", ""); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestApprovePrices(t *testing.T) {
	ctx := context.Background()
	items := func() []domain.LineItem {
		return []domain.LineItem{
			{Name: "Croissant", Quantity: 2, Price: price("2.50")},
			{Name: "Custom Cake (heart)", Quantity: 1},
		}
	}

	t.Run("pricing the last pending item completes the totals", func(t *testing.T) {
		svc, repo, n := newOrderService()
		seed(repo, "o-1", customer, domain.StatusPending, items()...)

		o, err := svc.ApprovePrices(ctx, owner, "o-1", map[int]decimal.Decimal{1: decimal.RequireFromString("60")})
		if err != nil {
			t.Fatal(err)
		}
		if o.Total == nil || !o.Total.Equal(decimal.RequireFromString("66.95")) {
			t.Errorf("total = %v, want 66.95", o.Total)
		}
		if diff := cmp.Diff([]ports.OrderEvent{ports.EventPriceApproved}, n.Events()); diff != "" {
			t.Errorf("events (-want +got):\n%s", diff)
		}
	})

	for name, testcase := range map[string]map[int]decimal.Decimal{
		"an empty price list":    {},
		"an unknown item":        {5: decimal.RequireFromString("10")},
		"an already priced item": {0: decimal.RequireFromString("10")},
		"a zero price":           {1: decimal.Zero},
	} {
		t.Run("it rejects "+name, func(t *testing.T) {
			svc, repo, _ := newOrderService()
			seed(repo, "o-1", customer, domain.StatusPending, items()...)
			_, err := svc.ApprovePrices(ctx, owner, "o-1", testcase)
			assertInvalid(t, err, "prices")
		})
	}

	t.Run("employees cannot approve prices", func(t *testing.T) {
		svc, repo, _ := newOrderService()
		seed(repo, "o-1", customer, domain.StatusPending, items()...)
		_, err := svc.ApprovePrices(ctx, employee, "o-1", map[int]decimal.Decimal{1: decimal.RequireFromString("60")})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})
}

func TestOrderPay(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderService()
	seed(repo, "priced", customer, domain.StatusPending)
	seed(repo, "pending", customer, domain.StatusPending, domain.LineItem{Name: "Custom", Quantity: 1})
	seed(repo, "cancelled", customer, domain.StatusCancelled)

	o, err := svc.Pay(ctx, customer, "priced")
	if err != nil {
		t.Fatal(err)
	}
	if o.PaymentStatus != domain.PaymentPaid {
		t.Errorf("payment status = %s", o.PaymentStatus)
	}
	if _, err := svc.Pay(ctx, customer, "priced"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second payment err = %v, want ErrConflict", err)
	}
	if _, err := svc.Pay(ctx, customer, "pending"); !errors.Is(err, domain.ErrPricePending) {
		t.Errorf("err = %v, want ErrPricePending", err)
	}
	if _, err := svc.Pay(ctx, customer, "cancelled"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestOrderDeleteAndSummary(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderService()
	seed(repo, "o-1", customer, domain.StatusPending, domain.LineItem{Name: "Custom", Quantity: 1})
	seed(repo, "o-2", customer, domain.StatusReceived)
	seed(repo, "o-3", customer, domain.StatusBaking)
	seed(repo, "o-4", customer, domain.StatusDelivered)
	_, _ = svc.Cancel(ctx, employee, "o-3", "double order")

	sum, err := svc.Summary(ctx, employee)
	if err != nil {
		t.Fatal(err)
	}
	want := &app.Summary{
		Total:                4,
		ByStatus:             map[domain.OrderStatus]int{domain.StatusPending: 2, domain.StatusBaking: 1, domain.StatusCompleted: 1},
		PendingPrice:         1,
		CancellationRequests: 1,
		Unpaid:               3,
	}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("summary (-want +got):\n%s", diff)
	}

	if err := svc.Delete(ctx, employee, "o-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, owner, "o-1"); err != nil {
		t.Fatal(err)
	}
	if repo.count() != 3 {
		t.Errorf("got %d orders, want 3", repo.count())
	}
}
