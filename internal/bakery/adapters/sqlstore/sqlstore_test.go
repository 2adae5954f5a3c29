package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/sqlstore"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/workflowlog"
)

func openDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "bakery.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

var base = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newOrder(id, customer string, at time.Time, items ...domain.LineItem) *domain.Order {
	o := &domain.Order{
		ID:            id,
		CustomerID:    customer,
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Items:         items,
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentUnpaid,
		PickupDate:    "2026-05-03",
		PickupTime:    "10:00",
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	o.Recalculate()
	return o
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("it round-trips an order with priced and pending items", func(t *testing.T) {
		repo := sqlstore.NewOrders(openDB(t))
		o := newOrder("o-1", "u-1", base,
			domain.LineItem{Name: "Croissant", Quantity: 2, Price: price("2.50")},
			domain.LineItem{Name: "Custom Cake (heart)", Quantity: 1, Details: "Layers: 6\""},
		)
		if err := repo.Create(ctx, o); err != nil {
			t.Fatal(err)
		}

		got, err := repo.Get(ctx, "o-1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(o, got, decimalEqual); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if got.Total != nil {
			t.Errorf("total = %v, want pending", got.Total)
		}
	})

	t.Run("it updates totals once prices are set", func(t *testing.T) {
		repo := sqlstore.NewOrders(openDB(t))
		o := newOrder("o-1", "u-1", base, domain.LineItem{Name: "Cake", Quantity: 1})
		if err := repo.Create(ctx, o); err != nil {
			t.Fatal(err)
		}

		o.Items[0].Price = price("40")
		o.Recalculate()
		o.Status = domain.StatusBaking
		if err := repo.Update(ctx, o); err != nil {
			t.Fatal(err)
		}

		got, err := repo.Get(ctx, "o-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Total == nil || !got.Total.Equal(decimal.RequireFromString("41.2")) {
			t.Errorf("total = %v, want 41.20", got.Total)
		}
		if got.Status != domain.StatusBaking {
			t.Errorf("status = %s, want baking", got.Status)
		}
	})

	t.Run("it lists newest first and filters by customer and status", func(t *testing.T) {
		repo := sqlstore.NewOrders(openDB(t))
		for i, c := range []string{"u-1", "u-2", "u-1"} {
			o := newOrder("o-"+string(rune('a'+i)), c, base.Add(time.Duration(i)*time.Hour),
				domain.LineItem{Name: "Concha", Quantity: 1, Price: price("1.75")})
			if err := repo.Create(ctx, o); err != nil {
				t.Fatal(err)
			}
		}

		mine, err := repo.List(ctx, ports.OrderFilter{CustomerID: "u-1"})
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, o := range mine {
			ids = append(ids, o.ID)
		}
		if diff := cmp.Diff([]string{"o-c", "o-a"}, ids); diff != "" {
			t.Errorf("ids (-want +got):\n%s", diff)
		}

		baking, err := repo.List(ctx, ports.OrderFilter{Status: domain.StatusBaking})
		if err != nil {
			t.Fatal(err)
		}
		if len(baking) != 0 {
			t.Errorf("got %d baking orders, want 0", len(baking))
		}

		counts, err := repo.CountByStatus(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if counts[domain.StatusPending].Orders != 3 {
			t.Errorf("pending count = %d, want 3", counts[domain.StatusPending].Orders)
		}
	})

	t.Run("status tallies are aggregated over every row", func(t *testing.T) {
		repo := sqlstore.NewOrders(openDB(t))
		const n = 520
		for i := range n {
			o := newOrder(fmt.Sprintf("o-%03d", i), "u-1", base.Add(time.Duration(i)*time.Minute),
				domain.LineItem{Name: "Custom cake", Quantity: 1})
			if i%2 == 0 {
				o.PaymentStatus = domain.PaymentPaid
			}
			if i%4 == 0 {
				o.CancelRequestedBy = "emp-1"
			}
			if err := repo.Create(ctx, o); err != nil {
				t.Fatal(err)
			}
		}
		priced := newOrder("o-priced", "u-1", base, domain.LineItem{Name: "Concha", Quantity: 1, Price: price("1.75")})
		priced.Status = domain.StatusBaking
		if err := repo.Create(ctx, priced); err != nil {
			t.Fatal(err)
		}

		counts, err := repo.CountByStatus(ctx)
		if err != nil {
			t.Fatal(err)
		}
		want := map[domain.OrderStatus]ports.StatusCount{
			domain.StatusPending: {Orders: n, PendingPrice: n, CancellationRequests: n / 4, Unpaid: n / 2},
			domain.StatusBaking:  {Orders: 1, Unpaid: 1},
		}
		if diff := cmp.Diff(want, counts); diff != "" {
			t.Errorf("counts (-want +got):\n%s", diff)
		}
	})

	t.Run("missing rows report ErrNotFound", func(t *testing.T) {
		repo := sqlstore.NewOrders(openDB(t))
		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Get: err = %v, want ErrNotFound", err)
		}
		if err := repo.Update(ctx, newOrder("nope", "", base)); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Update: err = %v, want ErrNotFound", err)
		}
		if err := repo.Delete(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Delete: err = %v, want ErrNotFound", err)
		}
	})
}

func TestQuotes(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewQuotes(openDB(t))

	q := &domain.Quote{
		ID:            "q-1",
		CustomerName:  "Luis",
		CustomerEmail: "luis@example.com",
		Occasion:      "Wedding",
		Servings:      "80",
		Status:        domain.QuotePending,
		CreatedAt:     base,
		UpdatedAt:     base,
	}
	if err := repo.Create(ctx, q); err != nil {
		t.Fatal(err)
	}

	q.Status = domain.QuoteResponded
	q.EstimatedPrice = price("180")
	q.Response = "We can do a three-tier cake."
	q.UpdatedAt = base.Add(time.Hour)
	if err := repo.Update(ctx, q); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, "q-1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(q, got, decimalEqual); diff != "" {
		t.Errorf("quote mismatch (-want +got):\n%s", diff)
	}

	responded, err := repo.List(ctx, ports.QuoteFilter{Status: domain.QuoteResponded})
	if err != nil {
		t.Fatal(err)
	}
	if len(responded) != 1 {
		t.Errorf("got %d responded quotes, want 1", len(responded))
	}

	if err := repo.Delete(ctx, "q-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, "q-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProfilesEnsureKeepsExistingRole(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewProfiles(openDB(t))

	p := &domain.Profile{ID: "u-1", Email: "owner@example.com", Role: domain.RoleCustomer, Language: "en", CreatedAt: base, UpdatedAt: base}
	if _, err := repo.Ensure(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.Role = domain.RoleOwner
	if err := repo.Update(ctx, p); err != nil {
		t.Fatal(err)
	}

	again := &domain.Profile{ID: "u-1", Email: "owner@example.com", Role: domain.RoleCustomer, Language: "en", CreatedAt: base, UpdatedAt: base}
	got, err := repo.Ensure(ctx, again)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != domain.RoleOwner {
		t.Errorf("role = %s, want owner", got.Role)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("got %d profiles, want 1", len(all))
	}
}

func TestWorkflowLogs(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewWorkflowLogs(openDB(t))

	for i, st := range []workflowlog.Status{workflowlog.StatusStarted, workflowlog.StatusStepDone, workflowlog.StatusCompleted} {
		e := workflowlog.NewEntry(ctx, "q-1", "quote_acceptance", st, "", "", nil)
		e.UpdatedAt = base
		e.RunID = "run-1"
		if i == 0 {
			e.Payload = `{"quote_id":"q-1"}`
		}
		if err := repo.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := repo.GetLatest(ctx, "q-1")
	if err != nil {
		t.Fatal(err)
	}
	if latest.Status != workflowlog.StatusCompleted {
		t.Errorf("latest status = %s, want COMPLETED", latest.Status)
	}

	history, err := repo.History(ctx, "q-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 || history[0].Payload == "" || history[1].Payload != "" {
		t.Errorf("unexpected history: %+v", history)
	}

	if _, err := repo.GetLatest(ctx, "other"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	t.Run("a retried run is ordered after the run it retries", func(t *testing.T) {
		save := func(run string, st workflowlog.Status) {
			t.Helper()
			e := workflowlog.NewEntry(ctx, "q-2", "quote_acceptance", st, "", "", nil)
			e.RunID = run
			e.UpdatedAt = base
			if err := repo.Save(ctx, e); err != nil {
				t.Fatal(err)
			}
		}
		save("first", workflowlog.StatusStarted)
		save("first", workflowlog.StatusFailed)
		save("second", workflowlog.StatusStarted)
		save("second", workflowlog.StatusCompleted)

		history, err := repo.History(ctx, "q-2")
		if err != nil {
			t.Fatal(err)
		}
		type row struct {
			Seq    int
			RunID  string
			Status workflowlog.Status
		}
		var got []row
		for _, e := range history {
			got = append(got, row{e.Seq, e.RunID, e.Status})
		}
		want := []row{
			{1, "first", workflowlog.StatusStarted},
			{2, "first", workflowlog.StatusFailed},
			{3, "second", workflowlog.StatusStarted},
			{4, "second", workflowlog.StatusCompleted},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("history (-want +got):\n%s", diff)
		}

		latest, err := repo.GetLatest(ctx, "q-2")
		if err != nil {
			t.Fatal(err)
		}
		if latest.RunID != "second" || latest.Status != workflowlog.StatusCompleted {
			t.Errorf("latest = %s/%s, want second/COMPLETED", latest.RunID, latest.Status)
		}
	})
}
