package coordinator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/workflowlog"
)

type fakeStep struct {
	name       string
	fail       error
	calls      *[]string
	compensate error
}

func (s fakeStep) Name() string { return s.name }

func (s fakeStep) Execute(context.Context) error {
	*s.calls = append(*s.calls, "exec "+s.name)
	return s.fail
}

func (s fakeStep) Compensate(context.Context) error {
	*s.calls = append(*s.calls, "undo "+s.name)
	return s.compensate
}

type memLog struct {
	entries []*workflowlog.Entry
}

func (m *memLog) Save(_ context.Context, e *workflowlog.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLog) GetLatest(_ context.Context, id string) (*workflowlog.Entry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].WorkflowID == id {
			return m.entries[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLog) History(_ context.Context, id string) ([]*workflowlog.Entry, error) {
	var out []*workflowlog.Entry
	for _, e := range m.entries {
		if e.WorkflowID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func statuses(entries []*workflowlog.Entry) []workflowlog.Status {
	var out []workflowlog.Status
	for _, e := range entries {
		out = append(out, e.Status)
	}
	return out
}

func TestOrchestrator(t *testing.T) {
	t.Run("when every step succeeds, it logs each transition", func(t *testing.T) {
		var calls []string
		log := &memLog{}
		err := coordinator.NewOrchestrator([]coordinator.Step{
			fakeStep{name: "a", calls: &calls},
			fakeStep{name: "b", calls: &calls},
		}).WithLog(log, "wf-1", "test", `{}`).Start(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		if diff := cmp.Diff([]string{"exec a", "exec b"}, calls); diff != "" {
			t.Errorf("calls (-want +got):\n%s", diff)
		}
		want := []workflowlog.Status{
			workflowlog.StatusStarted, workflowlog.StatusStepDone,
			workflowlog.StatusStepDone, workflowlog.StatusCompleted,
		}
		if diff := cmp.Diff(want, statuses(log.entries)); diff != "" {
			t.Errorf("statuses (-want +got):\n%s", diff)
		}
		if log.entries[0].Payload != `{}` {
			t.Errorf("unexpected first entry: %+v", log.entries[0])
		}
		for _, e := range log.entries {
			if e.RunID == "" || e.RunID != log.entries[0].RunID {
				t.Errorf("entry %s has run id %q, want %q", e.Status, e.RunID, log.entries[0].RunID)
			}
		}
	})

	t.Run("each start of the same workflow gets its own run id", func(t *testing.T) {
		log := &memLog{}
		o := coordinator.NewOrchestrator([]coordinator.Step{fakeStep{name: "a", calls: new([]string)}}).
			WithLog(log, "wf-3", "test", "")
		for range 2 {
			if err := o.Start(context.Background()); err != nil {
				t.Fatal(err)
			}
		}

		if len(log.entries) != 6 {
			t.Fatalf("got %d entries, want 6", len(log.entries))
		}
		first, second := log.entries[0].RunID, log.entries[3].RunID
		if first == "" || first == second {
			t.Errorf("run ids = %q and %q, want two distinct ids", first, second)
		}
	})

	t.Run("when a step fails, completed steps are compensated in reverse", func(t *testing.T) {
		var calls []string
		log := &memLog{}
		boom := errors.New("boom")
		err := coordinator.NewOrchestrator([]coordinator.Step{
			fakeStep{name: "a", calls: &calls},
			fakeStep{name: "b", calls: &calls, compensate: errors.New("stuck")},
			fakeStep{name: "c", calls: &calls, fail: boom},
		}).WithLog(log, "wf-2", "test", "").Start(context.Background())
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}

		if diff := cmp.Diff([]string{"exec a", "exec b", "exec c", "undo b", "undo a"}, calls); diff != "" {
			t.Errorf("calls (-want +got):\n%s", diff)
		}
		last := log.entries[len(log.entries)-1]
		if last.Status != workflowlog.StatusFailed || last.CurrentStep != "c" {
			t.Errorf("last entry = %s/%s, want FAILED/c", last.Status, last.CurrentStep)
		}
		if diff := cmp.Diff([]string{"step c failed: boom", "compensation of b failed: stuck"}, last.Errors()); diff != "" {
			t.Errorf("errors (-want +got):\n%s", diff)
		}
	})

	t.Run("without a log it still runs", func(t *testing.T) {
		var calls []string
		if err := coordinator.NewOrchestrator([]coordinator.Step{fakeStep{name: "a", calls: &calls}}).Start(context.Background()); err != nil {
			t.Fatal(err)
		}
	})
}

type quoteRepo struct {
	saved     []domain.QuoteStatus
	updateErr error
}

func (r *quoteRepo) Create(context.Context, *domain.Quote) error { return nil }
func (r *quoteRepo) Get(context.Context, string) (*domain.Quote, error) {
	return nil, domain.ErrNotFound
}
func (r *quoteRepo) List(context.Context, ports.QuoteFilter) ([]*domain.Quote, error) {
	return nil, nil
}
func (r *quoteRepo) Delete(context.Context, string) error { return nil }
func (r *quoteRepo) Update(_ context.Context, q *domain.Quote) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.saved = append(r.saved, q.Status)
	return nil
}

func TestMarkQuoteAcceptedStep(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("it accepts a responded quote and restores it on compensation", func(t *testing.T) {
		repo := &quoteRepo{}
		q := &domain.Quote{ID: "q-1", Status: domain.QuoteResponded}
		step := coordinator.NewMarkQuoteAcceptedStep(repo, q, "o-1", now)

		if err := step.Execute(context.Background()); err != nil {
			t.Fatal(err)
		}
		if q.Status != domain.QuoteAccepted || q.OrderID != "o-1" {
			t.Errorf("quote = %s/%s, want accepted/o-1", q.Status, q.OrderID)
		}
		if err := step.Compensate(context.Background()); err != nil {
			t.Fatal(err)
		}
		if q.Status != domain.QuoteResponded || q.OrderID != "" {
			t.Errorf("quote = %s/%q, want responded with no order", q.Status, q.OrderID)
		}
	})

	t.Run("a pending quote cannot be accepted", func(t *testing.T) {
		q := &domain.Quote{ID: "q-1", Status: domain.QuotePending}
		err := coordinator.NewMarkQuoteAcceptedStep(&quoteRepo{}, q, "o-1", now).Execute(context.Background())
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("a failed update leaves the quote untouched", func(t *testing.T) {
		q := &domain.Quote{ID: "q-1", Status: domain.QuoteResponded}
		err := coordinator.NewMarkQuoteAcceptedStep(&quoteRepo{updateErr: errors.New("db down")}, q, "o-1", now).Execute(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		if q.Status != domain.QuoteResponded {
			t.Errorf("status = %s, want responded", q.Status)
		}
	})
}
