// Package coordinator runs multi-step workflows whose steps each know how to
// undo themselves. Quote acceptance is the only workflow today: it writes an
// order and flips the quote, and neither may survive without the other.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jcmexdev/bakery-storefront/internal/coordinator/workflowlog"
)

// Step is a single unit of work with a compensating action.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator executes steps in order and rolls completed ones back in
// reverse when a later step fails.
type Orchestrator struct {
	steps []Step

	log        workflowlog.Repository
	workflowID string
	kind       string
	payload    string
	runID      string
}

func NewOrchestrator(steps []Step) *Orchestrator {
	return &Orchestrator{steps: steps}
}

// WithLog records every transition of the run under workflowID.
func (o *Orchestrator) WithLog(repo workflowlog.Repository, workflowID, kind, payload string) *Orchestrator {
	o.log = repo
	o.workflowID = workflowID
	o.kind = kind
	o.payload = payload
	return o
}

// Start runs the steps. On failure the error of the failing step is returned
// after compensation, whether or not compensation itself succeeded.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.runID = uuid.NewString()
	o.record(ctx, workflowlog.StatusStarted, "", o.payload, nil)

	var done []Step
	for _, step := range o.steps {
		slog.InfoContext(ctx, "executing step", "workflow_id", o.workflowID, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			slog.WarnContext(ctx, "step failed, starting rollback",
				"workflow_id", o.workflowID, "step", step.Name(), "error", err)
			errs := []string{fmt.Sprintf("step %s failed: %v", step.Name(), err)}
			o.record(ctx, workflowlog.StatusCompensating, step.Name(), "", errs)

			errs = append(errs, o.rollback(ctx, done)...)
			o.record(ctx, workflowlog.StatusFailed, step.Name(), "", errs)
			return err
		}
		done = append(done, step)
		o.record(ctx, workflowlog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, workflowlog.StatusCompleted, "", "", nil)
	slog.InfoContext(ctx, "workflow completed", "workflow_id", o.workflowID, "kind", o.kind)
	return nil
}

// rollback compensates steps LIFO. A cancelled request must not stop it.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []string {
	ctx = context.WithoutCancel(ctx)
	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating step", "workflow_id", o.workflowID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "compensation failed",
				"workflow_id", o.workflowID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensation of %s failed: %v", step.Name(), err))
		}
	}
	return errs
}

func (o *Orchestrator) record(ctx context.Context, status workflowlog.Status, step, payload string, errs []string) {
	if o.log == nil {
		return
	}
	entry := workflowlog.NewEntry(ctx, o.workflowID, o.kind, status, step, payload, errs)
	entry.RunID = o.runID
	if err := o.log.Save(context.WithoutCancel(ctx), entry); err != nil {
		slog.WarnContext(ctx, "failed to save workflow log",
			"workflow_id", o.workflowID, "status", status, "error", err)
	}
}
