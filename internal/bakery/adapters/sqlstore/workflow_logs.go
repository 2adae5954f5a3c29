package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/workflowlog"
)

// WorkflowLogs is the append-only workflow_logs table.
type WorkflowLogs struct {
	db *DB
}

func NewWorkflowLogs(db *DB) *WorkflowLogs { return &WorkflowLogs{db: db} }

var _ workflowlog.Repository = (*WorkflowLogs)(nil)

const workflowColumns = `id, workflow_id, run_id, kind, status, current_step, COALESCE(payload, ''),
	error_messages, trace_id, span_id, seq, updated_at`

// Save numbers e after the newest row of its workflow, whichever run wrote it.
func (r *WorkflowLogs) Save(ctx context.Context, e *workflowlog.Entry) error {
	err := r.db.queryRow(ctx, `INSERT INTO workflow_logs
		(id, workflow_id, run_id, kind, status, current_step, payload, error_messages, trace_id, span_id, seq, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1, ?
		FROM workflow_logs WHERE workflow_id = ?
		RETURNING seq`,
		e.ID, e.WorkflowID, e.RunID, e.Kind, string(e.Status), e.CurrentStep,
		nullableString(e.Payload), e.ErrorMessages, e.TraceID, e.SpanID,
		formatTime(e.UpdatedAt), e.WorkflowID,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("sqlstore: save workflow log for %q: %w", e.WorkflowID, err)
	}
	return nil
}

func (r *WorkflowLogs) GetLatest(ctx context.Context, workflowID string) (*workflowlog.Entry, error) {
	row := r.db.queryRow(ctx, `SELECT `+workflowColumns+` FROM workflow_logs
		WHERE workflow_id = ?
		ORDER BY seq DESC, updated_at DESC
		LIMIT 1`, workflowID)
	e, err := scanWorkflowEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlstore: workflow %q: %w", workflowID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get latest for %q: %w", workflowID, err)
	}
	return e, nil
}

func (r *WorkflowLogs) History(ctx context.Context, workflowID string) ([]*workflowlog.Entry, error) {
	rows, err := r.db.query(ctx, `SELECT `+workflowColumns+` FROM workflow_logs
		WHERE workflow_id = ?
		ORDER BY seq, updated_at`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: history of %q: %w", workflowID, err)
	}
	defer rows.Close()

	var out []*workflowlog.Entry
	for rows.Next() {
		e, err := scanWorkflowEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan workflow log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanWorkflowEntry(s scanner) (*workflowlog.Entry, error) {
	var (
		e         workflowlog.Entry
		status    string
		updatedAt string
	)
	err := s.Scan(&e.ID, &e.WorkflowID, &e.RunID, &e.Kind, &status, &e.CurrentStep, &e.Payload,
		&e.ErrorMessages, &e.TraceID, &e.SpanID, &e.Seq, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = workflowlog.Status(status)
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
