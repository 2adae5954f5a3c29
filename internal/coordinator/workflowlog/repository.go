package workflowlog

import "context"

// Repository persists workflow log entries.
type Repository interface {
	// Save appends a row and sets its Seq. Entries are never updated.
	Save(ctx context.Context, entry *Entry) error

	// GetLatest returns the newest row of a workflow.
	GetLatest(ctx context.Context, workflowID string) (*Entry, error)

	// History returns every row of a workflow, oldest first.
	History(ctx context.Context, workflowID string) ([]*Entry, error)
}
