// Package workflowlog records every transition of a coordinated workflow.
//
// Rows are append-only. The latest row of a workflow tells staff where a
// quote acceptance stopped, and its trace_id links the row to the trace.
package workflowlog

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// Entry is a single row of the workflow_logs table.
type Entry struct {
	ID string

	// WorkflowID groups every run of one workflow, e.g. the quote id being
	// accepted.
	WorkflowID string

	// RunID is fresh for each attempt, so a retried acceptance can be told
	// apart from the one that failed before it.
	RunID string

	// Kind names the workflow, e.g. "quote_acceptance".
	Kind string

	Status      Status
	CurrentStep string

	// Payload is the JSON input of the run. Only the STARTED row carries it.
	Payload string

	// ErrorMessages is a JSON array of failure details.
	ErrorMessages string

	TraceID string
	SpanID  string

	// Seq orders the rows of a workflow across all of its runs. The
	// repository assigns it on Save.
	Seq int

	UpdatedAt time.Time
}

// Errors decodes ErrorMessages. A malformed column yields nil.
func (e *Entry) Errors() []string {
	var out []string
	if err := json.Unmarshal([]byte(e.ErrorMessages), &out); err != nil {
		return nil
	}
	return out
}
