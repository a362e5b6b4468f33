// Package ledger tracks which emails a run has already processed and keeps
// one append-only record per processing attempt. The core stays a pure
// function; idempotency is enforced here, at the boundary.
package ledger

import (
	"context"
	"time"
)

// Outcome classifies a processing attempt.
type Outcome string

const (
	// OutcomeSuccess marks a completed stage.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeFailure marks a failed stage.
	OutcomeFailure Outcome = "FAILURE"
	// OutcomeInfo marks informational records such as skips.
	OutcomeInfo Outcome = "INFO"
)

// Processing stages recorded per attempt.
const (
	StageWorkflow = "WORKFLOW"
	StageExtract  = "EXTRACT"
	StageValidate = "VALIDATE"
	StageAck      = "ACKNOWLEDGMENT"
	StageQuote    = "QUOTE"
)

// Entry is one structured, append-only record. Entries are never mutated in
// place.
type Entry struct {
	EmailID   string            `json:"email_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Stage     string            `json:"stage"`
	Outcome   Outcome           `json:"outcome"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Ledger is the injected capability the pipeline uses for idempotency and
// traceability.
type Ledger interface {
	// HasProcessed reports whether a quote was already produced for the id.
	HasProcessed(ctx context.Context, emailID string) (bool, error)
	// MarkProcessed records that a quote now exists for the id.
	MarkProcessed(ctx context.Context, emailID string) error
	// Record appends one entry to the activity trail.
	Record(ctx context.Context, entry Entry) error
	// Tail returns up to n most recent entries from the activity trail.
	Tail(ctx context.Context, n int) ([]Entry, error)
}
