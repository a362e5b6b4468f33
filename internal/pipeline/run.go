// Package pipeline drives one batch pass over an inbox of raw inquiry
// emails: extract, validate, acknowledge, quote, persist. The ledger makes
// the pass idempotent; a bad email is recorded and skipped, never fatal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kreeda-labs/backend-quotes/internal/ack"
	"github.com/kreeda-labs/backend-quotes/internal/catalog"
	"github.com/kreeda-labs/backend-quotes/internal/extract"
	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
	"github.com/kreeda-labs/backend-quotes/internal/ledger"
	"github.com/kreeda-labs/backend-quotes/internal/obs"
	"github.com/kreeda-labs/backend-quotes/internal/policy"
	"github.com/kreeda-labs/backend-quotes/internal/quote"
	"github.com/kreeda-labs/backend-quotes/internal/store"
)

// Runner wires the stages of the inquiry-to-quote workflow.
type Runner struct {
	Extractor     extract.Extractor
	ExtractorKind string
	Catalog       *catalog.Catalog
	Rules         *policy.Policy
	Ledger        ledger.Ledger
	Events        *store.Store
	Quotes        *store.Store
	Outbox        *store.Store
	Logger        zerolog.Logger
}

// Summary reports the outcome of one batch pass.
type Summary struct {
	RunID     string
	Processed int
	Skipped   int
	Failed    int
}

// Run processes every .txt file in inboxDir in lexical order. Individual
// failures are recorded in the ledger and counted; only infrastructure
// errors (unreadable inbox) abort the pass.
func (r *Runner) Run(ctx context.Context, inboxDir string) (Summary, error) {
	runID := uuid.NewString()
	summary := Summary{RunID: runID}

	files, err := filepath.Glob(filepath.Join(inboxDir, "*.txt"))
	if err != nil {
		return summary, fmt.Errorf("pipeline: scan inbox %s: %w", inboxDir, err)
	}
	sort.Strings(files)

	r.record(ctx, ledger.Entry{
		Stage:    ledger.StageWorkflow,
		Outcome:  ledger.OutcomeInfo,
		Message:  fmt.Sprintf("run started, %d emails found", len(files)),
		Metadata: map[string]string{"run_id": runID, "inbox": inboxDir},
	})

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			summary.Failed++
			r.Logger.Error().Err(err).Str("file", path).Msg("read email")
			continue
		}
		status, err := r.ProcessEmail(ctx, string(raw))
		switch {
		case err != nil:
			summary.Failed++
			r.Logger.Error().Err(err).Str("file", path).Msg("process email")
		case status == StatusSkipped:
			summary.Skipped++
		case status == StatusFailed:
			summary.Failed++
		default:
			summary.Processed++
		}
	}

	r.record(ctx, ledger.Entry{
		Stage:   ledger.StageWorkflow,
		Outcome: ledger.OutcomeSuccess,
		Message: "run finished",
		Metadata: map[string]string{
			"run_id":    runID,
			"processed": strconv.Itoa(summary.Processed),
			"skipped":   strconv.Itoa(summary.Skipped),
			"failed":    strconv.Itoa(summary.Failed),
		},
	})
	return summary, nil
}

// Processing statuses returned by ProcessEmail.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// ProcessEmail runs the full workflow for one raw email. The returned status
// distinguishes fresh work from idempotent skips.
func (r *Runner) ProcessEmail(ctx context.Context, raw string) (string, error) {
	emailID := extract.EmailID(raw)
	log := r.Logger.With().Str("email_id", emailID).Logger()

	done, err := r.Ledger.HasProcessed(ctx, emailID)
	if err != nil {
		return "", fmt.Errorf("pipeline: idempotency check: %w", err)
	}
	if done {
		log.Info().Msg("already processed, skipping")
		r.record(ctx, ledger.Entry{
			EmailID: emailID,
			Stage:   ledger.StageWorkflow,
			Outcome: ledger.OutcomeInfo,
			Message: "already processed, skipped",
		})
		r.countEmail("skipped")
		return StatusSkipped, nil
	}

	event, err := r.extractStage(ctx, emailID, raw)
	if err != nil {
		r.countEmail("failure")
		return "", err
	}

	if err := r.Events.Save(emailID, event); err != nil {
		r.countEmail("failure")
		return "", fmt.Errorf("pipeline: persist event: %w", err)
	}

	validated, err := inquiry.Validate(event, r.Catalog)
	if err != nil {
		r.record(ctx, ledger.Entry{
			EmailID: emailID,
			Stage:   ledger.StageValidate,
			Outcome: ledger.OutcomeFailure,
			Message: err.Error(),
		})
		r.countEmail("failure")
		var schemaErr *inquiry.SchemaError
		if errors.As(err, &schemaErr) {
			log.Warn().Err(err).Msg("event failed schema validation")
			return StatusFailed, nil
		}
		return "", fmt.Errorf("pipeline: validate: %w", err)
	}
	r.record(ctx, ledger.Entry{
		EmailID: emailID,
		Stage:   ledger.StageValidate,
		Outcome: ledger.OutcomeSuccess,
		Message: fmt.Sprintf("validated: %d items, %d gaps", len(validated.ExtractedItems), len(validated.GapsIdentified)),
	})
	r.countGaps(validated.GapsIdentified)

	draft := ack.Generate(validated)
	if err := r.Outbox.Save(emailID, draft); err != nil {
		r.countEmail("failure")
		return "", fmt.Errorf("pipeline: persist acknowledgment: %w", err)
	}
	r.record(ctx, ledger.Entry{
		EmailID: emailID,
		Stage:   ledger.StageAck,
		Outcome: ledger.OutcomeSuccess,
		Message: "acknowledgment drafted for " + draft.RecipientEmail,
	})

	q, err := quote.Generate(validated, r.Catalog, r.Rules)
	if err != nil {
		r.record(ctx, ledger.Entry{
			EmailID: emailID,
			Stage:   ledger.StageQuote,
			Outcome: ledger.OutcomeFailure,
			Message: err.Error(),
		})
		r.countEmail("failure")
		var invErr *quote.InvariantError
		if errors.As(err, &invErr) {
			log.Error().Err(err).Msg("catalog drifted between validation and pricing")
			return StatusFailed, nil
		}
		return "", fmt.Errorf("pipeline: quote: %w", err)
	}
	if err := r.Quotes.Save(emailID, q); err != nil {
		r.countEmail("failure")
		return "", fmt.Errorf("pipeline: persist quote: %w", err)
	}
	r.record(ctx, ledger.Entry{
		EmailID:  emailID,
		Stage:    ledger.StageQuote,
		Outcome:  ledger.OutcomeSuccess,
		Message:  "quote generated with status " + string(q.Status),
		Metadata: map[string]string{"status": string(q.Status)},
	})
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.WithLabelValues(string(q.Status)).Inc()
	}

	if err := r.Ledger.MarkProcessed(ctx, emailID); err != nil {
		r.countEmail("failure")
		return "", fmt.Errorf("pipeline: mark processed: %w", err)
	}
	r.record(ctx, ledger.Entry{
		EmailID: emailID,
		Stage:   ledger.StageWorkflow,
		Outcome: ledger.OutcomeSuccess,
		Message: "workflow completed",
	})
	r.countEmail("success")
	log.Info().Str("status", string(q.Status)).Msg("email processed")
	return StatusProcessed, nil
}

func (r *Runner) extractStage(ctx context.Context, emailID, raw string) (inquiry.ParsedEvent, error) {
	start := time.Now()
	event, err := r.Extractor.Extract(ctx, raw)
	if obs.ExtractionDuration != nil {
		obs.ExtractionDuration.WithLabelValues(r.extractorKind()).Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		r.record(ctx, ledger.Entry{
			EmailID: emailID,
			Stage:   ledger.StageExtract,
			Outcome: ledger.OutcomeFailure,
			Message: err.Error(),
		})
		return inquiry.ParsedEvent{}, fmt.Errorf("pipeline: extract: %w", err)
	}
	r.record(ctx, ledger.Entry{
		EmailID: emailID,
		Stage:   ledger.StageExtract,
		Outcome: ledger.OutcomeSuccess,
		Message: fmt.Sprintf("extracted %d items, %d gaps", len(event.ExtractedItems), len(event.GapsIdentified)),
	})
	return event, nil
}

func (r *Runner) extractorKind() string {
	if r.ExtractorKind == "" {
		return "unknown"
	}
	return r.ExtractorKind
}

// record appends a ledger entry, logging instead of failing when the trail
// itself is unavailable.
func (r *Runner) record(ctx context.Context, entry ledger.Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := r.Ledger.Record(ctx, entry); err != nil {
		r.Logger.Error().Err(err).Str("stage", entry.Stage).Msg("record ledger entry")
	}
}

func (r *Runner) countEmail(outcome string) {
	if obs.EmailsProcessedTotal != nil {
		obs.EmailsProcessedTotal.WithLabelValues(outcome).Inc()
	}
}

func (r *Runner) countGaps(gaps []inquiry.Gap) {
	if obs.GapsIdentifiedTotal == nil {
		return
	}
	for _, gap := range gaps {
		obs.GapsIdentifiedTotal.WithLabelValues(string(gap.Type)).Inc()
	}
}
