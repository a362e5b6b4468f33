package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestFileLedgerMarkers(t *testing.T) {
	l, err := NewFileLedger(t.TempDir())
	if err != nil {
		t.Fatalf("new file ledger: %v", err)
	}
	ctx := context.Background()

	done, err := l.HasProcessed(ctx, "abc123")
	if err != nil {
		t.Fatalf("has processed: %v", err)
	}
	if done {
		t.Fatal("expected unprocessed id")
	}
	if err := l.MarkProcessed(ctx, "abc123"); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	done, err = l.HasProcessed(ctx, "abc123")
	if err != nil {
		t.Fatalf("has processed: %v", err)
	}
	if !done {
		t.Fatal("expected processed id")
	}
}

func TestFileLedgerAppendAndTail(t *testing.T) {
	l, err := NewFileLedger(t.TempDir())
	if err != nil {
		t.Fatalf("new file ledger: %v", err)
	}
	ctx := context.Background()
	for _, stage := range []string{StageExtract, StageValidate, StageQuote} {
		err := l.Record(ctx, Entry{
			EmailID: "e-1",
			Stage:   stage,
			Outcome: OutcomeSuccess,
			Message: stage + " completed",
		})
		if err != nil {
			t.Fatalf("record %s: %v", stage, err)
		}
	}

	entries, err := l.Tail(context.Background(), 2)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Stage != StageValidate || entries[1].Stage != StageQuote {
		t.Fatalf("unexpected tail order: %s, %s", entries[0].Stage, entries[1].Stage)
	}
	if entries[1].Timestamp.IsZero() {
		t.Fatal("expected timestamp to be stamped")
	}
}

func newRedisLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLedger(client, "quotes-test", time.Hour), srv
}

func TestRedisLedgerMarkers(t *testing.T) {
	l, _ := newRedisLedger(t)
	ctx := context.Background()

	done, err := l.HasProcessed(ctx, "e-9")
	if err != nil {
		t.Fatalf("has processed: %v", err)
	}
	if done {
		t.Fatal("expected unprocessed id")
	}
	if err := l.MarkProcessed(ctx, "e-9"); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	done, err = l.HasProcessed(ctx, "e-9")
	if err != nil {
		t.Fatalf("has processed: %v", err)
	}
	if !done {
		t.Fatal("expected processed id")
	}
}

func TestRedisLedgerActivityTrail(t *testing.T) {
	l, _ := newRedisLedger(t)
	ctx := context.Background()

	for i, outcome := range []Outcome{OutcomeInfo, OutcomeSuccess, OutcomeFailure} {
		err := l.Record(ctx, Entry{
			EmailID:  "e-9",
			Stage:    StageQuote,
			Outcome:  outcome,
			Message:  "attempt",
			Metadata: map[string]string{"attempt": string(rune('1' + i))},
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := l.Tail(ctx, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].Outcome != OutcomeFailure {
		t.Fatalf("expected FAILURE last, got %s", entries[2].Outcome)
	}
}
