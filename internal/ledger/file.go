package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLedger appends JSONL entries to an activity log and keeps a marker
// file per processed email. Appends are mutex-guarded so a ledger instance
// can be shared.
type FileLedger struct {
	mu        sync.Mutex
	logPath   string
	markerDir string
	now       func() time.Time
}

// NewFileLedger creates the ledger directories and returns a ledger writing
// to dir/activity.jsonl with processed markers under dir/processed.
func NewFileLedger(dir string) (*FileLedger, error) {
	markerDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(markerDir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create %s: %w", markerDir, err)
	}
	return &FileLedger{
		logPath:   filepath.Join(dir, "activity.jsonl"),
		markerDir: markerDir,
		now:       time.Now,
	}, nil
}

// HasProcessed reports whether a processed marker exists for the id.
func (l *FileLedger) HasProcessed(_ context.Context, emailID string) (bool, error) {
	_, err := os.Stat(l.markerPath(emailID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("ledger: stat marker: %w", err)
}

// MarkProcessed writes the processed marker for the id.
func (l *FileLedger) MarkProcessed(_ context.Context, emailID string) error {
	if err := os.WriteFile(l.markerPath(emailID), []byte(emailID+"\n"), 0o644); err != nil {
		return fmt.Errorf("ledger: write marker: %w", err)
	}
	return nil
}

// Record appends one JSONL entry to the activity log.
func (l *FileLedger) Record(_ context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("ledger: encode entry: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open %s: %w", l.logPath, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("ledger: append entry: %w", err)
	}
	return nil
}

// Tail returns up to n most recent entries from the activity log.
func (l *FileLedger) Tail(_ context.Context, n int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: open %s: %w", l.logPath, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ledger: scan %s: %w", l.logPath, err)
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

func (l *FileLedger) markerPath(emailID string) string {
	return filepath.Join(l.markerDir, emailID+".done")
}
