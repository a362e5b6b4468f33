package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisLedger keeps processed markers as SETNX keys and the activity trail
// as an RPUSH list, so several pipeline hosts can share one ledger.
type RedisLedger struct {
	R      *redis.Client
	Prefix string
	// TTL bounds marker lifetime; zero keeps markers forever.
	TTL time.Duration
	now func() time.Time
}

// NewRedisLedger wires a ledger over an existing Redis client.
func NewRedisLedger(client *redis.Client, prefix string, ttl time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "quotes"
	}
	return &RedisLedger{R: client, Prefix: prefix, TTL: ttl, now: time.Now}
}

// HasProcessed reports whether the processed marker exists.
func (l *RedisLedger) HasProcessed(ctx context.Context, emailID string) (bool, error) {
	n, err := l.R.Exists(ctx, l.markerKey(emailID)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger: redis exists: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed sets the processed marker. SetNX keeps the first completion
// authoritative under concurrent markers.
func (l *RedisLedger) MarkProcessed(ctx context.Context, emailID string) error {
	if err := l.R.SetNX(ctx, l.markerKey(emailID), "1", l.TTL).Err(); err != nil {
		return fmt.Errorf("ledger: redis setnx: %w", err)
	}
	return nil
}

// Record appends the entry to the activity list.
func (l *RedisLedger) Record(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("ledger: encode entry: %w", err)
	}
	if err := l.R.RPush(ctx, l.activityKey(), data).Err(); err != nil {
		return fmt.Errorf("ledger: redis rpush: %w", err)
	}
	return nil
}

// Tail returns up to n most recent entries from the activity list.
func (l *RedisLedger) Tail(ctx context.Context, n int) ([]Entry, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := l.R.LRange(ctx, l.activityKey(), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger: redis lrange: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *RedisLedger) markerKey(emailID string) string {
	return l.Prefix + ":processed:" + emailID
}

func (l *RedisLedger) activityKey() string {
	return l.Prefix + ":activity"
}
