package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/oneq/internal/kv"
)

// storageKey is the kv document holding the rolling event array.
const storageKey = "oneq_learning_log"

// RetentionDays is the rolling window for kept events. Older events are
// pruned lazily on each append.
const RetentionDays = 30

// Log is the append-only event store over a kv document.
type Log struct {
	store kv.Store
	now   func() time.Time
}

// NewLog creates a log over the given store.
func NewLog(store kv.Store) *Log {
	return &Log{store: store, now: time.Now}
}

// NewLogWithClock creates a log with an injected clock, for tests.
func NewLogWithClock(store kv.Store, now func() time.Time) *Log {
	return &Log{store: store, now: now}
}

// Append stamps the event with the current time, appends it, and prunes
// events older than the retention window.
func (l *Log) Append(ctx context.Context, e Event) error {
	events, err := l.All(ctx)
	if err != nil {
		return err
	}

	e.Timestamp = l.now()
	events = append(events, e)

	cutoff := l.now().AddDate(0, 0, -RetentionDays)
	kept := events[:0]
	for _, ev := range events {
		if !ev.Timestamp.Before(cutoff) {
			kept = append(kept, ev)
		}
	}

	return l.save(ctx, kept)
}

// All returns every retained event in insertion order. A missing or
// malformed document yields an empty log.
func (l *Log) All(ctx context.Context) ([]Event, error) {
	data, err := l.store.Get(ctx, storageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load learning log: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		// Corrupt document: treat as missing rather than failing reads.
		return nil, nil
	}
	return events, nil
}

// Clear removes all events.
func (l *Log) Clear(ctx context.Context) error {
	if err := l.store.Delete(ctx, storageKey); err != nil {
		return fmt.Errorf("clear learning log: %w", err)
	}
	return nil
}

func (l *Log) save(ctx context.Context, events []Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal learning log: %w", err)
	}
	if err := l.store.Set(ctx, storageKey, data); err != nil {
		return fmt.Errorf("save learning log: %w", err)
	}
	return nil
}
