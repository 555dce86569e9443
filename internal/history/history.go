// Package history keeps a short rolling record of completed sessions.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/oneq/internal/kv"
)

// historyKey is the kv document holding the rolling session record.
const historyKey = "oneq_session_history"

// MaxEntries bounds the rolling history length.
const MaxEntries = 10

// Entry summarizes one completed session.
type Entry struct {
	ID            string    `json:"id"`
	CompletedAt   time.Time `json:"completedAt"`
	TotalViews    int       `json:"totalViews"`
	WeakMarkCount int       `json:"reviewMarkCount"`
	ResolvedCount int       `json:"resolvedCount"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(struct {
		alias
		CompletedAt int64 `json:"completedAt"`
	}{alias(e), e.CompletedAt.UnixMilli()})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	type alias Entry
	var aux struct {
		alias
		CompletedAt int64 `json:"completedAt"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Entry(aux.alias)
	e.CompletedAt = time.UnixMilli(aux.CompletedAt)
	return nil
}

// Store reads and writes the session history through the kv backend.
type Store struct {
	store kv.Store
	now   func() time.Time
}

// NewStore creates a history store.
func NewStore(store kv.Store) *Store {
	return &Store{store: store, now: time.Now}
}

// Add records a completed session at the head of the history,
// truncating to MaxEntries. The entry's ID and completion time are
// assigned here.
func (s *Store) Add(ctx context.Context, entry Entry) error {
	entry.ID = uuid.NewString()
	entry.CompletedAt = s.now()

	entries := s.load(ctx)
	entries = append([]Entry{entry}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal session history: %w", err)
	}
	if err := s.store.Set(ctx, historyKey, data); err != nil {
		return fmt.Errorf("save session history: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first. n <= 0 means all.
func (s *Store) Recent(ctx context.Context, n int) []Entry {
	entries := s.load(ctx)
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Clear removes the whole history.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, historyKey); err != nil {
		return fmt.Errorf("clear session history: %w", err)
	}
	return nil
}

// load tolerates a missing or corrupt document by returning an empty
// history.
func (s *Store) load(ctx context.Context) []Entry {
	data, err := s.store.Get(ctx, historyKey)
	if err != nil {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}
