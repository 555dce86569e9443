package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/abhisek/oneq/internal/catalog"
	"github.com/abhisek/oneq/internal/kv"
)

// snapshotKey is the kv document holding the resumable session.
const snapshotKey = "oneq_persisted_session"

// Snapshot is the durable projection of queue + cursor, written through
// after every transition and used solely for resume.
type Snapshot struct {
	Queue            []catalog.Item    `json:"videos"`
	CurrentIndex     int               `json:"currentIndex"`
	SelectedGroupIDs []string          `json:"selectedFolderIds"`
	OrderMode        catalog.OrderMode `json:"orderMode"`

	// SavedAt is stamped by the gateway on save, epoch milliseconds.
	SavedAt int64 `json:"savedAt"`

	// PlaybackPosition is the current item's position in seconds.
	PlaybackPosition float64 `json:"playbackPosition,omitempty"`
}

// Gateway persists session snapshots to the durable store. Writes are
// best-effort: a failure is logged and swallowed, the in-memory engine
// remains authoritative for the current process and only cross-reload
// resume is affected.
type Gateway struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewGateway creates a gateway over the given store.
func NewGateway(store kv.Store) *Gateway {
	return &Gateway{store: store, logger: slog.Default(), now: time.Now}
}

// Save writes the snapshot through to durable storage.
func (g *Gateway) Save(ctx context.Context, snap *Snapshot) {
	snap.SavedAt = g.now().UnixMilli()

	data, err := json.Marshal(snap)
	if err != nil {
		g.logger.Warn("failed to marshal session snapshot", "error", err)
		return
	}
	if err := g.store.Set(ctx, snapshotKey, data); err != nil {
		g.logger.Warn("failed to save session snapshot", "error", err)
	}
}

// Load returns the persisted snapshot, or nil when none exists, the
// stored document is malformed, or the snapshot is stale (its cursor
// already reached the end of the queue). Stale snapshots are cleared.
func (g *Gateway) Load(ctx context.Context) *Snapshot {
	data, err := g.store.Get(ctx, snapshotKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		g.logger.Warn("failed to read session snapshot", "error", err)
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}

	if snap.Queue == nil || snap.SelectedGroupIDs == nil || snap.CurrentIndex < 0 {
		return nil
	}

	if snap.CurrentIndex >= len(snap.Queue) {
		// Stale-complete snapshot: not a resumable session.
		g.Clear(ctx)
		return nil
	}

	return &snap
}

// Clear removes the persisted snapshot.
func (g *Gateway) Clear(ctx context.Context) {
	if err := g.store.Delete(ctx, snapshotKey); err != nil {
		g.logger.Warn("failed to clear session snapshot", "error", err)
	}
}

// HasPersistedSession reports whether a valid resumable snapshot exists.
func (g *Gateway) HasPersistedSession(ctx context.Context) bool {
	return g.Load(ctx) != nil
}
