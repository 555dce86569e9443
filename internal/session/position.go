package session

import (
	"context"
	"time"
)

// positionWriteInterval is the minimum spacing between persisted
// playback-position writes.
const positionWriteInterval = 5 * time.Second

// PositionReporter coalesces high-frequency playback progress signals
// into at most one persistence write per interval. The shell calls
// Report on every progress tick and Flush on teardown; switching items
// discards the previous item's unflushed position.
type PositionReporter struct {
	engine *Engine
	now    func() time.Time

	itemID    string
	position  float64
	dirty     bool
	lastWrite time.Time
}

// NewPositionReporter creates a reporter bound to the engine.
func NewPositionReporter(engine *Engine) *PositionReporter {
	return &PositionReporter{engine: engine, now: time.Now}
}

// Report records the playback position of the given item, writing
// through only when the interval since the last write has elapsed.
func (r *PositionReporter) Report(ctx context.Context, itemID string, seconds float64) {
	if itemID != r.itemID {
		// New item: stale state from the previous one is dropped.
		r.itemID = itemID
		r.dirty = false
		r.lastWrite = time.Time{}
	}

	r.position = seconds
	r.dirty = true

	if r.lastWrite.IsZero() || r.now().Sub(r.lastWrite) >= positionWriteInterval {
		r.flush(ctx)
	}
}

// Flush writes any unpersisted position immediately. Called on
// teardown or when playback completes.
func (r *PositionReporter) Flush(ctx context.Context) {
	if r.dirty {
		r.flush(ctx)
	}
}

func (r *PositionReporter) flush(ctx context.Context) {
	r.engine.UpdatePlaybackPosition(ctx, r.position)
	r.lastWrite = r.now()
	r.dirty = false
}
