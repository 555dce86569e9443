package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/abhisek/oneq/internal/catalog"
	"github.com/abhisek/oneq/internal/eventlog"
	"github.com/abhisek/oneq/internal/mastery"
)

// Engine is the adaptive queue state machine. One engine serves one
// session; collaborators are injected so the engine is testable in
// isolation. All operations run on a single logical thread of control
// (UI callbacks); no internal locking is needed.
type Engine struct {
	cfg     Config
	log     *eventlog.Log
	gateway *Gateway
	logger  *slog.Logger

	phase  Phase
	queue  []catalog.Item
	cursor int

	// pending holds at most one item awaiting delayed re-insertion.
	pending           *catalog.Item
	itemsSincePending int

	// secondRound collects "unsure" items for a follow-up pass after
	// the first traversal completes.
	secondRound   []catalog.Item
	inSecondRound bool

	sessionID   string
	selectedIDs []string
	orderMode   catalog.OrderMode

	itemStats  map[string]*ItemStats
	statsOrder []string

	weakAtStart   []string
	viewedAtStart int

	playbackPosition float64
}

// NewEngine creates an idle engine. The gateway may be nil for
// sessions that should not persist.
func NewEngine(cfg Config, log *eventlog.Log, gateway *Gateway) *Engine {
	return &Engine{
		cfg:     cfg,
		log:     log,
		gateway: gateway,
		logger:  slog.Default(),
		phase:   PhaseIdle,
	}
}

// Start begins a fresh session over the given queue. The weak-item and
// total-viewed baselines for the session summary are snapshotted here.
func (e *Engine) Start(ctx context.Context, items []catalog.Item, selectedIDs []string, mode catalog.OrderMode) error {
	if len(items) == 0 {
		return &ErrEmptyQueue{}
	}

	e.queue = make([]catalog.Item, len(items))
	copy(e.queue, items)
	e.cursor = 0
	e.pending = nil
	e.itemsSincePending = 0
	e.secondRound = nil
	e.inSecondRound = false
	e.sessionID = uuid.NewString()
	e.selectedIDs = selectedIDs
	e.orderMode = mode
	e.itemStats = make(map[string]*ItemStats)
	e.statsOrder = nil
	e.playbackPosition = 0

	events := e.events(ctx)
	e.weakAtStart = mastery.WeakItemIDs(events)
	e.viewedAtStart = mastery.TotalViewedCount(events)

	e.phase = PhaseActive
	e.persist(ctx)
	return nil
}

// StartFromCatalog fetches the catalog, resolves the queue for the
// selection, and starts the session.
func (e *Engine) StartFromCatalog(ctx context.Context, provider catalog.Provider, selectedIDs []string, mode catalog.OrderMode) error {
	e.phase = PhaseLoading

	all, err := provider.FetchCatalog(ctx)
	if err != nil {
		e.phase = PhaseIdle
		return err
	}

	queue, err := catalog.BuildQueue(all, selectedIDs, catalog.QueueOptions{
		Mode:   mode,
		Events: e.events(ctx),
	})
	if err != nil {
		e.phase = PhaseIdle
		return err
	}

	return e.Start(ctx, queue, selectedIDs, mode)
}

// StartWeakOnly begins a second-chance session seeded with exactly the
// items currently classified weak, in catalog order. It is a fresh
// queue, not a continuation: all baselines reset.
func (e *Engine) StartWeakOnly(ctx context.Context, all []catalog.Item) error {
	weak := mastery.WeakItemIDs(e.events(ctx))
	weakSet := make(map[string]bool, len(weak))
	for _, id := range weak {
		weakSet[id] = true
	}

	var items []catalog.Item
	var ids []string
	for _, it := range all {
		if weakSet[it.ID] {
			items = append(items, it)
			ids = append(ids, it.ID)
		}
	}
	if len(items) == 0 {
		return &ErrEmptyQueue{}
	}

	return e.Start(ctx, items, ids, catalog.OrderSequential)
}

// Resume restores a persisted session. Returns false when no valid
// snapshot exists.
func (e *Engine) Resume(ctx context.Context) bool {
	if e.gateway == nil {
		return false
	}
	snap := e.gateway.Load(ctx)
	if snap == nil {
		return false
	}

	e.queue = snap.Queue
	e.cursor = snap.CurrentIndex
	e.selectedIDs = snap.SelectedGroupIDs
	e.orderMode = snap.OrderMode
	e.playbackPosition = snap.PlaybackPosition
	e.pending = nil
	e.itemsSincePending = 0
	e.secondRound = nil
	e.inSecondRound = false
	e.sessionID = uuid.NewString()
	e.itemStats = make(map[string]*ItemStats)
	e.statsOrder = nil

	events := e.events(ctx)
	e.weakAtStart = mastery.WeakItemIDs(events)
	e.viewedAtStart = mastery.TotalViewedCount(events)

	e.phase = PhaseActive
	return true
}

// Advance is the primary forward transition. When hasWatchedEnough is
// true the current item is recorded as a completed view. At the end of
// the queue Advance is a defensive no-op.
func (e *Engine) Advance(ctx context.Context, hasWatchedEnough bool) {
	if e.phase != PhaseActive {
		return
	}
	cur := e.Current()
	if cur == nil {
		return
	}

	if hasWatchedEnough {
		e.appendEvent(ctx, *cur, eventlog.FeedbackUnmarked, true)
		e.stats(*cur).ViewCount++
	}

	e.advanceCursor(ctx)
}

// SubmitFeedback records explicit feedback for the current item and
// advances. Bad feedback schedules the item for delayed re-insertion;
// unsure feedback queues it for the second round; perfect feedback has
// no queue side effect.
func (e *Engine) SubmitFeedback(ctx context.Context, fb eventlog.Feedback, hasWatchedEnough bool) {
	if e.phase != PhaseActive {
		return
	}
	cur := e.Current()
	if cur == nil {
		return
	}

	st := e.stats(*cur)
	if hasWatchedEnough {
		st.ViewCount++
	}
	st.Feedback.count(fb)

	switch fb {
	case eventlog.FeedbackBad:
		e.holdPending(*cur)
		st.WeakMarkCount++
	case eventlog.FeedbackUnsure:
		if !e.inSecondRound {
			e.secondRound = append(e.secondRound, *cur)
		}
	}

	e.appendEvent(ctx, *cur, fb, hasWatchedEnough)
	e.advanceCursor(ctx)
}

// MarkWeak marks the current item weak without advancing: the item is
// held in the pending slot and re-inserted after ReviewDelay advances.
// Marking the already-pending item again only re-arms the delay; it
// never splices a duplicate.
func (e *Engine) MarkWeak(ctx context.Context) {
	if e.phase != PhaseActive {
		return
	}
	cur := e.Current()
	if cur == nil {
		return
	}

	e.holdPending(*cur)

	// Weak-marking is not a completed view.
	e.appendEvent(ctx, *cur, eventlog.FeedbackBad, false)
	st := e.stats(*cur)
	st.WeakMarkCount++
	st.Feedback.Bad++

	e.persist(ctx)
}

// UnmarkWeak reverses MarkWeak before the delay elapses. It only
// applies while the pending slot still holds the current item; the
// reversal is recorded as a counter-event, not by editing history.
func (e *Engine) UnmarkWeak(ctx context.Context) {
	cur := e.Current()
	if e.pending == nil || cur == nil || e.pending.ID != cur.ID {
		return
	}

	e.pending = nil
	e.itemsSincePending = 0
	e.appendEvent(ctx, *cur, eventlog.FeedbackUnmarked, false)
	e.persist(ctx)
}

// Retreat moves the cursor back one item. A no-op at the start of the
// queue. Going back is navigation, not undo: consumed events and the
// pending slot are untouched.
func (e *Engine) Retreat(ctx context.Context) {
	if e.phase != PhaseActive || e.cursor == 0 {
		return
	}
	e.cursor--
	e.playbackPosition = 0
	e.persist(ctx)
}

// Clear abandons the session and removes any persisted snapshot.
func (e *Engine) Clear(ctx context.Context) {
	e.phase = PhaseIdle
	e.queue = nil
	e.cursor = 0
	e.pending = nil
	e.itemsSincePending = 0
	e.secondRound = nil
	e.inSecondRound = false
	e.itemStats = nil
	e.statsOrder = nil
	e.playbackPosition = 0
	if e.gateway != nil {
		e.gateway.Clear(ctx)
	}
}

// UpdatePlaybackPosition records the playback position of the current
// item into the persisted snapshot, enabling mid-item resume. Callers
// should debounce through a PositionReporter.
func (e *Engine) UpdatePlaybackPosition(ctx context.Context, seconds float64) {
	if e.phase != PhaseActive {
		return
	}
	e.playbackPosition = seconds
	e.persist(ctx)
}

// Current returns the item under the cursor, or nil when the queue is
// exhausted.
func (e *Engine) Current() *catalog.Item {
	if e.cursor < 0 || e.cursor >= len(e.queue) {
		return nil
	}
	it := e.queue[e.cursor]
	return &it
}

// IsComplete reports whether the session has consumed the whole queue.
func (e *Engine) IsComplete() bool {
	return e.phase == PhaseComplete
}

// Phase returns the engine lifecycle state.
func (e *Engine) Phase() Phase { return e.phase }

// SessionID returns the UUID of the running session.
func (e *Engine) SessionID() string { return e.sessionID }

// InSecondRound reports whether the engine rolled into the follow-up
// pass over unsure items.
func (e *Engine) InSecondRound() bool { return e.inSecondRound }

// Pending returns a copy of the item awaiting re-insertion, or nil.
func (e *Engine) Pending() *catalog.Item {
	if e.pending == nil {
		return nil
	}
	it := *e.pending
	return &it
}

// Queue returns a copy of the current item sequence.
func (e *Engine) Queue() []catalog.Item {
	out := make([]catalog.Item, len(e.queue))
	copy(out, e.queue)
	return out
}

// Cursor returns the current queue position.
func (e *Engine) Cursor() int { return e.cursor }

// TotalCount returns the current queue length.
func (e *Engine) TotalCount() int { return len(e.queue) }

// ViewedCount returns the number of consumed queue positions.
func (e *Engine) ViewedCount() int { return e.cursor }

// Summary builds the session-complete report, joining the per-item
// session counters with the classifier's view of the full history.
func (e *Engine) Summary(ctx context.Context) Summary {
	s := Summary{
		SessionID:         e.sessionID,
		TotalViewedBefore: e.viewedAtStart,
	}

	for _, id := range e.statsOrder {
		st := e.itemStats[id]
		s.Items = append(s.Items, *st)
		s.TotalViews += st.ViewCount
		s.Feedback.Perfect += st.Feedback.Perfect
		s.Feedback.Unsure += st.Feedback.Unsure
		s.Feedback.Bad += st.Feedback.Bad
	}

	events := e.events(ctx)
	s.ResolvedWeakIDs = mastery.ResolvedSince(e.weakAtStart, events)
	s.WeakCount = len(mastery.WeakItemIDs(events))
	s.MasteredCount = len(mastery.MasteredItemIDs(events))
	s.TotalViewedNow = mastery.TotalViewedCount(events)

	return s
}

// holdPending places the item in the pending slot. An existing,
// different pending item is spliced in as the immediate next item so
// the first-marked item is always served before the new pending one;
// re-marking the pending item only resets the delay counter.
func (e *Engine) holdPending(item catalog.Item) {
	if e.pending != nil && e.pending.ID == item.ID {
		e.itemsSincePending = 0
		return
	}
	if e.pending != nil {
		e.splice(e.cursor+1, *e.pending)
	}
	held := item
	e.pending = &held
	e.itemsSincePending = 0
}

// advanceCursor applies the pending re-insertion policy, moves the
// cursor forward, and handles queue exhaustion (second round rollover
// or completion). Persists the snapshot, clearing it on completion.
func (e *Engine) advanceCursor(ctx context.Context) {
	if e.pending != nil {
		if e.itemsSincePending >= e.cfg.ReviewDelay {
			e.splice(e.cursor+1, *e.pending)
			e.pending = nil
			e.itemsSincePending = 0
		} else {
			e.itemsSincePending++
		}
	}

	e.cursor++
	e.playbackPosition = 0

	if e.cursor >= len(e.queue) {
		switch {
		case e.pending != nil:
			// No further advances can elapse the delay, so the held
			// item is served now rather than dropped.
			e.queue = append(e.queue, *e.pending)
			e.pending = nil
			e.itemsSincePending = 0
		case !e.inSecondRound && len(e.secondRound) > 0:
			e.queue = e.secondRound
			e.secondRound = nil
			e.cursor = 0
			e.inSecondRound = true
		default:
			e.phase = PhaseComplete
		}
	}

	e.persist(ctx)
}

// splice inserts item at position i, clamped to the queue bounds.
func (e *Engine) splice(i int, item catalog.Item) {
	if i < 0 {
		i = 0
	}
	if i > len(e.queue) {
		i = len(e.queue)
	}
	e.queue = append(e.queue, catalog.Item{})
	copy(e.queue[i+1:], e.queue[i:])
	e.queue[i] = item
}

func (e *Engine) stats(item catalog.Item) *ItemStats {
	st, ok := e.itemStats[item.ID]
	if !ok {
		st = &ItemStats{ItemID: item.ID, DisplayName: item.DisplayName}
		e.itemStats[item.ID] = st
		e.statsOrder = append(e.statsOrder, item.ID)
	}
	return st
}

// appendEvent records a learning event. Append failures never abort
// the transition: the in-memory engine stays authoritative.
func (e *Engine) appendEvent(ctx context.Context, item catalog.Item, fb eventlog.Feedback, completed bool) {
	if e.log == nil {
		return
	}
	err := e.log.Append(ctx, eventlog.Event{
		ItemID:        item.ID,
		DisplayName:   item.DisplayName,
		Chapter:       item.Chapter,
		Topic:         item.Topic,
		Feedback:      fb,
		ViewCompleted: completed,
	})
	if err != nil {
		e.logger.Warn("failed to record learning event", "item", item.ID, "error", err)
	}
}

func (e *Engine) events(ctx context.Context) []eventlog.Event {
	if e.log == nil {
		return nil
	}
	events, err := e.log.All(ctx)
	if err != nil {
		e.logger.Warn("failed to read learning log", "error", err)
		return nil
	}
	return events
}

func (e *Engine) persist(ctx context.Context) {
	if e.gateway == nil {
		return
	}
	if e.phase == PhaseComplete {
		e.gateway.Clear(ctx)
		return
	}
	e.gateway.Save(ctx, &Snapshot{
		Queue:            e.Queue(),
		CurrentIndex:     e.cursor,
		SelectedGroupIDs: e.selectedIDs,
		OrderMode:        e.orderMode,
		PlaybackPosition: e.playbackPosition,
	})
}
