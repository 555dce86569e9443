package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/oneq/internal/catalog"
	"github.com/abhisek/oneq/internal/eventlog"
	"github.com/abhisek/oneq/internal/kv"
	"github.com/abhisek/oneq/internal/mastery"
)

func items(ids ...string) []catalog.Item {
	out := make([]catalog.Item, len(ids))
	for i, id := range ids {
		out[i] = catalog.Item{ID: id, DisplayName: id, Chapter: "c", Topic: id}
	}
	return out
}

func itemIDs(items []catalog.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// testEngine wires an engine with an in-memory store and a ticking
// clock so event timestamps stay monotonic.
func testEngine(t *testing.T) (*Engine, *eventlog.Log) {
	t.Helper()
	store := kv.NewMemory()
	tick := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	log := eventlog.NewLogWithClock(store, func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	return NewEngine(DefaultConfig(), log, NewGateway(store)), log
}

func startSession(t *testing.T, e *Engine, ids ...string) {
	t.Helper()
	if err := e.Start(context.Background(), items(ids...), ids, catalog.OrderSequential); err != nil {
		t.Fatalf("start: %v", err)
	}
}

// traverse runs the session to completion, applying actions keyed by
// visit order, and returns the full traversal history.
func traverse(t *testing.T, e *Engine, actions map[int]func(*Engine)) []string {
	t.Helper()
	ctx := context.Background()
	var history []string
	for step := 0; !e.IsComplete(); step++ {
		if step > 100 {
			t.Fatal("session did not complete within 100 steps")
		}
		cur := e.Current()
		if cur == nil {
			t.Fatal("active session with nil current item")
		}
		history = append(history, cur.ID)
		if act, ok := actions[step]; ok {
			act(e)
		}
		e.Advance(ctx, true)
	}
	return history
}

func TestStartEmptyQueue(t *testing.T) {
	e, _ := testEngine(t)
	err := e.Start(context.Background(), nil, nil, catalog.OrderSequential)

	var empty *ErrEmptyQueue
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want ErrEmptyQueue", err)
	}
	if e.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", e.Phase())
	}
}

func TestAdvanceLogsCompletedView(t *testing.T) {
	e, log := testEngine(t)
	startSession(t, e, "v1", "v2", "v3")
	ctx := context.Background()

	e.Advance(ctx, true)
	if e.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", e.Cursor())
	}

	events, _ := log.All(ctx)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].ItemID != "v1" || !events[0].ViewCompleted || events[0].Feedback != eventlog.FeedbackUnmarked {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestAdvanceWithoutWatchingLogsNothing(t *testing.T) {
	e, log := testEngine(t)
	startSession(t, e, "v1", "v2")
	ctx := context.Background()

	e.Advance(ctx, false)
	events, _ := log.All(ctx)
	if len(events) != 0 {
		t.Errorf("events = %d, want 0 for a skipped item", len(events))
	}
	if e.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", e.Cursor())
	}
}

func TestScenarioReinsertionAfterOneItem(t *testing.T) {
	// Queue [v1 v2 v3]: advance past v1, mark v2 weak, keep advancing.
	// With delay 1 the traversal is v1, v2, v3, v2.
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3")

	history := traverse(t, e, map[int]func(*Engine){
		1: func(e *Engine) { e.MarkWeak(context.Background()) },
	})

	want := []string{"v1", "v2", "v3", "v2"}
	if len(history) != len(want) {
		t.Fatalf("history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("history = %v, want %v", history, want)
		}
	}
}

func TestNoItemLoss(t *testing.T) {
	// Every starting item appears in the traversal no matter how
	// marking and unmarking interleave.
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3", "v4", "v5")
	ctx := context.Background()

	history := traverse(t, e, map[int]func(*Engine){
		0: func(e *Engine) { e.MarkWeak(ctx) },
		1: func(e *Engine) { e.MarkWeak(ctx); e.UnmarkWeak(ctx) },
		2: func(e *Engine) { e.MarkWeak(ctx) },
		4: func(e *Engine) { e.MarkWeak(ctx) },
	})

	seen := make(map[string]bool)
	for _, id := range history {
		seen[id] = true
	}
	for _, id := range []string{"v1", "v2", "v3", "v4", "v5"} {
		if !seen[id] {
			t.Errorf("item %s never served: history %v", id, history)
		}
	}
}

func TestSinglePendingSlotOrdering(t *testing.T) {
	// Marking a second item while one is pending serves the first
	// strictly before the second.
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3", "v4")
	ctx := context.Background()

	history := traverse(t, e, map[int]func(*Engine){
		0: func(e *Engine) { e.MarkWeak(ctx) }, // pending = v1
		1: func(e *Engine) { e.MarkWeak(ctx) }, // v1 spliced ahead, pending = v2
	})

	firstReplay, secondReplay := -1, -1
	for i, id := range history {
		if id == "v1" && i > 0 && firstReplay == -1 {
			firstReplay = i
		}
		if id == "v2" && i > 1 && secondReplay == -1 {
			secondReplay = i
		}
	}
	if firstReplay == -1 || secondReplay == -1 {
		t.Fatalf("replays missing: history %v", history)
	}
	if firstReplay >= secondReplay {
		t.Errorf("first-marked served at %d, second at %d: want first before second (history %v)",
			firstReplay, secondReplay, history)
	}
}

func TestReviewDelayRespected(t *testing.T) {
	// With delay 2 the marked item must not reappear until two other
	// items have been served.
	e, _ := testEngine(t)
	cfg := DefaultConfig()
	cfg.ReviewDelay = 2
	store := kv.NewMemory()
	e = NewEngine(cfg, eventlog.NewLog(store), NewGateway(store))
	startSession(t, e, "v1", "v2", "v3", "v4")

	history := traverse(t, e, map[int]func(*Engine){
		0: func(e *Engine) { e.MarkWeak(context.Background()) },
	})

	replay := -1
	for i := 1; i < len(history); i++ {
		if history[i] == "v1" {
			replay = i
			break
		}
	}
	if replay == -1 {
		t.Fatalf("v1 never replayed: %v", history)
	}
	if got := replay - 1; got < 2 {
		t.Errorf("v1 replayed after %d intervening items, want >= 2 (history %v)", got, history)
	}
}

func TestMarkLastItemDefersCompletion(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2")
	ctx := context.Background()

	e.Advance(ctx, true) // past v1
	e.MarkWeak(ctx)      // mark v2, the last item
	e.Advance(ctx, true)

	if e.IsComplete() {
		t.Fatal("session completed with a pending reinsertion outstanding")
	}
	cur := e.Current()
	if cur == nil || cur.ID != "v2" {
		t.Fatalf("current = %v, want the v2 replay", cur)
	}

	e.Advance(ctx, true)
	if !e.IsComplete() {
		t.Error("session should complete after the replay")
	}
}

func TestDoubleMarkSameItemNoDuplicate(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3")
	ctx := context.Background()

	e.MarkWeak(ctx)
	e.MarkWeak(ctx) // same item again: re-arm, no duplicate splice

	history := traverse(t, e, nil)

	count := 0
	for _, id := range history {
		if id == "v1" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("v1 served %d times, want 2 (one view + one replay): %v", count, history)
	}
}

func TestUnmarkWeakBeforeAdvance(t *testing.T) {
	// Mark then unmark before advancing: pending empties, two events
	// logged (bad then null), and the item is no longer weak.
	e, log := testEngine(t)
	startSession(t, e, "v1", "v2")
	ctx := context.Background()

	e.MarkWeak(ctx)
	if e.Pending() == nil {
		t.Fatal("pending slot empty after MarkWeak")
	}
	e.UnmarkWeak(ctx)
	if e.Pending() != nil {
		t.Fatal("pending slot still occupied after UnmarkWeak")
	}

	events, _ := log.All(ctx)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Feedback != eventlog.FeedbackBad || events[1].Feedback != eventlog.FeedbackUnmarked {
		t.Errorf("events = %v then %v, want bad then unmarked", events[0].Feedback, events[1].Feedback)
	}
	if mastery.IsWeak("v1", events) {
		t.Error("v1 still weak after unmark")
	}
}

func TestUnmarkOnlyAppliesToCurrentPendingItem(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3")
	ctx := context.Background()

	e.MarkWeak(ctx)      // pending = v1
	e.Advance(ctx, true) // now at v2
	e.UnmarkWeak(ctx)    // pending holds v1, current is v2: no-op

	if e.Pending() == nil {
		t.Error("UnmarkWeak cleared a pending item that is no longer current")
	}
}

func TestRetreatBoundaries(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2")
	ctx := context.Background()

	e.Retreat(ctx) // at 0: no-op
	if e.Cursor() != 0 {
		t.Errorf("cursor = %d after retreat at 0, want 0", e.Cursor())
	}

	e.Advance(ctx, true)
	e.Retreat(ctx)
	if e.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", e.Cursor())
	}
	if cur := e.Current(); cur == nil || cur.ID != "v1" {
		t.Errorf("current = %v, want v1", cur)
	}
}

func TestSecondRoundFromUnsureFeedback(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3")
	ctx := context.Background()

	e.SubmitFeedback(ctx, eventlog.FeedbackUnsure, true)  // v1 to round two
	e.SubmitFeedback(ctx, eventlog.FeedbackPerfect, true) // v2
	e.SubmitFeedback(ctx, eventlog.FeedbackUnsure, true)  // v3 to round two

	if e.IsComplete() {
		t.Fatal("completed instead of rolling into the second round")
	}
	if !e.InSecondRound() {
		t.Fatal("second round not active")
	}
	got := itemIDs(e.Queue())
	if len(got) != 2 || got[0] != "v1" || got[1] != "v3" {
		t.Fatalf("second round queue = %v, want [v1 v3]", got)
	}

	e.SubmitFeedback(ctx, eventlog.FeedbackPerfect, true)
	e.SubmitFeedback(ctx, eventlog.FeedbackPerfect, true)
	if !e.IsComplete() {
		t.Error("second round should complete the session")
	}
}

func TestSubmitBadFeedbackSchedulesReplay(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3")
	ctx := context.Background()

	e.SubmitFeedback(ctx, eventlog.FeedbackBad, true)

	if e.Pending() == nil || e.Pending().ID != "v1" {
		t.Fatalf("pending = %v, want v1", e.Pending())
	}
}

func TestStartWeakOnly(t *testing.T) {
	e, log := testEngine(t)
	ctx := context.Background()

	all := items("v1", "v2", "v3")
	log.Append(ctx, eventlog.Event{ItemID: "v2", Feedback: eventlog.FeedbackBad})

	if err := e.StartWeakOnly(ctx, all); err != nil {
		t.Fatalf("StartWeakOnly: %v", err)
	}
	got := itemIDs(e.Queue())
	if len(got) != 1 || got[0] != "v2" {
		t.Errorf("queue = %v, want [v2]", got)
	}
}

func TestStartWeakOnlyNoWeakItems(t *testing.T) {
	e, _ := testEngine(t)
	err := e.StartWeakOnly(context.Background(), items("v1"))

	var empty *ErrEmptyQueue
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want ErrEmptyQueue", err)
	}
}

func TestSummaryResolvedWeak(t *testing.T) {
	e, log := testEngine(t)
	ctx := context.Background()

	// v1 enters the session weak, then gets a clean completed view.
	log.Append(ctx, eventlog.Event{ItemID: "v1", Feedback: eventlog.FeedbackBad})

	startSession(t, e, "v1", "v2")
	e.Advance(ctx, true)
	e.Advance(ctx, true)

	if !e.IsComplete() {
		t.Fatal("session not complete")
	}

	s := e.Summary(ctx)
	if len(s.ResolvedWeakIDs) != 1 || s.ResolvedWeakIDs[0] != "v1" {
		t.Errorf("resolved = %v, want [v1]", s.ResolvedWeakIDs)
	}
	if s.TotalViews != 2 {
		t.Errorf("total views = %d, want 2", s.TotalViews)
	}
}

func TestSummaryFeedbackTotals(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2", "v3")
	ctx := context.Background()

	e.SubmitFeedback(ctx, eventlog.FeedbackPerfect, true)
	e.SubmitFeedback(ctx, eventlog.FeedbackBad, true)
	e.SubmitFeedback(ctx, eventlog.FeedbackPerfect, true)

	s := e.Summary(ctx)
	if s.Feedback.Perfect != 2 || s.Feedback.Bad != 1 {
		t.Errorf("feedback totals = %+v, want 2 perfect 1 bad", s.Feedback)
	}
}

func TestResumeRestoresSession(t *testing.T) {
	store := kv.NewMemory()
	log := eventlog.NewLog(store)
	gw := NewGateway(store)
	ctx := context.Background()

	e1 := NewEngine(DefaultConfig(), log, gw)
	if err := e1.Start(ctx, items("v1", "v2", "v3"), []string{"v1", "v2", "v3"}, catalog.OrderSequential); err != nil {
		t.Fatal(err)
	}
	e1.Advance(ctx, true)

	// Fresh engine over the same store: the session resumes mid-queue.
	e2 := NewEngine(DefaultConfig(), log, gw)
	if !e2.Resume(ctx) {
		t.Fatal("resume failed with a persisted snapshot present")
	}
	if e2.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", e2.Cursor())
	}
	if cur := e2.Current(); cur == nil || cur.ID != "v2" {
		t.Errorf("current = %v, want v2", cur)
	}
}

func TestCompletionClearsPersistedState(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1")
	ctx := context.Background()

	e.Advance(ctx, true)
	if !e.IsComplete() {
		t.Fatal("session not complete")
	}

	e2 := NewEngine(DefaultConfig(), nil, e.gateway)
	if e2.Resume(ctx) {
		t.Error("completed session should not be resumable")
	}
}

func TestClearAbandonsSession(t *testing.T) {
	e, _ := testEngine(t)
	startSession(t, e, "v1", "v2")
	ctx := context.Background()

	e.Clear(ctx)
	if e.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", e.Phase())
	}

	e2 := NewEngine(DefaultConfig(), nil, e.gateway)
	if e2.Resume(ctx) {
		t.Error("cleared session should not be resumable")
	}
}
