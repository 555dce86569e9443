// Package mastery classifies items from the learning history. All
// functions are pure reads over an event slice taken from the event
// log; callers decide when to snapshot and whether to memoize.
package mastery

import (
	"github.com/abhisek/oneq/internal/eventlog"
)

// MasteredViewCount is the minimum number of completed views an item
// needs before it can be classified mastered.
const MasteredViewCount = 3

// ResolutionThreshold is the number of consecutive non-bad events,
// newest first, required to resolve a previously weak item.
const ResolutionThreshold = 2

// State is an item's derived classification.
type State string

const (
	StateUnmastered State = "unmastered"
	StateWeak       State = "weak"
	StateMastered   State = "mastered"
)

// LatestByItem returns the most recent event per item. Ties on
// timestamp resolve to the later insertion, since timestamps are
// monotonic per process.
func LatestByItem(events []eventlog.Event) map[string]eventlog.Event {
	latest := make(map[string]eventlog.Event)
	for _, e := range events {
		prev, ok := latest[e.ItemID]
		if !ok || !e.Timestamp.Before(prev.Timestamp) {
			latest[e.ItemID] = e
		}
	}
	return latest
}

// IsWeak reports whether the item's most recent event carries bad
// feedback.
func IsWeak(itemID string, events []eventlog.Event) bool {
	e, ok := LatestByItem(events)[itemID]
	return ok && e.Feedback == eventlog.FeedbackBad
}

// WeakItemIDs returns every item whose latest event is bad feedback.
func WeakItemIDs(events []eventlog.Event) []string {
	var weak []string
	for _, e := range events {
		// Preserve first-seen order for stable output.
		if containsID(weak, e.ItemID) {
			continue
		}
		if IsWeak(e.ItemID, events) {
			weak = append(weak, e.ItemID)
		}
	}
	return weak
}

// IsMastered reports whether an item has graduated from weak: at least
// MasteredViewCount completed views, a bad event somewhere in its
// history, and a newest-first run of at least ResolutionThreshold
// non-bad events since the last bad one.
//
// An item that was never weak is never classified mastered, regardless
// of view count. That asymmetry is a product decision carried over
// from the original behavior.
func IsMastered(itemID string, events []eventlog.Event) bool {
	var completed, cleanRun int
	wasWeak := false
	runBroken := false

	// Walk newest-first; events arrive in insertion order.
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.ItemID != itemID {
			continue
		}
		if e.ViewCompleted {
			completed++
		}
		if e.Feedback == eventlog.FeedbackBad {
			wasWeak = true
			runBroken = true
		} else if !runBroken {
			cleanRun++
		}
	}

	return wasWeak && completed >= MasteredViewCount && cleanRun >= ResolutionThreshold
}

// MasteredItemIDs returns every mastered item, in first-seen order.
func MasteredItemIDs(events []eventlog.Event) []string {
	var mastered []string
	for _, e := range events {
		if containsID(mastered, e.ItemID) {
			continue
		}
		if IsMastered(e.ItemID, events) {
			mastered = append(mastered, e.ItemID)
		}
	}
	return mastered
}

// ResolvedSince returns the items from previousWeakIDs that are no
// longer weak. The caller snapshots weak ids at session start so the
// diff reports what this session graduated.
func ResolvedSince(previousWeakIDs []string, events []eventlog.Event) []string {
	var resolved []string
	for _, id := range previousWeakIDs {
		if !IsWeak(id, events) {
			resolved = append(resolved, id)
		}
	}
	return resolved
}

// CompletedItemIDs returns the set of items with at least one completed
// view, in first-seen order.
func CompletedItemIDs(events []eventlog.Event) []string {
	var ids []string
	for _, e := range events {
		if e.ViewCompleted && !containsID(ids, e.ItemID) {
			ids = append(ids, e.ItemID)
		}
	}
	return ids
}

// TotalViewedCount returns the number of distinct items with at least
// one completed view.
func TotalViewedCount(events []eventlog.Event) int {
	return len(CompletedItemIDs(events))
}

// ChapterViewedCount returns the number of distinct items in the
// chapter that have any event. The chapter's total item count lives in
// the catalog, so the completion ratio is computed by the caller.
func ChapterViewedCount(chapter string, events []eventlog.Event) int {
	seen := make(map[string]bool)
	for _, e := range events {
		if e.Chapter == chapter {
			seen[e.ItemID] = true
		}
	}
	return len(seen)
}

// Classify returns the item's current state.
func Classify(itemID string, events []eventlog.Event) State {
	switch {
	case IsWeak(itemID, events):
		return StateWeak
	case IsMastered(itemID, events):
		return StateMastered
	default:
		return StateUnmastered
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
