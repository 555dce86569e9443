package catalog

import (
	"math/rand"
	"sort"
	"time"

	"github.com/abhisek/oneq/internal/eventlog"
	"github.com/abhisek/oneq/internal/mastery"
)

// weakPriorityScore is the base score for a currently weak item in
// smart ordering. Doubled, it dominates the staleness component.
const weakPriorityScore = 100

// maxStalenessDays caps the days-since-last-view component so very old
// history doesn't drown out weakness.
const maxStalenessDays = 30

// QueueOptions configures BuildQueue.
type QueueOptions struct {
	Mode OrderMode

	// Events is the learning history used by smart ordering.
	Events []eventlog.Event

	// Rand is the shuffle source for random ordering. Nil draws a
	// fresh source; no seed is persisted, each session gets a new order.
	Rand *rand.Rand

	// Now anchors staleness scoring. Zero means time.Now().
	Now time.Time
}

// BuildQueue filters the catalog to the selected group ids and orders
// the result per the mode. Unknown ids are silently dropped. An empty
// result is an ErrEmptySelection: the caller must not start a session
// with zero items.
func BuildQueue(all []Item, selectedIDs []string, opts QueueOptions) ([]Item, error) {
	selected := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	var items []Item
	for _, it := range all {
		if selected[it.ID] {
			items = append(items, it)
		}
	}

	if len(items) == 0 {
		return nil, &ErrEmptySelection{SelectedIDs: selectedIDs}
	}

	switch opts.Mode {
	case OrderRandom:
		shuffle(items, opts.Rand)
	case OrderSmart:
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		sortBySmartOrder(items, opts.Events, now)
	default:
		// Sequential: deterministic across sessions with the same selection.
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	}

	return items, nil
}

// shuffle performs a Fisher-Yates shuffle in place.
func shuffle(items []Item, rng *rand.Rand) {
	swap := func(i, j int) { items[i], items[j] = items[j], items[i] }
	if rng != nil {
		rng.Shuffle(len(items), swap)
		return
	}
	rand.Shuffle(len(items), swap)
}

// sortBySmartOrder sorts descending by priority, keeping catalog order
// for ties.
func sortBySmartOrder(items []Item, events []eventlog.Event, now time.Time) {
	latest := mastery.LatestByItem(events)
	priorities := make(map[string]int, len(items))
	for _, it := range items {
		priorities[it.ID] = smartPriority(it.ID, events, latest, now)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return priorities[items[i].ID] > priorities[items[j].ID]
	})
}

// smartPriority scores an item for smart ordering: weak items dominate,
// staleness (days since last view, capped) breaks ties. Never-viewed
// items get maximum staleness so forgotten and fresh content both
// surface early.
func smartPriority(itemID string, events []eventlog.Event, latest map[string]eventlog.Event, now time.Time) int {
	weakScore := 0
	if mastery.IsWeak(itemID, events) {
		weakScore = weakPriorityScore
	}

	staleness := maxStalenessDays
	if e, ok := latest[itemID]; ok {
		days := int(now.Sub(e.Timestamp).Hours() / 24)
		if days < staleness {
			staleness = days
		}
		if staleness < 0 {
			staleness = 0
		}
	}

	return weakScore*2 + staleness
}
