// Package session implements the adaptive queue engine: a mutable,
// self-modifying sequence of learning items with forward/backward
// navigation, delayed re-insertion of weak items, second-round
// playback, and resumable persistence.
package session

import (
	"github.com/abhisek/oneq/internal/eventlog"
)

// Phase is the engine lifecycle state.
type Phase int

const (
	PhaseIdle     Phase = iota // no queue
	PhaseLoading               // catalog fetch in flight
	PhaseActive                // serving items, cursor < queue length
	PhaseComplete              // queue exhausted, no pending reinsertion
)

// FeedbackCounts tallies explicit feedback per kind.
type FeedbackCounts struct {
	Perfect int
	Unsure  int
	Bad     int
}

func (c *FeedbackCounts) count(fb eventlog.Feedback) {
	switch fb {
	case eventlog.FeedbackPerfect:
		c.Perfect++
	case eventlog.FeedbackUnsure:
		c.Unsure++
	case eventlog.FeedbackBad:
		c.Bad++
	}
}

// ItemStats tracks one item's activity within the current session.
type ItemStats struct {
	ItemID        string
	DisplayName   string
	ViewCount     int
	WeakMarkCount int
	Feedback      FeedbackCounts
}

// Summary is the transient session-complete report. It is displayed,
// never persisted.
type Summary struct {
	SessionID  string
	TotalViews int
	Feedback   FeedbackCounts

	// Items lists per-item session stats in first-viewed order.
	Items []ItemStats

	// ResolvedWeakIDs are items weak at session start that graduated.
	ResolvedWeakIDs []string

	// WeakCount and MasteredCount are classifications over the full
	// history as of session end.
	WeakCount     int
	MasteredCount int

	// TotalViewedBefore/Now are the distinct-items-viewed milestone
	// captured at session start and at summary time.
	TotalViewedBefore int
	TotalViewedNow    int
}
