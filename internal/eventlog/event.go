// Package eventlog stores the append-only learning history: one event
// per item view or weak-mark, kept for a rolling 30-day window. The
// mastery classifier and the stats aggregator are read-side consumers;
// corrections are modeled as new events, never as edits.
package eventlog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Feedback is the learner's self-assessment attached to an event.
// FeedbackUnmarked means the item was viewed without an explicit
// weak-mark; it serializes as JSON null to match the persisted
// document format.
type Feedback int

const (
	FeedbackUnmarked Feedback = iota
	FeedbackPerfect
	FeedbackUnsure
	FeedbackBad
)

// String returns the wire name of the feedback value.
func (f Feedback) String() string {
	switch f {
	case FeedbackPerfect:
		return "perfect"
	case FeedbackUnsure:
		return "unsure"
	case FeedbackBad:
		return "bad"
	default:
		return "none"
	}
}

func (f Feedback) MarshalJSON() ([]byte, error) {
	if f == FeedbackUnmarked {
		return []byte("null"), nil
	}
	return json.Marshal(f.String())
}

func (f *Feedback) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	if s == nil {
		*f = FeedbackUnmarked
		return nil
	}
	switch *s {
	case "perfect":
		*f = FeedbackPerfect
	case "unsure":
		*f = FeedbackUnsure
	case "bad":
		*f = FeedbackBad
	default:
		return fmt.Errorf("feedback: unknown value %q", *s)
	}
	return nil
}

// Event is a single learning record. Timestamps are stamped by the log
// on append and serialize as epoch milliseconds.
type Event struct {
	ItemID      string
	DisplayName string
	Chapter     string
	Topic       string
	Feedback    Feedback
	Timestamp   time.Time

	// ViewCompleted is true only when playback crossed the configured
	// watch-fraction threshold. Weak-marks and unmark reversals record
	// false here.
	ViewCompleted bool
}

type eventJSON struct {
	ItemID        string   `json:"videoId"`
	DisplayName   string   `json:"displayName"`
	Chapter       string   `json:"chapter"`
	Topic         string   `json:"topic"`
	Feedback      Feedback `json:"feedback"`
	Timestamp     int64    `json:"timestamp"`
	ViewCompleted bool     `json:"viewCompleted"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ItemID:        e.ItemID,
		DisplayName:   e.DisplayName,
		Chapter:       e.Chapter,
		Topic:         e.Topic,
		Feedback:      e.Feedback,
		Timestamp:     e.Timestamp.UnixMilli(),
		ViewCompleted: e.ViewCompleted,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}
	*e = Event{
		ItemID:        ej.ItemID,
		DisplayName:   ej.DisplayName,
		Chapter:       ej.Chapter,
		Topic:         ej.Topic,
		Feedback:      ej.Feedback,
		Timestamp:     time.UnixMilli(ej.Timestamp),
		ViewCompleted: ej.ViewCompleted,
	}
	return nil
}
