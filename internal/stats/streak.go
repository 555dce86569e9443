package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/abhisek/oneq/internal/eventlog"
	"github.com/abhisek/oneq/internal/kv"
)

// streakKey is the kv document holding the all-time streak record.
const streakKey = "oneq_streak_data"

// StreakData is the derived streak view.
type StreakData struct {
	Current          int    `json:"currentStreak"`
	Longest          int    `json:"longestStreak"`
	LastLearningDate string `json:"lastLearningDate,omitempty"` // YYYY-MM-DD
}

// highWater is the persisted all-time record. Keeping it outside the
// event log means pruning old events cannot shrink the reported best.
type highWater struct {
	LongestStreak int    `json:"longestStreak"`
	LastUpdated   string `json:"lastUpdated"` // YYYY-MM-DD
}

// HighWaterStore persists the longest-streak record.
type HighWaterStore struct {
	store  kv.Store
	logger *slog.Logger
}

// NewHighWaterStore creates a store over the given kv backend.
func NewHighWaterStore(store kv.Store) *HighWaterStore {
	return &HighWaterStore{store: store, logger: slog.Default()}
}

func (h *HighWaterStore) load(ctx context.Context) highWater {
	data, err := h.store.Get(ctx, streakKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			h.logger.Warn("failed to read streak record", "error", err)
		}
		return highWater{}
	}
	var hw highWater
	if err := json.Unmarshal(data, &hw); err != nil {
		return highWater{}
	}
	return hw
}

func (h *HighWaterStore) update(ctx context.Context, longest int, now time.Time) {
	data, err := json.Marshal(highWater{
		LongestStreak: longest,
		LastUpdated:   dayKey(now),
	})
	if err != nil {
		return
	}
	if err := h.store.Set(ctx, streakKey, data); err != nil {
		h.logger.Warn("failed to save streak record", "error", err)
	}
}

// Streak computes the current and longest consecutive-day runs of
// completed views. Today having no events yet does not break the
// current run. The longest run is merged with the persisted high-water
// mark, which is raised (never lowered) when the log shows a new best.
func Streak(ctx context.Context, events []eventlog.Event, hwm *HighWaterStore, now time.Time) StreakData {
	days := make(map[string]bool)
	for _, ev := range events {
		if ev.ViewCompleted {
			days[dayKey(ev.Timestamp)] = true
		}
	}

	var data StreakData
	if len(days) > 0 {
		sorted := make([]string, 0, len(days))
		for d := range days {
			sorted = append(sorted, d)
		}
		sort.Strings(sorted)
		data.LastLearningDate = sorted[len(sorted)-1]

		data.Current = currentRun(days, now)
		data.Longest = longestRun(sorted)
	}

	if hwm != nil {
		stored := hwm.load(ctx)
		best := data.Longest
		if data.Current > best {
			best = data.Current
		}
		if best > stored.LongestStreak {
			hwm.update(ctx, best, now)
		} else if stored.LongestStreak > data.Longest {
			data.Longest = stored.LongestStreak
		}
	}

	return data
}

// currentRun walks backward from today counting consecutive learning
// days. A missing today is skipped once; any other gap ends the run.
func currentRun(days map[string]bool, now time.Time) int {
	check := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today := dayKey(check)

	run := 0
	for {
		key := dayKey(check)
		switch {
		case days[key]:
			run++
		case key == today:
			// Today has no views yet; the run may continue from yesterday.
		default:
			return run
		}
		check = check.AddDate(0, 0, -1)
	}
}

// longestRun scans sorted unique day keys for the longest consecutive
// stretch.
func longestRun(sorted []string) int {
	longest, run := 0, 1
	for i := 1; i < len(sorted); i++ {
		prev, err1 := time.Parse("2006-01-02", sorted[i-1])
		curr, err2 := time.Parse("2006-01-02", sorted[i])
		if err1 == nil && err2 == nil && curr.Sub(prev) == 24*time.Hour {
			run++
			continue
		}
		if run > longest {
			longest = run
		}
		run = 1
	}
	if run > longest {
		longest = run
	}
	return longest
}
