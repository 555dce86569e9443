package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/oneq/internal/eventlog"
	"github.com/abhisek/oneq/internal/kv"
)

// goalKey is the kv document recording when goals were last reported
// achieved, so a crossing celebrates once per day/week instead of on
// every render.
const goalKey = "oneq_goal_achievement_log"

// achievementLog is the persisted once-per-period marker set.
type achievementLog struct {
	LastDailyAchievement  string `json:"lastDailyAchievement,omitempty"`  // YYYY-MM-DD
	LastWeeklyAchievement string `json:"lastWeeklyAchievement,omitempty"` // YYYY-WNN
}

// GoalProgress reports goal state for the current day and ISO week. The
// Newly* flags fire exactly once per period, on the render where the
// threshold is first crossed.
type GoalProgress struct {
	DailyCount  int
	WeeklyCount int

	DailyAchieved  bool
	WeeklyAchieved bool

	NewlyDaily  bool
	NewlyWeekly bool
}

// AchievementStore persists the goal achievement log.
type AchievementStore struct {
	store  kv.Store
	logger *slog.Logger
}

// NewAchievementStore creates a store over the given kv backend.
func NewAchievementStore(store kv.Store) *AchievementStore {
	return &AchievementStore{store: store, logger: slog.Default()}
}

func (a *AchievementStore) load(ctx context.Context) achievementLog {
	data, err := a.store.Get(ctx, goalKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			a.logger.Warn("failed to read goal achievement log", "error", err)
		}
		return achievementLog{}
	}
	var log achievementLog
	if err := json.Unmarshal(data, &log); err != nil {
		return achievementLog{}
	}
	return log
}

func (a *AchievementStore) save(ctx context.Context, log achievementLog) {
	data, err := json.Marshal(log)
	if err != nil {
		return
	}
	if err := a.store.Set(ctx, goalKey, data); err != nil {
		a.logger.Warn("failed to save goal achievement log", "error", err)
	}
}

func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// CheckGoalAchievement evaluates the daily and weekly view goals
// against the log. A goal of zero is disabled. Newly-crossed periods
// are recorded through the achievement store so they only fire once.
func CheckGoalAchievement(ctx context.Context, events []eventlog.Event, dailyGoal, weeklyGoal int, store *AchievementStore, now time.Time) GoalProgress {
	today := dayKey(now)
	week := isoWeekKey(now)

	var p GoalProgress
	for _, ev := range events {
		if !ev.ViewCompleted {
			continue
		}
		if dayKey(ev.Timestamp) == today {
			p.DailyCount++
		}
		if isoWeekKey(ev.Timestamp) == week {
			p.WeeklyCount++
		}
	}

	p.DailyAchieved = dailyGoal > 0 && p.DailyCount >= dailyGoal
	p.WeeklyAchieved = weeklyGoal > 0 && p.WeeklyCount >= weeklyGoal

	if store == nil {
		return p
	}

	log := store.load(ctx)
	changed := false
	if p.DailyAchieved && log.LastDailyAchievement != today {
		p.NewlyDaily = true
		log.LastDailyAchievement = today
		changed = true
	}
	if p.WeeklyAchieved && log.LastWeeklyAchievement != week {
		p.NewlyWeekly = true
		log.LastWeeklyAchievement = week
		changed = true
	}
	if changed {
		store.save(ctx, log)
	}

	return p
}
