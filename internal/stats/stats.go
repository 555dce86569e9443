// Package stats derives display aggregates (daily/weekly histograms,
// streaks, goal progress, mastery distributions) from the learning log.
// Everything here is a pure computation over events except the streak
// high-water mark and goal achievement log, which persist through kv.
package stats

import (
	"time"

	"github.com/abhisek/oneq/internal/eventlog"
)

// DailyCount is one calendar day's completed-view total.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// WeeklyCount is a seven-day window's completed-view total.
type WeeklyCount struct {
	WeekStart string `json:"weekStart"` // YYYY-MM-DD of the window's first day
	Count     int    `json:"count"`
}

// Distribution buckets unique items by their latest feedback.
type Distribution struct {
	TotalItems int `json:"totalItems"`
	Perfect    int `json:"perfectCount"`
	Unsure     int `json:"unsureCount"`
	Bad        int `json:"badCount"`
	NoFeedback int `json:"noFeedbackCount"`
}

// ChapterInfo describes one chapter of the catalog for per-chapter
// aggregation.
type ChapterInfo struct {
	Chapter     string
	DisplayName string
	TotalItems  int
}

// ChapterSummary is the per-chapter progress view.
type ChapterSummary struct {
	Chapter     string       `json:"chapter"`
	DisplayName string       `json:"displayName"`
	ViewedCount int          `json:"viewedCount"`
	TotalCount  int          `json:"totalCount"`
	Mastery     Distribution `json:"mastery"`
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DailyCounts returns completed-view counts for the trailing days
// calendar days ending at now, oldest first, zero-filled.
func DailyCounts(events []eventlog.Event, days int, now time.Time) []DailyCount {
	byDay := make(map[string]int)
	for _, ev := range events {
		if ev.ViewCompleted {
			byDay[dayKey(ev.Timestamp)]++
		}
	}

	out := make([]DailyCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := dayKey(now.AddDate(0, 0, -i))
		out = append(out, DailyCount{Date: day, Count: byDay[day]})
	}
	return out
}

// WeeklyCounts returns completed-view counts for the trailing four
// seven-day windows ending today, oldest first.
func WeeklyCounts(events []eventlog.Event, now time.Time) []WeeklyCount {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	out := make([]WeeklyCount, 0, 4)
	for w := 3; w >= 0; w-- {
		end := today.AddDate(0, 0, -w*7+1) // exclusive upper bound
		start := end.AddDate(0, 0, -7)

		count := 0
		for _, ev := range events {
			if ev.ViewCompleted && !ev.Timestamp.Before(start) && ev.Timestamp.Before(end) {
				count++
			}
		}
		out = append(out, WeeklyCount{WeekStart: dayKey(start), Count: count})
	}
	return out
}

// Mastery buckets each unique item by its latest feedback.
func Mastery(events []eventlog.Event) Distribution {
	latest := make(map[string]eventlog.Feedback)
	var order []string
	for _, ev := range events {
		if _, seen := latest[ev.ItemID]; !seen {
			order = append(order, ev.ItemID)
		}
		latest[ev.ItemID] = ev.Feedback
	}

	var d Distribution
	for _, id := range order {
		d.TotalItems++
		switch latest[id] {
		case eventlog.FeedbackPerfect:
			d.Perfect++
		case eventlog.FeedbackUnsure:
			d.Unsure++
		case eventlog.FeedbackBad:
			d.Bad++
		default:
			d.NoFeedback++
		}
	}
	return d
}

// ChapterMastery computes per-chapter viewed counts and feedback
// distributions. Chapters with no recorded events still appear, zeroed.
func ChapterMastery(events []eventlog.Event, chapters []ChapterInfo) []ChapterSummary {
	byChapter := make(map[string][]eventlog.Event)
	for _, ev := range events {
		byChapter[ev.Chapter] = append(byChapter[ev.Chapter], ev)
	}

	out := make([]ChapterSummary, 0, len(chapters))
	for _, ch := range chapters {
		chEvents := byChapter[ch.Chapter]

		unique := make(map[string]bool)
		for _, ev := range chEvents {
			unique[ev.ItemID] = true
		}

		out = append(out, ChapterSummary{
			Chapter:     ch.Chapter,
			DisplayName: ch.DisplayName,
			ViewedCount: len(unique),
			TotalCount:  ch.TotalItems,
			Mastery:     Mastery(chEvents),
		})
	}
	return out
}
