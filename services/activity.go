package services

import (
	"time"

	"quest-learning-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dailyAverageWindow is the fixed trailing window (in calendar days,
// zero-activity days included) the daily average is computed over.
const dailyAverageWindow = 50

type ActivityService struct {
	DB *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{DB: db}
}

// dayStart truncates to UTC midnight. Day buckets are UTC everywhere so
// streak math is deterministic regardless of server timezone.
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordHit upserts today's bucket for the user: one more submission,
// xpEarned added. At most one row exists per (user, day).
func (s *ActivityService) RecordHit(userID string, xpEarned int) error {
	now := time.Now()
	row := models.UserActivity{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        dayStart(now),
		Submissions: 1,
		XPEarned:    xpEarned,
		LastUpdated: now,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"submissions":  gorm.Expr("submissions + 1"),
			"xp_earned":    gorm.Expr("xp_earned + ?", xpEarned),
			"last_updated": now,
		}),
	}).Create(&row).Error
}

// ActivitySummary is the derived day-level view of a user's history.
type ActivitySummary struct {
	ActiveDays       int        `json:"active_days"`
	TotalActivities  int        `json:"total_activities"`
	DailyAverage     float64    `json:"daily_average"`
	CurrentStreak    int        `json:"current_streak"`
	BestStreak       int        `json:"best_streak"`
	LastSubmissionAt *time.Time `json:"last_submission_at"`
}

// Summary scans the user's day buckets and derives streaks and averages.
// A user with no activity gets all-zero fields, not an error.
//
// The current streak is "as of now": it walks backward from today counting
// consecutive days present, so a day without activity — including today —
// truncates it, and no activity today means a streak of 0. The best streak
// is the longest consecutive run anywhere in history.
func (s *ActivityService) Summary(userID string) (*ActivitySummary, error) {
	var rows []models.UserActivity
	if err := s.DB.Where("user_id = ?", userID).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := &ActivitySummary{ActiveDays: len(rows)}
	days := make(map[time.Time]int, len(rows))
	for _, r := range rows {
		d := dayStart(r.Date)
		days[d] = r.Submissions
		out.TotalActivities += r.Submissions
	}

	today := dayStart(time.Now())
	for cursor := today; ; cursor = cursor.AddDate(0, 0, -1) {
		if _, ok := days[cursor]; !ok {
			break
		}
		out.CurrentStreak++
	}

	run := 0
	for i, r := range rows {
		if i > 0 && dayStart(r.Date).Equal(dayStart(rows[i-1].Date).AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > out.BestStreak {
			out.BestStreak = run
		}
	}

	from := today.AddDate(0, 0, -(dailyAverageWindow - 1))
	windowTotal := 0
	for d, count := range days {
		if !d.Before(from) && !d.After(today) {
			windowTotal += count
		}
	}
	out.DailyAverage = float64(windowTotal) / float64(dailyAverageWindow)

	if len(rows) > 0 {
		last := rows[len(rows)-1].LastUpdated
		out.LastSubmissionAt = &last
	}
	return out, nil
}

// HeatmapEntry is one day's cell in the activity heatmap.
type HeatmapEntry struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Heatmap returns a dense series for the trailing `days` calendar days,
// oldest first, zero-filled for days without a bucket. The result always has
// exactly `days` entries; days is clamped to [1, 366], with 0 meaning the
// 50-day default.
func (s *ActivityService) Heatmap(userID string, days int) ([]HeatmapEntry, error) {
	if days == 0 {
		days = 50
	}
	if days < 1 {
		days = 1
	}
	if days > 366 {
		days = 366
	}

	today := dayStart(time.Now())
	from := today.AddDate(0, 0, -(days - 1))

	var rows []models.UserActivity
	if err := s.DB.Where("user_id = ? AND date >= ?", userID, from).Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[time.Time]int, len(rows))
	for _, r := range rows {
		counts[dayStart(r.Date)] = r.Submissions
	}

	out := make([]HeatmapEntry, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i)
		out = append(out, HeatmapEntry{Date: d, Count: counts[d]})
	}
	return out, nil
}
