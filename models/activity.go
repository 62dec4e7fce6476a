package models

import "time"

// UserActivity is one calendar day's submission bucket — at most one row per
// (user, day). Days are UTC-midnight truncated for determinism. Rows are
// upserted on every submission and never deleted; streaks and heatmaps are
// derived from them, not stored.
type UserActivity struct {
	ID     string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string    `gorm:"uniqueIndex:idx_user_day;not null" json:"user_id"`
	Date   time.Time `gorm:"uniqueIndex:idx_user_day;not null" json:"date"`

	Submissions int       `gorm:"default:0" json:"submissions"`
	XPEarned    int       `gorm:"default:0" json:"xp_earned"`
	LastUpdated time.Time `json:"last_updated"`
}
