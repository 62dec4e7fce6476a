package models

import "time"

// Badge is the canonical collectible for completing a topic. One badge per
// topic, found-or-created on first claim with a deterministic name and icon
// derived from the topic title. TopicID may be empty for legacy badges.
type Badge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`
	TopicID     string `gorm:"index" json:"topic_id,omitempty"`

	Timestamps
}

// UserBadge is an awarded badge instance — unique per (user, badge).
type UserBadge struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"`
	BadgeID  string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`

	Timestamps
}
