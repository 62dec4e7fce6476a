package models

import (
	"time"

	"gorm.io/gorm"
)

// TopicProgress tracks one user's progression through one topic.
//
// PassedLevels and TotalTopicXP are the authoritative counters; Completed,
// CompletedAt, CurrentLevel and the per-level Passed flags are derived from
// them against the live topic definition and are recomputed on every access
// (the catalog is mutable by admins while users hold progress).
type TopicProgress struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"uniqueIndex:idx_user_topic;not null" json:"user_id"`
	TopicID string `gorm:"uniqueIndex:idx_user_topic;not null" json:"topic_id"`

	CurrentLevel int  `gorm:"default:1" json:"current_level"`
	TotalTopicXP int  `gorm:"default:0" json:"total_topic_xp"`
	PassedLevels int  `gorm:"default:0" json:"passed_levels"` // highest level number confirmed passed
	Completed    bool `gorm:"default:false" json:"completed"`

	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	LastSubmissionAt *time.Time `json:"last_submission_at,omitempty"`

	Levels []LevelProgress `gorm:"foreignKey:ProgressID;constraint:OnDelete:CASCADE" json:"levels"`

	Timestamps
}

// LevelProgress is the per-level XP ledger entry, created lazily on the
// first submission to that level.
type LevelProgress struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ProgressID string `gorm:"uniqueIndex:idx_progress_level;not null" json:"-"`
	Level      int    `gorm:"uniqueIndex:idx_progress_level;not null" json:"level"`
	XPEarned   int    `gorm:"default:0" json:"xp_earned"` // clamped at the level's XPRequired
	Passed     bool   `gorm:"default:false" json:"passed"`
}

// FindLevel returns the ledger entry for the given level number, or nil.
func (p *TopicProgress) FindLevel(level int) *LevelProgress {
	for i := range p.Levels {
		if p.Levels[i].Level == level {
			return &p.Levels[i]
		}
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
