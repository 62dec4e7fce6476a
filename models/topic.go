package models

import (
	"sort"
	"time"
)

// Topic is a learning unit: an ordered ladder of levels the user works
// through, or (when no levels are defined) a single TotalXP threshold.
type Topic struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	Category     string `gorm:"type:varchar(16);default:'general'" json:"category"`      // general | dsa
	QuestionType string `gorm:"type:varchar(16);not null" json:"question_type"`          // mcq | coding
	TotalXP      int    `gorm:"default:75" json:"total_xp"`                              // completion threshold when Levels is empty
	Status       string `gorm:"type:varchar(16);default:'published'" json:"status"`      // draft | scheduled | published
	PublishAt    *time.Time `json:"publish_at,omitempty"`
	IconURL      string `gorm:"type:text" json:"icon_url,omitempty"`

	Levels []TopicLevel `gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE" json:"levels"`

	Timestamps
}

// TopicLevel is one graded milestone within a topic. Level numbers start at 1.
type TopicLevel struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	TopicID     string `gorm:"index;not null" json:"-"`
	Level       int    `gorm:"not null" json:"level"`
	XPRequired  int    `gorm:"not null" json:"xp_required"`
	Description string `json:"description"`
}

// TotalLevels returns the number of defined levels.
func (t *Topic) TotalLevels() int {
	return len(t.Levels)
}

// FindLevel returns the definition for the given level number, or nil.
func (t *Topic) FindLevel(level int) *TopicLevel {
	for i := range t.Levels {
		if t.Levels[i].Level == level {
			return &t.Levels[i]
		}
	}
	return nil
}

// SortLevels orders the levels list ascending by level number.
func (t *Topic) SortLevels() {
	sort.Slice(t.Levels, func(i, j int) bool { return t.Levels[i].Level < t.Levels[j].Level })
}
