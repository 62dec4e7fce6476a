package models

// UserGlobalXP is the single running XP total per user, credited exactly
// once per level-pass event. Only the progression service writes it.
type UserGlobalXP struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalXP int    `gorm:"default:0" json:"total_xp"`

	Timestamps
}
