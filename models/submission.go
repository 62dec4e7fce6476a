package models

import "time"

// MCQAnswer is one recorded answer selection within an MCQ submission.
type MCQAnswer struct {
	Index    int    `json:"index"`
	Selected string `json:"selected"`
}

// UserMCQSubmission is the audit record of one graded MCQ attempt.
type UserMCQSubmission struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"index;not null" json:"user_id"`
	TopicID string `gorm:"index;not null" json:"topic_id"`
	Level   int    `json:"level"`

	Answers      []MCQAnswer `gorm:"serializer:json;type:jsonb" json:"answers"`
	CorrectCount int         `json:"correct_count"`
	Total        int         `json:"total"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserCodingSubmission is the audit record of one judged coding attempt.
type UserCodingSubmission struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"index;not null" json:"user_id"`
	TopicID string `gorm:"index;not null" json:"topic_id"`
	Level   int    `json:"level"`

	Language     string `gorm:"type:varchar(16)" json:"language"`
	Code         string `gorm:"type:text" json:"code"`
	Passed       bool   `json:"passed"`
	CorrectCount int    `json:"correct_count"`
	Total        int    `json:"total"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
