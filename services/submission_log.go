package services

import (
	"quest-learning-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionLog keeps the audit trail of attempts. Entries are best-effort:
// a failed insert never blocks the submission itself.
type SubmissionLog struct {
	DB *gorm.DB
}

func NewSubmissionLog(db *gorm.DB) *SubmissionLog {
	return &SubmissionLog{DB: db}
}

func (l *SubmissionLog) RecordMCQ(userID, topicID string, level int, answers []models.MCQAnswer, correctCount, total int) error {
	return l.DB.Create(&models.UserMCQSubmission{
		ID:           uuid.NewString(),
		UserID:       userID,
		TopicID:      topicID,
		Level:        level,
		Answers:      answers,
		CorrectCount: correctCount,
		Total:        total,
	}).Error
}

func (l *SubmissionLog) RecordCoding(userID, topicID string, level int, language, code string, passed bool, correctCount, total int) error {
	if language == "" {
		language = "python"
	}
	return l.DB.Create(&models.UserCodingSubmission{
		ID:           uuid.NewString(),
		UserID:       userID,
		TopicID:      topicID,
		Level:        level,
		Language:     language,
		Code:         code,
		Passed:       passed,
		CorrectCount: correctCount,
		Total:        total,
	}).Error
}
