package services

import (
	"testing"
	"time"

	"quest-learning-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to connect to test database")

	err = db.AutoMigrate(
		&models.Topic{},
		&models.TopicLevel{},
		&models.TopicProgress{},
		&models.LevelProgress{},
		&models.UserGlobalXP{},
		&models.UserActivity{},
		&models.Badge{},
		&models.UserBadge{},
		&models.User{},
		&models.UserMCQSubmission{},
		&models.UserCodingSubmission{},
	)
	require.NoError(t, err, "failed to migrate test database")
	return db
}

// createTopic inserts a published topic whose ladder has one level per
// entry of levelXPs, numbered from 1.
func createTopic(t *testing.T, db *gorm.DB, title, questionType string, levelXPs ...int) *models.Topic {
	t.Helper()
	topic := &models.Topic{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  title + " practice",
		Category:     "dsa",
		QuestionType: questionType,
		TotalXP:      75,
		Status:       "published",
	}
	for i, xp := range levelXPs {
		topic.Levels = append(topic.Levels, models.TopicLevel{
			ID:         uuid.NewString(),
			TopicID:    topic.ID,
			Level:      i + 1,
			XPRequired: xp,
		})
	}
	require.NoError(t, db.Create(topic).Error)
	return topic
}

func timeNowPtr() *time.Time {
	now := time.Now()
	return &now
}

func mcq(correct, total int) NormalizedSubmission {
	return NormalizedSubmission{CorrectCount: correct, Total: total}
}

func coding(correct, total int) NormalizedSubmission {
	return NormalizedSubmission{CorrectCount: correct, Total: total, Coding: true}
}
