package services

import (
	"errors"
	"strings"

	"quest-learning-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TopicService struct {
	DB *gorm.DB
}

func NewTopicService(db *gorm.DB) *TopicService {
	return &TopicService{DB: db}
}

// TopicPage is one page of the catalog listing.
type TopicPage struct {
	Topics     []models.Topic `json:"topics"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

// List returns published topics with optional case-insensitive search over
// title and description, newest first.
func (s *TopicService) List(page, limit int, search string) (*TopicPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 12
	}

	q := s.DB.Model(&models.Topic{}).Where("status = ?", "published")
	if search = strings.TrimSpace(search); search != "" {
		term := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var topics []models.Topic
	if err := q.Preload("Levels").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&topics).Error; err != nil {
		return nil, err
	}
	for i := range topics {
		topics[i].SortLevels()
	}

	return &TopicPage{
		Topics:     topics,
		Total:      total,
		Page:       page,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// ListAll is the admin listing: every topic regardless of status.
func (s *TopicService) ListAll(page, limit int, search string) (*TopicPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	q := s.DB.Model(&models.Topic{})
	if search = strings.TrimSpace(search); search != "" {
		term := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var topics []models.Topic
	if err := q.Preload("Levels").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&topics).Error; err != nil {
		return nil, err
	}
	for i := range topics {
		topics[i].SortLevels()
	}

	return &TopicPage{
		Topics:     topics,
		Total:      total,
		Page:       page,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Get fetches one topic with its level ladder.
func (s *TopicService) Get(topicID string) (*models.Topic, error) {
	var topic models.Topic
	err := s.DB.Preload("Levels").Where("id = ?", topicID).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	topic.SortLevels()
	return &topic, nil
}

// Create inserts a topic and its level ladder.
func (s *TopicService) Create(topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	if topic.Category == "" {
		topic.Category = "general"
	}
	if topic.TotalXP == 0 {
		topic.TotalXP = 75
	}
	if topic.Status == "" {
		topic.Status = "published"
		if topic.PublishAt != nil {
			topic.Status = "scheduled"
		}
	}
	for i := range topic.Levels {
		if topic.Levels[i].ID == "" {
			topic.Levels[i].ID = uuid.NewString()
		}
		topic.Levels[i].TopicID = topic.ID
	}
	return s.DB.Create(topic).Error
}

// Update replaces a topic's fields and its entire level ladder. User
// progress is NOT migrated here — derived progress fields are reconciled
// lazily wherever they are read.
func (s *TopicService) Update(topicID string, updated *models.Topic) (*models.Topic, error) {
	var topic models.Topic
	err := s.DB.Where("id = ?", topicID).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		topic.Title = updated.Title
		topic.Description = updated.Description
		topic.Category = updated.Category
		topic.QuestionType = updated.QuestionType
		topic.TotalXP = updated.TotalXP
		if updated.Status != "" {
			topic.Status = updated.Status
		}
		topic.PublishAt = updated.PublishAt
		if err := tx.Save(&topic).Error; err != nil {
			return err
		}

		if err := tx.Where("topic_id = ?", topic.ID).Delete(&models.TopicLevel{}).Error; err != nil {
			return err
		}
		for i := range updated.Levels {
			lv := updated.Levels[i]
			lv.ID = uuid.NewString()
			lv.TopicID = topic.ID
			if err := tx.Create(&lv).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &topic, s.DB.Preload("Levels").Where("id = ?", topic.ID).First(&topic).Error
}

// Delete removes a topic and its levels. Orphaned progress rows are left in
// place; they fall out of listings when the topic lookup misses.
func (s *TopicService) Delete(topicID string) error {
	res := s.DB.Where("id = ?", topicID).Delete(&models.Topic{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTopicNotFound
	}
	return s.DB.Where("topic_id = ?", topicID).Delete(&models.TopicLevel{}).Error
}

// Count returns the catalog size.
func (s *TopicService) Count() (int64, error) {
	var n int64
	err := s.DB.Model(&models.Topic{}).Count(&n).Error
	return n, err
}
