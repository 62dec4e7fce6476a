// services/scheduler.go
package services

import (
	"log"
	"time"

	"quest-learning-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartPublishScheduler flips admin-scheduled topics to published once their
// publish time arrives. Runs every minute for the life of the process.
func (s *TopicService) StartPublishScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var topics []models.Topic
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at <= ?", "scheduled", now).
				Find(&topics).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, t := range topics {
				t.Status = "published"
				t.PublishAt = nil
				if err := s.DB.Save(&t).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish topic %s: %v", t.ID, err)
				} else {
					log.Printf("✅ Auto-published topic: %s", t.Title)
				}
			}
		}),
	)
}
