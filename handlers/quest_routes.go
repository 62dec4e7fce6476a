// handlers/quest_routes.go
package handlers

import (
	"errors"
	"log"
	"math"

	"quest-learning-system/middleware"
	"quest-learning-system/models"
	"quest-learning-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupQuestRoutes registers quest lifecycle endpoints: start (MCQ and
// coding), submit, review and the code judge.
func SetupQuestRoutes(
	app *fiber.App,
	progression *services.ProgressionService,
	generator *services.Generator,
	judge *services.CodeJudge,
	badges *services.BadgeService,
) {
	submissionLog := services.NewSubmissionLog(progression.DB)
	secured := app.Group("/user", middleware.AuthMiddleware())

	secured.Post("/quests/start", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			TopicID string `json:"topic_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.TopicID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "topic_id required"})
		}

		topic, err := progression.GetTopic(req.TopicID)
		if err != nil {
			return serviceError(c, err)
		}
		if topic.QuestionType == "coding" || topic.Category == "dsa" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "use /user/quests/start-coding for coding topics",
			})
		}

		progress, err := progression.EnsureReconciled(userID, topic)
		if err != nil {
			return serviceError(c, err)
		}
		level := services.NextLevel(topic, progress)

		xp := services.DefaultLevelXP
		scope := topic.Description
		if def := topic.FindLevel(level); def != nil {
			xp = def.XPRequired
			if def.Description != "" {
				scope = def.Description
			}
		}
		count := questionCountForXP(xp)

		questions, err := generator.GenerateMCQs(c.UserContext(), topic.Title, scope, level, count)
		if err != nil || len(questions) == 0 {
			log.Printf("⚠️  MCQ generation failed for topic %s: %v", topic.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to generate questions",
			})
		}

		return c.JSON(fiber.Map{
			"topic_id":  topic.ID,
			"level":     level,
			"xp":        xp,
			"questions": questions,
			"topic":     fiber.Map{"title": topic.Title},
		})
	})

	secured.Post("/quests/start-coding", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			TopicID string `json:"topic_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.TopicID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "topic_id required"})
		}

		topic, err := progression.GetTopic(req.TopicID)
		if err != nil {
			return serviceError(c, err)
		}
		if topic.QuestionType != "coding" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "not a coding topic"})
		}

		progress, err := progression.EnsureReconciled(userID, topic)
		if err != nil {
			return serviceError(c, err)
		}
		level := services.NextLevel(topic, progress)

		levelXP := services.DefaultLevelXP
		scope := topic.Description
		if def := topic.FindLevel(level); def != nil {
			levelXP = def.XPRequired
			if def.Description != "" {
				scope = def.Description
			}
		}

		quest, err := generator.GenerateCodingQuest(c.UserContext(), topic.Title, level, scope)
		if err != nil || quest.Problem == "" {
			log.Printf("⚠️  Coding quest generation failed for topic %s: %v", topic.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to generate coding quest",
			})
		}

		levelXPEarned := 0
		if lv := progress.FindLevel(level); lv != nil {
			levelXPEarned = lv.XPEarned
		}

		return c.JSON(fiber.Map{
			"topic_id":        topic.ID,
			"level":           level,
			"topic":           fiber.Map{"title": topic.Title},
			"quest":           quest,
			"level_xp":        levelXP,
			"xp_per_program":  services.XPPerPassedProgram,
			"level_xp_earned": levelXPEarned,
		})
	})

	secured.Post("/quests/submit", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			TopicID         string             `json:"topic_id"`
			Level           *int               `json:"level"`
			CorrectCount    *int               `json:"correct_count"`
			Total           *int               `json:"total"`
			Code            string             `json:"code"`
			Language        string             `json:"language"`
			IsCodingProgram bool               `json:"is_coding_program"`
			Answers         []models.MCQAnswer `json:"answers"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		if req.TopicID == "" || req.Level == nil || req.CorrectCount == nil || req.Total == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "topic_id, level, correct_count, total required",
			})
		}

		coding := req.Code != "" || req.IsCodingProgram
		sub, err := services.NormalizeCounts(*req.CorrectCount, *req.Total, coding)
		if err != nil {
			return serviceError(c, err)
		}

		result, err := progression.Submit(userID, req.TopicID, *req.Level, sub)
		if err != nil {
			return serviceError(c, err)
		}

		// Audit trail; never blocks the response.
		if coding {
			if err := submissionLog.RecordCoding(userID, req.TopicID, *req.Level, req.Language, req.Code,
				sub.CorrectCount == sub.Total, sub.CorrectCount, sub.Total); err != nil {
				log.Printf("⚠️  Submission log failed: %v", err)
			}
		} else {
			if err := submissionLog.RecordMCQ(userID, req.TopicID, *req.Level, req.Answers,
				sub.CorrectCount, sub.Total); err != nil {
				log.Printf("⚠️  Submission log failed: %v", err)
			}
		}

		var badge fiber.Map
		if result.JustCompleted {
			topic, terr := progression.GetTopic(req.TopicID)
			if terr == nil {
				badge = fiber.Map{
					"name":        services.BadgeNameFor(topic.Title),
					"description": "Completed all levels of " + topic.Title,
					"image_url":   services.BadgeIconFor(topic.Title),
				}
			}
		}
		alreadyHas, err := badges.UserHasBadgeForTopic(userID, req.TopicID)
		if err != nil {
			alreadyHas = false // non-fatal
		}

		return c.JSON(fiber.Map{
			"passed":                  result.LevelPassed,
			"earned_xp":               result.EarnedXP,
			"need_next_program":       result.NeedNextProgram,
			"progress":                result.Progress,
			"just_completed":          result.JustCompleted,
			"badge":                   badge,
			"user_already_has_badge":  alreadyHas,
		})
	})

	secured.Get("/quests/:topicId/review", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		review, err := progression.Review(userID, c.Params("topicId"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(review)
	})

	secured.Post("/quest/evaluate", func(c *fiber.Ctx) error {
		type Req struct {
			Code      string               `json:"code"`
			Language  string               `json:"language"`
			TestCases []services.JudgeCase `json:"test_cases"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		if req.Code == "" || req.Language == "" || len(req.TestCases) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing inputs"})
		}

		results := judge.Evaluate(c.UserContext(), req.Code, req.Language, req.TestCases)
		return c.JSON(fiber.Map{"results": results})
	})
}

// questionCountForXP sizes an MCQ set so a perfect run earns the level's
// requirement, bounded to something a human will actually answer.
func questionCountForXP(xp int) int {
	count := int(math.Round(float64(xp) / float64(services.XPPerCorrectAnswer)))
	if count < 1 {
		count = 1
	}
	if count > 20 {
		count = 20
	}
	return count
}

// serviceError maps service sentinel errors to HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotCompleted), errors.Is(err, services.ErrNoProgress):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTopicNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error", "cause": err.Error(),
		})
	}
}
