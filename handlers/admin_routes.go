// handlers/admin_routes.go
package handlers

import (
	"log"
	"path/filepath"
	"strconv"
	"time"

	"quest-learning-system/middleware"
	"quest-learning-system/models"
	"quest-learning-system/services"
	"quest-learning-system/utils"

	"github.com/gofiber/fiber/v2"
)

type topicRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	QuestionType string     `json:"question_type"`
	TotalXP      int        `json:"total_xp"`
	Status       string     `json:"status"`
	PublishAt    *time.Time `json:"publish_at"`
	Levels       []struct {
		Level       int    `json:"level"`
		XPRequired  int    `json:"xp_required"`
		Description string `json:"description"`
	} `json:"levels"`
}

func (r *topicRequest) toModel() *models.Topic {
	topic := &models.Topic{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		QuestionType: r.QuestionType,
		TotalXP:      r.TotalXP,
		Status:       r.Status,
		PublishAt:    r.PublishAt,
	}
	for _, lv := range r.Levels {
		topic.Levels = append(topic.Levels, models.TopicLevel{
			Level:       lv.Level,
			XPRequired:  lv.XPRequired,
			Description: lv.Description,
		})
	}
	return topic
}

// SetupAdminRoutes registers the admin console: topic/user management and
// asset uploads. All routes require the admin role.
func SetupAdminRoutes(app *fiber.App, topics *services.TopicService) {
	admin := app.Group("/admin", middleware.AuthMiddleware(), middleware.AdminOnly())

	admin.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the Admin Dashboard",
			"user_id": c.Locals("user_id"),
		})
	})

	admin.Get("/users/count", func(c *fiber.Ctx) error {
		var n int64
		if err := topics.DB.Model(&models.User{}).Count(&n).Error; err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"count": n})
	})

	admin.Get("/topics/count", func(c *fiber.Ctx) error {
		n, err := topics.Count()
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"count": n})
	})

	admin.Get("/quests", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		result, err := topics.ListAll(page, limit, c.Query("search", ""))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"quests":      result.Topics,
			"total":       result.Total,
			"page":        result.Page,
			"total_pages": result.TotalPages,
		})
	})

	admin.Post("/quests", func(c *fiber.Ctx) error {
		var req topicRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		if req.Title == "" || req.QuestionType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "title and question_type required",
			})
		}
		topic := req.toModel()
		if err := topics.Create(topic); err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(topic)
	})

	admin.Put("/quests/:id", func(c *fiber.Ctx) error {
		var req topicRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		topic, err := topics.Update(c.Params("id"), req.toModel())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(topic)
	})

	admin.Delete("/quests/:id", func(c *fiber.Ctx) error {
		if err := topics.Delete(c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "quest deleted successfully"})
	})

	// Badge icon / banner upload. Goes to R2 when configured, local uploads
	// dir otherwise.
	admin.Post("/quests/:id/icon", func(c *fiber.Ctx) error {
		topic, err := topics.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}

		file, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file required"})
		}
		key := utils.BadgeIconKey(topic.Title, filepath.Ext(file.Filename))

		var iconURL string
		if utils.R2Enabled() {
			iconURL, err = utils.UploadBadgeAsset(file, key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to upload icon", "cause": err.Error(),
				})
			}
		} else {
			localPath, err := utils.SaveUpload(file, key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to save icon locally",
				})
			}
			iconURL = "/" + localPath
		}

		topic.IconURL = iconURL
		if err := topics.DB.Save(topic).Error; err != nil {
			return serviceError(c, err)
		}
		log.Printf("✅ Icon uploaded for topic %s: %s", topic.ID, iconURL)
		return c.JSON(fiber.Map{"icon_url": iconURL})
	})

	admin.Get("/users", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 10
		}

		q := topics.DB.Model(&models.User{})
		if search := c.Query("search", ""); search != "" {
			term := "%" + search + "%"
			q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", term, term)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return serviceError(c, err)
		}
		var users []models.User
		if err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&users).Error; err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"users":       users,
			"total":       total,
			"page":        page,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		})
	})

	admin.Delete("/users/:id", func(c *fiber.Ctx) error {
		res := topics.DB.Where("id = ?", c.Params("id")).Delete(&models.User{})
		if res.Error != nil {
			return serviceError(c, res.Error)
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.JSON(fiber.Map{"message": "user deleted successfully"})
	})
}
