// handlers/user_routes.go
package handlers

import (
	"errors"
	"strconv"

	"quest-learning-system/middleware"
	"quest-learning-system/models"
	"quest-learning-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupUserRoutes registers profile, XP, section, badge and activity
// endpoints for the authenticated user.
func SetupUserRoutes(
	app *fiber.App,
	progression *services.ProgressionService,
	badges *services.BadgeService,
	activity *services.ActivityService,
) {
	secured := app.Group("/user", middleware.AuthMiddleware())

	secured.Get("/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var user models.User
		err := progression.DB.Where("id = ?", userID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token is valid but the profile was never mirrored; answer from
			// the token alone.
			role, _ := c.Locals("user_role").(string)
			return c.JSON(fiber.Map{"id": userID, "role": role})
		}
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		})
	})

	secured.Get("/xp", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		total, err := progression.GlobalXP(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"total_xp": total})
	})

	secured.Get("/topics/sections", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		sections, err := progression.Sections(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(sections)
	})

	secured.Post("/badges/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			TopicID string `json:"topic_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.TopicID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "topic_id required"})
		}

		result, err := badges.Claim(userID, req.TopicID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":       true,
			"already_had":   result.AlreadyHad,
			"user_badge_id": result.UserBadgeID,
		})
	})

	secured.Get("/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		list, err := badges.ListForUser(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(list)
	})

	secured.Get("/activity/summary", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		summary, err := activity.Summary(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(summary)
	})

	secured.Get("/activity/heatmap", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		days, _ := strconv.Atoi(c.Query("days", "50"))
		entries, err := activity.Heatmap(userID, days)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"days": len(entries), "items": entries})
	})
}
