// handlers/topic_routes.go
package handlers

import (
	"strconv"

	"quest-learning-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupTopicRoutes registers the public catalog listing.
func SetupTopicRoutes(app *fiber.App, topics *services.TopicService) {
	app.Get("/topics", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		limit, _ := strconv.Atoi(c.Query("limit", "12"))
		search := c.Query("search", "")

		result, err := topics.List(page, limit, search)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(result)
	})
}
