package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gridbench/gridbench/internal/service"
)

func Register(app *fiber.App, svcs *service.Services) {
	g := app.Group("/")
	g.Get("results", func(c *fiber.Ctx) error {
		items, err := svcs.Repos.ListResults(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})
	g.Get("profile/hourly", func(c *fiber.Ctx) error {
		items, err := svcs.Repos.HourlyProfile(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})
	g.Get("meters/top", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil || limit <= 0 {
			return c.Status(400).JSON(fiber.Map{"error": "limit must be a positive integer"})
		}
		items, err := svcs.Repos.TopMeters(c.Context(), limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})
}
