package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupOpsRoutes exposes liveness and Prometheus metrics.
func SetupOpsRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
