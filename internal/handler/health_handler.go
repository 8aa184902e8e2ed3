package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// healthCheck is one named dependency probe for the readiness endpoint.
type healthCheck struct {
	name string
	ping func(ctx context.Context) error
}

func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	checks := []healthCheck{
		{name: "postgres", ping: sqlDB.PingContext},
		{name: "redis", ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	app.Get("/livez", livezHandler())
	app.Get("/readyz", readyzHandler(checks))
}

func livezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func readyzHandler(checks []healthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		results := fiber.Map{}
		ready := true
		for _, check := range checks {
			if err := check.ping(ctx); err != nil {
				results[check.name] = "down"
				ready = false
				continue
			}
			results[check.name] = "ok"
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": results,
		})
	}
}
