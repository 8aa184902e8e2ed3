package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nudgelab/reminder-engine/internal/observability"
)

// CorrelationMiddleware stamps every request with a correlation id taken
// from X-Request-ID or generated fresh, stores it in the request context
// for downstream logging, and echoes it on the response.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		c.Set(fiber.HeaderXRequestID, correlationID)

		return c.Next()
	}
}
