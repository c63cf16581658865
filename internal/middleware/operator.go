package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/mealbox/internal/utils"
)

// OperatorKeyHeader carries the shared operator key.
const OperatorKeyHeader = "X-Operator-Key"

// OperatorMiddleware admits requests whose operator key matches the bcrypt hash.
// An empty hash disables the operator surface.
func OperatorMiddleware(keyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(OperatorKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing operator key")
		}

		if !utils.CheckSecret(keyHash, key) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid operator key")
		}

		return c.Next()
	}
}
