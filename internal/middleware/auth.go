package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/mealbox/internal/utils"
)

const accountContextKey = "currentAccountID"

// SessionAuthenticator validates session tokens.
type SessionAuthenticator interface {
	Authenticate(token string) (*utils.SessionClaims, error)
}

// AuthMiddleware validates session tokens and loads the authenticated account ID into context.
func AuthMiddleware(auth SessionAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := auth.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}

		c.Locals(accountContextKey, claims.AccountUUID())
		return c.Next()
	}
}

// GetCurrentAccountID extracts the authenticated account ID from context.
func GetCurrentAccountID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(accountContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
