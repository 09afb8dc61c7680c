package middleware

import (
	"strings"

	models "clipsify/internal/media"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const identityKey = "identity"

// SessionVerifier is implemented by *auth.JWTManager.
type SessionVerifier interface {
	Verify(token string) (models.Identity, error)
}

// RequireSession rejects requests without a valid bearer token before any
// handler logic runs.
func RequireSession(v SessionVerifier, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := resolve(c, v)
		if !ok {
			logger.Debug("unauthenticated request", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

// OptionalSession attaches the identity when a valid token is present and never rejects.
func OptionalSession(v SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := resolve(c, v); ok {
			c.Locals(identityKey, id)
		}
		return c.Next()
	}
}

func IdentityFrom(c *fiber.Ctx) (models.Identity, bool) {
	id, ok := c.Locals(identityKey).(models.Identity)
	return id, ok && id.UserID != ""
}

func resolve(c *fiber.Ctx, v SessionVerifier) (models.Identity, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return models.Identity{}, false
	}
	id, err := v.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		return models.Identity{}, false
	}
	return id, true
}
