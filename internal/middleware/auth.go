package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/client"
)

const (
	sessionKey = "session"
	tokenKey   = "token"
)

// RequireSession authenticates every request against the auth service and
// stashes the session and raw token for the handlers.
func RequireSession(validator client.SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		session, err := validator.Validate(c.UserContext(), token)
		if err != nil {
			if apperr.IsKind(err, apperr.KindUnauthorized) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(sessionKey, session)
		c.Locals(tokenKey, token)
		return c.Next()
	}
}

// RequireAdmin gates a route to sessions carrying the admin permission. Must
// run after RequireSession.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := SessionFrom(c)
		if session == nil || !session.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "you do not have permission to access this resource"})
		}
		return c.Next()
	}
}

// SessionFrom returns the authenticated session, or nil outside RequireSession.
func SessionFrom(c *fiber.Ctx) *client.Session {
	session, _ := c.Locals(sessionKey).(*client.Session)
	return session
}

// TokenFrom returns the raw bearer token of the request.
func TokenFrom(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenKey).(string)
	return token
}
