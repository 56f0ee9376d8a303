package middleware

import (
	"strings"

	"go-viz/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates JWT tokens and injects user claims into context
func AuthMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			// Inject dummy context for dev
			c.Locals(utils.UserClaimsKey, &utils.UserClaims{UserID: "dev-user"})
			return c.Next()
		}

		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(utils.UserClaimsKey, claims)
		return c.Next()
	}
}

// bearerToken reads "Bearer <token>" from the Authorization header. Browsers
// cannot set headers on websocket upgrades, so a token query parameter is
// accepted too.
func bearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
		return ""
	}
	return c.Query("token")
}

// UserID returns the authenticated user, or "" when the request is anonymous.
func UserID(c *fiber.Ctx) string {
	if claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims.UserID
	}
	return ""
}
