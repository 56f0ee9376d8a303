package system

import (
	"go-viz/internal/middleware"
	"go-viz/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type DebugController struct{}

func NewDebugController() *DebugController {
	return &DebugController{}
}

// GetCurrentUser godoc
// @Summary      Get current user info
// @Description  Get the current user's info from JWT
// @Tags         debug
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/debug/me [get]
func (c *DebugController) GetCurrentUser(ctx *fiber.Ctx) error {
	resp := fiber.Map{"user_id": middleware.UserID(ctx)}
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok && claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Time
	}
	return ctx.JSON(resp)
}
