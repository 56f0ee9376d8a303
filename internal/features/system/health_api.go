package system

import (
	"context"
	"time"

	"go-viz/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports how many sessions are held in memory.
type SessionCounter interface {
	Len() int
}

type HealthApi struct {
	DB       Pinger
	Sessions SessionCounter
}

func NewHealthApi(db Pinger, sessions SessionCounter) api.Route {
	return &HealthApi{DB: db, Sessions: sessions}
}

// Setup registers health check route
func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Check that the server and its database are up
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthApi) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status":        "ok",
		"live_sessions": h.Sessions.Len(),
	})
}
