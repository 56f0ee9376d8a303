package session

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketController struct {
	Hub     *Hub
	Service SessionService
}

func NewWebSocketController(hub *Hub, service SessionService) *WebSocketController {
	return &WebSocketController{
		Hub:     hub,
		Service: service,
	}
}

// Upgrade accepts websocket upgrades for existing sessions only.
func (h *WebSocketController) Upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := h.Service.Get(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Next()
}

// HandleWebSocket streams the session's binding, rejection, pending switch
// and store messages until the client goes away.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	h.Hub.Serve(c.Params("id"), c)
}
