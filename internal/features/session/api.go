package session

import (
	"go-viz/internal/common/api"
	"go-viz/internal/config"
	"go-viz/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type SessionApi struct {
	Controller *SessionController
	WebSocket  *WebSocketController
	Config     *config.Config
}

func NewSessionApi(controller *SessionController, ws *WebSocketController, cfg *config.Config) api.Route {
	return &SessionApi{
		Controller: controller,
		WebSocket:  ws,
		Config:     cfg,
	}
}

func (h *SessionApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.Config.SkipAuth)

	app.Get("/api/ws/sessions/:id", auth, h.WebSocket.Upgrade, websocket.New(h.WebSocket.HandleWebSocket))

	group := app.Group("/api/sessions", auth)

	group.Post("/", h.Controller.CreateSession)
	group.Get("/", h.Controller.ListSessions)
	group.Get("/:id", h.Controller.GetSession)
	group.Delete("/:id", h.Controller.DeleteSession)
	group.Post("/:id/reset", h.Controller.ResetSession)

	// Zones
	group.Post("/:id/assign", h.Controller.Assign)
	group.Post("/:id/move", h.Controller.Move)
	group.Post("/:id/drag-end", h.Controller.DragEnd)
	group.Delete("/:id/zones/:zone/:entryId", h.Controller.RemoveEntry)
	group.Delete("/:id/zones/:zone", h.Controller.ClearZone)
	group.Put("/:id/entries/:zone/:entryId", h.Controller.UpdateEntry)

	// Sort
	group.Post("/:id/sort/:columnId/move", h.Controller.MoveSortLevel)
	group.Put("/:id/sort/:columnId", h.Controller.SetSortDirection)

	// Filters
	group.Get("/:id/filters/query", h.Controller.GetFilterQuery)
	group.Post("/:id/filters/:filterId/conditions", h.Controller.AddCondition)
	group.Put("/:id/filters/:filterId/conditions/:conditionId", h.Controller.UpdateCondition)
	group.Delete("/:id/filters/:filterId/conditions/:conditionId", h.Controller.RemoveCondition)

	// Mode
	group.Post("/:id/mode", h.Controller.RequestMode)
	group.Post("/:id/mode/confirm", h.Controller.ConfirmSwitch)
	group.Post("/:id/mode/cancel", h.Controller.CancelSwitch)

	// Chart
	group.Put("/:id/chart-type", h.Controller.SetChartType)
	group.Put("/:id/auto-select", h.Controller.SetAutoSelect)
	group.Get("/:id/binding", h.Controller.GetBinding)
	group.Post("/:id/binding/select", h.Controller.SelectSeries)
	group.Delete("/:id/binding/:field", h.Controller.ClearBinding)

	// Export
	group.Get("/:id/export", h.Controller.ExportSession)
	group.Post("/:id/import", h.Controller.ImportSession)
	group.Get("/:id/preview", h.Controller.GetPreview)
	group.Get("/:id/preview/xlsx", h.Controller.GetPreviewWorkbook)
}
