package session

import (
	"errors"
	"fmt"

	"go-viz/internal/features/chart"
	"go-viz/internal/features/dataset"
	"go-viz/internal/features/transform"
	"go-viz/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

type SessionController struct {
	Service SessionService
}

func NewSessionController(service SessionService) *SessionController {
	return &SessionController{
		Service: service,
	}
}

func (c *SessionController) fail(ctx *fiber.Ctx, err error) error {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "pending": conflict.Pending})
	}

	switch {
	case errors.Is(err, transform.ErrNoPendingSwitch):
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, dataset.ErrDatasetNotFound),
		errors.Is(err, transform.ErrEntryNotFound),
		errors.Is(err, transform.ErrColumnNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, transform.ErrMalformedImport), errors.Is(err, ErrInvalidRequest):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if r, ok := transform.IsRejection(err); ok {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": r.Message, "zone": r.Zone})
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func (c *SessionController) reply(ctx *fiber.Ctx, view *SessionView, err error) error {
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(view)
}

// CreateSession godoc
// @Summary Create session
// @Description Open a transformation session over a dataset
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body CreateSessionRequest true "Session"
// @Success 201 {object} SessionView
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions [post]
func (c *SessionController) CreateSession(ctx *fiber.Ctx) error {
	var req CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	view, err := c.Service.Create(ctx.UserContext(), middleware.UserID(ctx), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(view)
}

// ListSessions godoc
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Success 200 {array} Session
// @Router /api/sessions [get]
func (c *SessionController) ListSessions(ctx *fiber.Ctx) error {
	sessions, err := c.Service.List(ctx.UserContext())
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(sessions)
}

// GetSession godoc
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionView
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id} [get]
func (c *SessionController) GetSession(ctx *fiber.Ctx) error {
	view, err := c.Service.Get(ctx.UserContext(), ctx.Params("id"))
	return c.reply(ctx, view, err)
}

// DeleteSession godoc
// @Summary Delete session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id} [delete]
func (c *SessionController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.Service.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return c.fail(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// ResetSession godoc
// @Summary Reset session
// @Description Discard every zone of the configuration
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/reset [post]
func (c *SessionController) ResetSession(ctx *fiber.Ctx) error {
	view, err := c.Service.Reset(ctx.UserContext(), ctx.Params("id"))
	return c.reply(ctx, view, err)
}

// Assign godoc
// @Summary Assign column
// @Description Drop a column into a zone
// @Tags zones
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param assignment body AssignRequest true "Assignment"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "mode switch pending confirmation"
// @Failure 422 {object} map[string]interface{} "assignment rejected"
// @Router /api/sessions/{id}/assign [post]
func (c *SessionController) Assign(ctx *fiber.Ctx) error {
	var req AssignRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	entry, view, err := c.Service.Assign(ctx.UserContext(), ctx.Params("id"), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"entry": entry, "session": view})
}

// Move godoc
// @Summary Move entry
// @Description Move an entry between zones
// @Tags zones
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param move body MoveRequest true "Move"
// @Success 200 {object} SessionView
// @Failure 422 {object} map[string]interface{}
// @Router /api/sessions/{id}/move [post]
func (c *SessionController) Move(ctx *fiber.Ctx) error {
	var req MoveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	view, err := c.Service.Move(ctx.UserContext(), ctx.Params("id"), req)
	return c.reply(ctx, view, err)
}

// DragEnd godoc
// @Summary End drag
// @Description Report the end of a drag; an entry released outside every zone is removed
// @Tags zones
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param drag body DragEndRequest true "Drag end"
// @Success 200 {object} map[string]interface{}
// @Router /api/sessions/{id}/drag-end [post]
func (c *SessionController) DragEnd(ctx *fiber.Ctx) error {
	var req DragEndRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	removed, view, err := c.Service.DragEnd(ctx.UserContext(), ctx.Params("id"), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"removed": removed, "session": view})
}

// RemoveEntry godoc
// @Summary Remove entry
// @Tags zones
// @Produce json
// @Param id path string true "Session ID"
// @Param zone path string true "Zone"
// @Param entryId path string true "Entry ID"
// @Success 200 {object} SessionView
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/zones/{zone}/{entryId} [delete]
func (c *SessionController) RemoveEntry(ctx *fiber.Ctx) error {
	view, err := c.Service.RemoveEntry(ctx.UserContext(), ctx.Params("id"), transform.Zone(ctx.Params("zone")), ctx.Params("entryId"))
	return c.reply(ctx, view, err)
}

// ClearZone godoc
// @Summary Clear zone
// @Tags zones
// @Produce json
// @Param id path string true "Session ID"
// @Param zone path string true "Zone"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/zones/{zone} [delete]
func (c *SessionController) ClearZone(ctx *fiber.Ctx) error {
	view, err := c.Service.ClearZone(ctx.UserContext(), ctx.Params("id"), transform.Zone(ctx.Params("zone")))
	return c.reply(ctx, view, err)
}

// MoveSortLevel godoc
// @Summary Reorder sort level
// @Tags sort
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param columnId path string true "Column ID"
// @Param move body SortMoveRequest true "up or down"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/sort/{columnId}/move [post]
func (c *SessionController) MoveSortLevel(ctx *fiber.Ctx) error {
	var req SortMoveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Direction != "up" && req.Direction != "down" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "direction must be up or down"})
	}
	view, err := c.Service.MoveSortLevel(ctx.UserContext(), ctx.Params("id"), ctx.Params("columnId"), req.Direction == "up")
	return c.reply(ctx, view, err)
}

// SetSortDirection godoc
// @Summary Set sort direction
// @Tags sort
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param columnId path string true "Column ID"
// @Param direction body SortDirectionRequest true "asc or desc"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/sort/{columnId} [put]
func (c *SessionController) SetSortDirection(ctx *fiber.Ctx) error {
	var req SortDirectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	view, err := c.Service.SetSortDirection(ctx.UserContext(), ctx.Params("id"), ctx.Params("columnId"), req.Direction)
	return c.reply(ctx, view, err)
}

// UpdateEntry godoc
// @Summary Update entry
// @Description Change the aggregation, alias or time unit of an entry
// @Tags zones
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param zone path string true "Zone"
// @Param entryId path string true "Entry ID"
// @Param update body EntryUpdateRequest true "Settings"
// @Success 200 {object} SessionView
// @Failure 422 {object} map[string]interface{}
// @Router /api/sessions/{id}/entries/{zone}/{entryId} [put]
func (c *SessionController) UpdateEntry(ctx *fiber.Ctx) error {
	var req EntryUpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	view, err := c.Service.UpdateEntry(ctx.UserContext(), ctx.Params("id"), transform.Zone(ctx.Params("zone")), ctx.Params("entryId"), req)
	return c.reply(ctx, view, err)
}

// AddCondition godoc
// @Summary Add filter condition
// @Tags filters
// @Produce json
// @Param id path string true "Session ID"
// @Param filterId path string true "Filter ID"
// @Success 201 {object} map[string]interface{}
// @Router /api/sessions/{id}/filters/{filterId}/conditions [post]
func (c *SessionController) AddCondition(ctx *fiber.Ctx) error {
	cond, view, err := c.Service.AddCondition(ctx.UserContext(), ctx.Params("id"), ctx.Params("filterId"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"condition": cond, "session": view})
}

// UpdateCondition godoc
// @Summary Update filter condition
// @Tags filters
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param filterId path string true "Filter ID"
// @Param conditionId path string true "Condition ID"
// @Param condition body transform.Condition true "Condition"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/filters/{filterId}/conditions/{conditionId} [put]
func (c *SessionController) UpdateCondition(ctx *fiber.Ctx) error {
	var cond transform.Condition
	if err := ctx.BodyParser(&cond); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	cond.ID = ctx.Params("conditionId")
	view, err := c.Service.UpdateCondition(ctx.UserContext(), ctx.Params("id"), ctx.Params("filterId"), cond)
	return c.reply(ctx, view, err)
}

// RemoveCondition godoc
// @Summary Remove filter condition
// @Tags filters
// @Produce json
// @Param id path string true "Session ID"
// @Param filterId path string true "Filter ID"
// @Param conditionId path string true "Condition ID"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/filters/{filterId}/conditions/{conditionId} [delete]
func (c *SessionController) RemoveCondition(ctx *fiber.Ctx) error {
	view, err := c.Service.RemoveCondition(ctx.UserContext(), ctx.Params("id"), ctx.Params("filterId"), ctx.Params("conditionId"))
	return c.reply(ctx, view, err)
}

// RequestMode godoc
// @Summary Switch mode
// @Description Request a switch between aggregation and pivot; deferred when the other mode holds entries
// @Tags mode
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param mode body ModeRequest true "Mode"
// @Success 200 {object} SessionView
// @Failure 409 {object} map[string]interface{}
// @Router /api/sessions/{id}/mode [post]
func (c *SessionController) RequestMode(ctx *fiber.Ctx) error {
	var req ModeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	view, err := c.Service.RequestMode(ctx.UserContext(), ctx.Params("id"), req.Mode)
	return c.reply(ctx, view, err)
}

// ConfirmSwitch godoc
// @Summary Confirm mode switch
// @Tags mode
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionView
// @Failure 409 {object} map[string]interface{}
// @Router /api/sessions/{id}/mode/confirm [post]
func (c *SessionController) ConfirmSwitch(ctx *fiber.Ctx) error {
	view, err := c.Service.ConfirmSwitch(ctx.UserContext(), ctx.Params("id"))
	return c.reply(ctx, view, err)
}

// CancelSwitch godoc
// @Summary Cancel mode switch
// @Tags mode
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionView
// @Failure 409 {object} map[string]interface{}
// @Router /api/sessions/{id}/mode/cancel [post]
func (c *SessionController) CancelSwitch(ctx *fiber.Ctx) error {
	view, err := c.Service.CancelSwitch(ctx.UserContext(), ctx.Params("id"))
	return c.reply(ctx, view, err)
}

// SetChartType godoc
// @Summary Set chart type
// @Tags chart
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param chart body ChartTypeRequest true "Chart type"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/chart-type [put]
func (c *SessionController) SetChartType(ctx *fiber.Ctx) error {
	var req ChartTypeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	view, err := c.Service.SetChartType(ctx.UserContext(), ctx.Params("id"), req.ChartType)
	return c.reply(ctx, view, err)
}

// SetAutoSelect godoc
// @Summary Toggle automatic series selection
// @Tags chart
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param toggle body AutoSelectRequest true "Enabled"
// @Success 200 {object} SessionView
// @Router /api/sessions/{id}/auto-select [put]
func (c *SessionController) SetAutoSelect(ctx *fiber.Ctx) error {
	var req AutoSelectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	view, err := c.Service.SetAutoSelect(ctx.UserContext(), ctx.Params("id"), req.Enabled)
	return c.reply(ctx, view, err)
}

// GetBinding godoc
// @Summary Get chart binding
// @Tags chart
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} chart.Binding
// @Router /api/sessions/{id}/binding [get]
func (c *SessionController) GetBinding(ctx *fiber.Ctx) error {
	b, err := c.Service.Binding(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(b)
}

// SelectSeries godoc
// @Summary Run automatic series selection
// @Description Derive the binding from the current pivot schema and wait for the result
// @Tags chart
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} chart.Outcome
// @Router /api/sessions/{id}/binding/select [post]
func (c *SessionController) SelectSeries(ctx *fiber.Ctx) error {
	outcome, err := c.Service.SelectSeries(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(outcome)
}

// ClearBinding godoc
// @Summary Clear binding channel
// @Description Clear one channel and the channels that depend on it
// @Tags chart
// @Produce json
// @Param id path string true "Session ID"
// @Param field path string true "Channel"
// @Success 200 {object} chart.Binding
// @Failure 400 {object} map[string]interface{}
// @Router /api/sessions/{id}/binding/{field} [delete]
func (c *SessionController) ClearBinding(ctx *fiber.Ctx) error {
	b, err := c.Service.ClearBinding(ctx.UserContext(), ctx.Params("id"), chart.Field(ctx.Params("field")))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(b)
}

// ExportSession godoc
// @Summary Export configuration
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} transform.Store
// @Router /api/sessions/{id}/export [get]
func (c *SessionController) ExportSession(ctx *fiber.Ctx) error {
	data, err := c.Service.Export(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	ctx.Set("Content-Type", fiber.MIMEApplicationJSON)
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.json", ctx.Params("id")))
	return ctx.Send(data)
}

// ImportSession godoc
// @Summary Import configuration
// @Description Replace the configuration; a malformed payload is rejected and the previous state kept
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param store body transform.Store true "Configuration"
// @Success 200 {object} SessionView
// @Failure 400 {object} map[string]interface{}
// @Router /api/sessions/{id}/import [post]
func (c *SessionController) ImportSession(ctx *fiber.Ctx) error {
	view, err := c.Service.Import(ctx.UserContext(), ctx.Params("id"), ctx.Body())
	return c.reply(ctx, view, err)
}

// GetPreview godoc
// @Summary Preview operations
// @Description Human-readable summary of the configured operations
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/sessions/{id}/preview [get]
func (c *SessionController) GetPreview(ctx *fiber.Ctx) error {
	preview, err := c.Service.Preview(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{
		"sections": preview.Sections,
		"empty":    preview.Empty(),
		"text":     preview.String(),
	})
}

// GetPreviewWorkbook godoc
// @Summary Download preview
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Router /api/sessions/{id}/preview/xlsx [get]
func (c *SessionController) GetPreviewWorkbook(ctx *fiber.Ctx) error {
	data, err := c.Service.PreviewWorkbook(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=preview-%s.xlsx", ctx.Params("id")))
	return ctx.Send(data)
}

// GetFilterQuery godoc
// @Summary Filter stage as a MongoDB query
// @Description The configured filters compiled into a MongoDB match document (relaxed extended JSON)
// @Tags filters
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/sessions/{id}/filters/query [get]
func (c *SessionController) GetFilterQuery(ctx *fiber.Ctx) error {
	query, err := c.Service.FilterQuery(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	data, err := bson.MarshalExtJSON(query, false, false)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	ctx.Set("Content-Type", fiber.MIMEApplicationJSON)
	return ctx.Send(data)
}
