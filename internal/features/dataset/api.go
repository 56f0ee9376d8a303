package dataset

import (
	"go-viz/internal/common/api"
	"go-viz/internal/config"
	"go-viz/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DatasetApi struct {
	Controller *DatasetController
	Config     *config.Config
}

func NewDatasetApi(controller *DatasetController, cfg *config.Config) api.Route {
	return &DatasetApi{
		Controller: controller,
		Config:     cfg,
	}
}

func (h *DatasetApi) Setup(app *fiber.App) {
	group := app.Group("/api/datasets", middleware.AuthMiddleware(h.Config.SkipAuth))

	group.Post("/", h.Controller.CreateDataset)
	group.Post("/import", h.Controller.ImportDataset)
	group.Post("/introspect", h.Controller.IntrospectDataset)
	group.Get("/", h.Controller.ListDatasets)
	group.Get("/:id", h.Controller.GetDataset)
	group.Get("/:id/columns/:columnId/values", h.Controller.GetDistinctValues)
	group.Delete("/:id", h.Controller.DeleteDataset)
}
