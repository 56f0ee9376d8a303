package dataset

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type DatasetController struct {
	Service DatasetService
}

func NewDatasetController(service DatasetService) *DatasetController {
	return &DatasetController{
		Service: service,
	}
}

func (c *DatasetController) fail(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrDatasetNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrInvalidDataset):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// CreateDataset godoc
// @Summary Create dataset
// @Description Register a column catalog, optionally with sample rows for distinct values
// @Tags datasets
// @Accept json
// @Produce json
// @Param dataset body CreateDatasetRequest true "Dataset"
// @Success 201 {object} Dataset
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/datasets [post]
func (c *DatasetController) CreateDataset(ctx *fiber.Ctx) error {
	var req CreateDatasetRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ds, err := c.Service.Create(ctx.UserContext(), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(ds)
}

// ImportDataset godoc
// @Summary Import dataset
// @Description Upload a CSV/XLSX file; column types and distinct values are inferred
// @Tags datasets
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Data File"
// @Param name formData string false "Dataset Name"
// @Success 201 {object} Dataset
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/datasets/import [post]
func (c *DatasetController) ImportDataset(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer file.Close()

	ds, err := c.Service.Import(ctx.UserContext(), file, fileHeader.Filename, ctx.FormValue("name"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(ds)
}

// IntrospectDataset godoc
// @Summary Introspect SQL table
// @Description Build a dataset from a PostgreSQL or MySQL table's information_schema
// @Tags datasets
// @Accept json
// @Produce json
// @Param source body IntrospectRequest true "SQL Source"
// @Success 201 {object} Dataset
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/datasets/introspect [post]
func (c *DatasetController) IntrospectDataset(ctx *fiber.Ctx) error {
	var req IntrospectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ds, err := c.Service.Introspect(ctx.UserContext(), req)
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(ds)
}

// ListDatasets godoc
// @Summary List datasets
// @Tags datasets
// @Produce json
// @Success 200 {array} Dataset
// @Failure 500 {object} map[string]interface{}
// @Router /api/datasets [get]
func (c *DatasetController) ListDatasets(ctx *fiber.Ctx) error {
	datasets, err := c.Service.List(ctx.UserContext())
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(datasets)
}

// GetDataset godoc
// @Summary Get dataset
// @Tags datasets
// @Produce json
// @Param id path string true "Dataset ID"
// @Success 200 {object} Dataset
// @Failure 404 {object} map[string]interface{}
// @Router /api/datasets/{id} [get]
func (c *DatasetController) GetDataset(ctx *fiber.Ctx) error {
	ds, err := c.Service.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(ds)
}

// GetDistinctValues godoc
// @Summary Column distinct values
// @Description Distinct values of a column, for filter condition editors
// @Tags datasets
// @Produce json
// @Param id path string true "Dataset ID"
// @Param columnId path string true "Column ID"
// @Success 200 {array} string
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/datasets/{id}/columns/{columnId}/values [get]
func (c *DatasetController) GetDistinctValues(ctx *fiber.Ctx) error {
	values, err := c.Service.DistinctValues(ctx.UserContext(), ctx.Params("id"), ctx.Params("columnId"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(values)
}

// DeleteDataset godoc
// @Summary Delete dataset
// @Tags datasets
// @Param id path string true "Dataset ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/datasets/{id} [delete]
func (c *DatasetController) DeleteDataset(ctx *fiber.Ctx) error {
	if err := c.Service.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return c.fail(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
