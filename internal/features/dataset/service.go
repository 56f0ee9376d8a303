package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	common_models "go-viz/internal/common/models"
	"go-viz/pkg/utils"

	"go.uber.org/zap"
)

// ErrInvalidDataset marks a request the caller must fix.
var ErrInvalidDataset = errors.New("invalid dataset")

type DatasetService interface {
	Create(ctx context.Context, req CreateDatasetRequest) (*Dataset, error)
	Import(ctx context.Context, file io.Reader, filename, name string) (*Dataset, error)
	Introspect(ctx context.Context, req IntrospectRequest) (*Dataset, error)
	Get(ctx context.Context, id string) (*Dataset, error)
	List(ctx context.Context) ([]Dataset, error)
	Delete(ctx context.Context, id string) error
	DistinctValues(ctx context.Context, id, columnID string) ([]string, error)
}

type DatasetServiceImpl struct {
	Repo   DatasetRepository
	Schema SchemaReader
	Logger *zap.Logger
}

func NewDatasetService(repo DatasetRepository, schema SchemaReader, logger *zap.Logger) DatasetService {
	return &DatasetServiceImpl{
		Repo:   repo,
		Schema: schema,
		Logger: logger,
	}
}

func (s *DatasetServiceImpl) Create(ctx context.Context, req CreateDatasetRequest) (*Dataset, error) {
	if len(req.Columns) == 0 {
		return nil, fmt.Errorf("%w: at least one column is required", ErrInvalidDataset)
	}

	seen := map[string]bool{}
	columns := make([]common_models.Column, 0, len(req.Columns))
	for i, col := range req.Columns {
		if col.ID == "" {
			col.ID = utils.UniqueSlug(col.Name, fmt.Sprintf("column_%d", i+1), func(s string) bool { return seen[s] })
		}
		if seen[col.ID] {
			return nil, fmt.Errorf("%w: duplicate column id %q", ErrInvalidDataset, col.ID)
		}
		if col.Name == "" {
			col.Name = col.ID
		}
		if col.Type == "" {
			col.Type = common_models.FieldTypeText
		}
		if !col.Type.Valid() {
			return nil, fmt.Errorf("%w: column %q has unknown type %q", ErrInvalidDataset, col.Name, col.Type)
		}
		seen[col.ID] = true
		columns = append(columns, col)
	}

	distinct := map[string][]string{}
	for _, col := range columns {
		cells := make([]string, 0, len(req.Rows))
		for _, row := range req.Rows {
			if v, ok := row[col.ID]; ok && v != nil {
				cells = append(cells, strings.TrimSpace(fmt.Sprint(v)))
			}
		}
		if values := Distinct(cells); len(values) > 0 {
			distinct[col.ID] = values
		}
	}

	return s.save(ctx, &Dataset{
		Name:     req.Name,
		Source:   SourceJSON,
		Columns:  columns,
		Distinct: distinct,
		RowCount: len(req.Rows),
	})
}

func (s *DatasetServiceImpl) Import(ctx context.Context, file io.Reader, filename, name string) (*Dataset, error) {
	table, source, err := ParseTable(file, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if len(table.Headers) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", ErrInvalidDataset)
	}

	columns, distinct := InferColumns(table, 8)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	s.Logger.Info("dataset imported",
		zap.String("file", filename),
		zap.Int("columns", len(columns)),
		zap.Int("rows", len(table.Rows)))

	return s.save(ctx, &Dataset{
		Name:     name,
		Source:   source,
		Columns:  columns,
		Distinct: distinct,
		RowCount: len(table.Rows),
	})
}

func (s *DatasetServiceImpl) Introspect(ctx context.Context, req IntrospectRequest) (*Dataset, error) {
	if req.DSN == "" || req.Table == "" {
		return nil, fmt.Errorf("%w: dsn and table are required", ErrInvalidDataset)
	}
	if _, err := driverName(req.Driver); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	sqlColumns, values, err := s.Schema.Read(ctx, req)
	if err != nil {
		return nil, err
	}

	taken := map[string]bool{}
	columns := make([]common_models.Column, 0, len(sqlColumns))
	distinct := make(map[string][]string, len(values))
	for i, c := range sqlColumns {
		id := utils.UniqueSlug(c.Name, fmt.Sprintf("column_%d", i+1), func(s string) bool { return taken[s] })
		taken[id] = true
		columns = append(columns, common_models.Column{ID: id, Name: c.Name, Type: MapSQLType(c.DataType)})
		if v, ok := values[c.Name]; ok {
			distinct[id] = v
		}
	}

	name := req.Name
	if name == "" {
		name = req.Table
	}
	return s.save(ctx, &Dataset{
		Name:     name,
		Source:   req.Driver,
		Columns:  columns,
		Distinct: distinct,
	})
}

func (s *DatasetServiceImpl) Get(ctx context.Context, id string) (*Dataset, error) {
	return s.Repo.Get(ctx, id)
}

func (s *DatasetServiceImpl) List(ctx context.Context) ([]Dataset, error) {
	return s.Repo.List(ctx)
}

func (s *DatasetServiceImpl) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *DatasetServiceImpl) DistinctValues(ctx context.Context, id, columnID string) ([]string, error) {
	ds, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := ds.Catalog().Lookup(columnID); !ok {
		return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidDataset, columnID)
	}
	values := ds.DistinctValues(columnID)
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func (s *DatasetServiceImpl) save(ctx context.Context, ds *Dataset) (*Dataset, error) {
	if strings.TrimSpace(ds.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDataset)
	}

	var lookupErr error
	slug := utils.UniqueSlug(ds.Name, "dataset", func(candidate string) bool {
		exists, err := s.Repo.SlugExists(ctx, candidate)
		if err != nil {
			lookupErr = err
			return false
		}
		return exists
	})
	if lookupErr != nil {
		return nil, lookupErr
	}

	now := time.Now().UTC()
	ds.Slug = slug
	ds.CreatedAt = now
	ds.UpdatedAt = now
	if err := s.Repo.Create(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}
