package dataset

import (
	"time"

	common_models "go-viz/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Source string

const (
	SourceJSON       Source = "json"
	SourceCSV        Source = "csv"
	SourceXLSX       Source = "xlsx"
	SourcePostgreSQL Source = "postgresql"
	SourceMySQL      Source = "mysql"
)

// MaxDistinctValues caps the distinct values kept per column.
const MaxDistinctValues = 1000

// Dataset is the column catalog of a tabular source plus the distinct values
// needed to derive pivot column keys. Rows themselves are not stored.
type Dataset struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Slug      string                 `json:"slug" bson:"slug"`
	Name      string                 `json:"name" bson:"name"`
	Source    Source                 `json:"source" bson:"source"`
	Columns   []common_models.Column `json:"columns" bson:"columns"`
	Distinct  map[string][]string    `json:"distinct_values,omitempty" bson:"distinct_values,omitempty"`
	RowCount  int                    `json:"row_count" bson:"row_count"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" bson:"updated_at"`
}

func (d *Dataset) Catalog() *common_models.Catalog {
	return common_models.NewCatalog(d.Columns)
}

// DistinctValues returns the known distinct values of a column.
func (d *Dataset) DistinctValues(columnID string) []string {
	if d == nil {
		return nil
	}
	return d.Distinct[columnID]
}

type CreateDatasetRequest struct {
	Name    string                 `json:"name"`
	Columns []common_models.Column `json:"columns"`
	// Rows is optional sample data used to collect distinct values.
	Rows []map[string]any `json:"rows,omitempty"`
}

type IntrospectRequest struct {
	Name   string `json:"name"`
	Driver Source `json:"driver"`
	DSN    string `json:"dsn"`
	Table  string `json:"table"`
}

// SQLColumn is one row of information_schema.columns.
type SQLColumn struct {
	Name     string
	DataType string
}
