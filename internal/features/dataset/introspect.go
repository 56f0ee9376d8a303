package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	common_models "go-viz/internal/common/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SchemaReader reads a table's columns and distinct values from an external
// SQL database.
type SchemaReader interface {
	Read(ctx context.Context, req IntrospectRequest) ([]SQLColumn, map[string][]string, error)
}

type SQLSchemaReader struct{}

func NewSQLSchemaReader() SchemaReader {
	return &SQLSchemaReader{}
}

func (r *SQLSchemaReader) Read(ctx context.Context, req IntrospectRequest) ([]SQLColumn, map[string][]string, error) {
	driver, err := driverName(req.Driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(driver, req.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(5)

	columns, err := readColumns(ctx, db, req)
	if err != nil {
		return nil, nil, err
	}
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %q has no columns", req.Table)
	}

	distinct := make(map[string][]string, len(columns))
	for _, col := range columns {
		values, err := readDistinct(ctx, db, req, col.Name)
		if err != nil {
			return nil, nil, err
		}
		if len(values) > 0 {
			distinct[col.Name] = values
		}
	}
	return columns, distinct, nil
}

func driverName(src Source) (string, error) {
	switch src {
	case SourcePostgreSQL:
		return "postgres", nil
	case SourceMySQL:
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported driver %q", src)
}

func readColumns(ctx context.Context, db *sql.DB, req IntrospectRequest) ([]SQLColumn, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position
	`
	if req.Driver == SourcePostgreSQL {
		query = strings.Replace(query, "?", "$1", 1)
	}

	rows, err := db.QueryContext(ctx, query, req.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	defer rows.Close()

	var columns []SQLColumn
	for rows.Next() {
		var col SQLColumn
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func readDistinct(ctx context.Context, db *sql.DB, req IntrospectRequest, column string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
		quoteIdent(req.Driver, column), quoteIdent(req.Driver, req.Table), quoteIdent(req.Driver, column), MaxDistinctValues)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read distinct values of %s: %w", column, err)
	}
	defer rows.Close()

	var cells []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan distinct value: %w", err)
		}
		if v.Valid {
			cells = append(cells, v.String)
		}
	}
	return Distinct(cells), rows.Err()
}

func quoteIdent(src Source, name string) string {
	if src == SourcePostgreSQL {
		return pq.QuoteIdentifier(name)
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var sqlNumberTypes = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "integer": true, "bigint": true,
	"decimal": true, "numeric": true, "real": true, "float": true, "double": true,
	"double precision": true, "money": true, "smallserial": true, "serial": true, "bigserial": true,
}

var sqlDateTypes = map[string]bool{
	"date": true, "datetime": true, "timestamp": true, "year": true,
	"timestamp without time zone": true, "timestamp with time zone": true,
}

// MapSQLType maps an information_schema data_type onto a column type.
func MapSQLType(dataType string) common_models.FieldType {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch {
	case sqlNumberTypes[t]:
		return common_models.FieldTypeNumber
	case sqlDateTypes[t]:
		return common_models.FieldTypeDate
	}
	return common_models.FieldTypeText
}
