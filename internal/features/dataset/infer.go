package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	common_models "go-viz/internal/common/models"
	"go-viz/pkg/utils"

	"github.com/araddon/dateparse"
	"github.com/sourcegraph/conc/pool"
	"github.com/xuri/excelize/v2"
)

// Table is a parsed sheet: a header row and the data rows beneath it.
type Table struct {
	Headers []string
	Rows    [][]string
}

func parseCSV(file io.Reader) (*Table, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	table := &Table{Headers: headers}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

func parseExcel(file io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	return &Table{Headers: rows[0], Rows: rows[1:]}, nil
}

// ParseTable reads a CSV or XLSX upload, chosen by file extension.
func ParseTable(file io.Reader, filename string) (*Table, Source, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		t, err := parseCSV(file)
		return t, SourceCSV, err
	case strings.HasSuffix(name, ".xlsx"):
		t, err := parseExcel(file)
		return t, SourceXLSX, err
	}
	return nil, "", fmt.Errorf("unsupported file format: %s", filename)
}

// InferColumns derives the catalog of t: slug ids, inferred types and
// distinct values. Columns are inspected concurrently.
func InferColumns(t *Table, workers int) ([]common_models.Column, map[string][]string) {
	taken := map[string]bool{}
	ids := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		ids[i] = utils.UniqueSlug(h, fmt.Sprintf("column_%d", i+1), func(s string) bool { return taken[s] })
		taken[ids[i]] = true
	}

	columns := make([]common_models.Column, len(t.Headers))
	distinct := make([][]string, len(t.Headers))

	p := pool.New().WithMaxGoroutines(max(workers, 1))
	for i := range t.Headers {
		p.Go(func() {
			cells := make([]string, 0, len(t.Rows))
			for _, row := range t.Rows {
				if i < len(row) {
					cells = append(cells, strings.TrimSpace(row[i]))
				}
			}
			name := strings.TrimSpace(t.Headers[i])
			if name == "" {
				name = ids[i]
			}
			columns[i] = common_models.Column{ID: ids[i], Name: name, Type: InferType(cells)}
			distinct[i] = Distinct(cells)
		})
	}
	p.Wait()

	values := make(map[string][]string, len(columns))
	for i, col := range columns {
		if len(distinct[i]) > 0 {
			values[col.ID] = distinct[i]
		}
	}
	return columns, values
}

// InferType is number when every non-empty cell parses as a float, date when
// every one parses as a date, and text otherwise.
func InferType(cells []string) common_models.FieldType {
	isNumber, isDate, seen := true, true, false
	for _, c := range cells {
		if c == "" {
			continue
		}
		seen = true
		if isNumber {
			if _, err := strconv.ParseFloat(c, 64); err != nil {
				isNumber = false
			}
		}
		if isDate {
			if _, err := dateparse.ParseAny(c); err != nil {
				isDate = false
			}
		}
		if !isNumber && !isDate {
			break
		}
	}
	switch {
	case !seen:
		return common_models.FieldTypeText
	case isNumber:
		return common_models.FieldTypeNumber
	case isDate:
		return common_models.FieldTypeDate
	}
	return common_models.FieldTypeText
}

// Distinct returns the sorted non-empty distinct cells, capped at
// MaxDistinctValues.
func Distinct(cells []string) []string {
	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0)
	for _, c := range cells {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	if len(out) > MaxDistinctValues {
		out = out[:MaxDistinctValues]
	}
	return out
}
