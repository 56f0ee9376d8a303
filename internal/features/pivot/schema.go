package pivot

import (
	"fmt"
	"sort"
	"strings"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/features/transform"

	"github.com/araddon/dateparse"
)

// KeySeparator joins the values of several column dimensions into one header.
const KeySeparator = " / "

// ValueSource returns the distinct raw values of a dataset column.
type ValueSource interface {
	DistinctValues(columnID string) []string
}

// Derive computes the ordered post-pivot headers for p: row dimensions first,
// then one header per column key and value.
func Derive(p *transform.PivotConfig, catalog *common_models.Catalog, values ValueSource) []string {
	if p == nil {
		return nil
	}

	headers := make([]string, 0, len(p.Rows)+len(p.Values))
	for _, r := range p.Rows {
		headers = append(headers, r.Name)
	}

	valueHeaders := make([]string, 0, len(p.Values))
	for _, v := range p.Values {
		name := v.Name
		if name == "" {
			name = catalog.NameOf(v.ColumnID)
		}
		valueHeaders = append(valueHeaders, transform.ValueHeader(v.AggregationType, name))
	}

	if len(p.Columns) == 0 {
		if len(valueHeaders) == 0 {
			return append(headers, "Count")
		}
		return append(headers, valueHeaders...)
	}

	for _, key := range columnKeys(p.Columns, values) {
		if len(valueHeaders) <= 1 {
			headers = append(headers, key)
			continue
		}
		for _, vh := range valueHeaders {
			headers = append(headers, fmt.Sprintf("%s - %s", key, vh))
		}
	}
	return headers
}

// columnKeys is the cartesian product of the bucketed distinct values of
// every column dimension, in dimension order.
func columnKeys(dims []transform.PivotDimension, values ValueSource) []string {
	keys := []string{""}
	for i, d := range dims {
		var raw []string
		if values != nil {
			raw = values.DistinctValues(d.ColumnID)
		}
		buckets := bucketize(raw, d)
		if len(buckets) == 0 {
			return nil
		}

		next := make([]string, 0, len(keys)*len(buckets))
		for _, prefix := range keys {
			for _, b := range buckets {
				if i == 0 {
					next = append(next, b)
				} else {
					next = append(next, prefix+KeySeparator+b)
				}
			}
		}
		keys = next
	}
	return keys
}

// bucketize dedupes raw values. Date dimensions with a time unit are grouped
// into buckets and sorted chronologically.
func bucketize(raw []string, d transform.PivotDimension) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	isDate := d.ColumnType == common_models.FieldTypeDate && d.TimeUnit != ""

	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if isDate {
			b, ok := Bucket(v, d.TimeUnit)
			if !ok {
				continue
			}
			v = b
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	if isDate {
		sort.Strings(out)
	}
	return out
}

// Bucket maps a date value onto its time unit bucket label, e.g. "2024-Q2".
func Bucket(value string, unit transform.TimeUnit) (string, bool) {
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return "", false
	}
	switch unit {
	case transform.TimeUnitDay:
		return t.Format("2006-01-02"), true
	case transform.TimeUnitMonth:
		return t.Format("2006-01"), true
	case transform.TimeUnitQuarter:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1), true
	case transform.TimeUnitYear:
		return t.Format("2006"), true
	}
	return "", false
}
