package transform

import (
	"encoding/json"
	"fmt"
	"strings"
)

// requiredKeys are the top-level keys every persisted store must carry.
// pivot_auto_select is optional and defaults to true.
var requiredKeys = []string{
	"filters", "sort", "group_by", "metrics",
	"pivot_rows", "pivot_columns", "pivot_values", "pivot_filters",
}

// Marshal encodes the store as a flat JSON object with one key per zone.
func Marshal(s *Store) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes a persisted store. Entry ids are preserved as provided.
// Any structural problem is reported as ErrMalformedImport.
func Unmarshal(data []byte) (*Store, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing keys %s", ErrMalformedImport, strings.Join(missing, ", "))
	}

	s := NewStore()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	s.normalize()

	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	return s, nil
}

// normalize replaces nil zones (e.g. from JSON null) with empty ones.
func (s *Store) normalize() {
	if s.Filters == nil {
		s.Filters = []FilterSpec{}
	}
	for i := range s.Filters {
		if s.Filters[i].Conditions == nil {
			s.Filters[i].Conditions = []Condition{}
		}
	}
	if s.Sort == nil {
		s.Sort = []SortLevel{}
	}
	if s.GroupBy == nil {
		s.GroupBy = []GroupByColumn{}
	}
	if s.Metrics == nil {
		s.Metrics = []AggregationMetric{}
	}
	if s.PivotRows == nil {
		s.PivotRows = []PivotDimension{}
	}
	if s.PivotColumns == nil {
		s.PivotColumns = []PivotDimension{}
	}
	if s.PivotValues == nil {
		s.PivotValues = []PivotValue{}
	}
	if s.PivotFilters == nil {
		s.PivotFilters = []PivotDimension{}
	}
}

// Validate checks every store invariant: column uniqueness per zone,
// (column, operation) uniqueness for Metrics and Pivot Values, legal
// aggregation kinds and mode exclusivity.
func Validate(s *Store) error {
	for _, zone := range AllZones {
		seen := make(map[string]bool)
		for _, e := range s.Entries(zone) {
			key := e.ColumnKey()
			if key == "" {
				return fmt.Errorf("%s: entry %q has no column", zone, e.EntryID())
			}
			if zone.holdsOperations() {
				key += "\x00" + string(operationOf(e))
			}
			if seen[key] {
				return fmt.Errorf("%s: duplicate entry for column %q", zone, e.ColumnKey())
			}
			seen[key] = true
		}
	}

	for _, m := range s.Metrics {
		if !m.Type.Valid() {
			return fmt.Errorf("metrics: unknown aggregation %q", m.Type)
		}
	}
	for _, v := range s.PivotValues {
		if !v.AggregationType.Valid() {
			return fmt.Errorf("pivot_values: unknown aggregation %q", v.AggregationType)
		}
	}
	for _, l := range s.Sort {
		if l.Direction != SortAsc && l.Direction != SortDesc {
			return fmt.Errorf("sort: unknown direction %q", l.Direction)
		}
	}

	if s.HasAggregation() && s.HasPivot() {
		return fmt.Errorf("aggregation and pivot are both configured")
	}
	return nil
}

func operationOf(e Entry) AggregationType {
	switch v := e.(type) {
	case AggregationMetric:
		return v.Type
	case PivotValue:
		return v.AggregationType
	}
	return ""
}
