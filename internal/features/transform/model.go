package transform

import (
	common_models "go-viz/internal/common/models"
)

type Zone string

const (
	ZoneFilters      Zone = "filters"
	ZoneSort         Zone = "sort"
	ZoneGroupBy      Zone = "group_by"
	ZoneMetrics      Zone = "metrics"
	ZonePivotRows    Zone = "pivot_rows"
	ZonePivotColumns Zone = "pivot_columns"
	ZonePivotValues  Zone = "pivot_values"
	ZonePivotFilters Zone = "pivot_filters"
)

// AllZones lists every zone in display order.
var AllZones = []Zone{
	ZoneFilters, ZoneSort, ZoneGroupBy, ZoneMetrics,
	ZonePivotRows, ZonePivotColumns, ZonePivotValues, ZonePivotFilters,
}

var zoneLabels = map[Zone]string{
	ZoneFilters:      "Filters",
	ZoneSort:         "Sort",
	ZoneGroupBy:      "Group By",
	ZoneMetrics:      "Metrics",
	ZonePivotRows:    "Rows",
	ZonePivotColumns: "Columns",
	ZonePivotValues:  "Values",
	ZonePivotFilters: "Pivot Filters",
}

// Label is the human-readable zone name used in rejection messages.
func (z Zone) Label() string {
	if l, ok := zoneLabels[z]; ok {
		return l
	}
	return string(z)
}

func (z Zone) Valid() bool {
	_, ok := zoneLabels[z]
	return ok
}

func (z Zone) IsAggregation() bool {
	return z == ZoneGroupBy || z == ZoneMetrics
}

func (z Zone) IsPivot() bool {
	return z == ZonePivotRows || z == ZonePivotColumns || z == ZonePivotValues || z == ZonePivotFilters
}

// IsDimension reports whether the zone holds PivotDimension entries.
func (z Zone) IsDimension() bool {
	return z == ZonePivotRows || z == ZonePivotColumns || z == ZonePivotFilters
}

// holdsOperations reports whether entries are unique per (column, operation) rather than per column.
func (z Zone) holdsOperations() bool {
	return z == ZoneMetrics || z == ZonePivotValues
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type TimeUnit string

const (
	TimeUnitDay     TimeUnit = "day"
	TimeUnitMonth   TimeUnit = "month"
	TimeUnitQuarter TimeUnit = "quarter"
	TimeUnitYear    TimeUnit = "year"
)

func (u TimeUnit) Valid() bool {
	switch u {
	case TimeUnitDay, TimeUnitMonth, TimeUnitQuarter, TimeUnitYear:
		return true
	}
	return false
}

type AggregationType string

const (
	AggregationSum     AggregationType = "sum"
	AggregationAverage AggregationType = "average"
	AggregationMin     AggregationType = "min"
	AggregationMax     AggregationType = "max"
	AggregationCount   AggregationType = "count"
)

// Entry is any zone entry. EntryID identifies the entry inside its zone and
// ColumnKey is the dataset column it refers to.
type Entry interface {
	EntryID() string
	ColumnKey() string
}

// Condition is one predicate of a FilterSpec. ValueEnd is only used by "between".
type Condition struct {
	ID       string         `json:"id" bson:"id"`
	Operator FilterOperator `json:"operator" bson:"operator"`
	Value    any            `json:"value" bson:"value"`
	ValueEnd any            `json:"value_end,omitempty" bson:"value_end,omitempty"`
}

type FilterSpec struct {
	ID         string                  `json:"id" bson:"id"`
	ColumnID   string                  `json:"column_id" bson:"column_id"`
	ColumnName string                  `json:"column_name" bson:"column_name"`
	ColumnType common_models.FieldType `json:"column_type" bson:"column_type"`
	Conditions []Condition             `json:"conditions" bson:"conditions"`
}

func (f FilterSpec) EntryID() string   { return f.ID }
func (f FilterSpec) ColumnKey() string { return f.ColumnID }

// SortLevel has no id of its own; its column is its identity.
type SortLevel struct {
	ColumnID  string        `json:"column_id" bson:"column_id"`
	Direction SortDirection `json:"direction" bson:"direction"`
}

func (s SortLevel) EntryID() string   { return s.ColumnID }
func (s SortLevel) ColumnKey() string { return s.ColumnID }

type GroupByColumn struct {
	ID       string   `json:"id" bson:"id"`
	Name     string   `json:"name" bson:"name"`
	TimeUnit TimeUnit `json:"time_unit,omitempty" bson:"time_unit,omitempty"`
}

func (g GroupByColumn) EntryID() string   { return g.ID }
func (g GroupByColumn) ColumnKey() string { return g.ID }

type AggregationMetric struct {
	ID       string          `json:"id" bson:"id"`
	Type     AggregationType `json:"type" bson:"type"`
	ColumnID string          `json:"column_id" bson:"column_id"`
	Alias    string          `json:"alias" bson:"alias"`
}

func (m AggregationMetric) EntryID() string   { return m.ID }
func (m AggregationMetric) ColumnKey() string { return m.ColumnID }

// PivotDimension is used by the Rows, Columns and Filters pivot zones.
type PivotDimension struct {
	ID         string                  `json:"id" bson:"id"`
	ColumnID   string                  `json:"column_id" bson:"column_id"`
	Name       string                  `json:"name" bson:"name"`
	ColumnType common_models.FieldType `json:"column_type" bson:"column_type"`
	TimeUnit   TimeUnit                `json:"time_unit,omitempty" bson:"time_unit,omitempty"`
}

func (d PivotDimension) EntryID() string   { return d.ID }
func (d PivotDimension) ColumnKey() string { return d.ColumnID }

type PivotValue struct {
	ID              string          `json:"id" bson:"id"`
	ColumnID        string          `json:"column_id" bson:"column_id"`
	Name            string          `json:"name" bson:"name"`
	AggregationType AggregationType `json:"aggregation_type" bson:"aggregation_type"`
}

func (v PivotValue) EntryID() string   { return v.ID }
func (v PivotValue) ColumnKey() string { return v.ColumnID }

// PivotConfig is a snapshot of the pivot zones handed to pivot listeners.
type PivotConfig struct {
	Rows              []PivotDimension `json:"rows"`
	Columns           []PivotDimension `json:"columns"`
	Values            []PivotValue     `json:"values"`
	Filters           []PivotDimension `json:"filters"`
	AutoSelectEnabled bool             `json:"auto_select_enabled"`
}

// HasActiveDimension reports whether any pivot zone holds an entry.
func (p *PivotConfig) HasActiveDimension() bool {
	if p == nil {
		return false
	}
	return len(p.Rows) > 0 || len(p.Columns) > 0 || len(p.Values) > 0 || len(p.Filters) > 0
}

// Store holds the value of every zone. It is pure data; all rules live in
// the Validator, Coordinator and Guard.
type Store struct {
	Filters         []FilterSpec        `json:"filters" bson:"filters"`
	Sort            []SortLevel         `json:"sort" bson:"sort"`
	GroupBy         []GroupByColumn     `json:"group_by" bson:"group_by"`
	Metrics         []AggregationMetric `json:"metrics" bson:"metrics"`
	PivotRows       []PivotDimension    `json:"pivot_rows" bson:"pivot_rows"`
	PivotColumns    []PivotDimension    `json:"pivot_columns" bson:"pivot_columns"`
	PivotValues     []PivotValue        `json:"pivot_values" bson:"pivot_values"`
	PivotFilters    []PivotDimension    `json:"pivot_filters" bson:"pivot_filters"`
	PivotAutoSelect bool                `json:"pivot_auto_select" bson:"pivot_auto_select"`
}

// NewStore returns an empty store with auto-selection enabled.
func NewStore() *Store {
	return &Store{
		Filters:         []FilterSpec{},
		Sort:            []SortLevel{},
		GroupBy:         []GroupByColumn{},
		Metrics:         []AggregationMetric{},
		PivotRows:       []PivotDimension{},
		PivotColumns:    []PivotDimension{},
		PivotValues:     []PivotValue{},
		PivotFilters:    []PivotDimension{},
		PivotAutoSelect: true,
	}
}

func (s *Store) HasAggregation() bool {
	return len(s.GroupBy) > 0 || len(s.Metrics) > 0
}

func (s *Store) HasPivot() bool {
	return len(s.PivotRows) > 0 || len(s.PivotColumns) > 0 || len(s.PivotValues) > 0 || len(s.PivotFilters) > 0
}

// Pivot returns a deep copy of the pivot zones.
func (s *Store) Pivot() *PivotConfig {
	c := s.Clone()
	return &PivotConfig{
		Rows:              c.PivotRows,
		Columns:           c.PivotColumns,
		Values:            c.PivotValues,
		Filters:           c.PivotFilters,
		AutoSelectEnabled: c.PivotAutoSelect,
	}
}

// Clone returns a deep copy so callers can mutate it without touching s.
func (s *Store) Clone() *Store {
	out := &Store{
		Filters:         make([]FilterSpec, len(s.Filters)),
		Sort:            append([]SortLevel{}, s.Sort...),
		GroupBy:         append([]GroupByColumn{}, s.GroupBy...),
		Metrics:         append([]AggregationMetric{}, s.Metrics...),
		PivotRows:       append([]PivotDimension{}, s.PivotRows...),
		PivotColumns:    append([]PivotDimension{}, s.PivotColumns...),
		PivotValues:     append([]PivotValue{}, s.PivotValues...),
		PivotFilters:    append([]PivotDimension{}, s.PivotFilters...),
		PivotAutoSelect: s.PivotAutoSelect,
	}
	for i, f := range s.Filters {
		f.Conditions = append([]Condition{}, f.Conditions...)
		out.Filters[i] = f
	}
	return out
}

// Entries returns the entries of a zone in order.
func (s *Store) Entries(zone Zone) []Entry {
	var out []Entry
	switch zone {
	case ZoneFilters:
		for _, e := range s.Filters {
			out = append(out, e)
		}
	case ZoneSort:
		for _, e := range s.Sort {
			out = append(out, e)
		}
	case ZoneGroupBy:
		for _, e := range s.GroupBy {
			out = append(out, e)
		}
	case ZoneMetrics:
		for _, e := range s.Metrics {
			out = append(out, e)
		}
	case ZonePivotValues:
		for _, e := range s.PivotValues {
			out = append(out, e)
		}
	case ZonePivotRows, ZonePivotColumns, ZonePivotFilters:
		for _, e := range *s.dimensions(zone) {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry with the given id in zone.
func (s *Store) Find(zone Zone, entryID string) (Entry, bool) {
	for _, e := range s.Entries(zone) {
		if e.EntryID() == entryID {
			return e, true
		}
	}
	return nil, false
}

// HasColumn reports whether any entry in zone refers to columnID.
func (s *Store) HasColumn(zone Zone, columnID string) bool {
	for _, e := range s.Entries(zone) {
		if e.ColumnKey() == columnID {
			return true
		}
	}
	return false
}

// UsedOperations returns the aggregation kinds already used for columnID in
// Metrics or Pivot Values.
func (s *Store) UsedOperations(zone Zone, columnID string) []AggregationType {
	var used []AggregationType
	switch zone {
	case ZoneMetrics:
		for _, m := range s.Metrics {
			if m.ColumnID == columnID {
				used = append(used, m.Type)
			}
		}
	case ZonePivotValues:
		for _, v := range s.PivotValues {
			if v.ColumnID == columnID {
				used = append(used, v.AggregationType)
			}
		}
	}
	return used
}

func (s *Store) dimensions(zone Zone) *[]PivotDimension {
	switch zone {
	case ZonePivotRows:
		return &s.PivotRows
	case ZonePivotColumns:
		return &s.PivotColumns
	case ZonePivotFilters:
		return &s.PivotFilters
	}
	return nil
}

// insert appends entry to zone. The entry type must match the zone.
func (s *Store) insert(zone Zone, entry Entry) bool {
	switch e := entry.(type) {
	case FilterSpec:
		if zone == ZoneFilters {
			s.Filters = append(s.Filters, e)
			return true
		}
	case SortLevel:
		if zone == ZoneSort {
			s.Sort = append(s.Sort, e)
			return true
		}
	case GroupByColumn:
		if zone == ZoneGroupBy {
			s.GroupBy = append(s.GroupBy, e)
			return true
		}
	case AggregationMetric:
		if zone == ZoneMetrics {
			s.Metrics = append(s.Metrics, e)
			return true
		}
	case PivotValue:
		if zone == ZonePivotValues {
			s.PivotValues = append(s.PivotValues, e)
			return true
		}
	case PivotDimension:
		if dims := s.dimensions(zone); dims != nil {
			*dims = append(*dims, e)
			return true
		}
	}
	return false
}

// remove deletes the entry with the given id from zone.
func (s *Store) remove(zone Zone, entryID string) bool {
	switch zone {
	case ZoneFilters:
		return removeWhere(&s.Filters, func(e FilterSpec) bool { return e.ID == entryID })
	case ZoneSort:
		return removeWhere(&s.Sort, func(e SortLevel) bool { return e.ColumnID == entryID })
	case ZoneGroupBy:
		return removeWhere(&s.GroupBy, func(e GroupByColumn) bool { return e.ID == entryID })
	case ZoneMetrics:
		return removeWhere(&s.Metrics, func(e AggregationMetric) bool { return e.ID == entryID })
	case ZonePivotValues:
		return removeWhere(&s.PivotValues, func(e PivotValue) bool { return e.ID == entryID })
	case ZonePivotRows, ZonePivotColumns, ZonePivotFilters:
		return removeWhere(s.dimensions(zone), func(e PivotDimension) bool { return e.ID == entryID })
	}
	return false
}

// clear empties a single zone.
func (s *Store) clear(zone Zone) {
	switch zone {
	case ZoneFilters:
		s.Filters = []FilterSpec{}
	case ZoneSort:
		s.Sort = []SortLevel{}
	case ZoneGroupBy:
		s.GroupBy = []GroupByColumn{}
	case ZoneMetrics:
		s.Metrics = []AggregationMetric{}
	case ZonePivotValues:
		s.PivotValues = []PivotValue{}
	case ZonePivotRows, ZonePivotColumns, ZonePivotFilters:
		*s.dimensions(zone) = []PivotDimension{}
	}
}

func removeWhere[T any](items *[]T, match func(T) bool) bool {
	for i, item := range *items {
		if match(item) {
			*items = append((*items)[:i:i], (*items)[i+1:]...)
			return true
		}
	}
	return false
}
