package transform

import (
	common_models "go-viz/internal/common/models"

	"github.com/google/uuid"
)

// IDGenerator produces entry ids.
type IDGenerator func() string

// Validator decides whether a column may be assigned to a zone and builds
// the resulting entry. It never mutates the store.
type Validator struct {
	newID IDGenerator
}

func NewValidator(newID IDGenerator) *Validator {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Validator{newID: newID}
}

// TryAssign returns the entry that assigning column to zone would add, or a
// *Rejection explaining why the assignment is illegal. The mode guard runs first.
func (v *Validator) TryAssign(zone Zone, column common_models.Column, store *Store) (Entry, error) {
	if !zone.Valid() {
		return nil, reject(ErrInvalidOperation, zone, "Unknown zone %q", zone)
	}
	if err := CheckMode(store, zone); err != nil {
		return nil, err
	}
	return v.build(zone, column, store)
}

func (v *Validator) build(zone Zone, column common_models.Column, store *Store) (Entry, error) {
	if zone.holdsOperations() {
		return v.buildOperation(zone, column, store, "")
	}

	if store.HasColumn(zone, column.ID) {
		return nil, duplicateColumn(zone, column.Name)
	}

	switch zone {
	case ZoneFilters:
		return FilterSpec{
			ID:         v.newID(),
			ColumnID:   column.ID,
			ColumnName: column.Name,
			ColumnType: column.Type,
			Conditions: []Condition{{
				ID:       v.newID(),
				Operator: DefaultOperator(column.Type),
				Value:    "",
			}},
		}, nil
	case ZoneSort:
		return SortLevel{ColumnID: column.ID, Direction: SortAsc}, nil
	case ZoneGroupBy:
		return GroupByColumn{
			ID:       column.ID,
			Name:     column.Name,
			TimeUnit: defaultTimeUnit(column.Type),
		}, nil
	default:
		return v.dimension(column), nil
	}
}

// buildOperation picks the first aggregation kind legal for column and not yet
// used for it in zone. suffix is appended to the exhausted message.
func (v *Validator) buildOperation(zone Zone, column common_models.Column, store *Store, suffix string) (Entry, error) {
	available := AvailableOperations(column.Type)
	used := store.UsedOperations(zone, column.ID)
	op, ok := firstUnused(available, used)
	if !ok {
		return nil, reject(ErrOperationExhausted, zone, "All operations for column %q already used%s", column.Name, suffix)
	}

	if zone == ZoneMetrics {
		return AggregationMetric{
			ID:       v.newID(),
			Type:     op,
			ColumnID: column.ID,
			Alias:    "",
		}, nil
	}
	return PivotValue{
		ID:              v.newID(),
		ColumnID:        column.ID,
		Name:            column.Name,
		AggregationType: op,
	}, nil
}

func (v *Validator) dimension(column common_models.Column) PivotDimension {
	return PivotDimension{
		ID:         v.newID(),
		ColumnID:   column.ID,
		Name:       column.Name,
		ColumnType: column.Type,
		TimeUnit:   defaultTimeUnit(column.Type),
	}
}

func defaultTimeUnit(t common_models.FieldType) TimeUnit {
	if t == common_models.FieldTypeDate {
		return TimeUnitDay
	}
	return ""
}
