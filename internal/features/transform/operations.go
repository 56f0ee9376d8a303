package transform

import (
	"slices"

	common_models "go-viz/internal/common/models"
)

type FilterOperator string

const (
	OperatorEquals         FilterOperator = "equals"
	OperatorNotEquals      FilterOperator = "not_equals"
	OperatorContains       FilterOperator = "contains"
	OperatorNotContains    FilterOperator = "not_contains"
	OperatorStartsWith     FilterOperator = "starts_with"
	OperatorEndsWith       FilterOperator = "ends_with"
	OperatorGreaterThan    FilterOperator = "greater_than"
	OperatorLessThan       FilterOperator = "less_than"
	OperatorGreaterOrEqual FilterOperator = "greater_or_equal"
	OperatorLessOrEqual    FilterOperator = "less_or_equal"
	OperatorBetween        FilterOperator = "between"
	OperatorIsEmpty        FilterOperator = "is_empty"
	OperatorIsNotEmpty     FilterOperator = "is_not_empty"
)

// allowedOperations maps a column type to the aggregation kinds it supports,
// in the order they are handed out by default.
var allowedOperations = map[common_models.FieldType][]AggregationType{
	common_models.FieldTypeNumber: {AggregationSum, AggregationAverage, AggregationMin, AggregationMax, AggregationCount},
	common_models.FieldTypeText:   {AggregationCount},
	common_models.FieldTypeDate:   {AggregationCount},
}

// allowedOperators maps a column type to the filter operators it supports.
var allowedOperators = map[common_models.FieldType][]FilterOperator{
	common_models.FieldTypeText: {
		OperatorEquals, OperatorNotEquals, OperatorContains, OperatorNotContains,
		OperatorStartsWith, OperatorEndsWith, OperatorIsEmpty, OperatorIsNotEmpty,
	},
	common_models.FieldTypeNumber: {
		OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorBetween, OperatorIsEmpty, OperatorIsNotEmpty,
	},
	common_models.FieldTypeDate: {
		OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorBetween, OperatorIsEmpty, OperatorIsNotEmpty,
	},
}

var defaultOperator = map[common_models.FieldType]FilterOperator{
	common_models.FieldTypeText:   OperatorContains,
	common_models.FieldTypeNumber: OperatorGreaterThan,
	common_models.FieldTypeDate:   OperatorGreaterThan,
}

var aggregationLabels = map[AggregationType]string{
	AggregationSum:     "Sum",
	AggregationAverage: "Average",
	AggregationMin:     "Min",
	AggregationMax:     "Max",
	AggregationCount:   "Count",
}

var operatorLabels = map[FilterOperator]string{
	OperatorEquals:         "equals",
	OperatorNotEquals:      "does not equal",
	OperatorContains:       "contains",
	OperatorNotContains:    "does not contain",
	OperatorStartsWith:     "starts with",
	OperatorEndsWith:       "ends with",
	OperatorGreaterThan:    "is greater than",
	OperatorLessThan:       "is less than",
	OperatorGreaterOrEqual: "is at least",
	OperatorLessOrEqual:    "is at most",
	OperatorBetween:        "is between",
	OperatorIsEmpty:        "is empty",
	OperatorIsNotEmpty:     "is not empty",
}

// AvailableOperations returns the aggregation kinds legal for a column type.
// Unknown types only get count.
func AvailableOperations(t common_models.FieldType) []AggregationType {
	if ops, ok := allowedOperations[t]; ok {
		return slices.Clone(ops)
	}
	return []AggregationType{AggregationCount}
}

// OperationAllowed reports whether op may be applied to a column of type t.
func OperationAllowed(t common_models.FieldType, op AggregationType) bool {
	return slices.Contains(AvailableOperations(t), op)
}

// AvailableOperators returns the filter operators legal for a column type.
func AvailableOperators(t common_models.FieldType) []FilterOperator {
	if ops, ok := allowedOperators[t]; ok {
		return slices.Clone(ops)
	}
	return slices.Clone(allowedOperators[common_models.FieldTypeText])
}

func OperatorAllowed(t common_models.FieldType, op FilterOperator) bool {
	return slices.Contains(AvailableOperators(t), op)
}

// DefaultOperator is the operator a new filter condition starts with.
func DefaultOperator(t common_models.FieldType) FilterOperator {
	if op, ok := defaultOperator[t]; ok {
		return op
	}
	return OperatorContains
}

// Label returns the display name of an aggregation kind, e.g. "Sum".
func (a AggregationType) Label() string {
	if l, ok := aggregationLabels[a]; ok {
		return l
	}
	return string(a)
}

func (a AggregationType) Valid() bool {
	_, ok := aggregationLabels[a]
	return ok
}

func (o FilterOperator) Label() string {
	if l, ok := operatorLabels[o]; ok {
		return l
	}
	return string(o)
}

// Unary reports whether the operator takes no value.
func (o FilterOperator) Unary() bool {
	return o == OperatorIsEmpty || o == OperatorIsNotEmpty
}

// firstUnused returns the first kind of available that is not in used.
func firstUnused(available, used []AggregationType) (AggregationType, bool) {
	for _, op := range available {
		if !slices.Contains(used, op) {
			return op, true
		}
	}
	return "", false
}
