package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/features/transform"

	"github.com/araddon/dateparse"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compiler turns the filter stage of a configuration into a MongoDB match
// document keyed by column id.
type Compiler struct {
	// Now resolves the "$now" date value.
	Now func() time.Time
}

func NewCompiler() *Compiler {
	return &Compiler{Now: time.Now}
}

// Compile ANDs every condition of every filter. Filters without conditions
// match everything.
func (c *Compiler) Compile(filters []transform.FilterSpec) (bson.M, error) {
	var conditions []bson.M
	for _, f := range filters {
		for _, cond := range f.Conditions {
			m, err := c.compileCondition(f, cond)
			if err != nil {
				return nil, fmt.Errorf("filter %s: %w", f.ColumnName, err)
			}
			conditions = append(conditions, m)
		}
	}

	switch len(conditions) {
	case 0:
		return bson.M{}, nil
	case 1:
		return conditions[0], nil
	}
	return bson.M{"$and": conditions}, nil
}

func (c *Compiler) compileCondition(f transform.FilterSpec, cond transform.Condition) (bson.M, error) {
	field := f.ColumnID

	if cond.Operator.Unary() {
		empty := bson.A{nil, ""}
		if cond.Operator == transform.OperatorIsEmpty {
			return bson.M{field: bson.M{"$in": empty}}, nil
		}
		return bson.M{field: bson.M{"$nin": empty}}, nil
	}

	val, err := c.resolveValue(cond.Value, f.ColumnType)
	if err != nil {
		return nil, err
	}

	switch cond.Operator {
	case transform.OperatorEquals:
		return bson.M{field: bson.M{"$eq": val}}, nil
	case transform.OperatorNotEquals:
		return bson.M{field: bson.M{"$ne": val}}, nil
	case transform.OperatorGreaterThan:
		return bson.M{field: bson.M{"$gt": val}}, nil
	case transform.OperatorLessThan:
		return bson.M{field: bson.M{"$lt": val}}, nil
	case transform.OperatorGreaterOrEqual:
		return bson.M{field: bson.M{"$gte": val}}, nil
	case transform.OperatorLessOrEqual:
		return bson.M{field: bson.M{"$lte": val}}, nil
	case transform.OperatorBetween:
		end, err := c.resolveValue(cond.ValueEnd, f.ColumnType)
		if err != nil {
			return nil, err
		}
		return bson.M{field: bson.M{"$gte": val, "$lte": end}}, nil
	case transform.OperatorContains:
		return pattern(field, val, "%s", false)
	case transform.OperatorNotContains:
		return pattern(field, val, "%s", true)
	case transform.OperatorStartsWith:
		return pattern(field, val, "^%s", false)
	case transform.OperatorEndsWith:
		return pattern(field, val, "%s$", false)
	default:
		return nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

func pattern(field string, val any, layout string, negate bool) (bson.M, error) {
	s, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("text operator requires a string value, got %T", val)
	}
	re := primitive.Regex{Pattern: fmt.Sprintf(layout, regexp.QuoteMeta(s)), Options: "i"}
	if negate {
		return bson.M{field: bson.M{"$not": re}}, nil
	}
	return bson.M{field: bson.M{"$regex": re}}, nil
}

// resolveValue converts a condition value to the column's type.
func (c *Compiler) resolveValue(val any, t common_models.FieldType) (any, error) {
	switch t {
	case common_models.FieldTypeNumber:
		switch v := val.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", v)
			}
			return f, nil
		}
		return nil, fmt.Errorf("%v is not a number", val)
	case common_models.FieldTypeDate:
		switch v := val.(type) {
		case time.Time:
			return v, nil
		case string:
			if v == "$now" {
				return c.Now(), nil
			}
			d, err := dateparse.ParseIn(v, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("%q is not a date", v)
			}
			return d, nil
		}
		return nil, fmt.Errorf("%v is not a date", val)
	}

	if val == nil {
		return "", nil
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return fmt.Sprint(val), nil
}
