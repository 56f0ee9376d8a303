package format

import (
	"fmt"
	"strconv"
	"time"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/features/transform"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const defaultDateLayout = "2006-01-02"

// Default renders preview values with locale-aware number formatting.
type Default struct {
	printer *message.Printer
}

var _ transform.Formatter = (*Default)(nil)

// NewDefault builds a formatter for locale. Unknown locales fall back to English.
func NewDefault(locale string) *Default {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Default{printer: message.NewPrinter(tag)}
}

func (d *Default) FormatValue(column common_models.Column, value any) string {
	if value == nil {
		return ""
	}
	switch column.Type {
	case common_models.FieldTypeNumber:
		if f, ok := toFloat(value); ok {
			return d.printer.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
		}
	case common_models.FieldTypeDate:
		if t, ok := toTime(value); ok {
			layout := column.DateFormat
			if layout == "" {
				layout = defaultDateLayout
			}
			return t.Format(layout)
		}
	}
	return fmt.Sprint(value)
}

func (d *Default) FormatTimeUnit(unit transform.TimeUnit) string {
	return "by " + string(unit)
}

func (d *Default) OperatorLabel(op transform.FilterOperator) string {
	return op.Label()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := dateparse.ParseAny(t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
