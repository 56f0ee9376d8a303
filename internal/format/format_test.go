package format

import (
	"testing"
	"time"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/config"
	"go-viz/internal/features/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	sales = common_models.Column{ID: "sales", Name: "Sales", Type: common_models.FieldTypeNumber}
	date  = common_models.Column{ID: "date", Name: "Date", Type: common_models.FieldTypeDate, DateFormat: "02/01/2006"}
	text  = common_models.Column{ID: "region", Name: "Region", Type: common_models.FieldTypeText}
)

func TestDefaultFormatValue(t *testing.T) {
	f := NewDefault("en")

	tests := []struct {
		name   string
		column common_models.Column
		value  any
		want   string
	}{
		{name: "Nil", column: sales, value: nil, want: ""},
		{name: "Number", column: sales, value: 1234567.891, want: "1,234,567.89"},
		{name: "Number From String", column: sales, value: "2500", want: "2,500"},
		{name: "Number Unparseable", column: sales, value: "n/a", want: "n/a"},
		{name: "Date String", column: date, value: "2024-03-15", want: "15/03/2024"},
		{name: "Date Time", column: date, value: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), want: "02/01/2024"},
		{name: "Text", column: text, value: "North", want: "North"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.FormatValue(tt.column, tt.value))
		})
	}
}

func TestDefaultLocale(t *testing.T) {
	assert.Equal(t, "1.234,5", NewDefault("de").FormatValue(sales, 1234.5))
	assert.Equal(t, "1,234.5", NewDefault("not a locale").FormatValue(sales, 1234.5))
}

func TestDefaultLabels(t *testing.T) {
	f := NewDefault("en")
	assert.Equal(t, "by quarter", f.FormatTimeUnit(transform.TimeUnitQuarter))
	assert.Equal(t, transform.OperatorContains.Label(), f.OperatorLabel(transform.OperatorContains))
}

func TestScriptRewritesLabel(t *testing.T) {
	src := []byte(`
if column_type == "text" {
	label = "[" + label + "]"
}
`)
	s, err := NewScript(src, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "[North]", s.FormatValue(text, "North"))
	assert.Equal(t, "1,500", s.FormatValue(sales, 1500.0))
	assert.Equal(t, "by day", s.FormatTimeUnit(transform.TimeUnitDay))
}

func TestScriptFailureFallsBack(t *testing.T) {
	s, err := NewScript([]byte(`label = value * 2`), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "North", s.FormatValue(text, "North"))
}

func TestScriptCompileError(t *testing.T) {
	_, err := NewScript([]byte(`label = (`), nil, nil)
	assert.Error(t, err)
}

func TestProjectWithScript(t *testing.T) {
	s, err := NewScript([]byte(`
txt := import("text")
if column == "Region" { label = txt.to_upper(label) }
`), nil, nil)
	require.NoError(t, err)

	store := transform.NewStore()
	store.Filters = []transform.FilterSpec{{
		ID: "f1", ColumnID: "region", ColumnName: "Region", ColumnType: common_models.FieldTypeText,
		Conditions: []transform.Condition{{ID: "c1", Operator: transform.OperatorEquals, Value: "north"}},
	}}

	p := transform.Project(store, common_models.NewCatalog([]common_models.Column{text}), s)
	require.Len(t, p.Sections, 1)
	assert.Equal(t, "Region "+transform.OperatorEquals.Label()+" NORTH", p.Sections[0].Lines[0])
}

func TestNewFromConfig(t *testing.T) {
	f, err := New(&config.Config{Locale: "de"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Default{}, f)

	_, err = New(&config.Config{Locale: "en", FormatScript: "/nonexistent/format.tengo"}, zap.NewNop())
	assert.Error(t, err)
}
