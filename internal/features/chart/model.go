package chart

type ChartType string

const (
	ChartTypeLine      ChartType = "line"
	ChartTypeBar       ChartType = "bar"
	ChartTypeArea      ChartType = "area"
	ChartTypeScatter   ChartType = "scatter"
	ChartTypePie       ChartType = "pie"
	ChartTypeDonut     ChartType = "donut"
	ChartTypeHeatmap   ChartType = "heatmap"
	ChartTypeCycleplot ChartType = "cycleplot"
	ChartTypeHistogram ChartType = "histogram"
)

func (t ChartType) Valid() bool {
	_, ok := channels[t]
	return ok
}

// Field names a single-select binding channel.
type Field string

const (
	FieldXAxis  Field = "x_axis_key"
	FieldYAxis  Field = "y_axis_key"
	FieldLabel  Field = "label_key"
	FieldValue  Field = "value_key"
	FieldCycle  Field = "cycle_key"
	FieldPeriod Field = "period_key"
	FieldSeries Field = "series_configs"
)

// channels lists, per chart type, the binding fields it reads in role order.
// FieldSeries takes every remaining header.
var channels = map[ChartType][]Field{
	ChartTypeLine:      {FieldXAxis, FieldSeries},
	ChartTypeBar:       {FieldXAxis, FieldSeries},
	ChartTypeArea:      {FieldXAxis, FieldSeries},
	ChartTypeScatter:   {FieldXAxis, FieldSeries},
	ChartTypePie:       {FieldLabel, FieldValue},
	ChartTypeDonut:     {FieldLabel, FieldValue},
	ChartTypeHeatmap:   {FieldXAxis, FieldYAxis, FieldValue},
	ChartTypeCycleplot: {FieldCycle, FieldPeriod, FieldValue},
	ChartTypeHistogram: {FieldXAxis},
}

// Channels returns the binding fields used by a chart type.
func Channels(t ChartType) []Field {
	return append([]Field(nil), channels[t]...)
}

type SeriesConfig struct {
	DataColumn string `json:"data_column" bson:"data_column"`
	Name       string `json:"name" bson:"name"`
}

// Binding maps derived column names onto chart channels. Which fields are
// meaningful depends on the chart type.
type Binding struct {
	XAxisKey      string         `json:"x_axis_key,omitempty" bson:"x_axis_key,omitempty"`
	YAxisKey      string         `json:"y_axis_key,omitempty" bson:"y_axis_key,omitempty"`
	LabelKey      string         `json:"label_key,omitempty" bson:"label_key,omitempty"`
	ValueKey      string         `json:"value_key,omitempty" bson:"value_key,omitempty"`
	CycleKey      string         `json:"cycle_key,omitempty" bson:"cycle_key,omitempty"`
	PeriodKey     string         `json:"period_key,omitempty" bson:"period_key,omitempty"`
	SeriesConfigs []SeriesConfig `json:"series_configs,omitempty" bson:"series_configs,omitempty"`
}

func (b *Binding) get(f Field) string {
	switch f {
	case FieldXAxis:
		return b.XAxisKey
	case FieldYAxis:
		return b.YAxisKey
	case FieldLabel:
		return b.LabelKey
	case FieldValue:
		return b.ValueKey
	case FieldCycle:
		return b.CycleKey
	case FieldPeriod:
		return b.PeriodKey
	}
	return ""
}

func (b *Binding) set(f Field, v string) {
	switch f {
	case FieldXAxis:
		b.XAxisKey = v
	case FieldYAxis:
		b.YAxisKey = v
	case FieldLabel:
		b.LabelKey = v
	case FieldValue:
		b.ValueKey = v
	case FieldCycle:
		b.CycleKey = v
	case FieldPeriod:
		b.PeriodKey = v
	case FieldSeries:
		if v == "" {
			b.SeriesConfigs = nil
		}
	}
}

func (b Binding) clone() Binding {
	b.SeriesConfigs = append([]SeriesConfig(nil), b.SeriesConfigs...)
	return b
}

// Update describes a binding change produced by the selector.
type Update struct {
	ChartType ChartType `json:"chart_type"`
	Binding   Binding   `json:"binding"`
	Skipped   int       `json:"skipped,omitempty"`
	Cleared   bool      `json:"cleared,omitempty"`
}
