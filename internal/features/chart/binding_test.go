package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		chartType ChartType
		headers   []string
		max       int
		want      Binding
		skipped   int
		ok        bool
	}{
		{
			name:      "Line",
			chartType: ChartTypeLine,
			headers:   []string{"Country", "Sum of Sales"},
			max:       10,
			want: Binding{XAxisKey: "Country", SeriesConfigs: []SeriesConfig{
				{DataColumn: "Sum of Sales", Name: "Sum of Sales"},
			}},
			ok: true,
		},
		{
			name:      "Bar Capped",
			chartType: ChartTypeBar,
			headers:   []string{"Region", "A", "B", "C", "D"},
			max:       2,
			want: Binding{XAxisKey: "Region", SeriesConfigs: []SeriesConfig{
				{DataColumn: "A", Name: "A"}, {DataColumn: "B", Name: "B"},
			}},
			skipped: 2,
			ok:      true,
		},
		{
			name:      "Pie",
			chartType: ChartTypePie,
			headers:   []string{"Region", "Count", "Extra"},
			want:      Binding{LabelKey: "Region", ValueKey: "Count"},
			ok:        true,
		},
		{
			name:      "Heatmap",
			chartType: ChartTypeHeatmap,
			headers:   []string{"Region", "Country", "Sum of Sales"},
			want:      Binding{XAxisKey: "Region", YAxisKey: "Country", ValueKey: "Sum of Sales"},
			ok:        true,
		},
		{
			name:      "Cycleplot",
			chartType: ChartTypeCycleplot,
			headers:   []string{"Year", "Month", "Sum of Sales"},
			want:      Binding{CycleKey: "Year", PeriodKey: "Month", ValueKey: "Sum of Sales"},
			ok:        true,
		},
		{
			name:      "Histogram",
			chartType: ChartTypeHistogram,
			headers:   []string{"Sales"},
			want:      Binding{XAxisKey: "Sales"},
			ok:        true,
		},
		{name: "Heatmap Too Few", chartType: ChartTypeHeatmap, headers: []string{"A", "B"}},
		{name: "Line Too Few", chartType: ChartTypeLine, headers: []string{"A"}},
		{name: "Unknown Type", chartType: "radar", headers: []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped, ok := Derive(tt.chartType, tt.headers, tt.max)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.skipped, skipped)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEqualComparesSeriesAsSet(t *testing.T) {
	a := Binding{XAxisKey: "X", SeriesConfigs: []SeriesConfig{{"A", "A"}, {"B", "B"}}}
	b := Binding{XAxisKey: "X", SeriesConfigs: []SeriesConfig{{"B", "B"}, {"A", "A"}}}
	renamed := Binding{XAxisKey: "X", SeriesConfigs: []SeriesConfig{{"A", "A"}, {"B", "Bee"}}}

	assert.True(t, Equal(ChartTypeLine, a, b))
	assert.False(t, Equal(ChartTypeLine, a, renamed))

	// Fields outside the chart type's channels are ignored.
	assert.True(t, Equal(ChartTypePie, Binding{LabelKey: "L", XAxisKey: "X"}, Binding{LabelKey: "L"}))
}

func TestMergeKeepsOtherChannels(t *testing.T) {
	current := Binding{LabelKey: "Region", ValueKey: "Count", XAxisKey: "Old"}
	derived := Binding{XAxisKey: "Country", SeriesConfigs: []SeriesConfig{{"Sum of Sales", "Sum of Sales"}}}

	got := Merge(ChartTypeLine, current, derived)
	assert.Equal(t, "Country", got.XAxisKey)
	assert.Equal(t, "Region", got.LabelKey)
	assert.Len(t, got.SeriesConfigs, 1)
}

func TestClear(t *testing.T) {
	_, changed := Clear(ChartTypeHeatmap, Binding{LabelKey: "L"})
	assert.False(t, changed)

	got, changed := Clear(ChartTypeHeatmap, Binding{XAxisKey: "X", ValueKey: "V", LabelKey: "L"})
	assert.True(t, changed)
	assert.Equal(t, Binding{LabelKey: "L"}, got)
}

func TestClearSelectionCascades(t *testing.T) {
	tests := []struct {
		name      string
		chartType ChartType
		field     Field
		in        Binding
		want      Binding
		ok        bool
	}{
		{
			name:      "Line X Clears Series",
			chartType: ChartTypeLine,
			field:     FieldXAxis,
			in:        Binding{XAxisKey: "X", SeriesConfigs: []SeriesConfig{{"A", "A"}}},
			want:      Binding{},
			ok:        true,
		},
		{
			name:      "Line Series Alone",
			chartType: ChartTypeLine,
			field:     FieldSeries,
			in:        Binding{XAxisKey: "X", SeriesConfigs: []SeriesConfig{{"A", "A"}}},
			want:      Binding{XAxisKey: "X"},
			ok:        true,
		},
		{
			name:      "Pie Label Clears Value",
			chartType: ChartTypePie,
			field:     FieldLabel,
			in:        Binding{LabelKey: "L", ValueKey: "V"},
			want:      Binding{},
			ok:        true,
		},
		{
			name:      "Pie Value Keeps Label",
			chartType: ChartTypePie,
			field:     FieldValue,
			in:        Binding{LabelKey: "L", ValueKey: "V"},
			want:      Binding{LabelKey: "L"},
			ok:        true,
		},
		{
			name:      "Cycle Clears Period And Value",
			chartType: ChartTypeCycleplot,
			field:     FieldCycle,
			in:        Binding{CycleKey: "C", PeriodKey: "P", ValueKey: "V"},
			want:      Binding{},
			ok:        true,
		},
		{
			name:      "Not A Channel",
			chartType: ChartTypeHistogram,
			field:     FieldValue,
			in:        Binding{XAxisKey: "X"},
			want:      Binding{XAxisKey: "X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClearSelection(tt.chartType, tt.in, tt.field)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
