package chart

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-viz/internal/features/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource answers after readyAfter lookups.
type fakeSource struct {
	mu         sync.Mutex
	headers    []string
	readyAfter int
	lookups    int
}

func (f *fakeSource) Lookup(_ *transform.PivotConfig) ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.headers == nil || f.lookups <= f.readyAfter {
		return nil, false
	}
	return append([]string(nil), f.headers...), true
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func countrySalesPivot() *transform.PivotConfig {
	return &transform.PivotConfig{
		Rows:              []transform.PivotDimension{{ID: "r1", ColumnID: "country", Name: "Country"}},
		Values:            []transform.PivotValue{{ID: "v1", ColumnID: "sales", Name: "Sales", AggregationType: transform.AggregationSum}},
		AutoSelectEnabled: true,
	}
}

func fastConfig() SelectorConfig {
	return SelectorConfig{MaxSeries: 10, PollAttempts: 10, PollInterval: time.Millisecond}
}

func TestSelectLineScenario(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{headers: []string{"Country", "Sum of Sales"}, readyAfter: 3}
	s := NewAutoSeriesSelector(src, ChartTypeLine, fastConfig())
	defer s.Close()

	s.mu.Lock()
	s.pivot = countrySalesPivot()
	s.mu.Unlock()

	out := s.Select(ctx)
	require.True(t, out.Applied)
	assert.Equal(t, Binding{
		XAxisKey:      "Country",
		SeriesConfigs: []SeriesConfig{{DataColumn: "Sum of Sales", Name: "Sum of Sales"}},
	}, s.Binding())

	// Same schema, same chart type: nothing changes the second time.
	again := s.Select(ctx)
	assert.False(t, again.Applied)
	assert.Equal(t, out.Update.Binding, s.Binding())
}

func TestPivotChangedAppliesInBackground(t *testing.T) {
	src := &fakeSource{headers: []string{"Country", "Sum of Sales"}}
	updates := make(chan Update, 1)
	s := NewAutoSeriesSelector(src, ChartTypeBar, fastConfig(), WithUpdateHandler(func(u Update) {
		updates <- u
	}))
	defer s.Close()

	s.PivotChanged(context.Background(), countrySalesPivot())

	select {
	case u := <-updates:
		assert.Equal(t, ChartTypeBar, u.ChartType)
		assert.Equal(t, "Country", u.Binding.XAxisKey)
	case <-time.After(time.Second):
		t.Fatal("no binding update")
	}
}

func TestSelectReportsSkippedSeries(t *testing.T) {
	src := &fakeSource{headers: []string{"Region", "A", "B", "C"}}
	cfg := fastConfig()
	cfg.MaxSeries = 2
	s := NewAutoSeriesSelector(src, ChartTypeArea, cfg)
	defer s.Close()

	s.mu.Lock()
	s.pivot = countrySalesPivot()
	s.mu.Unlock()

	out := s.Select(context.Background())
	require.True(t, out.Applied)
	assert.Equal(t, 1, out.Update.Skipped)
	assert.Len(t, s.Binding().SeriesConfigs, 2)
}

func TestSelectClearsOnlyWhenSet(t *testing.T) {
	src := &fakeSource{headers: []string{"Region"}}
	s := NewAutoSeriesSelector(src, ChartTypePie, fastConfig())
	defer s.Close()

	s.mu.Lock()
	s.pivot = countrySalesPivot()
	s.mu.Unlock()

	assert.False(t, s.Select(context.Background()).Applied)

	s.SetBinding(Binding{LabelKey: "Old", ValueKey: "Stale"})
	out := s.Select(context.Background())
	require.True(t, out.Applied)
	assert.True(t, out.Update.Cleared)
	assert.Equal(t, Binding{}, s.Binding())
}

func TestSelectGuards(t *testing.T) {
	disabled := countrySalesPivot()
	disabled.AutoSelectEnabled = false

	tests := []struct {
		name  string
		pivot *transform.PivotConfig
	}{
		{name: "Cleared", pivot: nil},
		{name: "No Dimension", pivot: &transform.PivotConfig{AutoSelectEnabled: true}},
		{name: "Disabled", pivot: disabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{headers: []string{"Country", "Sum of Sales"}}
			s := NewAutoSeriesSelector(src, ChartTypeLine, fastConfig())
			defer s.Close()

			s.PivotChanged(context.Background(), tt.pivot)
			assert.False(t, s.Select(context.Background()).Applied)
			assert.Zero(t, src.count())
			assert.Equal(t, Binding{}, s.Binding())
		})
	}
}

func TestSelectGivesUpSilently(t *testing.T) {
	src := &fakeSource{}
	s := NewAutoSeriesSelector(src, ChartTypeLine, fastConfig())
	defer s.Close()

	s.mu.Lock()
	s.pivot = countrySalesPivot()
	s.mu.Unlock()

	out := s.Select(context.Background())
	assert.False(t, out.Applied)
	assert.Equal(t, 10, src.count())
	assert.Equal(t, Binding{}, s.Binding())
}

func TestClosedSelectorNeverApplies(t *testing.T) {
	src := &fakeSource{headers: []string{"Country", "Sum of Sales"}, readyAfter: 5}
	applied := make(chan Update, 1)
	cfg := fastConfig()
	cfg.PollInterval = 20 * time.Millisecond
	s := NewAutoSeriesSelector(src, ChartTypeLine, cfg, WithUpdateHandler(func(u Update) {
		applied <- u
	}))

	s.PivotChanged(context.Background(), countrySalesPivot())
	s.Close()

	select {
	case <-applied:
		t.Fatal("closed selector applied a binding")
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, Binding{}, s.Binding())

	// Triggers after Close are ignored.
	s.PivotChanged(context.Background(), countrySalesPivot())
	assert.False(t, s.Select(context.Background()).Applied)
}

func TestCloseDuringConcurrentTriggers(t *testing.T) {
	src := &fakeSource{headers: []string{"Country", "Sum of Sales"}, readyAfter: 2}
	var applied atomic.Int32
	s := NewAutoSeriesSelector(src, ChartTypeLine, fastConfig(), WithUpdateHandler(func(Update) {
		applied.Add(1)
	}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				s.PivotChanged(context.Background(), countrySalesPivot())
			}
		}()
	}
	s.Close()
	after := applied.Load()
	wg.Wait()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, applied.Load())
}

func TestChartTypeChangeReselects(t *testing.T) {
	src := &fakeSource{headers: []string{"Country", "Sum of Sales"}}
	s := NewAutoSeriesSelector(src, ChartTypeLine, fastConfig())
	defer s.Close()

	s.mu.Lock()
	s.pivot = countrySalesPivot()
	s.mu.Unlock()
	require.True(t, s.Select(context.Background()).Applied)

	s.mu.Lock()
	s.chartType = ChartTypePie
	s.mu.Unlock()
	out := s.Select(context.Background())
	require.True(t, out.Applied)

	b := s.Binding()
	assert.Equal(t, "Country", b.LabelKey)
	assert.Equal(t, "Sum of Sales", b.ValueKey)
	assert.Equal(t, "Country", b.XAxisKey)
}

func TestClearField(t *testing.T) {
	s := NewAutoSeriesSelector(&fakeSource{}, ChartTypeHeatmap, fastConfig(),
		WithBinding(Binding{XAxisKey: "X", YAxisKey: "Y", ValueKey: "V"}))
	defer s.Close()

	got, ok := s.ClearField(FieldYAxis)
	require.True(t, ok)
	assert.Equal(t, Binding{XAxisKey: "X"}, got)

	_, ok = s.ClearField(FieldCycle)
	assert.False(t, ok)
}
