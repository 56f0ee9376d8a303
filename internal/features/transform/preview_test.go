package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectEmptyStore(t *testing.T) {
	p := Project(NewStore(), testCatalog(), nil)
	assert.True(t, p.Empty())
	assert.Equal(t, "", p.String())
}

func TestProjectSections(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	f, err := s.Assign(ctx, ZoneFilters, "region")
	require.NoError(t, err)
	cond := f.(FilterSpec).Conditions[0]
	cond.Value = "North"
	require.NoError(t, s.UpdateCondition(f.EntryID(), cond))

	_, err = s.Assign(ctx, ZoneSort, "sales")
	require.NoError(t, err)
	require.NoError(t, s.SetSortDirection("sales", SortDesc))

	_, err = s.Assign(ctx, ZonePivotRows, "country")
	require.NoError(t, err)
	d, err := s.Assign(ctx, ZonePivotColumns, "date")
	require.NoError(t, err)
	require.NoError(t, s.SetTimeUnit(ctx, ZonePivotColumns, d.EntryID(), TimeUnitMonth))
	_, err = s.Assign(ctx, ZonePivotValues, "sales")
	require.NoError(t, err)

	store := s.Store()
	p := Project(store, s.Catalog(), nil)

	require.Len(t, p.Sections, 3)
	assert.Equal(t, PreviewSection{Title: "Filters", Lines: []string{"Region contains North"}}, p.Sections[0])
	assert.Equal(t, PreviewSection{Title: "Sort", Lines: []string{"1. Sales (descending)"}}, p.Sections[1])
	assert.Equal(t, PreviewSection{Title: "Pivot", Lines: []string{
		"Rows: Country",
		"Columns: Date (by month)",
		"Values: Sum of Sales",
	}}, p.Sections[2])

	// Projection is read-only.
	assert.Equal(t, store, s.Store())
}

func TestProjectAggregation(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	_, err := s.Assign(ctx, ZoneGroupBy, "date")
	require.NoError(t, err)
	m, err := s.Assign(ctx, ZoneMetrics, "revenue")
	require.NoError(t, err)
	require.NoError(t, s.SetAlias(ZoneMetrics, m.EntryID(), "Total"))

	p := Project(s.Store(), s.Catalog(), nil)
	require.Len(t, p.Sections, 1)
	assert.Equal(t, []string{"Group by: Date (by day)", "Sum of Revenue as Total"}, p.Sections[0].Lines)
	assert.Contains(t, p.String(), "Aggregation\n  Group by: Date (by day)\n")
}
