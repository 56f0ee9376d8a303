package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregationToPivotRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	listener := &recordingListener{}
	s := newTestSession(t, WithPivotListener(listener))

	_, err := s.Assign(ctx, ZoneGroupBy, "region")
	require.NoError(t, err)
	_, err = s.Assign(ctx, ZoneMetrics, "sales")
	require.NoError(t, err)
	assert.Equal(t, ModeAggregation, s.Mode())

	_, err = s.Assign(ctx, ZonePivotRows, "country")
	require.ErrorIs(t, err, ErrModeConflict)

	pending := s.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, PendingSwitch{Target: ModePivot, Zone: ZonePivotRows, ColumnID: "country"}, *pending)

	// Nothing applied while pending.
	store := s.Store()
	assert.Len(t, store.GroupBy, 1)
	assert.Empty(t, store.PivotRows)
	assert.Empty(t, listener.calls)

	entry, err := s.ConfirmSwitch(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)

	store = s.Store()
	assert.Empty(t, store.GroupBy)
	assert.Empty(t, store.Metrics)
	require.Len(t, store.PivotRows, 1)
	assert.Equal(t, "country", store.PivotRows[0].ColumnID)
	assert.Equal(t, ModePivot, s.Mode())
	assert.Nil(t, s.Pending())

	require.Len(t, listener.calls, 1)
	assert.Equal(t, store.PivotRows, listener.calls[0].Rows)
	requireInvariants(t, store)
}

func TestPivotToAggregationClearKeepsAutoSelect(t *testing.T) {
	ctx := context.Background()
	listener := &recordingListener{}
	s := newTestSession(t, WithPivotListener(listener))

	s.SetAutoSelect(ctx, false)
	_, err := s.Assign(ctx, ZonePivotRows, "country")
	require.NoError(t, err)

	pending, deferred := s.RequestMode(ModeAggregation)
	require.True(t, deferred)
	assert.Equal(t, ModeAggregation, pending.Target)
	assert.Empty(t, pending.Zone)

	entry, err := s.ConfirmSwitch(ctx)
	require.NoError(t, err)
	assert.Nil(t, entry)

	store := s.Store()
	assert.False(t, store.HasPivot())
	assert.False(t, store.PivotAutoSelect)
	assert.Equal(t, ModeNeutral, s.Mode())

	require.NotEmpty(t, listener.calls)
	assert.Nil(t, listener.calls[len(listener.calls)-1])
}

func TestCancelSwitchKeepsStore(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	_, err := s.Assign(ctx, ZoneGroupBy, "region")
	require.NoError(t, err)
	before := s.Store()

	_, err = s.Assign(ctx, ZonePivotValues, "sales")
	require.ErrorIs(t, err, ErrModeConflict)
	assert.True(t, s.CancelSwitch())
	assert.Nil(t, s.Pending())
	assert.Equal(t, before, s.Store())

	_, err = s.ConfirmSwitch(ctx)
	assert.ErrorIs(t, err, ErrNoPendingSwitch)
}

func TestRequestModeWithoutConflict(t *testing.T) {
	s := newTestSession(t)
	_, deferred := s.RequestMode(ModePivot)
	assert.False(t, deferred)

	_, err := s.Assign(context.Background(), ZonePivotRows, "country")
	require.NoError(t, err)
	_, deferred = s.RequestMode(ModePivot)
	assert.False(t, deferred)
}

func TestModeExclusivityAcrossSequence(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	steps := []struct {
		zone   Zone
		column string
	}{
		{ZonePivotRows, "country"},
		{ZoneGroupBy, "region"},
		{ZonePivotValues, "sales"},
		{ZoneMetrics, "sales"},
		{ZonePivotColumns, "date"},
		{ZoneFilters, "region"},
		{ZoneSort, "sales"},
	}
	for _, st := range steps {
		_, _ = s.Assign(ctx, st.zone, st.column)
		store := s.Store()
		assert.False(t, store.HasAggregation() && store.HasPivot())
		requireInvariants(t, store)
	}
	s.CancelSwitch()
}

func TestSetAggregationType(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	sum, err := s.Assign(ctx, ZonePivotValues, "sales")
	require.NoError(t, err)
	avg, err := s.Assign(ctx, ZonePivotValues, "sales")
	require.NoError(t, err)
	count, err := s.Assign(ctx, ZonePivotValues, "region")
	require.NoError(t, err)

	err = s.SetAggregationType(ctx, ZonePivotValues, avg.EntryID(), AggregationSum)
	assert.ErrorIs(t, err, ErrDuplicate)

	err = s.SetAggregationType(ctx, ZonePivotValues, count.EntryID(), AggregationSum)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	require.NoError(t, s.SetAggregationType(ctx, ZonePivotValues, sum.EntryID(), AggregationMax))
	v, _ := s.Store().Find(ZonePivotValues, sum.EntryID())
	assert.Equal(t, AggregationMax, v.(PivotValue).AggregationType)
	requireInvariants(t, s.Store())
}

func TestSetTimeUnit(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	d, err := s.Assign(ctx, ZonePivotColumns, "date")
	require.NoError(t, err)
	r, err := s.Assign(ctx, ZonePivotRows, "region")
	require.NoError(t, err)

	require.NoError(t, s.SetTimeUnit(ctx, ZonePivotColumns, d.EntryID(), TimeUnitQuarter))
	got, _ := s.Store().Find(ZonePivotColumns, d.EntryID())
	assert.Equal(t, TimeUnitQuarter, got.(PivotDimension).TimeUnit)

	assert.ErrorIs(t, s.SetTimeUnit(ctx, ZonePivotRows, r.EntryID(), TimeUnitYear), ErrInvalidOperation)
	assert.ErrorIs(t, s.SetTimeUnit(ctx, ZonePivotColumns, d.EntryID(), "week"), ErrInvalidOperation)
}

func TestSortLevels(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	for _, id := range []string{"region", "sales", "date"} {
		_, err := s.Assign(ctx, ZoneSort, id)
		require.NoError(t, err)
	}

	require.NoError(t, s.MoveSortLevel("date", true))
	require.NoError(t, s.MoveSortLevel("region", true))
	require.NoError(t, s.SetSortDirection("sales", SortDesc))

	assert.Equal(t, []SortLevel{
		{ColumnID: "region", Direction: SortAsc},
		{ColumnID: "date", Direction: SortAsc},
		{ColumnID: "sales", Direction: SortDesc},
	}, s.Store().Sort)

	assert.ErrorIs(t, s.MoveSortLevel("country", false), ErrEntryNotFound)
	assert.ErrorIs(t, s.SetSortDirection("sales", "sideways"), ErrInvalidOperation)
}

func TestFilterConditions(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	e, err := s.Assign(ctx, ZoneFilters, "sales")
	require.NoError(t, err)
	f := e.(FilterSpec)

	cond, err := s.AddCondition(f.ID)
	require.NoError(t, err)
	assert.Equal(t, OperatorGreaterThan, cond.Operator)

	err = s.UpdateCondition(f.ID, Condition{ID: cond.ID, Operator: OperatorContains, Value: "x"})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	require.NoError(t, s.UpdateCondition(f.ID, Condition{ID: cond.ID, Operator: OperatorBetween, Value: 10.0, ValueEnd: 20.0}))
	require.NoError(t, s.UpdateCondition(f.ID, Condition{ID: f.Conditions[0].ID, Operator: OperatorIsEmpty, Value: "ignored", ValueEnd: 3.0}))

	got := s.Store().Filters[0].Conditions
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Value)
	assert.Nil(t, got[0].ValueEnd)
	assert.Equal(t, 20.0, got[1].ValueEnd)

	require.NoError(t, s.RemoveCondition(f.ID, got[0].ID))
	require.NoError(t, s.RemoveCondition(f.ID, got[1].ID))
	assert.Empty(t, s.Store().Filters)
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	listener := &recordingListener{}
	s := newTestSession(t, WithPivotListener(listener))

	row, err := s.Assign(ctx, ZonePivotRows, "country")
	require.NoError(t, err)
	_, err = s.Assign(ctx, ZonePivotValues, "sales")
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, ZonePivotRows, row.EntryID()))
	assert.ErrorIs(t, s.Remove(ctx, ZonePivotRows, row.EntryID()), ErrEntryNotFound)

	require.NoError(t, s.ClearZone(ctx, ZonePivotValues))
	assert.False(t, s.Store().HasPivot())
	assert.Nil(t, listener.calls[len(listener.calls)-1])

	_, err = s.Assign(ctx, ZoneGroupBy, "region")
	require.NoError(t, err)
	s.Reset(ctx)
	assert.Equal(t, NewStore(), s.Store())
}

func TestSelectorSeesNewPivot(t *testing.T) {
	ctx := context.Background()
	listener := &recordingListener{}
	s := newTestSession(t, WithPivotListener(listener))

	_, err := s.Assign(ctx, ZonePivotRows, "country")
	require.NoError(t, err)
	_, err = s.Assign(ctx, ZonePivotValues, "sales")
	require.NoError(t, err)
	_, err = s.Assign(ctx, ZoneFilters, "region")
	require.NoError(t, err)

	// Filters are not pivot mutations.
	require.Len(t, listener.calls, 2)
	last := listener.calls[1]
	require.Len(t, last.Values, 1)
	assert.Equal(t, AggregationSum, last.Values[0].AggregationType)
	assert.True(t, last.AutoSelectEnabled)

	// The listener got a copy.
	last.Rows[0].Name = "changed"
	assert.Equal(t, "Country", s.Store().PivotRows[0].Name)
}

func TestAssignUnknownColumn(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Assign(context.Background(), ZoneFilters, "missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestUpdateEntryIsAtomic(t *testing.T) {
	ctx := context.Background()
	listener := &recordingListener{}
	s := newTestSession(t, WithPivotListener(listener))

	v, err := s.Assign(ctx, ZonePivotValues, "sales")
	require.NoError(t, err)
	before := s.Store().Clone()
	calls := len(listener.calls)

	avg := AggregationAverage
	month := TimeUnitMonth
	err = s.UpdateEntry(ctx, ZonePivotValues, v.EntryID(), EntryUpdate{AggregationType: &avg, TimeUnit: &month})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, before, s.Store())
	assert.Len(t, listener.calls, calls)

	alias := "Total"
	err = s.UpdateEntry(ctx, ZonePivotValues, v.EntryID(), EntryUpdate{AggregationType: &avg, Alias: &alias})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, before, s.Store())

	require.NoError(t, s.UpdateEntry(ctx, ZonePivotValues, v.EntryID(), EntryUpdate{AggregationType: &avg}))
	got, _ := s.Store().Find(ZonePivotValues, v.EntryID())
	assert.Equal(t, AggregationAverage, got.(PivotValue).AggregationType)
	assert.Len(t, listener.calls, calls+1)
}

func TestSetAliasOnlyOnMetrics(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	v, err := s.Assign(ctx, ZonePivotValues, "sales")
	require.NoError(t, err)

	err = s.SetAlias(ZonePivotValues, v.EntryID(), "Total")
	require.ErrorIs(t, err, ErrInvalidOperation)
	r, ok := IsRejection(err)
	require.True(t, ok)
	assert.Equal(t, "Values entries have no alias", r.Message)

	s = newTestSession(t)
	m, err := s.Assign(ctx, ZoneMetrics, "sales")
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetAlias(ZoneMetrics, "missing", "Total"), ErrEntryNotFound)
	require.NoError(t, s.SetAlias(ZoneMetrics, m.EntryID(), "Total"))
	got, _ := s.Store().Find(ZoneMetrics, m.EntryID())
	assert.Equal(t, "Total", got.(AggregationMetric).Alias)
}
