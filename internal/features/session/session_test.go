package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/config"
	"go-viz/internal/features/chart"
	"go-viz/internal/features/dataset"
	"go-viz/internal/features/transform"
	"go-viz/internal/format"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memoryRepo struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: make(map[string]*Session)}
}

func (r *memoryRepo) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = primitive.NewObjectID()
	cp := *s
	cp.Store = s.Store.Clone()
	r.sessions[s.ID.Hex()] = &cp
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	cp.Store = s.Store.Clone()
	return &cp, nil
}

func (r *memoryRepo) List(_ context.Context) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Session{}
	for _, s := range r.sessions {
		cp := *s
		cp.Store = nil
		out = append(out, cp)
	}
	return out, nil
}

func (r *memoryRepo) SaveState(_ context.Context, id string, store *transform.Store, chartType chart.ChartType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Store = store.Clone()
	s.ChartType = chartType
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) SaveBinding(_ context.Context, id string, binding chart.Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Binding = binding
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memoryRepo) DeleteIdle(_ context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, s := range r.sessions {
		if s.UpdatedAt.Before(before) {
			ids = append(ids, id)
			delete(r.sessions, id)
		}
	}
	return ids, nil
}

func (r *memoryRepo) stored(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (r *memoryRepo) age(id string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id].UpdatedAt = time.Now().UTC().Add(-d)
}

type fakeDatasets map[string]*dataset.Dataset

func (f fakeDatasets) Get(_ context.Context, id string) (*dataset.Dataset, error) {
	ds, ok := f[id]
	if !ok {
		return nil, dataset.ErrDatasetNotFound
	}
	return ds, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []Message
}

func (n *recordingNotifier) Publish(msg Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) ofType(t MessageType) []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Message
	for _, m := range n.messages {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	svc      SessionService
	repo     *memoryRepo
	registry *Registry
	notifier *recordingNotifier
	dataset  *dataset.Dataset
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ds := &dataset.Dataset{
		ID:   primitive.NewObjectID(),
		Name: "Orders",
		Columns: []common_models.Column{
			{ID: "region", Name: "Region", Type: common_models.FieldTypeText},
			{ID: "country", Name: "Country", Type: common_models.FieldTypeText},
			{ID: "sales", Name: "Sales", Type: common_models.FieldTypeNumber},
			{ID: "order_date", Name: "Order Date", Type: common_models.FieldTypeDate},
		},
		Distinct: map[string][]string{
			"region":  {"North", "South"},
			"country": {"DE", "FR"},
		},
	}

	cfg := &config.Config{MaxAutoSeries: 10, SchemaPollAttempts: 10, SchemaPollInterval: 5 * time.Millisecond}
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	registry := NewRegistry(repo, notifier, cfg, zap.NewNop())
	t.Cleanup(registry.Close)

	svc := NewSessionService(repo, fakeDatasets{ds.ID.Hex(): ds}, registry, notifier, format.NewDefault("en"), zap.NewNop())
	return &fixture{svc: svc, repo: repo, registry: registry, notifier: notifier, dataset: ds}
}

func (f *fixture) create(t *testing.T, chartType chart.ChartType) string {
	t.Helper()
	view, err := f.svc.Create(context.Background(), "u1", CreateSessionRequest{DatasetID: f.dataset.ID.Hex(), ChartType: chartType})
	require.NoError(t, err)
	return view.ID.Hex()
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     CreateSessionRequest
		wantErr error
	}{
		{name: "defaults", req: CreateSessionRequest{DatasetID: f.dataset.ID.Hex()}},
		{name: "missing dataset id", req: CreateSessionRequest{}, wantErr: ErrInvalidRequest},
		{name: "unknown chart type", req: CreateSessionRequest{DatasetID: f.dataset.ID.Hex(), ChartType: "radar"}, wantErr: ErrInvalidRequest},
		{name: "unknown dataset", req: CreateSessionRequest{DatasetID: primitive.NewObjectID().Hex()}, wantErr: dataset.ErrDatasetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := f.svc.Create(ctx, "u1", tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Orders", view.Name)
			assert.Equal(t, chart.ChartTypeBar, view.ChartType)
			assert.Equal(t, transform.ModeNeutral, view.Mode)
			assert.Equal(t, "u1", view.CreatedBy)
			assert.NotNil(t, f.repo.stored(view.ID.Hex()))
		})
	}
}

func TestMutationsArePersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	entry, view, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.NoError(t, err)
	assert.Equal(t, "region", entry.ColumnKey())
	assert.Equal(t, transform.ModeAggregation, view.Mode)

	stored := f.repo.stored(id)
	require.Len(t, stored.Store.GroupBy, 1)
	assert.Equal(t, "region", stored.Store.GroupBy[0].ID)
	assert.NotEmpty(t, f.notifier.ofType(MessageStore))
}

func TestAssignRejectionLeavesStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	_, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.NoError(t, err)

	_, _, err = f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.ErrorIs(t, err, transform.ErrDuplicate)

	view, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, view.Store.GroupBy, 1)

	rejections := f.notifier.ofType(MessageRejection)
	require.Len(t, rejections, 1)
	payload := rejections[0].Payload.(RejectionPayload)
	assert.Equal(t, transform.ZoneGroupBy, payload.Zone)
	assert.Contains(t, payload.Message, "Region")
}

func TestModeConflictIsDeferredUntilConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	_, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.NoError(t, err)

	_, _, err = f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZonePivotRows, ColumnID: "country"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Pending)
	assert.Equal(t, transform.ModePivot, conflict.Pending.Target)
	assert.Len(t, f.notifier.ofType(MessageModeSwitchPending), 1)

	view, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, view.Store.GroupBy, 1)
	assert.NotNil(t, view.Pending)

	view, err = f.svc.ConfirmSwitch(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, view.Store.GroupBy)
	require.Len(t, view.Store.PivotRows, 1)
	assert.Equal(t, "country", view.Store.PivotRows[0].ColumnID)
	assert.Nil(t, view.Pending)

	_, err = f.svc.ConfirmSwitch(ctx, id)
	assert.ErrorIs(t, err, transform.ErrNoPendingSwitch)
}

func TestRequestModeAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	view, err := f.svc.RequestMode(ctx, id, transform.ModePivot)
	require.NoError(t, err)
	assert.Nil(t, view.Pending)

	_, _, err = f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneMetrics, ColumnID: "sales"})
	require.NoError(t, err)

	_, err = f.svc.RequestMode(ctx, id, transform.ModePivot)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	view, err = f.svc.CancelSwitch(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, view.Pending)
	assert.Len(t, view.Store.Metrics, 1)

	_, err = f.svc.CancelSwitch(ctx, id)
	assert.ErrorIs(t, err, transform.ErrNoPendingSwitch)

	_, err = f.svc.RequestMode(ctx, id, "tabs")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMoveSameZoneIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	entry, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZonePivotRows, ColumnID: "region"})
	require.NoError(t, err)

	view, err := f.svc.Move(ctx, id, MoveRequest{Source: transform.ZonePivotRows, Target: transform.ZonePivotRows, EntryID: entry.EntryID()})
	require.NoError(t, err)
	assert.Len(t, view.Store.PivotRows, 1)

	view, err = f.svc.Move(ctx, id, MoveRequest{Source: transform.ZonePivotRows, Target: transform.ZonePivotColumns, EntryID: entry.EntryID()})
	require.NoError(t, err)
	assert.Empty(t, view.Store.PivotRows)
	assert.Len(t, view.Store.PivotColumns, 1)
}

func TestDragEndOutsideRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	entry, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.NoError(t, err)

	removed, view, err := f.svc.DragEnd(ctx, id, DragEndRequest{Zone: transform.ZoneGroupBy, EntryID: entry.EntryID(), Outside: true})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, view.Store.GroupBy)
}

func TestUpdateEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	entry, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneMetrics, ColumnID: "sales"})
	require.NoError(t, err)

	avg := transform.AggregationAverage
	alias := "Average sales"
	view, err := f.svc.UpdateEntry(ctx, id, transform.ZoneMetrics, entry.EntryID(), EntryUpdateRequest{AggregationType: &avg, Alias: &alias})
	require.NoError(t, err)
	require.Len(t, view.Store.Metrics, 1)
	assert.Equal(t, avg, view.Store.Metrics[0].Type)
	assert.Equal(t, alias, view.Store.Metrics[0].Alias)

	_, err = f.svc.UpdateEntry(ctx, id, transform.ZoneMetrics, entry.EntryID(), EntryUpdateRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRejectedUpdateEntryKeepsStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	entry, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneMetrics, ColumnID: "sales"})
	require.NoError(t, err)

	avg := transform.AggregationAverage
	month := transform.TimeUnitMonth
	_, err = f.svc.UpdateEntry(ctx, id, transform.ZoneMetrics, entry.EntryID(), EntryUpdateRequest{AggregationType: &avg, TimeUnit: &month})
	require.ErrorIs(t, err, transform.ErrInvalidOperation)

	view, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, view.Store.Metrics, 1)
	assert.Equal(t, transform.AggregationSum, view.Store.Metrics[0].Type)
	assert.Equal(t, transform.AggregationSum, f.repo.stored(id).Store.Metrics[0].Type)
}

func TestImportMalformedKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	_, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.NoError(t, err)
	exported, err := f.svc.Export(ctx, id)
	require.NoError(t, err)

	_, err = f.svc.Import(ctx, id, []byte(`{"group_by": 42`))
	require.ErrorIs(t, err, transform.ErrMalformedImport)

	view, err := f.svc.Reset(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, view.Store.GroupBy)

	view, err = f.svc.Import(ctx, id, exported)
	require.NoError(t, err)
	assert.Len(t, view.Store.GroupBy, 1)
}

func TestPivotDrivesBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeLine)

	_, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZonePivotRows, ColumnID: "country"})
	require.NoError(t, err)
	_, _, err = f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZonePivotValues, ColumnID: "sales"})
	require.NoError(t, err)

	_, err = f.svc.SelectSeries(ctx, id)
	require.NoError(t, err)

	want := chart.Binding{
		XAxisKey:      "Country",
		SeriesConfigs: []chart.SeriesConfig{{DataColumn: "Sum of Sales", Name: "Sum of Sales"}},
	}
	b, err := f.svc.Binding(ctx, id)
	require.NoError(t, err)
	assert.True(t, chart.Equal(chart.ChartTypeLine, b, want), "got %+v", b)

	require.Eventually(t, func() bool {
		stored := f.repo.stored(id)
		return chart.Equal(chart.ChartTypeLine, stored.Binding, want)
	}, time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, f.notifier.ofType(MessageBinding))

	cleared, err := f.svc.ClearBinding(ctx, id, chart.FieldXAxis)
	require.NoError(t, err)
	assert.Empty(t, cleared.XAxisKey)
	assert.Empty(t, cleared.SeriesConfigs)

	_, err = f.svc.ClearBinding(ctx, id, chart.FieldCycle)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	preview, err := f.svc.Preview(ctx, id)
	require.NoError(t, err)
	assert.True(t, preview.Empty())

	_, _, err = f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.NoError(t, err)

	preview, err = f.svc.Preview(ctx, id)
	require.NoError(t, err)
	assert.False(t, preview.Empty())
	assert.Contains(t, preview.String(), "Region")

	data, err := f.svc.PreviewWorkbook(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestReopenRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	_, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneGroupBy, ColumnID: "region"})
	require.NoError(t, err)

	f.registry.Evict(id)
	assert.Equal(t, 0, f.registry.Len())

	view, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, view.Store.GroupBy, 1)
	assert.Equal(t, 1, f.registry.Len())
}

func TestExpireIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idle := f.create(t, chart.ChartTypeBar)
	fresh := f.create(t, chart.ChartTypeBar)
	f.repo.age(idle, 2*time.Hour)

	n, err := f.svc.ExpireIdle(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.Get(ctx, idle)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Get(ctx, fresh)
	assert.NoError(t, err)

	c := NewCleanup(f.svc, &config.Config{SessionTTL: time.Hour, SessionCleanupSchedule: "@hourly"}, zap.NewNop())
	f.repo.age(fresh, 2*time.Hour)
	assert.Equal(t, 1, c.Run(ctx))
}

func TestCleanupRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	c := NewCleanup(f.svc, &config.Config{SessionTTL: time.Hour, SessionCleanupSchedule: "every now and then"}, zap.NewNop())
	assert.Error(t, c.Start())

	c = NewCleanup(f.svc, &config.Config{SessionTTL: time.Hour, SessionCleanupSchedule: "@every 1h"}, zap.NewNop())
	require.NoError(t, c.Start())
	c.Stop()
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	require.NoError(t, f.svc.Delete(ctx, id))
	assert.Equal(t, 0, f.registry.Len())
	err := f.svc.Delete(ctx, id)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestFilterQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, chart.ChartTypeBar)

	query, err := f.svc.FilterQuery(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, query)

	entry, _, err := f.svc.Assign(ctx, id, AssignRequest{Zone: transform.ZoneFilters, ColumnID: "sales"})
	require.NoError(t, err)
	cond, _, err := f.svc.AddCondition(ctx, id, entry.EntryID())
	require.NoError(t, err)
	cond.Operator = transform.OperatorGreaterThan
	cond.Value = 100.0
	_, err = f.svc.UpdateCondition(ctx, id, entry.EntryID(), cond)
	require.NoError(t, err)

	query, err = f.svc.FilterQuery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"sales": bson.M{"$gt": 100.0}}, query)

	_, err = f.svc.FilterQuery(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
