package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-viz/internal/features/chart"
	"go-viz/internal/features/dataset"
	"go-viz/internal/features/transform"
	"go-viz/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// DatasetLookup resolves the dataset a session is built on.
type DatasetLookup interface {
	Get(ctx context.Context, id string) (*dataset.Dataset, error)
}

type SessionService interface {
	Create(ctx context.Context, userID string, req CreateSessionRequest) (*SessionView, error)
	List(ctx context.Context) ([]Session, error)
	Get(ctx context.Context, id string) (*SessionView, error)
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context, id string) (*SessionView, error)

	Assign(ctx context.Context, id string, req AssignRequest) (transform.Entry, *SessionView, error)
	Move(ctx context.Context, id string, req MoveRequest) (*SessionView, error)
	DragEnd(ctx context.Context, id string, req DragEndRequest) (bool, *SessionView, error)
	RemoveEntry(ctx context.Context, id string, zone transform.Zone, entryID string) (*SessionView, error)
	ClearZone(ctx context.Context, id string, zone transform.Zone) (*SessionView, error)

	MoveSortLevel(ctx context.Context, id, columnID string, up bool) (*SessionView, error)
	SetSortDirection(ctx context.Context, id, columnID string, dir transform.SortDirection) (*SessionView, error)
	UpdateEntry(ctx context.Context, id string, zone transform.Zone, entryID string, req EntryUpdateRequest) (*SessionView, error)

	AddCondition(ctx context.Context, id, filterID string) (transform.Condition, *SessionView, error)
	UpdateCondition(ctx context.Context, id, filterID string, cond transform.Condition) (*SessionView, error)
	RemoveCondition(ctx context.Context, id, filterID, conditionID string) (*SessionView, error)

	RequestMode(ctx context.Context, id string, mode transform.Mode) (*SessionView, error)
	ConfirmSwitch(ctx context.Context, id string) (*SessionView, error)
	CancelSwitch(ctx context.Context, id string) (*SessionView, error)

	SetChartType(ctx context.Context, id string, t chart.ChartType) (*SessionView, error)
	SetAutoSelect(ctx context.Context, id string, enabled bool) (*SessionView, error)
	Binding(ctx context.Context, id string) (chart.Binding, error)
	SelectSeries(ctx context.Context, id string) (chart.Outcome, error)
	ClearBinding(ctx context.Context, id string, field chart.Field) (chart.Binding, error)

	Export(ctx context.Context, id string) ([]byte, error)
	Import(ctx context.Context, id string, data []byte) (*SessionView, error)
	Preview(ctx context.Context, id string) (*transform.Preview, error)
	PreviewWorkbook(ctx context.Context, id string) ([]byte, error)
	FilterQuery(ctx context.Context, id string) (bson.M, error)

	ExpireIdle(ctx context.Context, ttl time.Duration) (int, error)
}

type SessionServiceImpl struct {
	Repo      SessionRepository
	Datasets  DatasetLookup
	Registry  *Registry
	Notifier  Notifier
	Formatter transform.Formatter
	Filters   *condition.Compiler
	Logger    *zap.Logger
}

func NewSessionService(repo SessionRepository, datasets DatasetLookup, registry *Registry, notifier Notifier, formatter transform.Formatter, logger *zap.Logger) SessionService {
	return &SessionServiceImpl{
		Repo:      repo,
		Datasets:  datasets,
		Registry:  registry,
		Notifier:  notifier,
		Formatter: formatter,
		Filters:   condition.NewCompiler(),
		Logger:    logger,
	}
}

func (s *SessionServiceImpl) Create(ctx context.Context, userID string, req CreateSessionRequest) (*SessionView, error) {
	if req.DatasetID == "" {
		return nil, fmt.Errorf("%w: dataset_id is required", ErrInvalidRequest)
	}
	if req.ChartType == "" {
		req.ChartType = chart.ChartTypeBar
	}
	if !req.ChartType.Valid() {
		return nil, fmt.Errorf("%w: unknown chart type %q", ErrInvalidRequest, req.ChartType)
	}

	ds, err := s.Datasets.Get(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}
	name := req.Name
	if name == "" {
		name = ds.Name
	}

	now := time.Now().UTC()
	sess := &Session{
		Name:      name,
		DatasetID: req.DatasetID,
		ChartType: req.ChartType,
		Store:     transform.NewStore(),
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.Logger.Info("session created",
		zap.String("session_id", sess.ID.Hex()),
		zap.String("dataset_id", sess.DatasetID),
		zap.String("chart_type", string(sess.ChartType)))

	l := s.Registry.Open(ctx, sess, ds)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view(), nil
}

func (s *SessionServiceImpl) List(ctx context.Context) ([]Session, error) {
	return s.Repo.List(ctx)
}

func (s *SessionServiceImpl) Get(ctx context.Context, id string) (*SessionView, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view(), nil
}

func (s *SessionServiceImpl) Delete(ctx context.Context, id string) error {
	s.Registry.Evict(id)
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

func (s *SessionServiceImpl) Reset(ctx context.Context, id string) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		l.engine.Reset(ctx)
		return nil
	})
}

// Assign adds a column to a zone. A mode conflict leaves the store untouched
// and returns a ConflictError carrying the pending switch.
func (s *SessionServiceImpl) Assign(ctx context.Context, id string, req AssignRequest) (transform.Entry, *SessionView, error) {
	var entry transform.Entry
	view, err := s.mutate(ctx, id, func(l *liveSession) error {
		e, err := l.engine.Assign(ctx, req.Zone, req.ColumnID)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, view, err
}

func (s *SessionServiceImpl) Move(ctx context.Context, id string, req MoveRequest) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		_, err := l.engine.Move(ctx, req.Source, req.Target, req.EntryID)
		if errors.Is(err, transform.ErrSameZone) {
			return nil
		}
		return err
	})
}

func (s *SessionServiceImpl) DragEnd(ctx context.Context, id string, req DragEndRequest) (bool, *SessionView, error) {
	var removed bool
	view, err := s.mutate(ctx, id, func(l *liveSession) error {
		removed = l.engine.DragEnded(ctx, req.Zone, req.EntryID, req.Outside)
		return nil
	})
	return removed, view, err
}

func (s *SessionServiceImpl) RemoveEntry(ctx context.Context, id string, zone transform.Zone, entryID string) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.Remove(ctx, zone, entryID)
	})
}

func (s *SessionServiceImpl) ClearZone(ctx context.Context, id string, zone transform.Zone) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.ClearZone(ctx, zone)
	})
}

func (s *SessionServiceImpl) MoveSortLevel(ctx context.Context, id, columnID string, up bool) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.MoveSortLevel(columnID, up)
	})
}

func (s *SessionServiceImpl) SetSortDirection(ctx context.Context, id, columnID string, dir transform.SortDirection) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.SetSortDirection(columnID, dir)
	})
}

// UpdateEntry applies the settings present in req in a fixed order. The
// first rejection stops the update; earlier settings stay applied.
func (s *SessionServiceImpl) UpdateEntry(ctx context.Context, id string, zone transform.Zone, entryID string, req EntryUpdateRequest) (*SessionView, error) {
	if req.AggregationType == nil && req.Alias == nil && req.TimeUnit == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidRequest)
	}
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.UpdateEntry(ctx, zone, entryID, transform.EntryUpdate{
			AggregationType: req.AggregationType,
			Alias:           req.Alias,
			TimeUnit:        req.TimeUnit,
		})
	})
}

func (s *SessionServiceImpl) AddCondition(ctx context.Context, id, filterID string) (transform.Condition, *SessionView, error) {
	var cond transform.Condition
	view, err := s.mutate(ctx, id, func(l *liveSession) error {
		c, err := l.engine.AddCondition(filterID)
		if err != nil {
			return err
		}
		cond = c
		return nil
	})
	return cond, view, err
}

func (s *SessionServiceImpl) UpdateCondition(ctx context.Context, id, filterID string, cond transform.Condition) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.UpdateCondition(filterID, cond)
	})
}

func (s *SessionServiceImpl) RemoveCondition(ctx context.Context, id, filterID, conditionID string) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.RemoveCondition(filterID, conditionID)
	})
}

// RequestMode asks for a tab switch. When the other mode holds entries the
// switch is deferred and a ConflictError is returned.
func (s *SessionServiceImpl) RequestMode(ctx context.Context, id string, mode transform.Mode) (*SessionView, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, mode)
	}
	return s.mutate(ctx, id, func(l *liveSession) error {
		if _, deferred := l.engine.RequestMode(mode); deferred {
			return transform.ErrModeConflict
		}
		return nil
	})
}

func (s *SessionServiceImpl) ConfirmSwitch(ctx context.Context, id string) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		_, err := l.engine.ConfirmSwitch(ctx)
		if err == nil || errors.Is(err, transform.ErrNoPendingSwitch) {
			return err
		}
		// The outgoing mode is already cleared; only the deferred
		// assignment was refused, so the new state is still saved.
		_ = s.refused(l, err)
		return nil
	})
}

func (s *SessionServiceImpl) CancelSwitch(ctx context.Context, id string) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		if !l.engine.CancelSwitch() {
			return transform.ErrNoPendingSwitch
		}
		return nil
	})
}

func (s *SessionServiceImpl) SetChartType(ctx context.Context, id string, t chart.ChartType) (*SessionView, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown chart type %q", ErrInvalidRequest, t)
	}
	return s.mutate(ctx, id, func(l *liveSession) error {
		l.selector.ChartTypeChanged(ctx, t)
		return nil
	})
}

func (s *SessionServiceImpl) SetAutoSelect(ctx context.Context, id string, enabled bool) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		l.engine.SetAutoSelect(ctx, enabled)
		return nil
	})
}

func (s *SessionServiceImpl) Binding(ctx context.Context, id string) (chart.Binding, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return chart.Binding{}, err
	}
	return l.selector.Binding(), nil
}

// SelectSeries runs an auto-selection and waits for its outcome. An applied
// change is published and persisted by the selector's update handler.
func (s *SessionServiceImpl) SelectSeries(ctx context.Context, id string) (chart.Outcome, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return chart.Outcome{}, err
	}
	return l.selector.Select(ctx), nil
}

// ClearBinding clears one channel of the binding together with the channels
// that depend on it.
func (s *SessionServiceImpl) ClearBinding(ctx context.Context, id string, field chart.Field) (chart.Binding, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return chart.Binding{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.selector.ClearField(field)
	if !ok {
		return chart.Binding{}, fmt.Errorf("%w: %q is not a channel of %s charts", ErrInvalidRequest, field, l.selector.ChartType())
	}
	if err := s.Repo.SaveBinding(ctx, id, b); err != nil {
		return chart.Binding{}, fmt.Errorf("failed to save binding: %w", err)
	}
	s.Notifier.Publish(Message{
		Type:      MessageBinding,
		SessionID: id,
		Payload:   chart.Update{ChartType: l.selector.ChartType(), Binding: b, Cleared: true},
	})
	return b, nil
}

func (s *SessionServiceImpl) Export(ctx context.Context, id string) ([]byte, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Export()
}

// Import replaces the store of a session. A malformed payload keeps the
// previous store.
func (s *SessionServiceImpl) Import(ctx context.Context, id string, data []byte) (*SessionView, error) {
	return s.mutate(ctx, id, func(l *liveSession) error {
		return l.engine.Import(ctx, data)
	})
}

func (s *SessionServiceImpl) Preview(ctx context.Context, id string) (*transform.Preview, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	store := l.engine.Store()
	l.mu.Unlock()
	return transform.Project(store, l.engine.Catalog(), s.Formatter), nil
}

func (s *SessionServiceImpl) PreviewWorkbook(ctx context.Context, id string) ([]byte, error) {
	preview, err := s.Preview(ctx, id)
	if err != nil {
		return nil, err
	}
	return previewWorkbook(preview)
}

// FilterQuery returns the filter stage as a MongoDB match document.
func (s *SessionServiceImpl) FilterQuery(ctx context.Context, id string) (bson.M, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	store := l.engine.Store()
	l.mu.Unlock()

	query, err := s.Filters.Compile(store.Filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return query, nil
}

// ExpireIdle deletes sessions untouched for longer than ttl and closes their
// live engines.
func (s *SessionServiceImpl) ExpireIdle(ctx context.Context, ttl time.Duration) (int, error) {
	ids, err := s.Repo.DeleteIdle(ctx, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle sessions: %w", err)
	}
	for _, id := range ids {
		s.Registry.Evict(id)
	}
	if len(ids) > 0 {
		s.Logger.Info("expired idle sessions", zap.Int("count", len(ids)), zap.Duration("ttl", ttl))
	}
	return len(ids), nil
}

// open returns the live session for id, loading it on first use.
func (s *SessionServiceImpl) open(ctx context.Context, id string) (*liveSession, error) {
	if l, ok := s.Registry.Get(id); ok {
		return l, nil
	}
	sess, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ds, err := s.Datasets.Get(ctx, sess.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset of session %s: %w", id, err)
	}
	return s.Registry.Open(ctx, sess, ds), nil
}

// mutate runs fn against the live session under its lock and persists the
// resulting state. Errors from fn leave the store untouched and are
// reported to subscribers.
func (s *SessionServiceImpl) mutate(ctx context.Context, id string, fn func(l *liveSession) error) (*SessionView, error) {
	l, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := fn(l); err != nil {
		return nil, s.refused(l, err)
	}

	view := l.view()
	if err := s.Repo.SaveState(ctx, id, view.Store, view.ChartType); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	l.meta.UpdatedAt = time.Now().UTC()
	view.UpdatedAt = l.meta.UpdatedAt

	s.Notifier.Publish(Message{Type: MessageStore, SessionID: id, Payload: view.Store})
	return view, nil
}

// refused publishes a refusal and shapes the error returned to the caller.
func (s *SessionServiceImpl) refused(l *liveSession, err error) error {
	id := l.id()
	if errors.Is(err, transform.ErrModeConflict) {
		pending := l.engine.Pending()
		s.Notifier.Publish(Message{Type: MessageModeSwitchPending, SessionID: id, Payload: pending})
		return &ConflictError{Pending: pending, Err: err}
	}
	if r, ok := transform.IsRejection(err); ok {
		s.Notifier.Publish(Message{
			Type:      MessageRejection,
			SessionID: id,
			Payload:   RejectionPayload{Kind: r.Kind.Error(), Zone: r.Zone, Message: r.Message},
		})
	}
	return err
}
