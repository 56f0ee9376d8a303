package session

import (
	"context"
	"sync"
	"time"

	"go-viz/internal/config"
	"go-viz/internal/features/chart"
	"go-viz/internal/features/dataset"
	"go-viz/internal/features/pivot"
	"go-viz/internal/features/transform"

	"go.uber.org/zap"
)

// liveSession is the in-memory half of a Session. mu serialises every
// request against it.
type liveSession struct {
	mu         sync.Mutex
	meta       Session
	dataset    *dataset.Dataset
	engine     *transform.Session
	recomputer *pivot.Recomputer
	selector   *chart.AutoSeriesSelector
}

func (l *liveSession) id() string {
	return l.meta.ID.Hex()
}

// view snapshots the live state. Callers hold l.mu.
func (l *liveSession) view() *SessionView {
	s := l.meta
	s.Store = l.engine.Store()
	s.ChartType = l.selector.ChartType()
	s.Binding = l.selector.Binding()
	return &SessionView{
		Session: s,
		Mode:    l.engine.Mode(),
		Pending: l.engine.Pending(),
	}
}

// Registry keeps one live engine per open session.
type Registry struct {
	repo     SessionRepository
	notifier Notifier
	cfg      chart.SelectorConfig
	logger   *zap.Logger

	mu   sync.Mutex
	live map[string]*liveSession
}

func NewRegistry(repo SessionRepository, notifier Notifier, cfg *config.Config, logger *zap.Logger) *Registry {
	return &Registry{
		repo:     repo,
		notifier: notifier,
		cfg: chart.SelectorConfig{
			MaxSeries:    cfg.MaxAutoSeries,
			PollAttempts: cfg.SchemaPollAttempts,
			PollInterval: cfg.SchemaPollInterval,
		},
		logger: logger,
		live:   make(map[string]*liveSession),
	}
}

// Get returns the live session for id, if it is open.
func (r *Registry) Get(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.live[id]
	return l, ok
}

// Open returns the live session for s, building it from the persisted
// snapshot when it is not open yet.
func (r *Registry) Open(ctx context.Context, s *Session, ds *dataset.Dataset) *liveSession {
	id := s.ID.Hex()

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.live[id]; ok {
		return l
	}

	logger := r.logger.With(zap.String("session_id", id))
	catalog := ds.Catalog()
	l := &liveSession{meta: *s, dataset: ds}
	l.meta.Store = nil

	l.recomputer = pivot.NewRecomputer(catalog, ds, logger)
	l.selector = chart.NewAutoSeriesSelector(l.recomputer, s.ChartType, r.cfg,
		chart.WithSelectorLogger(logger),
		chart.WithBinding(s.Binding),
		chart.WithUpdateHandler(func(u chart.Update) {
			r.bindingChanged(id, u)
		}),
	)
	l.engine = transform.NewSession(catalog, s.Store,
		transform.WithLogger(logger),
		transform.WithPivotListener(l.recomputer),
		transform.WithPivotListener(l.selector),
	)

	// Prime the listeners with the restored pivot.
	if store := l.engine.Store(); store.HasPivot() {
		p := store.Pivot()
		l.recomputer.PivotChanged(ctx, p)
		l.selector.PivotChanged(ctx, p)
	}

	r.live[id] = l
	logger.Debug("session opened", zap.String("dataset_id", s.DatasetID))
	return l
}

// Evict closes and forgets the live session for id.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	l, ok := r.live[id]
	delete(r.live, id)
	r.mu.Unlock()

	if ok {
		l.selector.Close()
		l.recomputer.Wait()
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close evicts every open session.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Evict(id)
	}
}

func (r *Registry) bindingChanged(id string, u chart.Update) {
	r.notifier.Publish(Message{Type: MessageBinding, SessionID: id, Payload: u})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.repo.SaveBinding(ctx, id, u.Binding); err != nil {
		r.logger.Error("failed to persist binding", zap.String("session_id", id), zap.Error(err))
	}
}
