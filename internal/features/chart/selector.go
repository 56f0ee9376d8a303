package chart

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-viz/internal/features/transform"

	"go.uber.org/zap"
)

// SchemaSource yields the post-pivot headers once they have been recomputed
// for pivot.
type SchemaSource interface {
	Lookup(pivot *transform.PivotConfig) ([]string, bool)
}

type SelectorConfig struct {
	MaxSeries    int
	PollAttempts int
	PollInterval time.Duration
}

func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MaxSeries:    10,
		PollAttempts: 10,
		PollInterval: 16 * time.Millisecond,
	}
}

// Outcome reports what a selection run did.
type Outcome struct {
	Applied bool   `json:"applied"`
	Update  Update `json:"update"`
}

// AutoSeriesSelector keeps a chart binding in step with the pivot schema.
// Triggers bump a generation counter; a poll only applies its result when it
// is still the latest trigger and the selector has not been closed.
type AutoSeriesSelector struct {
	source   SchemaSource
	cfg      SelectorConfig
	logger   *zap.Logger
	onUpdate func(Update)

	mu        sync.Mutex
	chartType ChartType
	binding   Binding
	pivot     *transform.PivotConfig

	generation atomic.Uint64
	alive      atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

type SelectorOption func(*AutoSeriesSelector)

func WithSelectorLogger(logger *zap.Logger) SelectorOption {
	return func(s *AutoSeriesSelector) {
		s.logger = logger
	}
}

// WithUpdateHandler registers fn to receive every applied binding change.
// fn runs on the goroutine that applied the change.
func WithUpdateHandler(fn func(Update)) SelectorOption {
	return func(s *AutoSeriesSelector) {
		s.onUpdate = fn
	}
}

// WithBinding seeds the selector with a persisted binding.
func WithBinding(b Binding) SelectorOption {
	return func(s *AutoSeriesSelector) {
		s.binding = b.clone()
	}
}

func NewAutoSeriesSelector(source SchemaSource, chartType ChartType, cfg SelectorConfig, opts ...SelectorOption) *AutoSeriesSelector {
	def := DefaultSelectorConfig()
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = def.PollAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxSeries <= 0 {
		cfg.MaxSeries = def.MaxSeries
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &AutoSeriesSelector{
		source:    source,
		cfg:       cfg,
		logger:    zap.NewNop(),
		chartType: chartType,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.alive.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AutoSeriesSelector) ChartType() ChartType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chartType
}

func (s *AutoSeriesSelector) Binding() Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binding.clone()
}

// PivotChanged starts a selection for the new pivot in the background. It
// satisfies transform.PivotListener.
func (s *AutoSeriesSelector) PivotChanged(ctx context.Context, pivot *transform.PivotConfig) {
	s.mu.Lock()
	s.pivot = pivot
	chartType := s.chartType
	s.mu.Unlock()

	gen := s.generation.Add(1)
	if !eligible(pivot) {
		return
	}
	s.spawn(ctx, gen, pivot, chartType)
}

// ChartTypeChanged switches the chart type and, when a pivot is active,
// reselects in the background.
func (s *AutoSeriesSelector) ChartTypeChanged(ctx context.Context, t ChartType) {
	s.mu.Lock()
	if s.chartType == t {
		s.mu.Unlock()
		return
	}
	s.chartType = t
	pivot := s.pivot
	s.mu.Unlock()

	gen := s.generation.Add(1)
	if !eligible(pivot) {
		return
	}
	s.spawn(ctx, gen, pivot, t)
}

// Select runs a selection for the last seen pivot and waits for it.
func (s *AutoSeriesSelector) Select(ctx context.Context) Outcome {
	s.mu.Lock()
	pivot := s.pivot
	chartType := s.chartType
	s.mu.Unlock()

	gen := s.generation.Add(1)
	if !eligible(pivot) {
		return Outcome{}
	}
	return s.run(ctx, gen, pivot, chartType)
}

// SetBinding replaces the binding without going through derivation.
func (s *AutoSeriesSelector) SetBinding(b Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binding = b.clone()
}

// ClearField clears one channel and its dependents.
func (s *AutoSeriesSelector) ClearField(field Field) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := ClearSelection(s.chartType, s.binding, field)
	if ok {
		s.binding = next
	}
	return next.clone(), ok
}

// Close stops outstanding polls and waits for them to return. Results that
// arrive afterwards are discarded.
func (s *AutoSeriesSelector) Close() {
	s.mu.Lock()
	s.alive.Store(false)
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func eligible(pivot *transform.PivotConfig) bool {
	return pivot != nil && pivot.HasActiveDimension() && pivot.AutoSelectEnabled
}

func (s *AutoSeriesSelector) spawn(ctx context.Context, gen uint64, pivot *transform.PivotConfig, chartType ChartType) {
	// The alive check and wg.Add happen under mu so Close cannot start
	// waiting between them.
	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		s.run(context.WithoutCancel(ctx), gen, pivot, chartType)
	}()
}

func (s *AutoSeriesSelector) run(ctx context.Context, gen uint64, pivot *transform.PivotConfig, chartType ChartType) Outcome {
	headers, ok := s.wait(ctx, gen, pivot)
	if !ok {
		return Outcome{}
	}
	out := s.apply(gen, chartType, headers)
	if out.Applied && s.onUpdate != nil {
		s.onUpdate(out.Update)
	}
	return out
}

// wait polls the schema source a bounded number of times.
func (s *AutoSeriesSelector) wait(ctx context.Context, gen uint64, pivot *transform.PivotConfig) ([]string, bool) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-s.ctx.Done():
			return nil, false
		case <-timer.C:
		}
		if !s.current(gen) {
			return nil, false
		}
		if headers, ok := s.source.Lookup(pivot); ok {
			return headers, true
		}
		timer.Reset(s.cfg.PollInterval)
	}

	s.logger.Debug("pivot schema unavailable, skipping auto selection",
		zap.Int("attempts", s.cfg.PollAttempts))
	return nil, false
}

func (s *AutoSeriesSelector) current(gen uint64) bool {
	return s.alive.Load() && s.generation.Load() == gen
}

func (s *AutoSeriesSelector) apply(gen uint64, chartType ChartType, headers []string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) || s.chartType != chartType {
		return Outcome{}
	}

	derived, skipped, ok := Derive(chartType, headers, s.cfg.MaxSeries)
	if !ok {
		next, changed := Clear(chartType, s.binding)
		if !changed {
			return Outcome{}
		}
		s.binding = next
		return Outcome{Applied: true, Update: Update{ChartType: chartType, Binding: next.clone(), Cleared: true}}
	}

	next := Merge(chartType, s.binding, derived)
	if Equal(chartType, s.binding, next) {
		return Outcome{Update: Update{ChartType: chartType, Binding: s.binding.clone(), Skipped: skipped}}
	}
	s.binding = next
	if skipped > 0 {
		s.logger.Info("auto selection skipped series",
			zap.Int("skipped", skipped), zap.Int("max", s.cfg.MaxSeries))
	}
	return Outcome{Applied: true, Update: Update{ChartType: chartType, Binding: next.clone(), Skipped: skipped}}
}
