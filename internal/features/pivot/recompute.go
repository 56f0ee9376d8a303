package pivot

import (
	"context"
	"sync"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/features/transform"

	"github.com/gohugoio/hashstructure"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// retainedSchemas bounds how many pivot shapes a recomputer keeps.
const retainedSchemas = 8

// Recomputer derives post-pivot headers in the background and serves them
// to the chart selector, keyed by the structural hash of the pivot. Only the
// most recently used shapes are kept.
type Recomputer struct {
	catalog *common_models.Catalog
	values  ValueSource
	logger  *zap.Logger

	mu      sync.RWMutex
	results map[uint64][]string
	order   []uint64
	limit   int
	wg      conc.WaitGroup
}

func NewRecomputer(catalog *common_models.Catalog, values ValueSource, logger *zap.Logger) *Recomputer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recomputer{
		catalog: catalog,
		values:  values,
		logger:  logger,
		results: make(map[uint64][]string),
		limit:   retainedSchemas,
	}
}

// PivotChanged schedules a derivation for pivot. It satisfies
// transform.PivotListener.
func (r *Recomputer) PivotChanged(_ context.Context, pivot *transform.PivotConfig) {
	if pivot == nil {
		return
	}
	key, err := hash(pivot)
	if err != nil {
		r.logger.Warn("failed to hash pivot", zap.Error(err))
		return
	}

	r.mu.Lock()
	_, done := r.results[key]
	if done {
		r.touch(key)
	}
	r.mu.Unlock()
	if done {
		return
	}

	r.wg.Go(func() {
		headers := Derive(pivot, r.catalog, r.values)
		r.mu.Lock()
		r.results[key] = headers
		r.touch(key)
		r.mu.Unlock()
		r.logger.Debug("pivot schema recomputed", zap.Uint64("key", key), zap.Int("headers", len(headers)))
	})
}

// Lookup returns the headers for pivot once they are available.
func (r *Recomputer) Lookup(pivot *transform.PivotConfig) ([]string, bool) {
	if pivot == nil {
		return nil, false
	}
	key, err := hash(pivot)
	if err != nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	headers, ok := r.results[key]
	if !ok {
		return nil, false
	}
	return append([]string(nil), headers...), true
}

// Len returns the number of retained schemas.
func (r *Recomputer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}

// touch marks key as most recently used and drops the oldest shapes beyond
// the limit. Callers hold r.mu.
func (r *Recomputer) touch(key uint64) {
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.order = append(r.order, key)
	for len(r.order) > r.limit {
		delete(r.results, r.order[0])
		r.order = r.order[1:]
	}
}

// Wait blocks until every scheduled derivation has finished.
func (r *Recomputer) Wait() {
	r.wg.Wait()
}

// hash ignores entry ids and the auto-select flag, which do not affect the
// derived schema.
func hash(pivot *transform.PivotConfig) (uint64, error) {
	type dim struct {
		ColumnID string
		Name     string
		Type     string
		TimeUnit string
	}
	type val struct {
		ColumnID string
		Name     string
		Agg      string
	}
	shape := struct {
		Rows    []dim
		Columns []dim
		Values  []val
	}{}
	for _, d := range pivot.Rows {
		shape.Rows = append(shape.Rows, dim{d.ColumnID, d.Name, string(d.ColumnType), string(d.TimeUnit)})
	}
	for _, d := range pivot.Columns {
		shape.Columns = append(shape.Columns, dim{d.ColumnID, d.Name, string(d.ColumnType), string(d.TimeUnit)})
	}
	for _, v := range pivot.Values {
		shape.Values = append(shape.Values, val{v.ColumnID, v.Name, string(v.AggregationType)})
	}
	return hashstructure.Hash(shape, nil)
}
