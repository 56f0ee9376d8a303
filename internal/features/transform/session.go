package transform

import (
	"context"
	"errors"

	common_models "go-viz/internal/common/models"

	"go.uber.org/zap"
)

// PivotListener is told about every pivot mutation, with the new pivot
// configuration passed explicitly. pivot is nil when the pivot was cleared.
type PivotListener interface {
	PivotChanged(ctx context.Context, pivot *PivotConfig)
}

// Session is the single actor that owns a Store. Every mutation runs
// synchronously and either replaces the store or leaves it untouched.
// A Session is not safe for concurrent use; callers serialise access.
type Session struct {
	store       *Store
	catalog     *common_models.Catalog
	validator   *Validator
	coordinator *Coordinator
	guard       *Guard
	listeners   []PivotListener
	logger      *zap.Logger
}

type SessionOption func(*Session)

func WithIDGenerator(gen IDGenerator) SessionOption {
	return func(s *Session) {
		s.validator = NewValidator(gen)
	}
}

func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithPivotListener(l PivotListener) SessionOption {
	return func(s *Session) {
		s.listeners = append(s.listeners, l)
	}
}

// NewSession starts a session over catalog. A nil store starts empty.
func NewSession(catalog *common_models.Catalog, store *Store, opts ...SessionOption) *Session {
	if store == nil {
		store = NewStore()
	}
	s := &Session{
		store:     store.Clone(),
		catalog:   catalog,
		validator: NewValidator(nil),
		guard:     NewGuard(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coordinator = NewCoordinator(s.validator, catalog)
	return s
}

// Store returns a copy of the current store.
func (s *Session) Store() *Store {
	return s.store.Clone()
}

func (s *Session) Catalog() *common_models.Catalog {
	return s.catalog
}

func (s *Session) Mode() Mode {
	return ModeOf(s.store)
}

// Pending returns the deferred mode switch, if any.
func (s *Session) Pending() *PendingSwitch {
	return s.guard.Pending()
}

// Assign adds columnID to zone. On a mode conflict the assignment is deferred:
// a pending switch is recorded and the ErrModeConflict rejection is returned.
func (s *Session) Assign(ctx context.Context, zone Zone, columnID string) (Entry, error) {
	column, ok := s.catalog.Lookup(columnID)
	if !ok {
		return nil, reject(ErrColumnNotFound, zone, "Column %q not found", columnID)
	}

	entry, err := s.validator.TryAssign(zone, column, s.store)
	if err != nil {
		if errors.Is(err, ErrModeConflict) {
			s.guard.Request(s.store, ModeOfZone(zone), zone, columnID)
		}
		s.logger.Debug("assignment rejected",
			zap.String("zone", string(zone)),
			zap.String("column_id", columnID),
			zap.Error(err))
		return nil, err
	}

	next := s.store.Clone()
	next.insert(zone, entry)
	s.commit(ctx, next, zone.IsPivot())
	return entry, nil
}

// Move relocates an entry between zones. A missing entry returns (nil, nil).
func (s *Session) Move(ctx context.Context, source, target Zone, entryID string) (*Transfer, error) {
	t, err := s.coordinator.Move(s.store, source, target, entryID)
	if err != nil {
		s.logger.Debug("move rejected",
			zap.String("source", string(source)),
			zap.String("target", string(target)),
			zap.String("entry_id", entryID),
			zap.Error(err))
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	s.commit(ctx, t.Store, source.IsPivot() || target.IsPivot())
	return t, nil
}

// DragEnded reports the end of a drag. It returns true when the entry was
// removed because it was released outside every zone.
func (s *Session) DragEnded(ctx context.Context, zone Zone, entryID string, outside bool) bool {
	next := s.coordinator.DragEnded(s.store, zone, entryID, outside)
	if next == nil {
		return false
	}
	s.commit(ctx, next, zone.IsPivot())
	return true
}

// Remove deletes one entry.
func (s *Session) Remove(ctx context.Context, zone Zone, entryID string) error {
	next := s.store.Clone()
	if !next.remove(zone, entryID) {
		return reject(ErrEntryNotFound, zone, "Entry not found in %s", zone.Label())
	}
	s.commit(ctx, next, zone.IsPivot())
	return nil
}

// ClearZone empties one zone.
func (s *Session) ClearZone(ctx context.Context, zone Zone) error {
	if !zone.Valid() {
		return reject(ErrInvalidOperation, zone, "Unknown zone %q", zone)
	}
	next := s.store.Clone()
	next.clear(zone)
	s.commit(ctx, next, zone.IsPivot())
	return nil
}

// Reset discards the whole configuration.
func (s *Session) Reset(ctx context.Context) {
	hadPivot := s.store.HasPivot()
	s.guard.Cancel()
	s.coordinator.Reset()
	s.commit(ctx, NewStore(), hadPivot)
}

// MoveSortLevel swaps a sort level with its neighbour. Moving past either end
// is a no-op.
func (s *Session) MoveSortLevel(columnID string, up bool) error {
	idx := -1
	for i, l := range s.store.Sort {
		if l.ColumnID == columnID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return reject(ErrEntryNotFound, ZoneSort, "Column %q is not sorted", s.catalog.NameOf(columnID))
	}
	other := idx + 1
	if up {
		other = idx - 1
	}
	if other < 0 || other >= len(s.store.Sort) {
		return nil
	}
	next := s.store.Clone()
	next.Sort[idx], next.Sort[other] = next.Sort[other], next.Sort[idx]
	s.store = next
	return nil
}

func (s *Session) SetSortDirection(columnID string, dir SortDirection) error {
	if dir != SortAsc && dir != SortDesc {
		return reject(ErrInvalidOperation, ZoneSort, "Unknown sort direction %q", dir)
	}
	next := s.store.Clone()
	for i := range next.Sort {
		if next.Sort[i].ColumnID == columnID {
			next.Sort[i].Direction = dir
			s.store = next
			return nil
		}
	}
	return reject(ErrEntryNotFound, ZoneSort, "Column %q is not sorted", s.catalog.NameOf(columnID))
}

// EntryUpdate holds the optional settings of a single entry update. Nil
// fields are left alone.
type EntryUpdate struct {
	AggregationType *AggregationType
	Alias           *string
	TimeUnit        *TimeUnit
}

// UpdateEntry applies every requested setting to one copy of the store and
// commits only when all of them succeed.
func (s *Session) UpdateEntry(ctx context.Context, zone Zone, entryID string, u EntryUpdate) error {
	next := s.store.Clone()
	if u.AggregationType != nil {
		if err := s.applyAggregationType(next, zone, entryID, *u.AggregationType); err != nil {
			return err
		}
	}
	if u.Alias != nil {
		if err := applyAlias(next, zone, entryID, *u.Alias); err != nil {
			return err
		}
	}
	if u.TimeUnit != nil {
		if err := s.applyTimeUnit(next, zone, entryID, *u.TimeUnit); err != nil {
			return err
		}
	}
	s.commit(ctx, next, zone.IsPivot() && (u.AggregationType != nil || u.TimeUnit != nil))
	return nil
}

// SetAggregationType changes the operation of a metric or pivot value. The
// new kind must be legal for the column and unused for it in the zone.
func (s *Session) SetAggregationType(ctx context.Context, zone Zone, entryID string, op AggregationType) error {
	return s.UpdateEntry(ctx, zone, entryID, EntryUpdate{AggregationType: &op})
}

// SetAlias renames a metric.
func (s *Session) SetAlias(zone Zone, entryID, alias string) error {
	return s.UpdateEntry(context.Background(), zone, entryID, EntryUpdate{Alias: &alias})
}

// SetTimeUnit changes the date granularity of a group-by column or pivot
// dimension. Only date columns accept a time unit.
func (s *Session) SetTimeUnit(ctx context.Context, zone Zone, entryID string, unit TimeUnit) error {
	return s.UpdateEntry(ctx, zone, entryID, EntryUpdate{TimeUnit: &unit})
}

func (s *Session) applyAggregationType(next *Store, zone Zone, entryID string, op AggregationType) error {
	if !zone.holdsOperations() {
		return reject(ErrInvalidOperation, zone, "%s entries have no aggregation", zone.Label())
	}
	entry, ok := next.Find(zone, entryID)
	if !ok {
		return reject(ErrEntryNotFound, zone, "Entry not found in %s", zone.Label())
	}
	column := s.coordinator.resolve(entry)
	if !OperationAllowed(column.Type, op) {
		return reject(ErrInvalidOperation, zone, "%s is not available for column %q", op.Label(), column.Name)
	}
	if operationOf(entry) == op {
		return nil
	}
	for _, used := range next.UsedOperations(zone, column.ID) {
		if used == op {
			return reject(ErrDuplicate, zone, "Column %q already uses %s in %s", column.Name, op.Label(), zone.Label())
		}
	}

	if zone == ZoneMetrics {
		for i := range next.Metrics {
			if next.Metrics[i].ID == entryID {
				next.Metrics[i].Type = op
			}
		}
		return nil
	}
	for i := range next.PivotValues {
		if next.PivotValues[i].ID == entryID {
			next.PivotValues[i].AggregationType = op
		}
	}
	return nil
}

func applyAlias(next *Store, zone Zone, entryID, alias string) error {
	if zone != ZoneMetrics {
		return reject(ErrInvalidOperation, zone, "%s entries have no alias", zone.Label())
	}
	for i := range next.Metrics {
		if next.Metrics[i].ID == entryID {
			next.Metrics[i].Alias = alias
			return nil
		}
	}
	return reject(ErrEntryNotFound, zone, "Entry not found in %s", zone.Label())
}

func (s *Session) applyTimeUnit(next *Store, zone Zone, entryID string, unit TimeUnit) error {
	if !unit.Valid() {
		return reject(ErrInvalidOperation, zone, "Unknown time unit %q", unit)
	}
	if zone != ZoneGroupBy && !zone.IsDimension() {
		return reject(ErrInvalidOperation, zone, "%s entries have no time unit", zone.Label())
	}
	entry, ok := next.Find(zone, entryID)
	if !ok {
		return reject(ErrEntryNotFound, zone, "Entry not found in %s", zone.Label())
	}
	column := s.coordinator.resolve(entry)
	if column.Type != common_models.FieldTypeDate {
		return reject(ErrInvalidOperation, zone, "Column %q is not a date", column.Name)
	}

	if zone == ZoneGroupBy {
		for i := range next.GroupBy {
			if next.GroupBy[i].ID == entryID {
				next.GroupBy[i].TimeUnit = unit
			}
		}
		return nil
	}
	dims := *next.dimensions(zone)
	for i := range dims {
		if dims[i].ID == entryID {
			dims[i].TimeUnit = unit
		}
	}
	return nil
}

// AddCondition appends a default condition to a filter.
func (s *Session) AddCondition(filterID string) (Condition, error) {
	next := s.store.Clone()
	f := next.filter(filterID)
	if f == nil {
		return Condition{}, reject(ErrEntryNotFound, ZoneFilters, "Filter not found")
	}
	cond := Condition{ID: s.validator.newID(), Operator: DefaultOperator(f.ColumnType), Value: ""}
	f.Conditions = append(f.Conditions, cond)
	s.store = next
	return cond, nil
}

// UpdateCondition replaces a condition's operator and values.
func (s *Session) UpdateCondition(filterID string, cond Condition) error {
	next := s.store.Clone()
	f := next.filter(filterID)
	if f == nil {
		return reject(ErrEntryNotFound, ZoneFilters, "Filter not found")
	}
	if !OperatorAllowed(f.ColumnType, cond.Operator) {
		return reject(ErrInvalidOperation, ZoneFilters, "Operator %q is not available for column %q", cond.Operator, f.ColumnName)
	}
	if cond.Operator.Unary() {
		cond.Value = nil
	}
	if cond.Operator != OperatorBetween {
		cond.ValueEnd = nil
	}
	for i := range f.Conditions {
		if f.Conditions[i].ID == cond.ID {
			f.Conditions[i] = cond
			s.store = next
			return nil
		}
	}
	return reject(ErrEntryNotFound, ZoneFilters, "Condition not found")
}

// RemoveCondition deletes a condition. A filter losing its last condition is
// removed as well.
func (s *Session) RemoveCondition(filterID, conditionID string) error {
	next := s.store.Clone()
	f := next.filter(filterID)
	if f == nil {
		return reject(ErrEntryNotFound, ZoneFilters, "Filter not found")
	}
	if !removeWhere(&f.Conditions, func(c Condition) bool { return c.ID == conditionID }) {
		return reject(ErrEntryNotFound, ZoneFilters, "Condition not found")
	}
	if len(f.Conditions) == 0 {
		next.remove(ZoneFilters, filterID)
	}
	s.store = next
	return nil
}

// SetAutoSelect toggles automatic chart binding. Enabling it with an active
// pivot notifies listeners so bindings catch up.
func (s *Session) SetAutoSelect(ctx context.Context, enabled bool) {
	if s.store.PivotAutoSelect == enabled {
		return
	}
	next := s.store.Clone()
	next.PivotAutoSelect = enabled
	s.commit(ctx, next, enabled && next.HasPivot())
}

// RequestMode asks to switch tabs to mode. When the other exclusive mode holds
// entries the switch is deferred and the pending switch is returned.
func (s *Session) RequestMode(mode Mode) (*PendingSwitch, bool) {
	return s.guard.Request(s.store, mode, "", "")
}

// ConfirmSwitch clears the outgoing mode and applies the deferred assignment,
// if there was one. The applied entry is returned.
func (s *Session) ConfirmSwitch(ctx context.Context) (Entry, error) {
	hadPivot := s.store.HasPivot()
	next := s.store.Clone()
	p, err := s.guard.Confirm(next)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, next, hadPivot && !next.HasPivot())

	if p.Zone == "" || p.ColumnID == "" {
		return nil, nil
	}
	return s.Assign(ctx, p.Zone, p.ColumnID)
}

// CancelSwitch drops the deferred switch.
func (s *Session) CancelSwitch() bool {
	return s.guard.Cancel()
}

// Import replaces the store with a persisted one. A malformed payload leaves
// the current store untouched.
func (s *Session) Import(ctx context.Context, data []byte) error {
	next, err := Unmarshal(data)
	if err != nil {
		s.logger.Warn("import rejected", zap.Error(err))
		return err
	}
	touched := s.store.HasPivot() || next.HasPivot()
	s.guard.Cancel()
	s.coordinator.Reset()
	s.commit(ctx, next, touched)
	return nil
}

func (s *Session) Export() ([]byte, error) {
	return Marshal(s.store)
}

// commit installs next and, when the pivot zones may have changed, hands the
// new pivot to every listener before returning.
func (s *Session) commit(ctx context.Context, next *Store, pivotTouched bool) {
	s.store = next
	if !pivotTouched {
		return
	}
	var pivot *PivotConfig
	if next.HasPivot() {
		pivot = next.Pivot()
	}
	for _, l := range s.listeners {
		l.PivotChanged(ctx, pivot)
	}
}

func (s *Store) filter(id string) *FilterSpec {
	for i := range s.Filters {
		if s.Filters[i].ID == id {
			return &s.Filters[i]
		}
	}
	return nil
}
