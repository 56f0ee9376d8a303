package transform

import (
	common_models "go-viz/internal/common/models"
)

// ColumnResolver looks columns up by id. *common_models.Catalog implements it.
type ColumnResolver interface {
	Lookup(id string) (common_models.Column, bool)
}

// Transfer is the outcome of a successful move. Store is the new state; the
// store passed to Move is never modified.
type Transfer struct {
	Source  Zone   `json:"source"`
	Target  Zone   `json:"target"`
	Removed Entry  `json:"removed"`
	Added   Entry  `json:"added"`
	Store   *Store `json:"-"`
}

// Coordinator relocates entries between zones. It also remembers the drop it
// handled for the drag in flight, keyed by entry id with the zone the drag
// started in, so the trailing drag-end signal of that drag cannot delete it.
type Coordinator struct {
	validator *Validator
	columns   ColumnResolver
	handled   map[string]Zone
}

func NewCoordinator(validator *Validator, columns ColumnResolver) *Coordinator {
	return &Coordinator{
		validator: validator,
		columns:   columns,
		handled:   make(map[string]Zone),
	}
}

// Move relocates the entry entryID from source to target. A missing entry is a
// no-op and returns (nil, nil). On rejection the returned error is a
// *Rejection and no store is produced.
func (c *Coordinator) Move(store *Store, source, target Zone, entryID string) (*Transfer, error) {
	if !source.Valid() || !target.Valid() {
		return nil, reject(ErrInvalidOperation, target, "Unknown zone")
	}

	entry, ok := store.Find(source, entryID)
	if !ok {
		return nil, nil
	}
	// A new drop starts a new drag; earlier markers belong to drags whose
	// drag-end never arrived.
	c.handled = map[string]Zone{entryID: source}

	if source == target {
		return nil, ErrSameZone
	}
	if !movable(source, target) {
		return nil, reject(ErrUnsupportedMove, target, "Cannot move %q from %s to %s",
			c.displayName(entry), source.Label(), target.Label())
	}

	column := c.resolve(entry)
	var added Entry

	switch {
	case target.holdsOperations() && source.holdsOperations():
		return nil, reject(ErrUnsupportedMove, target, "%s entries can only move into %s",
			source.Label(), dimensionZonesLabel(source))
	case target.holdsOperations():
		built, err := c.validator.buildOperation(target, column, store, " in "+target.Label())
		if err != nil {
			return nil, err
		}
		added = built
	case source.holdsOperations():
		built, err := c.validator.build(target, column, store)
		if err != nil {
			return nil, err
		}
		added = built
	default:
		if store.HasColumn(target, column.ID) {
			return nil, duplicateColumn(target, column.Name)
		}
		added = entry
	}

	next := store.Clone()
	next.remove(source, entryID)
	next.insert(target, added)

	return &Transfer{
		Source:  source,
		Target:  target,
		Removed: entry,
		Added:   added,
		Store:   next,
	}, nil
}

// DragEnded handles the end of a drag of entryID that started in zone. When a
// drop of the same drag already handled the entry nothing changes. Otherwise
// an entry released outside every zone is removed. Every drag-end clears the
// markers. The returned store is nil when nothing changed.
func (c *Coordinator) DragEnded(store *Store, zone Zone, entryID string, outside bool) *Store {
	source, ok := c.handled[entryID]
	c.Reset()
	if ok && source == zone {
		return nil
	}
	if !outside {
		return nil
	}
	if _, ok := store.Find(zone, entryID); !ok {
		return nil
	}
	next := store.Clone()
	next.remove(zone, entryID)
	return next
}

// Handled reports whether entryID has an unconsumed drop marker.
func (c *Coordinator) Handled(entryID string) bool {
	_, ok := c.handled[entryID]
	return ok
}

// Reset forgets every in-flight marker.
func (c *Coordinator) Reset() {
	c.handled = make(map[string]Zone)
}

// movable reports whether source and target belong to the same family.
// Filters and Sort entries never relocate.
func movable(source, target Zone) bool {
	if source.IsPivot() && target.IsPivot() {
		return true
	}
	return source.IsAggregation() && target.IsAggregation()
}

func dimensionZonesLabel(z Zone) string {
	if z == ZoneMetrics {
		return ZoneGroupBy.Label()
	}
	return "Rows, Columns or Pivot Filters"
}

// resolve rebuilds the column an entry refers to, preferring the catalog.
func (c *Coordinator) resolve(e Entry) common_models.Column {
	if c.columns != nil {
		if col, ok := c.columns.Lookup(e.ColumnKey()); ok {
			return col
		}
	}

	col := common_models.Column{ID: e.ColumnKey(), Name: e.ColumnKey(), Type: common_models.FieldTypeText}
	switch v := e.(type) {
	case PivotDimension:
		col.Name = v.Name
		if v.ColumnType.Valid() {
			col.Type = v.ColumnType
		}
	case PivotValue:
		col.Name = v.Name
	case GroupByColumn:
		col.Name = v.Name
		if v.TimeUnit != "" {
			col.Type = common_models.FieldTypeDate
		}
	}
	return col
}

func (c *Coordinator) displayName(e Entry) string {
	return c.resolve(e).Name
}
