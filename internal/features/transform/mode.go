package transform

type Mode string

const (
	ModeNeutral     Mode = "neutral"
	ModeAggregation Mode = "aggregation"
	ModePivot       Mode = "pivot"
)

func (m Mode) Valid() bool {
	return m == ModeNeutral || m == ModeAggregation || m == ModePivot
}

// ModeOf derives the current mode from the store contents.
func ModeOf(s *Store) Mode {
	switch {
	case s.HasAggregation():
		return ModeAggregation
	case s.HasPivot():
		return ModePivot
	default:
		return ModeNeutral
	}
}

// ModeOfZone returns the mode a zone belongs to. Filters and Sort are neutral.
func ModeOfZone(z Zone) Mode {
	switch {
	case z.IsAggregation():
		return ModeAggregation
	case z.IsPivot():
		return ModePivot
	default:
		return ModeNeutral
	}
}

// CheckMode rejects assignments into a zone whose mode conflicts with the
// mode currently held by the store.
func CheckMode(s *Store, zone Zone) error {
	if zone.IsAggregation() && s.HasPivot() {
		return reject(ErrModeConflict, zone, "Pivot configuration is active; clear it to use %s", zone.Label())
	}
	if zone.IsPivot() && s.HasAggregation() {
		return reject(ErrModeConflict, zone, "Aggregation configuration is active; clear it to use %s", zone.Label())
	}
	return nil
}

// PendingSwitch is a deferred cross-mode transition waiting for confirmation.
// Zone and ColumnID are set when an assignment triggered the switch.
type PendingSwitch struct {
	Target   Mode   `json:"target"`
	Zone     Zone   `json:"zone,omitempty"`
	ColumnID string `json:"column_id,omitempty"`
}

// Guard holds at most one pending mode switch.
type Guard struct {
	pending *PendingSwitch
}

func NewGuard() *Guard {
	return &Guard{}
}

// Pending returns a copy of the held switch, or nil.
func (g *Guard) Pending() *PendingSwitch {
	if g.pending == nil {
		return nil
	}
	p := *g.pending
	return &p
}

// Request records a pending switch to target when the store is in the other
// exclusive mode. It returns false when no confirmation is needed.
func (g *Guard) Request(s *Store, target Mode, zone Zone, columnID string) (*PendingSwitch, bool) {
	current := ModeOf(s)
	if target == ModeNeutral || current == ModeNeutral || current == target {
		return nil, false
	}
	g.pending = &PendingSwitch{Target: target, Zone: zone, ColumnID: columnID}
	return g.Pending(), true
}

// Confirm clears every entry of the outgoing mode from s and returns the
// switch that was pending. s is mutated; callers pass a clone.
func (g *Guard) Confirm(s *Store) (*PendingSwitch, error) {
	if g.pending == nil {
		return nil, ErrNoPendingSwitch
	}
	p := g.pending
	g.pending = nil

	switch p.Target {
	case ModePivot:
		ClearAggregation(s)
	case ModeAggregation:
		ClearPivot(s)
	}
	return p, nil
}

// Cancel drops the pending switch. It reports whether one was held.
func (g *Guard) Cancel() bool {
	held := g.pending != nil
	g.pending = nil
	return held
}

// ClearAggregation empties Group By and Metrics.
func ClearAggregation(s *Store) {
	s.clear(ZoneGroupBy)
	s.clear(ZoneMetrics)
}

// ClearPivot empties the four pivot zones. PivotAutoSelect is kept.
func ClearPivot(s *Store) {
	s.clear(ZonePivotRows)
	s.clear(ZonePivotColumns)
	s.clear(ZonePivotValues)
	s.clear(ZonePivotFilters)
}
