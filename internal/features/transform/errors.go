package transform

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicate          = errors.New("duplicate assignment")
	ErrOperationExhausted = errors.New("operations exhausted")
	ErrModeConflict       = errors.New("mode conflict")
	ErrUnsupportedMove    = errors.New("unsupported move")
	ErrSameZone           = errors.New("source and target zone are the same")
	ErrColumnNotFound     = errors.New("column not found")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrMalformedImport    = errors.New("malformed import")
	ErrNoPendingSwitch    = errors.New("no pending mode switch")
)

// Rejection is a recoverable refusal to change the store. Message is meant
// for the user; the wrapped kind is matched with errors.Is.
type Rejection struct {
	Kind    error
	Zone    Zone
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

func reject(kind error, zone Zone, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Zone: zone, Message: fmt.Sprintf(format, args...)}
}

func duplicateColumn(zone Zone, name string) *Rejection {
	return reject(ErrDuplicate, zone, "Column %q already exists in %s", name, zone.Label())
}

// IsRejection reports whether err is a user-facing rejection and returns it.
func IsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
