package session

import (
	"errors"
	"time"

	"go-viz/internal/features/chart"
	"go-viz/internal/features/transform"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Session is the persisted snapshot of one chart editor.
type Session struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	DatasetID string             `json:"dataset_id" bson:"dataset_id"`
	ChartType chart.ChartType    `json:"chart_type" bson:"chart_type"`
	Binding   chart.Binding      `json:"binding" bson:"binding"`
	Store     *transform.Store   `json:"store" bson:"store"`
	CreatedBy string             `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// SessionView is the live state of a session as returned by the API.
type SessionView struct {
	Session
	Mode    transform.Mode           `json:"mode"`
	Pending *transform.PendingSwitch `json:"pending,omitempty"`
}

// ConflictError is returned when an action was deferred pending a mode
// switch confirmation.
type ConflictError struct {
	Pending *transform.PendingSwitch
	Err     error
}

func (e *ConflictError) Error() string {
	return e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

type CreateSessionRequest struct {
	Name      string          `json:"name"`
	DatasetID string          `json:"dataset_id"`
	ChartType chart.ChartType `json:"chart_type"`
}

type AssignRequest struct {
	Zone     transform.Zone `json:"zone"`
	ColumnID string         `json:"column_id"`
}

type MoveRequest struct {
	Source  transform.Zone `json:"source"`
	Target  transform.Zone `json:"target"`
	EntryID string         `json:"entry_id"`
}

type DragEndRequest struct {
	Zone    transform.Zone `json:"zone"`
	EntryID string         `json:"entry_id"`
	Outside bool           `json:"outside"`
}

type SortMoveRequest struct {
	Direction string `json:"direction"` // up | down
}

type SortDirectionRequest struct {
	Direction transform.SortDirection `json:"direction"`
}

// EntryUpdateRequest changes one or more settings of a zone entry. Only the
// fields that are set are applied.
type EntryUpdateRequest struct {
	AggregationType *transform.AggregationType `json:"aggregation_type,omitempty"`
	Alias           *string                    `json:"alias,omitempty"`
	TimeUnit        *transform.TimeUnit        `json:"time_unit,omitempty"`
}

type ModeRequest struct {
	Mode transform.Mode `json:"mode"`
}

type ChartTypeRequest struct {
	ChartType chart.ChartType `json:"chart_type"`
}

type AutoSelectRequest struct {
	Enabled bool `json:"enabled"`
}

// Message is pushed to websocket subscribers of a session.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   any         `json:"payload"`
}

type MessageType string

const (
	MessageBinding           MessageType = "binding"
	MessageRejection         MessageType = "rejection"
	MessageModeSwitchPending MessageType = "mode_switch_pending"
	MessageStore             MessageType = "store"
)

// RejectionPayload describes a refused change to websocket subscribers.
type RejectionPayload struct {
	Kind    string         `json:"kind"`
	Zone    transform.Zone `json:"zone,omitempty"`
	Message string         `json:"message"`
}
