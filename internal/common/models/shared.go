package models

import (
	"time"
)

type ContextKey string

const (
	SessionIDKey ContextKey = "session_id"
)

// Field Definitions
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
)

// Valid reports whether t is one of the supported column types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeDate:
		return true
	}
	return false
}

// Column is a single dataset column as seen by the configuration engine.
// ID is the stable join key used by every zone entry.
type Column struct {
	ID         string    `json:"id" bson:"id"`
	Name       string    `json:"name" bson:"name"`
	Type       FieldType `json:"type" bson:"type"`
	DateFormat string    `json:"date_format,omitempty" bson:"date_format,omitempty"`
}

// Catalog is a read-only lookup of columns by id, in dataset order.
type Catalog struct {
	columns []Column
	byID    map[string]int
}

func NewCatalog(columns []Column) *Catalog {
	c := &Catalog{
		columns: make([]Column, len(columns)),
		byID:    make(map[string]int, len(columns)),
	}
	copy(c.columns, columns)
	for i, col := range c.columns {
		c.byID[col.ID] = i
	}
	return c
}

// Lookup returns the column with the given id.
func (c *Catalog) Lookup(id string) (Column, bool) {
	if c == nil {
		return Column{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Column{}, false
	}
	return c.columns[i], true
}

// Columns returns a copy of the catalog columns.
func (c *Catalog) Columns() []Column {
	if c == nil {
		return nil
	}
	out := make([]Column, len(c.columns))
	copy(out, c.columns)
	return out
}

// NameOf returns the display name of a column, falling back to its id.
func (c *Catalog) NameOf(id string) string {
	if col, ok := c.Lookup(id); ok && col.Name != "" {
		return col.Name
	}
	return id
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	SessionID    string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	AppId        string    `bson:"app_id" json:"app_id"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
