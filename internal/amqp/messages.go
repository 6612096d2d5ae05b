package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensedocs/internal/core"
)

// EventKind separates data changes from auth transitions on the feed.
type EventKind string

const (
	KindChange EventKind = "change"
	KindAuth   EventKind = "auth"
)

// Operation names a mutation of a table or the bucket.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpUpload Operation = "upload"
)

// Event is one entry of the audit feed. It carries identifiers only; readers
// fetch the record itself if they need it.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Table     string         `json:"table,omitempty"`
	Operation Operation      `json:"operation,omitempty"`
	RecordID  string         `json:"record_id,omitempty"`
	AuthEvent core.AuthEvent `json:"auth_event,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewChangeEvent describes a successful mutation of table.
func NewChangeEvent(table string, op Operation, recordID string) *Event {
	return &Event{
		Kind:      KindChange,
		Table:     table,
		Operation: op,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthEvent describes an auth transition. session may be nil.
func NewAuthEvent(event core.AuthEvent, session *core.Session) *Event {
	e := &Event{
		Kind:      KindAuth,
		AuthEvent: event,
		Timestamp: time.Now().UTC(),
	}
	if session != nil {
		e.UserID = session.User.ID
	}
	return e
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects unknown kinds.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindChange, KindAuth:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return &e, nil
}

// LogArgs lists the populated fields as slog key/value pairs.
func (e *Event) LogArgs() []any {
	args := []any{"kind", e.Kind}
	if e.Kind == KindAuth {
		return append(args, "auth_event", e.AuthEvent, "user_id", e.UserID)
	}
	return append(args, "table", e.Table, "operation", e.Operation, "record_id", e.RecordID)
}
