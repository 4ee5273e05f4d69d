package domain

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Event types pushed over the board stream. Column events arrive nested in a
// Board envelope, task events arrive flat; decoders handle both shapes.
const (
	TaskCreated    = "task.created"
	TaskUpdated    = "task.updated"
	TaskDeleted    = "task.deleted"
	TaskMoved      = "task.moved"
	TaskReordered  = "task.reordered"
	TasksReordered = "tasks.reordered"

	ColumnCreated   = "column.created"
	ColumnUpdated   = "column.updated"
	ColumnDeleted   = "column.deleted"
	ColumnReordered = "column.reordered"

	// BoardEnvelope carries another event in its data field.
	BoardEnvelope = "board"

	// ConnectionEstablished is the synthetic event pushed to a subscriber
	// right after its connection is registered.
	ConnectionEstablished = "connection"

	// TopicWildcard subscribes a connection to every event type.
	TopicWildcard = "*"
)

// Event is the wire envelope for a single stream message. ID is a
// wall-clock-derived token, monotonic within a process. Events are never
// persisted; delivery is best-effort to currently connected subscribers.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   string          `json:"id,omitempty"`
}

type TaskCreatedData struct {
	Task Task `json:"task"`
}

// TaskUpdatedData is a partial patch; nil fields were not touched.
type TaskUpdatedData struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
}

type TaskDeletedData struct {
	ID string `json:"id"`
}

type TaskMovedData struct {
	ID               string `json:"id"`
	ColumnID         string `json:"columnId"`
	PreviousColumnID string `json:"previousColumnId"`
}

type TaskReorderedData struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type TasksReorderedData struct {
	TaskIDs []string `json:"taskIds"`
}

type ColumnCreatedData struct {
	Column Column `json:"column"`
}

// ColumnUpdatedData is a partial patch; nil fields were not touched.
type ColumnUpdatedData struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

type ColumnDeletedData struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

type ColumnsReorderedData struct {
	ColumnIDs []string `json:"columnIds"`
	UserID    string   `json:"userId"`
}

type ConnectionData struct {
	ConnectionID string   `json:"connectionId"`
	Topics       []string `json:"topics"`
}

// UnknownEventTypeError marks event types this build does not understand.
// Consumers log and skip these; they must never abort a subscription.
type UnknownEventTypeError struct {
	Type string
}

func (e UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// MarshalWire serializes the event for the stream transport.
func (e Event) MarshalWire() ([]byte, error) {
	return sonic.Marshal(e)
}

// UnmarshalWire parses a stream message into an event envelope.
func UnmarshalWire(raw []byte) (Event, error) {
	var ev Event
	err := sonic.Unmarshal(raw, &ev)
	return ev, err
}

// NewEvent marshals data into an event envelope. The ID is assigned by the
// channel at emit time.
func NewEvent(eventType string, data any) (Event, error) {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw}, nil
}

// Nested wraps inner into a board envelope event.
func Nested(inner Event) (Event, error) {
	raw, err := sonic.Marshal(inner)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: BoardEnvelope, Data: raw}, nil
}

// Unwrap returns the inner event of a board envelope, or the event itself
// when it is already flat.
func (e Event) Unwrap() (Event, error) {
	if e.Type != BoardEnvelope {
		return e, nil
	}
	var inner Event
	if err := sonic.Unmarshal(e.Data, &inner); err != nil {
		return Event{}, err
	}
	if inner.ID == "" {
		inner.ID = e.ID
	}
	return inner, nil
}

// DecodeData decodes the payload into the shape keyed by the event's type.
// New event types force a compile-time update here, keeping consumers
// exhaustive.
func (e Event) DecodeData() (any, error) {
	switch e.Type {
	case TaskCreated:
		return decodeAs[TaskCreatedData](e.Data)
	case TaskUpdated:
		return decodeAs[TaskUpdatedData](e.Data)
	case TaskDeleted:
		return decodeAs[TaskDeletedData](e.Data)
	case TaskMoved:
		return decodeAs[TaskMovedData](e.Data)
	case TaskReordered:
		return decodeAs[TaskReorderedData](e.Data)
	case TasksReordered:
		return decodeAs[TasksReorderedData](e.Data)
	case ColumnCreated:
		return decodeAs[ColumnCreatedData](e.Data)
	case ColumnUpdated:
		return decodeAs[ColumnUpdatedData](e.Data)
	case ColumnDeleted:
		return decodeAs[ColumnDeletedData](e.Data)
	case ColumnReordered:
		return decodeAs[ColumnsReorderedData](e.Data)
	case ConnectionEstablished:
		return decodeAs[ConnectionData](e.Data)
	case BoardEnvelope:
		inner, err := e.Unwrap()
		if err != nil {
			return nil, err
		}
		return inner.DecodeData()
	default:
		return nil, UnknownEventTypeError{Type: e.Type}
	}
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	err := sonic.Unmarshal(raw, &v)
	return v, err
}
