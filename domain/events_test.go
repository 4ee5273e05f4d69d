package domain

import (
	"errors"
	"testing"
)

func TestEventWireRoundTrip(t *testing.T) {
	ev, err := NewEvent(TaskDeleted, TaskDeletedData{ID: "t1"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	ev.ID = "42"
	raw, err := ev.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := UnmarshalWire(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Type != TaskDeleted || parsed.ID != "42" {
		t.Fatalf("unexpected envelope: %+v", parsed)
	}
	data, err := parsed.DecodeData()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d, ok := data.(TaskDeletedData); !ok || d.ID != "t1" {
		t.Fatalf("unexpected payload: %#v", data)
	}
}

func TestNestedEnvelopeUnwrap(t *testing.T) {
	inner, err := NewEvent(ColumnDeleted, ColumnDeletedData{ID: "c1", UserID: "user"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	outer, err := Nested(inner)
	if err != nil {
		t.Fatalf("nest: %v", err)
	}
	if outer.Type != BoardEnvelope {
		t.Fatalf("expected board envelope, got %q", outer.Type)
	}
	outer.ID = "99"

	unwrapped, err := outer.Unwrap()
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if unwrapped.Type != ColumnDeleted {
		t.Fatalf("unexpected inner type %q", unwrapped.Type)
	}
	if unwrapped.ID != "99" {
		t.Fatalf("expected inner to inherit envelope id, got %q", unwrapped.ID)
	}
}

func TestUnwrapFlatEventIsIdentity(t *testing.T) {
	ev, _ := NewEvent(TaskMoved, TaskMovedData{ID: "t1", ColumnID: "c2", PreviousColumnID: "c1"})
	ev.ID = "7"
	got, err := ev.Unwrap()
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if got.Type != TaskMoved || got.ID != "7" {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestDecodeDataNestedEnvelope(t *testing.T) {
	inner, _ := NewEvent(ColumnCreated, ColumnCreatedData{Column: Column{ID: "c1", Title: "Todo"}})
	outer, _ := Nested(inner)
	data, err := outer.DecodeData()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d, ok := data.(ColumnCreatedData); !ok || d.Column.ID != "c1" {
		t.Fatalf("unexpected payload: %#v", data)
	}
}

func TestDecodeDataUnknownType(t *testing.T) {
	ev := Event{Type: "task.exploded", Data: []byte(`{}`)}
	_, err := ev.DecodeData()
	var unknown UnknownEventTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEventTypeError, got %v", err)
	}
	if unknown.Type != "task.exploded" {
		t.Fatalf("unexpected type in error: %q", unknown.Type)
	}
}

func TestDecodeDataPartialPatch(t *testing.T) {
	title := "renamed"
	ev, _ := NewEvent(TaskUpdated, TaskUpdatedData{ID: "t1", Title: &title})
	data, err := ev.DecodeData()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	d, ok := data.(TaskUpdatedData)
	if !ok {
		t.Fatalf("unexpected payload: %#v", data)
	}
	if d.Title == nil || *d.Title != "renamed" {
		t.Fatalf("expected title patch to survive, got %#v", d.Title)
	}
	if d.Description != nil || d.Order != nil || d.AssigneeID != nil {
		t.Fatalf("expected untouched fields to stay nil: %#v", d)
	}
}
