package client

import (
	"context"
	"testing"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

func TestDragStartResolvesKind(t *testing.T) {
	s, _, _ := startServer(t)
	d := NewDragController(s, quietLogger())

	if !d.Start("t1") {
		t.Fatal("expected task drag to start")
	}
	if id, kind := d.Active(); id != "t1" || kind != DragTask {
		t.Fatalf("unexpected drag state: %s %d", id, kind)
	}

	if !d.Start("todo") {
		t.Fatal("expected column drag to start")
	}
	if _, kind := d.Active(); kind != DragColumn {
		t.Fatalf("expected column kind, got %d", kind)
	}

	if d.Start("ghost") {
		t.Fatal("unknown id must not start a drag")
	}
	if id, kind := d.Active(); id != "" || kind != DragNone {
		t.Fatalf("failed start must clear state: %q %d", id, kind)
	}
}

func TestDragColumnReorder(t *testing.T) {
	s, store, _ := startServer(t)
	d := NewDragController(s, quietLogger())
	ctx := context.Background()

	d.Start("doing")
	if err := d.Drop(ctx, "todo"); err != nil {
		t.Fatalf("drop: %v", err)
	}

	columns := s.Cache().Columns()
	if columns[0].ID != "doing" || columns[1].ID != "todo" {
		t.Fatalf("unexpected column order: %#v", columns)
	}
	persisted, _ := store.GetColumn(ctx, "doing")
	if persisted.Order != 1000 {
		t.Fatalf("server order mismatch: %d", persisted.Order)
	}
	if _, kind := d.Active(); kind != DragNone {
		t.Fatal("drag state must clear after drop")
	}
}

func TestDragSameColumnReorderUsesMidpoint(t *testing.T) {
	s, store, _ := startServer(t)
	d := NewDragController(s, quietLogger())
	ctx := context.Background()

	// t1 (order 1000) dragged over t2 (order 2000) in the same column lands
	// at the midpoint of the surrounding pair.
	d.Start("t1")
	if err := d.Drop(ctx, "t2"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	persisted, _ := store.GetTask(ctx, "t1")
	if persisted.Order != 1500 {
		t.Fatalf("expected midpoint order 1500, got %d", persisted.Order)
	}
	if persisted.ColumnID != "todo" {
		t.Fatalf("same-column reorder must not move the task: %q", persisted.ColumnID)
	}
}

func TestDragDropOnEmptyColumnAppends(t *testing.T) {
	s, store, _ := startServer(t)
	d := NewDragController(s, quietLogger())
	ctx := context.Background()

	d.Start("t1")
	if err := d.Drop(ctx, "doing"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	persisted, _ := store.GetTask(ctx, "t1")
	if persisted.ColumnID != "doing" || persisted.Order != 1000 {
		t.Fatalf("unexpected task after drop: %#v", persisted)
	}
}

func TestDragCrossColumnOverTask(t *testing.T) {
	s, store, _ := startServer(t)
	ctx := context.Background()
	store.tasks["t3"] = domain.Task{ID: "t3", Title: "third", ColumnID: "doing", Order: 1000}
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	d := NewDragController(s, quietLogger())

	// Dropping t1 over t3 inserts before it: half of the first order.
	d.Start("t1")
	if err := d.Drop(ctx, "t3"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	persisted, _ := store.GetTask(ctx, "t1")
	if persisted.ColumnID != "doing" || persisted.Order != 500 {
		t.Fatalf("unexpected task after cross-column drop: %#v", persisted)
	}
}

func TestDragSelfDropIsNoOp(t *testing.T) {
	s, store, _ := startServer(t)
	d := NewDragController(s, quietLogger())
	ctx := context.Background()

	d.Start("t1")
	if err := d.Drop(ctx, "t1"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	persisted, _ := store.GetTask(ctx, "t1")
	if persisted.Order != 1000 || persisted.ColumnID != "todo" {
		t.Fatalf("self drop must change nothing: %#v", persisted)
	}
}

func TestDragFailureClearsStateAndRollsBack(t *testing.T) {
	s, store, _ := startServer(t)
	d := NewDragController(s, quietLogger())
	ctx := context.Background()
	store.failTaskUpdates = true

	d.Start("t1")
	if err := d.Drop(ctx, "t2"); err == nil {
		t.Fatal("expected drop failure")
	}
	if _, kind := d.Active(); kind != DragNone {
		t.Fatal("drag state must clear after failed drop")
	}
	cached, _ := s.Cache().Task("t1")
	if cached.Order != 1000 {
		t.Fatalf("expected optimistic change rolled back, got order %d", cached.Order)
	}
}

func TestDragOverComputesPreview(t *testing.T) {
	s, _, _ := startServer(t)
	d := NewDragController(s, quietLogger())

	d.Start("t1")
	d.Over("t2")
	preview, ok := d.Preview()
	if !ok {
		t.Fatal("expected preview after hover")
	}
	if preview.ContainerID != "todo" || preview.Index != 1 || preview.Order != 1500 {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	// Hovering an empty foreign column previews an append.
	d.Over("doing")
	preview, _ = d.Preview()
	if preview.ContainerID != "doing" || preview.Index != 0 || preview.Order != 1000 {
		t.Fatalf("unexpected append preview: %+v", preview)
	}

	d.Cancel()
	if _, ok := d.Preview(); ok {
		t.Fatal("cancel must clear preview")
	}
}

func TestDragCancelKeepsBoardIntact(t *testing.T) {
	s, store, _ := startServer(t)
	d := NewDragController(s, quietLogger())

	d.Start("t1")
	d.Over("t2")
	d.Cancel()

	persisted, _ := store.GetTask(context.Background(), "t1")
	if persisted.Order != 1000 || persisted.ColumnID != "todo" {
		t.Fatalf("cancel must not mutate anything: %#v", persisted)
	}
}
