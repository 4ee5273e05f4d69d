package client

import (
	"reflect"
	"testing"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

func seededCache() *BoardCache {
	cache := NewBoardCache()
	cache.Load(domain.AssembleBoard(
		[]domain.Column{
			{ID: "todo", Title: "Todo", Order: 1000},
			{ID: "doing", Title: "Doing", Order: 2000},
		},
		[]domain.Task{
			{ID: "t1", Title: "first", ColumnID: "todo", Order: 1000},
			{ID: "t2", Title: "second", ColumnID: "todo", Order: 2000},
		},
	))
	return cache
}

func mustEvent(t *testing.T, eventType string, data any) domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(eventType, data)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return ev
}

func TestApplyTaskCreated(t *testing.T) {
	cache := seededCache()
	ev := mustEvent(t, domain.TaskCreated, domain.TaskCreatedData{
		Task: domain.Task{ID: "t3", Title: "third", ColumnID: "doing", Order: 1000},
	})

	refetch, err := cache.Apply(ev)
	if err != nil || refetch {
		t.Fatalf("unexpected apply result: refetch=%v err=%v", refetch, err)
	}
	if _, ok := cache.Task("t3"); !ok {
		t.Fatal("expected task inserted")
	}

	// Redelivery of the same event is a no-op.
	if _, err := cache.Apply(ev); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if got := len(cache.Tasks()); got != 3 {
		t.Fatalf("expected 3 tasks after redelivery, got %d", got)
	}
}

func TestApplyTaskUpdatedPatchesKnownFields(t *testing.T) {
	cache := seededCache()
	title := "renamed"
	order := 500
	ev := mustEvent(t, domain.TaskUpdated, domain.TaskUpdatedData{ID: "t1", Title: &title, Order: &order})

	if _, err := cache.Apply(ev); err != nil {
		t.Fatalf("apply: %v", err)
	}
	task, _ := cache.Task("t1")
	if task.Title != "renamed" || task.Order != 500 {
		t.Fatalf("patch not applied: %#v", task)
	}
	if task.ColumnID != "todo" {
		t.Fatalf("untouched field mutated: %#v", task)
	}
}

func TestApplyTaskUpdatedUnknownIDIgnored(t *testing.T) {
	cache := seededCache()
	title := "ghost"
	ev := mustEvent(t, domain.TaskUpdated, domain.TaskUpdatedData{ID: "missing", Title: &title})
	if _, err := cache.Apply(ev); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := cache.Task("missing"); ok {
		t.Fatal("patch must not create tasks")
	}
}

func TestApplyTaskMovedChangesColumnOnly(t *testing.T) {
	cache := seededCache()
	ev := mustEvent(t, domain.TaskMoved, domain.TaskMovedData{ID: "t1", ColumnID: "doing", PreviousColumnID: "todo"})
	if _, err := cache.Apply(ev); err != nil {
		t.Fatalf("apply: %v", err)
	}
	task, _ := cache.Task("t1")
	if task.ColumnID != "doing" || task.Order != 1000 {
		t.Fatalf("unexpected task after move: %#v", task)
	}
}

func TestApplyReorderSignalsRefetch(t *testing.T) {
	cache := seededCache()
	for _, ev := range []domain.Event{
		mustEvent(t, domain.TasksReordered, domain.TasksReorderedData{TaskIDs: []string{"t2", "t1"}}),
		mustEvent(t, domain.ColumnReordered, domain.ColumnsReorderedData{ColumnIDs: []string{"doing", "todo"}, UserID: "u"}),
		mustEvent(t, domain.TaskReordered, domain.TaskReorderedData{ID: "t1", Order: 3}),
	} {
		refetch, err := cache.Apply(ev)
		if err != nil {
			t.Fatalf("apply %s: %v", ev.Type, err)
		}
		if !refetch {
			t.Fatalf("expected refetch signal for %s", ev.Type)
		}
	}
}

func TestApplyNestedColumnEvents(t *testing.T) {
	cache := seededCache()
	inner := mustEvent(t, domain.ColumnDeleted, domain.ColumnDeletedData{ID: "doing", UserID: "u"})
	outer, err := domain.Nested(inner)
	if err != nil {
		t.Fatalf("nest: %v", err)
	}

	if _, err := cache.Apply(outer); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := cache.Column("doing"); ok {
		t.Fatal("expected column removed from envelope event")
	}
}

func TestApplyColumnDeletedDropsOrphanTasks(t *testing.T) {
	cache := seededCache()
	ev := mustEvent(t, domain.ColumnDeleted, domain.ColumnDeletedData{ID: "todo", UserID: "u"})
	if _, err := cache.Apply(ev); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := len(cache.Tasks()); got != 0 {
		t.Fatalf("expected orphaned tasks removed, got %d", got)
	}
}

func TestApplyUnknownTypeReturnsError(t *testing.T) {
	cache := seededCache()
	ev := domain.Event{Type: "board.exploded", Data: []byte(`{}`)}
	if _, err := cache.Apply(ev); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	// State untouched.
	if got := len(cache.Tasks()); got != 2 {
		t.Fatalf("cache mutated by unknown event, %d tasks", got)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	cache := seededCache()
	before := cache.Snapshot()

	cache.RemoveTask("t1")
	cache.PutColumn(domain.Column{ID: "done", Order: 3000})
	title := "mutated"
	cache.patchTask(domain.TaskUpdatedData{ID: "t2", Title: &title})

	cache.Restore(before)

	if _, ok := cache.Task("t1"); !ok {
		t.Fatal("expected removed task restored")
	}
	if _, ok := cache.Column("done"); ok {
		t.Fatal("expected added column rolled back")
	}
	task, _ := cache.Task("t2")
	if task.Title != "second" {
		t.Fatalf("expected patch rolled back, got %q", task.Title)
	}

	after := cache.Snapshot()
	if !reflect.DeepEqual(before.columns, after.columns) || !reflect.DeepEqual(before.tasks, after.tasks) {
		t.Fatal("restore did not reproduce snapshot state")
	}
}

func TestColumnTasksSorted(t *testing.T) {
	cache := seededCache()
	cache.PutTask(domain.Task{ID: "t0", ColumnID: "todo", Order: 500})
	tasks := cache.ColumnTasks("todo")
	if len(tasks) != 3 || tasks[0].ID != "t0" || tasks[2].ID != "t2" {
		t.Fatalf("unexpected ordering: %#v", tasks)
	}
}
