package domain

import "testing"

func TestAssembleBoardGroupsAndSorts(t *testing.T) {
	columns := []Column{
		{ID: "done", Title: "Done", Order: 3000},
		{ID: "todo", Title: "Todo", Order: 1000},
		{ID: "doing", Title: "Doing", Order: 2000},
	}
	tasks := []Task{
		{ID: "t2", ColumnID: "todo", Order: 2000},
		{ID: "t1", ColumnID: "todo", Order: 1000},
		{ID: "t3", ColumnID: "done", Order: 500},
	}

	board := AssembleBoard(columns, tasks)

	if len(board.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(board.Columns))
	}
	order := []string{"todo", "doing", "done"}
	for i, id := range order {
		if board.Columns[i].ID != id {
			t.Fatalf("expected column %q at %d, got %q", id, i, board.Columns[i].ID)
		}
	}
	todo := board.Columns[0].Tasks
	if len(todo) != 2 || todo[0].ID != "t1" || todo[1].ID != "t2" {
		t.Fatalf("unexpected todo tasks: %#v", todo)
	}
	if doing := board.Columns[1].Tasks; doing == nil || len(doing) != 0 {
		t.Fatalf("expected empty non-nil task list, got %#v", doing)
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	board := AssembleBoard(
		[]Column{{ID: "todo", Order: 1000}, {ID: "done", Order: 2000}},
		[]Task{{ID: "t1", ColumnID: "todo", Order: 1000}, {ID: "t2", ColumnID: "done", Order: 1000}},
	)
	columns, tasks := board.Flatten()
	if len(columns) != 2 || len(tasks) != 2 {
		t.Fatalf("unexpected flatten sizes: %d columns %d tasks", len(columns), len(tasks))
	}
	if columns[0].ID != "todo" || tasks[0].ID != "t1" {
		t.Fatalf("unexpected flatten contents: %#v %#v", columns, tasks)
	}
}
