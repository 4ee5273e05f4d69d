package domain

import (
	"sort"
	"time"
)

// Column is a lane on the board. Order values need not be contiguous;
// only their relative ordering matters.
type Column struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedBy   string    `json:"createdById,omitempty"`
}

// Assignee carries the display fields of the user a task is assigned to.
type Assignee struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Task belongs to exactly one column at a time. Order is unique only in its
// ordering meaning within a column; tasks in different columns may share a
// value.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ColumnID    string    `json:"columnId"`
	Order       int       `json:"order"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	Assignee    *Assignee `json:"assignee,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BoardColumn is a column with its tasks grouped in, the nested wire shape
// returned by the board query.
type BoardColumn struct {
	Column
	Tasks []Task `json:"tasks"`
}

// Board is a computed view over all columns and tasks. It has no identity of
// its own; it lives for the duration of the query that assembled it.
type Board struct {
	Columns []BoardColumn `json:"columns"`
}

// TaskDraft is the output of the AI drafting collaborator.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AssembleBoard groups tasks by column and returns the nested board view.
// Columns and tasks come out sorted ascending by order.
func AssembleBoard(columns []Column, tasks []Task) Board {
	byColumn := make(map[string][]Task, len(columns))
	for _, t := range tasks {
		byColumn[t.ColumnID] = append(byColumn[t.ColumnID], t)
	}

	sorted := make([]Column, len(columns))
	copy(sorted, columns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	board := Board{Columns: make([]BoardColumn, 0, len(sorted))}
	for _, col := range sorted {
		group := byColumn[col.ID]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Order < group[j].Order })
		if group == nil {
			group = []Task{}
		}
		board.Columns = append(board.Columns, BoardColumn{Column: col, Tasks: group})
	}
	return board
}

// Flatten splits the nested board view back into column and task lists, the
// shape the client cache works with.
func (b Board) Flatten() ([]Column, []Task) {
	columns := make([]Column, 0, len(b.Columns))
	var tasks []Task
	for _, bc := range b.Columns {
		columns = append(columns, bc.Column)
		tasks = append(tasks, bc.Tasks...)
	}
	return columns, tasks
}
