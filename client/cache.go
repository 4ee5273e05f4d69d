package client

import (
	"sort"
	"sync"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// BoardCache is an id-indexed copy of the board state. Mutations and event
// reducers patch it in place; snapshots support rollback of optimistic
// updates.
type BoardCache struct {
	mu      sync.Mutex
	columns map[string]domain.Column
	tasks   map[string]domain.Task
	loaded  bool
}

// Snapshot is an opaque copy of the cache state taken before an optimistic
// mutation.
type Snapshot struct {
	columns map[string]domain.Column
	tasks   map[string]domain.Task
	loaded  bool
}

func NewBoardCache() *BoardCache {
	return &BoardCache{
		columns: make(map[string]domain.Column),
		tasks:   make(map[string]domain.Task),
	}
}

// Load replaces the cache contents with a freshly fetched board.
func (bc *BoardCache) Load(board domain.Board) {
	columns, tasks := board.Flatten()
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.columns = make(map[string]domain.Column, len(columns))
	for _, col := range columns {
		bc.columns[col.ID] = col
	}
	bc.tasks = make(map[string]domain.Task, len(tasks))
	for _, task := range tasks {
		bc.tasks[task.ID] = task
	}
	bc.loaded = true
}

// Loaded reports whether the cache holds a fetched board.
func (bc *BoardCache) Loaded() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.loaded
}

// Snapshot copies the current state for later rollback.
func (bc *BoardCache) Snapshot() Snapshot {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	snap := Snapshot{
		columns: make(map[string]domain.Column, len(bc.columns)),
		tasks:   make(map[string]domain.Task, len(bc.tasks)),
		loaded:  bc.loaded,
	}
	for id, col := range bc.columns {
		snap.columns[id] = col
	}
	for id, task := range bc.tasks {
		snap.tasks[id] = task
	}
	return snap
}

// Restore rolls the cache back to a snapshot.
func (bc *BoardCache) Restore(snap Snapshot) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.columns = make(map[string]domain.Column, len(snap.columns))
	for id, col := range snap.columns {
		bc.columns[id] = col
	}
	bc.tasks = make(map[string]domain.Task, len(snap.tasks))
	for id, task := range snap.tasks {
		bc.tasks[id] = task
	}
	bc.loaded = snap.loaded
}

// Columns returns all columns sorted by order.
func (bc *BoardCache) Columns() []domain.Column {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	columns := make([]domain.Column, 0, len(bc.columns))
	for _, col := range bc.columns {
		columns = append(columns, col)
	}
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Order < columns[j].Order
	})
	return columns
}

// Tasks returns all tasks sorted by order.
func (bc *BoardCache) Tasks() []domain.Task {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	tasks := make([]domain.Task, 0, len(bc.tasks))
	for _, task := range bc.tasks {
		tasks = append(tasks, task)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Order < tasks[j].Order
	})
	return tasks
}

// ColumnTasks returns the tasks of one column sorted by order.
func (bc *BoardCache) ColumnTasks(columnID string) []domain.Task {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	tasks := make([]domain.Task, 0)
	for _, task := range bc.tasks {
		if task.ColumnID == columnID {
			tasks = append(tasks, task)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Order < tasks[j].Order
	})
	return tasks
}

// Task looks up a task by id.
func (bc *BoardCache) Task(id string) (domain.Task, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	task, ok := bc.tasks[id]
	return task, ok
}

// Column looks up a column by id.
func (bc *BoardCache) Column(id string) (domain.Column, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	col, ok := bc.columns[id]
	return col, ok
}

// PutTask inserts or replaces a task.
func (bc *BoardCache) PutTask(task domain.Task) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.tasks[task.ID] = task
}

// RemoveTask deletes a task if present.
func (bc *BoardCache) RemoveTask(id string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	delete(bc.tasks, id)
}

// PutColumn inserts or replaces a column.
func (bc *BoardCache) PutColumn(col domain.Column) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.columns[col.ID] = col
}

// RemoveColumn deletes a column and any tasks still referencing it.
func (bc *BoardCache) RemoveColumn(id string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	delete(bc.columns, id)
	for taskID, task := range bc.tasks {
		if task.ColumnID == id {
			delete(bc.tasks, taskID)
		}
	}
}

// ReplaceColumns swaps in a full new column set, keeping tasks untouched.
func (bc *BoardCache) ReplaceColumns(columns []domain.Column) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.columns = make(map[string]domain.Column, len(columns))
	for _, col := range columns {
		bc.columns[col.ID] = col
	}
}

// Apply reduces one stream event into the cache. It reports whether the
// caller should refetch the board: reorder events carry only id sequences, so
// the resulting order values have to come from the server. Events for ids the
// cache does not hold are ignored, which makes redelivery and out-of-order
// delivery safe.
func (bc *BoardCache) Apply(ev domain.Event) (refetch bool, err error) {
	flat, err := ev.Unwrap()
	if err != nil {
		return false, err
	}
	data, err := flat.DecodeData()
	if err != nil {
		return false, err
	}

	switch d := data.(type) {
	case domain.TaskCreatedData:
		bc.PutTask(d.Task)
	case domain.TaskUpdatedData:
		bc.patchTask(d)
	case domain.TaskDeletedData:
		bc.RemoveTask(d.ID)
	case domain.TaskMovedData:
		bc.moveTask(d.ID, d.ColumnID)
	case domain.TaskReorderedData, domain.TasksReorderedData, domain.ColumnsReorderedData:
		return true, nil
	case domain.ColumnCreatedData:
		bc.PutColumn(d.Column)
	case domain.ColumnUpdatedData:
		bc.patchColumn(d)
	case domain.ColumnDeletedData:
		bc.RemoveColumn(d.ID)
	case domain.ConnectionData:
		// Synthetic handshake event, nothing to reduce.
	}
	return false, nil
}

func (bc *BoardCache) patchTask(patch domain.TaskUpdatedData) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	task, ok := bc.tasks[patch.ID]
	if !ok {
		return
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Order != nil {
		task.Order = *patch.Order
	}
	if patch.AssigneeID != nil {
		task.AssigneeID = *patch.AssigneeID
	}
	bc.tasks[patch.ID] = task
}

func (bc *BoardCache) moveTask(id, columnID string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	task, ok := bc.tasks[id]
	if !ok {
		return
	}
	task.ColumnID = columnID
	bc.tasks[id] = task
}

func (bc *BoardCache) patchColumn(patch domain.ColumnUpdatedData) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	col, ok := bc.columns[patch.ID]
	if !ok {
		return
	}
	if patch.Title != nil {
		col.Title = *patch.Title
	}
	if patch.Description != nil {
		col.Description = *patch.Description
	}
	if patch.Order != nil {
		col.Order = *patch.Order
	}
	bc.columns[patch.ID] = col
}
