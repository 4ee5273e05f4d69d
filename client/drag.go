package client

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// DragKind distinguishes what a drag interaction is carrying.
type DragKind int

const (
	DragNone DragKind = iota
	DragTask
	DragColumn
)

// Preview describes where the dragged item would land right now.
type Preview struct {
	ContainerID string
	Index       int
	Order       int
}

// DragController tracks one drag interaction over the cached board and
// dispatches the matching mutation on drop. State is cleared on every drop
// path, including failed ones, so a stuck drag can never wedge the board.
type DragController struct {
	sync     *Sync
	kind     DragKind
	activeID string
	sourceID string
	preview  *Preview
	log      *log.Logger
}

func NewDragController(s *Sync, logger *log.Logger) *DragController {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &DragController{sync: s, log: logger}
}

// Start begins a drag for a cached task or column id. It reports whether the
// id resolved to something draggable.
func (d *DragController) Start(id string) bool {
	d.reset()
	if task, ok := d.sync.Cache().Task(id); ok {
		d.kind = DragTask
		d.activeID = id
		d.sourceID = task.ColumnID
		return true
	}
	if _, ok := d.sync.Cache().Column(id); ok {
		d.kind = DragColumn
		d.activeID = id
		return true
	}
	return false
}

// Active returns the id being dragged, if any.
func (d *DragController) Active() (string, DragKind) {
	return d.activeID, d.kind
}

// Preview returns the current drop preview, if one has been computed.
func (d *DragController) Preview() (Preview, bool) {
	if d.preview == nil {
		return Preview{}, false
	}
	return *d.preview, true
}

// Over recomputes the drop preview for the element currently hovered. Hovering
// a task previews insertion at that task's index in its column; hovering a
// column previews appending to it.
func (d *DragController) Over(overID string) {
	if d.kind != DragTask {
		return
	}
	cache := d.sync.Cache()
	if overTask, ok := cache.Task(overID); ok && overID != d.activeID {
		siblings := cache.ColumnTasks(overTask.ColumnID)
		overIndex := taskIndex(siblings, overID)
		fromIndex := -1
		if overTask.ColumnID == d.sourceID {
			fromIndex = taskIndex(siblings, d.activeID)
		}
		d.preview = &Preview{
			ContainerID: overTask.ColumnID,
			Index:       overIndex,
			Order:       domain.CalculateOrder(domain.TaskOrders(siblings), fromIndex, overIndex),
		}
		return
	}
	if _, ok := cache.Column(overID); ok && overID != d.sourceID {
		siblings := cache.ColumnTasks(overID)
		d.preview = &Preview{
			ContainerID: overID,
			Index:       len(siblings),
			Order:       domain.NextOrder(domain.TaskOrders(siblings)),
		}
	}
}

// Drop finishes the drag over the given element and dispatches the matching
// mutation: column reorder, cross-column move, same-column reorder, or append
// to a hovered column. Dropping an item on itself is a no-op.
func (d *DragController) Drop(ctx context.Context, overID string) error {
	defer d.reset()
	switch d.kind {
	case DragColumn:
		return d.dropColumn(ctx, overID)
	case DragTask:
		return d.dropTask(ctx, overID)
	default:
		return nil
	}
}

// Cancel abandons the drag without dispatching anything.
func (d *DragController) Cancel() {
	d.reset()
}

func (d *DragController) dropColumn(ctx context.Context, overID string) error {
	if overID == d.activeID {
		return nil
	}
	columns := d.sync.Cache().Columns()
	activeIndex := columnIndex(columns, d.activeID)
	overIndex := columnIndex(columns, overID)
	if activeIndex == -1 || overIndex == -1 {
		d.log.Errorf("column not found for reordering: active=%s over=%s", d.activeID, overID)
		return nil
	}
	columnIDs := make([]string, len(columns))
	for i, col := range columns {
		columnIDs[i] = col.ID
	}
	columnIDs = arrayMove(columnIDs, activeIndex, overIndex)
	if err := d.sync.ReorderColumns(ctx, columnIDs); err != nil {
		// Fall back to a single point update of the dragged column.
		d.log.Errorf("failed to reorder columns, falling back to point update: %v", err)
		order := domain.CalculateOrder(domain.ColumnOrders(columns), activeIndex, overIndex)
		return d.sync.UpdateColumn(ctx, d.activeID, ColumnPatch{Order: &order})
	}
	return nil
}

func (d *DragController) dropTask(ctx context.Context, overID string) error {
	if overID == d.activeID {
		return nil
	}
	cache := d.sync.Cache()
	if overTask, ok := cache.Task(overID); ok {
		if overTask.ColumnID == d.sourceID {
			return d.reorderWithinColumn(ctx, overID)
		}
		return d.moveBetweenColumns(ctx, overTask.ColumnID, overID)
	}
	if _, ok := cache.Column(overID); ok {
		return d.appendToColumn(ctx, overID)
	}
	return nil
}

func (d *DragController) reorderWithinColumn(ctx context.Context, overID string) error {
	siblings := d.sync.Cache().ColumnTasks(d.sourceID)
	fromIndex := taskIndex(siblings, d.activeID)
	toIndex := taskIndex(siblings, overID)
	if fromIndex == -1 || toIndex == -1 || fromIndex == toIndex {
		return nil
	}
	order := domain.CalculateOrder(domain.TaskOrders(siblings), fromIndex, toIndex)
	return d.sync.UpdateTask(ctx, d.activeID, TaskPatch{Order: &order})
}

func (d *DragController) moveBetweenColumns(ctx context.Context, toColumnID, overID string) error {
	siblings := d.sync.Cache().ColumnTasks(toColumnID)
	toIndex := taskIndex(siblings, overID)
	if toIndex == -1 {
		toIndex = len(siblings)
	}
	order := domain.CalculateOrder(domain.TaskOrders(siblings), -1, toIndex)
	return d.sync.MoveTask(ctx, d.activeID, toColumnID, &order)
}

func (d *DragController) appendToColumn(ctx context.Context, columnID string) error {
	if columnID == d.sourceID {
		return nil
	}
	siblings := d.sync.Cache().ColumnTasks(columnID)
	order := domain.NextOrder(domain.TaskOrders(siblings))
	return d.sync.MoveTask(ctx, d.activeID, columnID, &order)
}

func (d *DragController) reset() {
	d.kind = DragNone
	d.activeID = ""
	d.sourceID = ""
	d.preview = nil
}

// arrayMove returns a copy of ids with the element at from re-inserted at to.
func arrayMove(ids []string, from, to int) []string {
	out := make([]string, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	if to > len(out) {
		to = len(out)
	}
	out = append(out[:to], append([]string{ids[from]}, out[to:]...)...)
	return out
}

func taskIndex(tasks []domain.Task, id string) int {
	for i, task := range tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

func columnIndex(columns []domain.Column, id string) int {
	for i, col := range columns {
		if col.ID == id {
			return i
		}
	}
	return -1
}
