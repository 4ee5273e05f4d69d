package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
	"github.com/b-bellovic/kadoa-assignemnt/sse"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ColumnID    string `json:"columnId"`
	Order       *int   `json:"order,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

type updateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
}

type moveTaskRequest struct {
	ColumnID string `json:"columnId"`
}

type reorderTasksRequest struct {
	TaskIDs []string `json:"taskIds"`
}

type draftTaskRequest struct {
	Prompt string `json:"prompt"`
}

func createTask(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Title == "" {
			return c.String(http.StatusBadRequest, "title is required")
		}
		if req.ColumnID == "" {
			return c.String(http.StatusBadRequest, "columnId is required")
		}
		if _, err := store.GetColumn(ctx, req.ColumnID); err != nil {
			return writeError(c, err)
		}

		order := 0
		if req.Order != nil {
			order = *req.Order
		} else {
			siblings, err := store.ListTasksByColumn(ctx, req.ColumnID)
			if err != nil {
				return writeError(c, err)
			}
			order = domain.NextOrder(domain.TaskOrders(siblings))
		}

		now := time.Now().UTC()
		task := domain.Task{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			ColumnID:    req.ColumnID,
			Order:       order,
			AssigneeID:  req.AssigneeID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.InsertTask(ctx, task); err != nil {
			return writeError(c, err)
		}

		hub.Emit(domain.TaskCreated, domain.TaskCreatedData{Task: task})
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		task, err := store.GetTask(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Order != nil {
			task.Order = *req.Order
		}
		if req.AssigneeID != nil {
			task.AssigneeID = *req.AssigneeID
		}
		task.UpdatedAt = time.Now().UTC()
		if err := store.UpdateTask(ctx, task); err != nil {
			return writeError(c, err)
		}

		hub.Emit(domain.TaskUpdated, domain.TaskUpdatedData{
			ID:          task.ID,
			Title:       req.Title,
			Description: req.Description,
			Order:       req.Order,
			AssigneeID:  req.AssigneeID,
		})
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		task, err := store.GetTask(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if err := store.DeleteTask(ctx, task.ID); err != nil {
			return writeError(c, err)
		}

		hub.Emit(domain.TaskDeleted, domain.TaskDeletedData{ID: task.ID})
		return c.NoContent(http.StatusNoContent)
	}
}

// moveTask transfers a task to another column. The order value is left
// untouched; callers that care about precise placement follow up with an
// order update, otherwise the task keeps its prior order, which may collide
// with siblings in the new column.
func moveTask(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req moveTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.ColumnID == "" {
			return c.String(http.StatusBadRequest, "columnId is required")
		}

		task, err := store.GetTask(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if _, err := store.GetColumn(ctx, req.ColumnID); err != nil {
			return writeError(c, err)
		}

		previousColumnID := task.ColumnID
		task.ColumnID = req.ColumnID
		task.UpdatedAt = time.Now().UTC()
		if err := store.UpdateTask(ctx, task); err != nil {
			return writeError(c, err)
		}

		hub.Emit(domain.TaskMoved, domain.TaskMovedData{
			ID:               task.ID,
			ColumnID:         task.ColumnID,
			PreviousColumnID: previousColumnID,
		})
		return c.JSON(http.StatusOK, task)
	}
}

// reorderTasks assigns sequential order values in the given id order. Every
// id is checked for existence before the first write; the writes themselves
// are dispatched concurrently, so a failure partway through can leave
// partial reordering applied. The event is emitted only when every write
// succeeded.
func reorderTasks(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req reorderTasksRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if len(req.TaskIDs) == 0 {
			return c.String(http.StatusBadRequest, "taskIds is required")
		}

		tasks := make([]domain.Task, len(req.TaskIDs))
		for i, id := range req.TaskIDs {
			task, err := store.GetTask(ctx, id)
			if err != nil {
				return writeError(c, err)
			}
			tasks[i] = task
		}

		now := time.Now().UTC()
		errs := make([]error, len(tasks))
		var wg sync.WaitGroup
		for i := range tasks {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tasks[i].Order = i
				tasks[i].UpdatedAt = now
				errs[i] = store.UpdateTask(ctx, tasks[i])
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return writeError(c, err)
			}
		}

		hub.Emit(domain.TasksReordered, domain.TasksReorderedData{TaskIDs: req.TaskIDs})
		return c.NoContent(http.StatusNoContent)
	}
}

func draftTask(drafter Drafter, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if drafter == nil {
			return c.String(http.StatusServiceUnavailable, "task drafting not configured")
		}
		var req draftTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Prompt == "" {
			return c.String(http.StatusBadRequest, "prompt is required")
		}

		draft, err := drafter.DraftTask(ctx, req.Prompt)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusBadGateway, "task drafting failed")
		}
		if draft.Title == "" {
			return c.String(http.StatusBadGateway, "task drafting returned an empty title")
		}
		return c.JSON(http.StatusOK, draft)
	}
}
