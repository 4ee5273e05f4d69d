package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
	"github.com/b-bellovic/kadoa-assignemnt/sse"
)

type createColumnRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       *int   `json:"order,omitempty"`
}

type updateColumnRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

type reorderColumnsRequest struct {
	ColumnIDs []string `json:"columnIds"`
}

func createColumn(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Title == "" {
			return c.String(http.StatusBadRequest, "title is required")
		}

		order := 0
		if req.Order != nil {
			order = *req.Order
		} else {
			columns, err := store.ListColumns(ctx)
			if err != nil {
				return writeError(c, err)
			}
			order = domain.NextOrder(domain.ColumnOrders(columns))
		}

		now := time.Now().UTC()
		col := domain.Column{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Order:       order,
			CreatedAt:   now,
			UpdatedAt:   now,
			CreatedBy:   userID,
		}
		if err := store.InsertColumn(ctx, col); err != nil {
			return writeError(c, err)
		}

		hub.EmitNested(domain.ColumnCreated, domain.ColumnCreatedData{Column: col})
		return c.JSON(http.StatusCreated, col)
	}
}

func updateColumn(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req updateColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		col, err := store.GetColumn(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if req.Title != nil {
			col.Title = *req.Title
		}
		if req.Description != nil {
			col.Description = *req.Description
		}
		if req.Order != nil {
			col.Order = *req.Order
		}
		col.UpdatedAt = time.Now().UTC()
		if err := store.UpdateColumn(ctx, col); err != nil {
			return writeError(c, err)
		}

		hub.EmitNested(domain.ColumnUpdated, domain.ColumnUpdatedData{
			ID:          col.ID,
			Title:       req.Title,
			Description: req.Description,
			Order:       req.Order,
		})
		return c.JSON(http.StatusOK, col)
	}
}

// deleteColumn enforces the hard guard: a column holding tasks cannot be
// deleted, there is no cascade.
func deleteColumn(store Storage, hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		col, err := store.GetColumn(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		tasksInColumn, err := store.ListTasksByColumn(ctx, col.ID)
		if err != nil {
			return writeError(c, err)
		}
		if len(tasksInColumn) > 0 {
			return c.String(http.StatusBadRequest, "cannot delete column that contains tasks")
		}

		if err := store.DeleteColumn(ctx, col.ID); err != nil {
			return writeError(c, err)
		}

		hub.EmitNested(domain.ColumnDeleted, domain.ColumnDeletedData{ID: col.ID, UserID: userID})
		return c.NoContent(http.StatusNoContent)
	}
}

// reorderColumns renumbers every listed column with spaced order values so
// later single-column insertions do not force another full renumber. Writes
// are sequential; the first failure aborts without emitting, leaving clients
// on stale order until a refetch.
func reorderColumns(store Storage, hub *sse.Hub, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req reorderColumnsRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if len(req.ColumnIDs) == 0 {
			logger.Error("no column ids provided for reordering")
			return c.NoContent(http.StatusNoContent)
		}

		logger.WithFields(log.Fields{"count": len(req.ColumnIDs), "user": userID}).Info("reordering columns")

		now := time.Now().UTC()
		for i, id := range req.ColumnIDs {
			col, err := store.GetColumn(ctx, id)
			if err != nil {
				return writeError(c, err)
			}
			col.Order = domain.SpacedOrder(i)
			col.UpdatedAt = now
			if err := store.UpdateColumn(ctx, col); err != nil {
				logger.WithField("column", id).Errorf("failed to update column: %v", err)
				return writeError(c, err)
			}
		}

		hub.EmitNested(domain.ColumnReordered, domain.ColumnsReorderedData{
			ColumnIDs: req.ColumnIDs,
			UserID:    userID,
		})
		return c.NoContent(http.StatusNoContent)
	}
}
