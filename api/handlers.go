package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
	"github.com/b-bellovic/kadoa-assignemnt/sse"
	"github.com/b-bellovic/kadoa-assignemnt/storage"
)

const requestBodyMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, hub *sse.Hub, auth Authenticator, drafter Drafter, logger *log.Logger) {
	e.GET("/api/board", getBoard(store, auth, logger))

	e.POST("/api/columns", createColumn(store, hub, auth))
	e.PATCH("/api/columns/:id", updateColumn(store, hub, auth))
	e.DELETE("/api/columns/:id", deleteColumn(store, hub, auth))
	e.POST("/api/columns/reorder", reorderColumns(store, hub, auth, logger))

	e.POST("/api/tasks", createTask(store, hub, auth))
	e.PATCH("/api/tasks/:id", updateTask(store, hub, auth))
	e.DELETE("/api/tasks/:id", deleteTask(store, hub, auth))
	e.POST("/api/tasks/:id/move", moveTask(store, hub, auth))
	e.POST("/api/tasks/reorder", reorderTasks(store, hub, auth))
	e.POST("/api/tasks/draft", draftTask(drafter, auth))

	e.GET("/events/subscribe", subscribe(hub, auth))
	e.GET("/healthz", healthz(store))
}

func healthz(_ Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// decodeBody parses a JSON request body, rejecting unknown fields.
func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// writeError maps storage and handler failures onto the response. NotFound
// and invariant violations stay typed; everything else is a 500.
func writeError(c echo.Context, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return c.String(http.StatusNotFound, err.Error())
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}

func getBoard(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics := newBoardRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		columns, fetchErr := store.ListColumns(ctx)
		var tasks []domain.Task
		if fetchErr == nil {
			tasks, fetchErr = store.ListTasks(ctx)
		}
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = writeError(c, fetchErr)
			return err
		}
		metrics.ObserveFetch(time.Since(fetchStart))

		tasks = resolveAssignees(c, store, tasks)
		board := domain.AssembleBoard(columns, tasks)
		metrics.SetCounts(len(board.Columns), len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, board)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

// resolveAssignees annotates tasks with assignee display fields. A missing
// user leaves the task unannotated rather than failing the board fetch.
func resolveAssignees(c echo.Context, store Storage, tasks []domain.Task) []domain.Task {
	ctx := c.Request().Context()
	users := map[string]*domain.Assignee{}
	for i, t := range tasks {
		if t.AssigneeID == "" {
			continue
		}
		cached, seen := users[t.AssigneeID]
		if !seen {
			u, err := store.GetUser(ctx, t.AssigneeID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					c.Logger().Error(err)
				}
				users[t.AssigneeID] = nil
				continue
			}
			cached = &u
			users[t.AssigneeID] = cached
		}
		if cached != nil {
			tasks[i].Assignee = cached
		}
	}
	return tasks
}

func subscribe(hub *sse.Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		userID, err := auth.UserIDFromAuthHeader(authHeader)
		if err != nil {
			// Rejected before any connection state exists.
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var topics []string
		for _, t := range strings.Split(c.QueryParam("topics"), ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}

		sub, err := hub.Subscribe(userID, topics)
		if err != nil {
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		defer sub.Close()

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-sub.C:
				if !ok {
					return nil
				}
				if _, err := c.Response().Write([]byte("data: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(msg); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
