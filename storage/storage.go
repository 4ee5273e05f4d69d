// Package storage persists board state in Azure Table Storage and caches
// assembled board snapshots in Redis.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// ErrNotFound is returned when a referenced column, task or user does not
// exist.
var ErrNotFound = errors.New("not found")

const (
	columnsPartition = "columns"
	tasksPartition   = "tasks"
	usersPartition   = "users"
)

// Storage provides access to the underlying persistence mechanisms.
type Storage struct {
	columnTable *aztables.Client
	taskTable   *aztables.Client
	userTable   *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, columnsTable, tasksTable, usersTable string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		columnTable: svc.NewClient(columnsTable),
		taskTable:   svc.NewClient(tasksTable),
		userTable:   svc.NewClient(usersTable),
	}, nil
}

type columnEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Order       int    `json:"Order"`
	CreatedBy   string `json:"CreatedBy"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	ColumnID    string `json:"ColumnId"`
	Order       int    `json:"Order"`
	AssigneeID  string `json:"AssigneeId"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

type userEntity struct {
	aztables.Entity
	Email string `json:"Email"`
}

func (e columnEntity) toDomain() domain.Column {
	return domain.Column{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		Order:       e.Order,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   parseTime(e.CreatedAt),
		UpdatedAt:   parseTime(e.UpdatedAt),
	}
}

func (e taskEntity) toDomain() domain.Task {
	return domain.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		ColumnID:    e.ColumnID,
		Order:       e.Order,
		AssigneeID:  e.AssigneeID,
		CreatedAt:   parseTime(e.CreatedAt),
		UpdatedAt:   parseTime(e.UpdatedAt),
	}
}

func columnToEntity(c domain.Column) columnEntity {
	return columnEntity{
		Entity:      aztables.Entity{PartitionKey: columnsPartition, RowKey: c.ID},
		Title:       c.Title,
		Description: c.Description,
		Order:       c.Order,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func taskToEntity(t domain.Task) taskEntity {
	return taskEntity{
		Entity:      aztables.Entity{PartitionKey: tasksPartition, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		ColumnID:    t.ColumnID,
		Order:       t.Order,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// ListColumns retrieves all columns sorted ascending by order.
func (s *Storage) ListColumns(ctx context.Context) ([]domain.Column, error) {
	filter := "PartitionKey eq '" + columnsPartition + "'"
	pager := s.columnTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	columns := []domain.Column{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent columnEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			columns = append(columns, ent.toDomain())
		}
	}
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Order < columns[j].Order })
	return columns, nil
}

// GetColumn loads a single column, returning ErrNotFound when absent.
func (s *Storage) GetColumn(ctx context.Context, id string) (domain.Column, error) {
	resp, err := s.columnTable.GetEntity(ctx, columnsPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Column{}, ErrNotFound
		}
		return domain.Column{}, err
	}
	var ent columnEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Column{}, err
	}
	return ent.toDomain(), nil
}

func (s *Storage) InsertColumn(ctx context.Context, c domain.Column) error {
	data, err := json.Marshal(columnToEntity(c))
	if err != nil {
		return err
	}
	_, err = s.columnTable.AddEntity(ctx, data, nil)
	return err
}

func (s *Storage) UpdateColumn(ctx context.Context, c domain.Column) error {
	data, err := json.Marshal(columnToEntity(c))
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeReplace
	_, err = s.columnTable.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: mode})
	return err
}

func (s *Storage) DeleteColumn(ctx context.Context, id string) error {
	_, err := s.columnTable.DeleteEntity(ctx, columnsPartition, id, nil)
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// ListTasks retrieves all tasks sorted ascending by order.
func (s *Storage) ListTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + tasksPartition + "'"
	return s.listTasks(ctx, filter)
}

// ListTasksByColumn retrieves the tasks referencing columnID, sorted
// ascending by order.
func (s *Storage) ListTasksByColumn(ctx context.Context, columnID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + tasksPartition + "' and ColumnId eq '" + columnID + "'"
	return s.listTasks(ctx, filter)
}

func (s *Storage) listTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, ent.toDomain())
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}

// GetTask loads a single task, returning ErrNotFound when absent.
func (s *Storage) GetTask(ctx context.Context, id string) (domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, tasksPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, err
	}
	return ent.toDomain(), nil
}

func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(taskToEntity(t))
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, data, nil)
	return err
}

func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(taskToEntity(t))
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeReplace
	_, err = s.taskTable.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: mode})
	return err
}

func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	_, err := s.taskTable.DeleteEntity(ctx, tasksPartition, id, nil)
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// GetUser resolves the display fields for an assignee.
func (s *Storage) GetUser(ctx context.Context, id string) (domain.Assignee, error) {
	resp, err := s.userTable.GetEntity(ctx, usersPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Assignee{}, ErrNotFound
		}
		return domain.Assignee{}, err
	}
	var ent userEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Assignee{}, err
	}
	return domain.Assignee{ID: ent.RowKey, Email: ent.Email}, nil
}

// UpsertUser stores a user's display fields.
func (s *Storage) UpsertUser(ctx context.Context, u domain.Assignee) error {
	data, err := json.Marshal(userEntity{
		Entity: aztables.Entity{PartitionKey: usersPartition, RowKey: u.ID},
		Email:  u.Email,
	})
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeReplace
	_, err = s.userTable.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: mode})
	return err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
