package api

import (
	"context"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// Storage abstracts persistence for handlers. Implementations are assumed to
// provide ACID single-row read-modify-write per entity; nothing here spans
// entities transactionally.
type Storage interface {
	ListColumns(ctx context.Context) ([]domain.Column, error)
	GetColumn(ctx context.Context, id string) (domain.Column, error)
	InsertColumn(ctx context.Context, c domain.Column) error
	UpdateColumn(ctx context.Context, c domain.Column) error
	DeleteColumn(ctx context.Context, id string) error

	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListTasksByColumn(ctx context.Context, columnID string) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id string) error

	GetUser(ctx context.Context, id string) (domain.Assignee, error)
	UpsertUser(ctx context.Context, u domain.Assignee) error
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Drafter generates a task draft from a natural language prompt. Treated as
// an opaque generator that may fail or return low-quality content; output is
// only checked for non-empty shape.
type Drafter interface {
	DraftTask(ctx context.Context, prompt string) (domain.TaskDraft, error)
}
