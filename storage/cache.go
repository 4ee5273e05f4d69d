package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

type backend interface {
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

const (
	columnsCacheKey = "board:columns"
	tasksCacheKey   = "board:tasks"
)

// Cache wraps a Storage instance with Redis-backed caching for the board
// list reads. Every mutation evicts both lists; point reads always hit the
// backing store.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListColumns(ctx context.Context) ([]domain.Column, error) {
	var columns []domain.Column
	if c.loadCached(ctx, columnsCacheKey, &columns) {
		return columns, nil
	}
	columns, err := c.base.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	c.storeCached(ctx, columnsCacheKey, columns)
	return columns, nil
}

func (c *Cache) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if c.loadCached(ctx, tasksCacheKey, &tasks) {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.storeCached(ctx, tasksCacheKey, tasks)
	return tasks, nil
}

func (c *Cache) GetColumn(ctx context.Context, id string) (domain.Column, error) {
	return c.base.GetColumn(ctx, id)
}

func (c *Cache) InsertColumn(ctx context.Context, col domain.Column) error {
	if err := c.base.InsertColumn(ctx, col); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) UpdateColumn(ctx context.Context, col domain.Column) error {
	if err := c.base.UpdateColumn(ctx, col); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeleteColumn(ctx context.Context, id string) error {
	if err := c.base.DeleteColumn(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) ListTasksByColumn(ctx context.Context, columnID string) ([]domain.Task, error) {
	return c.base.ListTasksByColumn(ctx, columnID)
}

func (c *Cache) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, t domain.Task) error {
	if err := c.base.UpdateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) GetUser(ctx context.Context, id string) (domain.Assignee, error) {
	return c.base.GetUser(ctx, id)
}

func (c *Cache) UpsertUser(ctx context.Context, u domain.Assignee) error {
	return c.base.UpsertUser(ctx, u)
}

func (c *Cache) loadCached(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) storeCached(ctx context.Context, key string, val any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, columnsCacheKey, tasksCacheKey).Result()
}
