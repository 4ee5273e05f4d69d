package client

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// Sync keeps a BoardCache consistent with the server. Mutations are applied
// optimistically: the cache is patched first, the API call runs after, and a
// failure rolls the cache back to the pre-mutation snapshot. Every mutation
// queues an invalidation regardless of outcome so the next refresh converges
// the cache on server state.
type Sync struct {
	api           *Client
	cache         *BoardCache
	log           *log.Logger
	invalidations chan struct{}
	connected     atomic.Bool

	// streamDelay overrides the stream's first backoff interval; zero keeps
	// the default.
	streamDelay time.Duration
}

func NewSync(api *Client, logger *log.Logger) *Sync {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Sync{
		api:           api,
		cache:         NewBoardCache(),
		log:           logger,
		invalidations: make(chan struct{}, 1),
	}
}

// Cache exposes the synchronized board state.
func (s *Sync) Cache() *BoardCache {
	return s.cache
}

// Connected reports whether the event stream is currently attached.
func (s *Sync) Connected() bool {
	return s.connected.Load()
}

// Refresh refetches the board and replaces the cache contents.
func (s *Sync) Refresh(ctx context.Context) error {
	board, err := s.api.Board(ctx)
	if err != nil {
		return err
	}
	s.cache.Load(board)
	return nil
}

// Invalidate queues a refetch. Multiple invalidations between refreshes
// coalesce into one.
func (s *Sync) Invalidate() {
	select {
	case s.invalidations <- struct{}{}:
	default:
	}
}

// Run drains queued invalidations, refreshing the board for each, until the
// context is cancelled. Failed refreshes are logged and retried on the next
// invalidation.
func (s *Sync) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.invalidations:
			if err := s.Refresh(ctx); err != nil {
				s.log.Errorf("failed to refresh board: %v", err)
			}
		}
	}
}

// HandleEvent reduces a stream event into the cache and queues a refetch when
// the event cannot be applied locally. Unknown event types are logged and
// dropped.
func (s *Sync) HandleEvent(ev domain.Event) {
	refetch, err := s.cache.Apply(ev)
	if err != nil {
		s.log.Warnf("skipping stream event %q: %v", ev.Type, err)
		return
	}
	if refetch {
		s.Invalidate()
	}
}

// CreateColumn creates a column and inserts the server entity into the cache.
func (s *Sync) CreateColumn(ctx context.Context, params ColumnParams) (domain.Column, error) {
	defer s.Invalidate()
	col, err := s.api.CreateColumn(ctx, params)
	if err != nil {
		return domain.Column{}, err
	}
	s.cache.PutColumn(col)
	return col, nil
}

// UpdateColumn optimistically patches a cached column, then persists the
// change. The cache is rolled back when the API call fails.
func (s *Sync) UpdateColumn(ctx context.Context, id string, patch ColumnPatch) error {
	defer s.Invalidate()
	snap := s.cache.Snapshot()
	s.cache.patchColumn(domain.ColumnUpdatedData{
		ID:          id,
		Title:       patch.Title,
		Description: patch.Description,
		Order:       patch.Order,
	})
	if _, err := s.api.UpdateColumn(ctx, id, patch); err != nil {
		s.cache.Restore(snap)
		return err
	}
	return nil
}

// DeleteColumn optimistically removes a column, rolling back when the server
// rejects the delete (for example when the column still contains tasks).
func (s *Sync) DeleteColumn(ctx context.Context, id string) error {
	defer s.Invalidate()
	snap := s.cache.Snapshot()
	s.cache.RemoveColumn(id)
	if err := s.api.DeleteColumn(ctx, id); err != nil {
		s.cache.Restore(snap)
		return err
	}
	return nil
}

// ReorderColumns optimistically renumbers the cached columns to match the id
// sequence, spacing orders the way the server does, then persists the
// sequence.
func (s *Sync) ReorderColumns(ctx context.Context, columnIDs []string) error {
	defer s.Invalidate()
	snap := s.cache.Snapshot()
	reordered := make([]domain.Column, 0, len(columnIDs))
	for i, id := range columnIDs {
		col, ok := s.cache.Column(id)
		if !ok {
			continue
		}
		col.Order = domain.SpacedOrder(i)
		reordered = append(reordered, col)
	}
	s.cache.ReplaceColumns(reordered)
	if err := s.api.ReorderColumns(ctx, columnIDs); err != nil {
		s.cache.Restore(snap)
		return err
	}
	return nil
}

// CreateTask creates a task and inserts the server entity into the cache.
func (s *Sync) CreateTask(ctx context.Context, params TaskParams) (domain.Task, error) {
	defer s.Invalidate()
	task, err := s.api.CreateTask(ctx, params)
	if err != nil {
		return domain.Task{}, err
	}
	s.cache.PutTask(task)
	return task, nil
}

// UpdateTask optimistically patches a cached task, then persists the change.
func (s *Sync) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	defer s.Invalidate()
	snap := s.cache.Snapshot()
	s.cache.patchTask(domain.TaskUpdatedData{
		ID:          id,
		Title:       patch.Title,
		Description: patch.Description,
		Order:       patch.Order,
		AssigneeID:  patch.AssigneeID,
	})
	if _, err := s.api.UpdateTask(ctx, id, patch); err != nil {
		s.cache.Restore(snap)
		return err
	}
	return nil
}

// DeleteTask optimistically removes a task, rolling back on failure.
func (s *Sync) DeleteTask(ctx context.Context, id string) error {
	defer s.Invalidate()
	snap := s.cache.Snapshot()
	s.cache.RemoveTask(id)
	if err := s.api.DeleteTask(ctx, id); err != nil {
		s.cache.Restore(snap)
		return err
	}
	return nil
}

// MoveTask optimistically reassigns a task to another column, optionally with
// a new order, then persists the move. The column change and the order change
// are separate server operations; a failure in either rolls both back.
func (s *Sync) MoveTask(ctx context.Context, id, columnID string, order *int) error {
	defer s.Invalidate()
	snap := s.cache.Snapshot()
	s.cache.moveTask(id, columnID)
	if order != nil {
		s.cache.patchTask(domain.TaskUpdatedData{ID: id, Order: order})
	}
	if _, err := s.api.MoveTask(ctx, id, columnID); err != nil {
		s.cache.Restore(snap)
		return err
	}
	if order != nil {
		if _, err := s.api.UpdateTask(ctx, id, TaskPatch{Order: order}); err != nil {
			s.cache.Restore(snap)
			return err
		}
	}
	return nil
}

// ReorderTasks optimistically renumbers the cached tasks to match the id
// sequence, mirroring the server's index-as-order scheme, then persists it.
func (s *Sync) ReorderTasks(ctx context.Context, taskIDs []string) error {
	defer s.Invalidate()
	snap := s.cache.Snapshot()
	for i, id := range taskIDs {
		order := i
		s.cache.patchTask(domain.TaskUpdatedData{ID: id, Order: &order})
	}
	if err := s.api.ReorderTasks(ctx, taskIDs); err != nil {
		s.cache.Restore(snap)
		return err
	}
	return nil
}

// DraftTask proxies to the server-side task drafting endpoint.
func (s *Sync) DraftTask(ctx context.Context, prompt string) (domain.TaskDraft, error) {
	return s.api.DraftTask(ctx, prompt)
}

// Listen runs the event stream against the synchronizer until the context is
// cancelled or reconnection attempts are exhausted. Every (re)connection
// queues a refetch to cover events missed while detached.
func (s *Sync) Listen(ctx context.Context, topics []string) error {
	stream := NewStream(s.api.BaseURL, s.api.Token, topics, s.log)
	stream.InitialDelay = s.streamDelay
	stream.OnConnect = func() {
		s.connected.Store(true)
		s.Invalidate()
	}
	stream.OnDisconnect = func() {
		s.connected.Store(false)
	}
	stream.OnEvent = s.HandleEvent
	err := stream.Run(ctx)
	s.connected.Store(false)
	return err
}
