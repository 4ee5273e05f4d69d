package sse

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

func setupRedis(t *testing.T) (*redis.Client, func()) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return rc, func() {
		rc.Close()
		m.Close()
	}
}

func TestRelayFansOutBetweenHubs(t *testing.T) {
	rc, cleanup := setupRedis(t)
	defer cleanup()

	emitter := NewHub(nil)
	receiver := NewHub(nil)
	defer emitter.Shutdown()
	defer receiver.Shutdown()

	relay := NewRelay(rc, "board-events", nil)
	emitter.SetPublisher(relay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, receiver)
	time.Sleep(100 * time.Millisecond) // let the subscription attach

	sub, err := receiver.Subscribe("user1", []string{domain.TaskDeleted})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	receive(t, sub.C) // connection event

	emitter.Emit(domain.TaskDeleted, domain.TaskDeletedData{ID: "t1"})

	ev := receive(t, sub.C)
	if ev.Type != domain.TaskDeleted {
		t.Fatalf("unexpected relayed type %q", ev.Type)
	}
	data, err := ev.DecodeData()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d, ok := data.(domain.TaskDeletedData); !ok || d.ID != "t1" {
		t.Fatalf("unexpected relayed payload: %#v", data)
	}
}

func TestRelaySkipsOwnEvents(t *testing.T) {
	rc, cleanup := setupRedis(t)
	defer cleanup()

	hub := NewHub(nil)
	defer hub.Shutdown()
	relay := NewRelay(rc, "board-events", nil)
	hub.SetPublisher(relay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, hub)
	time.Sleep(100 * time.Millisecond)

	sub, _ := hub.Subscribe("user1", []string{domain.TaskDeleted})
	defer sub.Close()
	receive(t, sub.C)

	hub.Emit(domain.TaskDeleted, domain.TaskDeletedData{ID: "t1"})
	receive(t, sub.C) // local delivery

	// If the relay re-delivered the hub's own event, a duplicate would land
	// shortly after. Give it a moment and verify nothing arrives.
	select {
	case raw := <-sub.C:
		t.Fatalf("own event echoed back through relay: %s", raw)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRelayMatchesInnerTypeForEnvelopes(t *testing.T) {
	rc, cleanup := setupRedis(t)
	defer cleanup()

	emitter := NewHub(nil)
	receiver := NewHub(nil)
	defer emitter.Shutdown()
	defer receiver.Shutdown()

	relay := NewRelay(rc, "board-events", nil)
	emitter.SetPublisher(relay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, receiver)
	time.Sleep(100 * time.Millisecond)

	// Subscribed only to the inner type, not the envelope topic.
	sub, _ := receiver.Subscribe("user1", []string{domain.ColumnDeleted})
	defer sub.Close()
	receive(t, sub.C)

	emitter.EmitNested(domain.ColumnDeleted, domain.ColumnDeletedData{ID: "c1", UserID: "user1"})

	ev := receive(t, sub.C)
	inner, err := ev.Unwrap()
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if inner.Type != domain.ColumnDeleted {
		t.Fatalf("unexpected inner type %q", inner.Type)
	}
}
