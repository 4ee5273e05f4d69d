package sse

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// relayEnvelope wraps an event on the relay channel with the id of the hub
// instance that emitted it, so instances can skip their own events.
type relayEnvelope struct {
	Origin string `json:"origin"`
	Event  []byte `json:"event"`
}

// Relay fans events out between hub instances over a redis pub/sub channel.
type Relay struct {
	rc      *redis.Client
	channel string
	log     *log.Logger
}

// NewRelay creates a relay on the given channel. logger may be nil.
func NewRelay(rc *redis.Client, channel string, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Relay{rc: rc, channel: channel, log: logger}
}

// Publish forwards a locally emitted event to the relay channel.
func (r *Relay) Publish(ctx context.Context, origin string, event []byte) error {
	payload, err := sonic.Marshal(relayEnvelope{Origin: origin, Event: event})
	if err != nil {
		return err
	}
	return r.rc.Publish(ctx, r.channel, payload).Err()
}

// Run listens for relayed events and re-delivers foreign ones to the hub's
// local subscribers. It blocks until ctx is cancelled, reconnecting with a
// short sleep if the pub/sub channel drops.
func (r *Relay) Run(ctx context.Context, hub *Hub) {
	for {
		sub := r.rc.Subscribe(ctx, r.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				r.dispatch(hub, []byte(msg.Payload))
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		r.log.Error("relay channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (r *Relay) dispatch(hub *Hub, payload []byte) {
	var env relayEnvelope
	if err := sonic.Unmarshal(payload, &env); err != nil {
		r.log.Errorf("unable to parse relayed event: %v", err)
		return
	}
	if env.Origin == hub.ID() {
		return
	}
	ev, err := domain.UnmarshalWire(env.Event)
	if err != nil {
		r.log.Errorf("unable to parse relayed event body: %v", err)
		return
	}
	matchTypes := []string{ev.Type}
	if ev.Type == domain.BoardEnvelope {
		if inner, err := ev.Unwrap(); err == nil {
			matchTypes = append(matchTypes, inner.Type)
		}
	}
	hub.Deliver(env.Event, matchTypes)
}
