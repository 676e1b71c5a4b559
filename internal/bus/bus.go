package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"avatarlab.app/studio/common/logger"
	"avatarlab.app/studio/core/config"
)

// Handler receives a decoded bus message. Handlers must be idempotent and
// order-tolerant: the transport is at-least-once with no ordering guarantee
// across channels.
type Handler func(ctx context.Context, name EventName, data []byte, ts time.Time)

// Client is the pub/sub transport boundary. Publish is best-effort and never
// returns an error: event delivery is not part of any transaction and must
// never roll back the mutation that triggered it. Subscribe returns an
// unsubscribe function.
type Client interface {
	Publish(ctx context.Context, channel Channel, name EventName, payload any)
	Subscribe(channel Channel, name EventName, handler Handler) (unsubscribe func())
	Close() error
}

// envelope is the wire format of a bus message.
type envelope struct {
	Name      EventName       `json:"name"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"ts"`
}

// New builds the bus client for the given configuration. An unconfigured
// transport yields a client whose every call is a silent no-op; realtime
// degrades to "no updates", never to an error.
func New(cfg config.RealtimeConfig) (Client, error) {
	if !cfg.Enabled() {
		return Disabled(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	return &redisClient{
		rdb:    redis.NewClient(opts),
		prefix: cfg.ChannelPrefix,
		subs:   make(map[Channel]*channelSub),
	}, nil
}

// Disabled returns a no-op client.
func Disabled() Client {
	return disabledClient{}
}

type disabledClient struct{}

func (disabledClient) Publish(context.Context, Channel, EventName, any) {}

func (disabledClient) Subscribe(Channel, EventName, Handler) func() {
	return func() {}
}

func (disabledClient) Close() error { return nil }

type redisClient struct {
	rdb    *redis.Client
	prefix string

	mu     sync.Mutex
	subs   map[Channel]*channelSub
	nextID int64
	closed bool
}

type subscription struct {
	name    EventName
	handler Handler
}

type channelSub struct {
	pubsub   *redis.PubSub
	handlers map[int64]subscription
}

func (c *redisClient) channelKey(channel Channel) string {
	return c.prefix + ":" + string(channel)
}

func (c *redisClient) Publish(ctx context.Context, channel Channel, name EventName, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal bus payload", "error", err, "channel", channel, "event_name", name)
		return
	}

	msg, err := json.Marshal(envelope{Name: name, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal bus envelope", "error", err, "channel", channel, "event_name", name)
		return
	}

	if err := c.rdb.Publish(ctx, c.channelKey(channel), msg).Err(); err != nil {
		// Best effort only. The mutation already happened; a missed event
		// leaves views stale until the next refresh, which is acceptable.
		slog.WarnContext(ctx, "bus publish failed", "error", err, "channel", channel, "event_name", name)
		return
	}

	slog.DebugContext(ctx, "bus event published", "channel", channel, "event_name", name)
}

func (c *redisClient) Subscribe(channel Channel, name EventName, handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}

	sub, ok := c.subs[channel]
	if !ok {
		pubsub := c.rdb.Subscribe(context.Background(), c.channelKey(channel))
		sub = &channelSub{
			pubsub:   pubsub,
			handlers: make(map[int64]subscription),
		}
		c.subs[channel] = sub
		go c.dispatch(channel, sub)
	}

	c.nextID++
	id := c.nextID
	sub.handlers[id] = subscription{name: name, handler: handler}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		current, ok := c.subs[channel]
		if !ok {
			return
		}
		delete(current.handlers, id)
		// Last handler gone: close the redis subscription, which also ends
		// the dispatch goroutine ranging over its channel.
		if len(current.handlers) == 0 && !c.closed {
			delete(c.subs, channel)
			_ = current.pubsub.Close()
		}
	}
}

func (c *redisClient) dispatch(channel Channel, sub *channelSub) {
	ctx := logger.WithLogFields(context.Background(), logger.LogFields{
		Component: "studio.bus",
		Channel:   logger.Ptr(string(channel)),
	})

	for msg := range sub.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			slog.WarnContext(ctx, "dropping malformed bus message", "error", err)
			continue
		}

		c.mu.Lock()
		matched := make([]Handler, 0, len(sub.handlers))
		for _, s := range sub.handlers {
			if s.name == env.Name {
				matched = append(matched, s.handler)
			}
		}
		c.mu.Unlock()

		for _, h := range matched {
			c.invoke(ctx, h, env)
		}
	}
}

// invoke shields the dispatch loop from a misbehaving handler: one bad event
// must not stop delivery of subsequent events.
func (c *redisClient) invoke(ctx context.Context, h Handler, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "bus handler panicked", "panic", r, "event_name", env.Name)
		}
	}()
	h(ctx, env.Name, env.Data, env.Timestamp)
}

func (c *redisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	for _, sub := range c.subs {
		_ = sub.pubsub.Close()
	}
	return c.rdb.Close()
}
