package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/metrics"
)

const redisChannelPrefix = "changes:"

// RedisChannel is the pub/sub channel carrying events for table.
func RedisChannel(table string) string {
	return redisChannelPrefix + table
}

// RedisFeed fans change events out over Redis pub/sub. Writers call Publish.
type RedisFeed struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisFeed(client *redis.Client, log logger.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "changefeed", "backend": "redis"}),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, RedisChannel(ev.Table), data).Err(); err != nil {
		return fmt.Errorf("publish change event on %s: %w", RedisChannel(ev.Table), err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
	channel := RedisChannel(table)
	ps := f.client.Subscribe(ctx, channel)
	// wait for the subscription confirmation so no event published after
	// Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{
		ps:     ps,
		events: make(chan Event, eventBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.run(ctx, table, f.logger)
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		s.err = s.ps.Close()
		<-s.done
	})
	return s.err
}

func (s *redisSubscription) run(ctx context.Context, table string, log logger.Logger) {
	defer close(s.done)
	defer close(s.events)

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				log.Warn("dropping undecodable message", map[string]interface{}{"channel": msg.Channel, "error": err})
				continue
			}
			if ev.Table == "" {
				ev.Table = table
			}
			metrics.ChangeEvents.WithLabelValues(ev.Table, string(ev.Operation)).Inc()
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
