package changefeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/metrics"
)

// ChannelName is the NOTIFY channel the table trigger writes to.
func ChannelName(table string) string {
	return table + "_changes"
}

type notifySource interface {
	Listen(channel string) error
	Notifications() <-chan *pq.Notification
	Close() error
}

type pqSource struct {
	*pq.Listener
}

func (s pqSource) Notifications() <-chan *pq.Notification {
	return s.Notify
}

// ListenerFactory opens a new pq.Listener. database.PostgresClient.NewListener fits.
type ListenerFactory func(onEvent func(pq.ListenerEventType, error)) (*pq.Listener, error)

// PostgresFeed opens one LISTEN connection per subscription.
type PostgresFeed struct {
	open   func() (notifySource, error)
	logger logger.Logger
}

func NewPostgresFeed(factory ListenerFactory, log logger.Logger) *PostgresFeed {
	log = log.WithFields(map[string]interface{}{"component": "changefeed", "backend": "postgres"})
	return &PostgresFeed{
		open: func() (notifySource, error) {
			l, err := factory(func(ev pq.ListenerEventType, err error) {
				switch ev {
				case pq.ListenerEventDisconnected:
					log.Warn("listener disconnected", map[string]interface{}{"error": err})
				case pq.ListenerEventReconnected:
					log.Info("listener reconnected", nil)
				case pq.ListenerEventConnectionAttemptFailed:
					log.Warn("listener reconnect attempt failed", map[string]interface{}{"error": err})
				}
			})
			if err != nil {
				return nil, err
			}
			return pqSource{l}, nil
		},
		logger: log,
	}
}

func (f *PostgresFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
	src, err := f.open()
	if err != nil {
		return nil, fmt.Errorf("open listener for %s: %w", table, err)
	}
	channel := ChannelName(table)
	if err := src.Listen(channel); err != nil {
		src.Close()
		return nil, fmt.Errorf("listen on %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &pgSubscription{
		src:    src,
		events: make(chan Event, eventBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.run(ctx, table, f.logger)

	f.logger.Info("subscribed to table changes", map[string]interface{}{"table": table, "channel": channel})
	return sub, nil
}

type pgSubscription struct {
	src    notifySource
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *pgSubscription) Events() <-chan Event { return s.events }

func (s *pgSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.err = s.src.Close()
	})
	return s.err
}

func (s *pgSubscription) run(ctx context.Context, table string, log logger.Logger) {
	defer close(s.done)
	defer close(s.events)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-s.src.Notifications():
			if !ok {
				return
			}
			// nil after a reconnect; notifications sent meanwhile are lost
			if n == nil {
				continue
			}
			ev, err := decodeEvent(n.Extra)
			if err != nil {
				log.Warn("dropping undecodable notification", map[string]interface{}{"channel": n.Channel, "error": err})
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
