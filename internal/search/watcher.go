package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nearby-market/internal/changefeed"
	"nearby-market/internal/common/logger"
)

// Watcher re-runs a product search whenever the products table changes.
type Watcher struct {
	feed   changefeed.Feed
	svc    *Service
	logger logger.Logger
}

func NewWatcher(feed changefeed.Feed, svc *Service, log logger.Logger) *Watcher {
	return &Watcher{
		feed:   feed,
		svc:    svc,
		logger: log.WithFields(map[string]interface{}{"component": "search-watcher"}),
	}
}

// Watch blocks until ctx is done or the feed closes, calling onResults with a
// fresh result after each burst of product changes. Failed re-queries are
// logged and skipped.
func (w *Watcher) Watch(ctx context.Context, q Query, onResults func(context.Context, *Results)) error {
	sub, err := w.feed.Subscribe(ctx, "products")
	if err != nil {
		return fmt.Errorf("watch products: %w", err)
	}
	defer sub.Unsubscribe()

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if !drain(events) {
				return nil
			}
			res, err := w.svc.SearchProducts(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Warn("re-running search failed", map[string]interface{}{"term": q.Term, "error": err})
				continue
			}
			onResults(ctx, res)
		}
	}
}

// drain discards events already queued so a burst triggers one re-query.
// It reports false once the channel is closed.
func drain(events <-chan changefeed.Event) bool {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

// ResultsMessage is the message published to the process when a live search changes.
const ResultsMessage = "search-results-updated"

// MessagePublisher publishes a correlated process message. camunda.Client implements it.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error
}

// LiveSearches keeps watched searches running for a bounded time and pushes
// every refreshed result to the waiting process instance.
type LiveSearches struct {
	watcher   *Watcher
	publisher MessagePublisher
	ttl       time.Duration
	logger    logger.Logger

	mu     sync.Mutex
	active map[string]*liveWatch
	wg     sync.WaitGroup
	closed bool
}

type liveWatch struct {
	cancel context.CancelFunc
}

func NewLiveSearches(watcher *Watcher, publisher MessagePublisher, ttl time.Duration, log logger.Logger) *LiveSearches {
	return &LiveSearches{
		watcher:   watcher,
		publisher: publisher,
		ttl:       ttl,
		logger:    log.WithFields(map[string]interface{}{"component": "live-search"}),
		active:    make(map[string]*liveWatch),
	}
}

// Start watches q on behalf of correlationKey for ttl, replacing any earlier
// watch for the same key. A non-positive ttl uses the default.
func (l *LiveSearches) Start(correlationKey string, q Query, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if prev, ok := l.active[correlationKey]; ok {
		prev.cancel()
	}

	if ttl <= 0 {
		ttl = l.ttl
	}
	ctx, cancel := context.WithTimeout(context.Background(), ttl)
	lw := &liveWatch{cancel: cancel}
	l.active[correlationKey] = lw
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		defer l.release(correlationKey, lw)

		err := l.watcher.Watch(ctx, q, func(ctx context.Context, res *Results) {
			if err := l.publisher.PublishMessage(ctx, ResultsMessage, correlationKey, res); err != nil {
				l.logger.Warn("publishing refreshed results failed", map[string]interface{}{
					"correlationKey": correlationKey,
					"error":          err,
				})
			}
		})
		if err != nil {
			l.logger.Warn("live search stopped", map[string]interface{}{"correlationKey": correlationKey, "error": err})
		}
	}()
}

// release forgets key unless a newer watch already took its place.
func (l *LiveSearches) release(key string, lw *liveWatch) {
	lw.cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[key] == lw {
		delete(l.active, key)
	}
}

// Stop ends the watch for correlationKey, if any.
func (l *LiveSearches) Stop(correlationKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lw, ok := l.active[correlationKey]; ok {
		lw.cancel()
		delete(l.active, correlationKey)
	}
}

func (l *LiveSearches) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// Close stops every watch and waits for them to exit.
func (l *LiveSearches) Close() {
	l.mu.Lock()
	l.closed = true
	for key, lw := range l.active {
		lw.cancel()
		delete(l.active, key)
	}
	l.mu.Unlock()
	l.wg.Wait()
}
