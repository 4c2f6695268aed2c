// Package changefeed delivers row-level change notifications for the shops,
// products and reviews tables.
//
// Two backends exist. PostgresFeed listens to the NOTIFY payloads emitted by
// the table triggers installed with the schema. RedisFeed uses pub/sub and is
// fed by the workers themselves after every successful write.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Event describes one committed change.
type Event struct {
	Table     string    `json:"table"`
	Operation Operation `json:"operation"`
	RecordID  string    `json:"recordId"`
	At        time.Time `json:"at"`
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode change event: %w", err)
	}
	return ev, nil
}

// Subscription is a live stream of events for one table. Unsubscribe stops
// delivery and closes the Events channel; it is safe to call more than once.
type Subscription interface {
	Events() <-chan Event
	Unsubscribe() error
}

type Feed interface {
	Subscribe(ctx context.Context, table string) (Subscription, error)
}

// Publisher is implemented by feeds that rely on writers to announce changes.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops events. It stands in when the feed is trigger driven.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NewEvent stamps an event with the current time.
func NewEvent(table string, op Operation, recordID string) Event {
	return Event{Table: table, Operation: op, RecordID: recordID, At: time.Now().UTC()}
}

const eventBuffer = 64
