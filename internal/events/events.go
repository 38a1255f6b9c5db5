// Package events publishes todo change notifications.
package events

import (
	"context"
	"time"
)

// Type identifies what happened to a todo.
type Type string

const (
	TodoCreated Type = "todo.created"
	TodoDeleted Type = "todo.deleted"
)

// Event is published after a create or delete has been committed to the store.
type Event struct {
	Type       Type      `json:"type"`
	Namespace  string    `json:"namespace"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Publisher delivers events to subscribers outside the service.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                        { return nil }
