package iam

import (
	"context"
	"errors"
	"sync"
	"time"
)

// EventKind names a session lifecycle change.
type EventKind string

const (
	EventSignedIn        EventKind = "signed_in"
	EventSessionRestored EventKind = "session_restored"
	EventSignedOut       EventKind = "signed_out"
	EventSessionMissing  EventKind = "session_missing"
)

// Event is one lifecycle notification. ClientID identifies the browser
// session the event belongs to. Principal is nil for SessionMissing and
// SignedOut when the owner is unknown.
type Event struct {
	Kind      EventKind
	ClientID  string
	Principal *Principal
	At        time.Time
}

// Handler consumes an event. A returned error is reported to the publisher.
type Handler func(ctx context.Context, ev Event) error

// EventBus delivers events to subscribers synchronously and in
// subscription order. Publishes are serialized.
type EventBus struct {
	mu       sync.Mutex
	deliver  sync.Mutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns the function that removes it. Calling
// the returned function more than once is harmless.
func (b *EventBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.handlers[id]; !ok {
			return
		}
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Subscribers returns the number of registered handlers.
func (b *EventBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// Publish hands ev to every subscriber and waits for all of them. Handler
// errors are joined; a failing handler does not stop delivery to the rest.
func (b *EventBus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.Unlock()

	b.deliver.Lock()
	defer b.deliver.Unlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
