package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversInOrderAndUnsubscribes(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	var got []string
	unsubA := bus.Subscribe(func(context.Context, Event) error { got = append(got, "a"); return nil })
	bus.Subscribe(func(context.Context, Event) error { got = append(got, "b"); return nil })
	assert.Equal(t, 2, bus.Subscribers())

	require.NoError(t, bus.Publish(context.Background(), Event{Kind: EventSignedIn}))
	assert.Equal(t, []string{"a", "b"}, got)

	unsubA()
	unsubA()
	assert.Equal(t, 1, bus.Subscribers())

	got = nil
	require.NoError(t, bus.Publish(context.Background(), Event{Kind: EventSignedOut}))
	assert.Equal(t, []string{"b"}, got)
}

func TestEventBus_JoinsHandlerErrors(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	errA := errors.New("a failed")
	calledB := false
	bus.Subscribe(func(context.Context, Event) error { return errA })
	bus.Subscribe(func(context.Context, Event) error { calledB = true; return nil })

	err := bus.Publish(context.Background(), Event{Kind: EventSignedIn})
	assert.ErrorIs(t, err, errA)
	assert.True(t, calledB)
}

func TestEventBus_StampsTime(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	var ev Event
	bus.Subscribe(func(_ context.Context, e Event) error { ev = e; return nil })

	require.NoError(t, bus.Publish(context.Background(), Event{Kind: EventSessionMissing}))
	assert.False(t, ev.At.IsZero())
}
