package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventUserCreated, func(ctx context.Context, e Event) error {
		calls = append(calls, "first:"+e.Key)
		return nil
	})
	d.Subscribe(EventUserCreated, func(ctx context.Context, e Event) error {
		calls = append(calls, "second:"+e.Key)
		return nil
	})
	d.Subscribe(EventUserDeleted, func(ctx context.Context, e Event) error {
		calls = append(calls, "deleted")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserCreated, Key: "jdoe"}))
	assert.Equal(t, []string{"first:jdoe", "second:jdoe"}, calls)
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	errA := errors.New("a")
	ran := false
	d.Subscribe(EventUserUpdated, func(ctx context.Context, e Event) error { return errA })
	d.Subscribe(EventUserUpdated, func(ctx context.Context, e Event) error {
		ran = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserUpdated})
	assert.ErrorIs(t, err, errA)
	assert.True(t, ran)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventUserDeleted}))
}
