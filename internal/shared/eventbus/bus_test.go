package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus(nil)
	var got []string
	bus.Subscribe(EventTypeDocumentCreated, "first", func(ctx context.Context, e Event) error {
		got = append(got, "first:"+e.Data().(string))
		return nil
	})
	bus.Subscribe(EventTypeDocumentCreated, "second", func(ctx context.Context, e Event) error {
		got = append(got, "second:"+e.Data().(string))
		return nil
	})

	err := bus.Publish(context.Background(), NewEvent(EventTypeDocumentCreated, "doc1", "test"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:doc1", "second:doc1"}, got)
}

func TestEventBus_NoHandlers(t *testing.T) {
	bus := NewEventBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), NewEvent("nobody.listens", nil, "test")))
}

func TestEventBus_RetriesThenContinues(t *testing.T) {
	bus := NewEventBusWithConfig(nil, BusConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	var attempts int32
	var secondCalled bool
	bus.Subscribe("ev", "flaky", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("down")
	})
	bus.Subscribe("ev", "healthy", func(ctx context.Context, e Event) error {
		secondCalled = true
		return nil
	})

	err := bus.Publish(context.Background(), NewEvent("ev", nil, "test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flaky")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.True(t, secondCalled)
}

func TestEventBus_SubscribeMany(t *testing.T) {
	bus := NewEventBus(nil)
	var got []string
	bus.SubscribeMany([]string{EventTypeDocumentCreated, EventTypeDocumentDeleted}, "audit",
		func(ctx context.Context, e Event) error {
			got = append(got, e.Type())
			return nil
		})

	require.NoError(t, bus.Publish(context.Background(), NewEvent(EventTypeDocumentCreated, nil, "test")))
	require.NoError(t, bus.Publish(context.Background(), NewEvent(EventTypeDocumentUpdated, nil, "test")))
	require.NoError(t, bus.Publish(context.Background(), NewEvent(EventTypeDocumentDeleted, nil, "test")))
	assert.Equal(t, []string{EventTypeDocumentCreated, EventTypeDocumentDeleted}, got)
}
