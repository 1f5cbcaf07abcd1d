package eventbus_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/formrelay/internal/eventbus"
)

func TestPublishAndReceive(t *testing.T) {
	bus := eventbus.New(2, nil)
	defer bus.Close()

	var received []eventbus.Event
	var mu sync.Mutex

	bus.Subscribe(func(e eventbus.Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	bus.Publish(eventbus.EventSubmissionProcessed, map[string]string{"form": "contact"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, eventbus.EventSubmissionProcessed, received[0].Type)
	assert.Equal(t, "contact", received[0].Payload["form"])
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestMultipleListeners(t *testing.T) {
	bus := eventbus.New(2, nil)

	var count int32
	for i := 0; i < 3; i++ {
		bus.Subscribe(func(_ eventbus.Event) {
			atomic.AddInt32(&count, 1)
		})
	}

	bus.Publish(eventbus.EventWhatsAppReady, nil)
	bus.Close()

	assert.EqualValues(t, 3, atomic.LoadInt32(&count))
}

func TestListenerPanicDoesNotCrash(t *testing.T) {
	bus := eventbus.New(1, nil)

	var goodCalled int32
	bus.Subscribe(func(_ eventbus.Event) {
		panic("intentional panic in listener")
	})
	bus.Subscribe(func(_ eventbus.Event) {
		atomic.AddInt32(&goodCalled, 1)
	})

	bus.Publish("panic.event", nil)
	bus.Close()

	assert.EqualValues(t, 1, atomic.LoadInt32(&goodCalled))
}

func TestCloseDrainsQueue(t *testing.T) {
	bus := eventbus.New(2, nil)

	var count int32
	bus.Subscribe(func(_ eventbus.Event) {
		atomic.AddInt32(&count, 1)
	})

	for i := 0; i < 5; i++ {
		bus.Publish("evt", nil)
	}
	bus.Close()

	assert.EqualValues(t, 5, atomic.LoadInt32(&count))
}

func TestPublishAfterClose(t *testing.T) {
	bus := eventbus.New(0, nil)
	bus.Close()

	// Dropped with a warning rather than panicking on a closed channel.
	assert.NotPanics(t, func() { bus.Publish("late", nil) })
	// Close is idempotent.
	assert.NotPanics(t, bus.Close)
}
