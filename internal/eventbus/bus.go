// Package eventbus is an in-memory, asynchronous event bus. Events go through
// a buffered channel and are handed to every listener by a small worker pool.
package eventbus

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers    = 2
	defaultBufferSize = 64
)

// EventBus is the interface for publishing events and managing subscribers.
type EventBus interface {
	// Publish enqueues an event. It never blocks; when the buffer is full the
	// event is dropped and a warning is logged.
	Publish(eventType string, payload map[string]string)

	// Subscribe registers a listener called for every published event.
	// Subscribe before the first Publish; it must not be called after Close.
	Subscribe(listener Listener)

	// Close stops accepting events and waits for queued ones to be handled.
	Close()
}

type inMemoryBus struct {
	ch        chan Event
	listeners []Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    bool
	logger    *slog.Logger
}

// New creates an in-memory EventBus with the given number of workers.
// If workers is <= 0, defaultWorkers is used. A nil logger uses slog.Default.
func New(workers int, logger *slog.Logger) EventBus {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &inMemoryBus{
		ch:     make(chan Event, defaultBufferSize),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	return b
}

func (b *inMemoryBus) work() {
	defer b.wg.Done()
	for e := range b.ch {
		b.dispatch(e)
	}
}

// dispatch calls every listener, recovering from panics so one bad listener
// does not starve the others.
func (b *inMemoryBus) dispatch(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("eventbus listener panicked", "event", e.Type, "panic", r)
				}
			}()
			l(e)
		}()
	}
}

func (b *inMemoryBus) Publish(eventType string, payload map[string]string) {
	e := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("eventbus closed, dropping event", "event", eventType)
		return
	}

	select {
	case b.ch <- e:
	default:
		b.logger.Warn("eventbus buffer full, dropping event", "event", eventType)
	}
}

func (b *inMemoryBus) Subscribe(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *inMemoryBus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.ch)
		b.mu.Unlock()
	})
	b.wg.Wait()
}
