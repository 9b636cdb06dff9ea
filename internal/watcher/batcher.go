package watcher

import (
	"sync"
	"time"
)

// Batcher collects events and emits them as one batch once a quiet period
// has passed. Every Add resets the quiet-period timer.
type Batcher struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	events []Event
	emit   Handler
}

// NewBatcher creates a batcher that calls emit after delay of quiet.
func NewBatcher(delay time.Duration, emit Handler) *Batcher {
	return &Batcher{
		delay:  delay,
		events: make([]Event, 0),
		emit:   emit,
	}
}

// Add queues an event and resets the quiet-period timer.
func (b *Batcher) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

func (b *Batcher) flush() {
	b.mu.Lock()
	events := b.events
	b.events = make([]Event, 0)
	b.timer = nil
	b.mu.Unlock()

	if len(events) > 0 && b.emit != nil {
		b.emit(events)
	}
}

// Flush immediately emits any pending events.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// Cancel drops pending events without emitting them.
func (b *Batcher) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.events = make([]Event, 0)
}

// Pending returns the number of queued events.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
