// Package bus is the in-process order event channel. Publish fans an
// event out synchronously to every registered subscriber; nothing is
// queued or persisted, so a subscriber registered after Publish
// returned has permanently missed that event. The polling side of the
// feed compensates for missed pushes.
package bus

import (
	"sync"

	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/domain"
)

type Subscriber func(domain.OrderEvent)

type Bus struct {
	mu   sync.Mutex
	next int
	subs []entry
	lg   *logger.Logger
}

type entry struct {
	id int
	fn Subscriber
}

func New(lg *logger.Logger) *Bus {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Bus{lg: lg}
}

// Subscribe registers fn and returns a disposer. Calling the disposer
// more than once is a no-op. There is no subscriber-count ceiling.
func (b *Bus) Subscribe(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.subs = append(b.subs, entry{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.subs {
			if e.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every subscriber registered at call time, in
// registration order. The subscriber list is snapshotted first, so
// subscribing or unsubscribing from inside a callback is safe. A
// panicking subscriber is logged and must not stop delivery to the
// rest. Callbacks run on the publisher's goroutine and must not block.
func (b *Bus) Publish(ev domain.OrderEvent) {
	b.mu.Lock()
	snapshot := make([]entry, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, e := range snapshot {
		b.deliver(e, ev)
	}
}

func (b *Bus) deliver(e entry, ev domain.OrderEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.lg.Error("subscriber_panic", nil, map[string]any{"recovered": r, "event": string(ev.Type)})
		}
	}()
	e.fn(ev)
}

// Len reports the current subscriber count.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
