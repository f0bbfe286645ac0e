package lantern

import "sync"

// Emitter sends events to a named window. Sends are fire-and-forget: no
// acknowledgement, no retry, and a send to a window nobody is listening on
// is dropped by the transport, not queued.
type Emitter interface {
	Emit(window string, ev Event)
}

// Transport is a full event channel: emit plus per-window subscription.
// Delivery is FIFO per sender for a given window; nothing is guaranteed
// across two different senders.
type Transport interface {
	Emitter

	// Subscribe registers fn for every event addressed to window and
	// returns a function that removes the registration. Unsubscribing twice
	// is a no-op.
	Subscribe(window string, fn func(Event)) (unsubscribe func())
}

// MemoryBus is the in-process Transport used when the control panel and the
// display views run in one process. Handlers run synchronously on the
// emitting goroutine, which preserves per-sender FIFO order.
type MemoryBus struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(Event)
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]func(Event))}
}

// Emit delivers ev to every subscriber of window. Windows with no
// subscribers drop the event silently.
func (b *MemoryBus) Emit(window string, ev Event) {
	b.mu.Lock()
	handlers := make([]func(Event), 0, len(b.subs[window]))
	for _, fn := range b.subs[window] {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribe registers fn for events addressed to window.
func (b *MemoryBus) Subscribe(window string, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	if b.subs[window] == nil {
		b.subs[window] = make(map[int]func(Event))
	}
	b.subs[window][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[window], id)
	}
}
