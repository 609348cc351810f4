// Package bus fans decoded frames out to visualization and logging
// subscribers before the backing buffer returns to the pool.
package bus

import (
	"log/slog"
	"sync"

	"depthrig/internal/frame"
)

// Handler receives one decoded frame. The frame's values alias the readback
// view and must not be retained past the call.
type Handler func(frame.Decoded)

type subscriber struct {
	id string
	fn Handler
}

// Bus is an ordered multicast point for decoded frames. Fan-out is
// synchronous in subscription order; a panicking subscriber is isolated and
// logged so the rest still run and the buffer is still released. The bus
// holds no subscriber ownership: subscribers attach on activation and detach
// on deactivation themselves.
type Bus struct {
	mu   sync.Mutex
	subs []subscriber
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers fn under id. Re-subscribing an existing id replaces
// its handler in place, keeping its original position.
func (b *Bus) Subscribe(id string, fn Handler) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.subs {
		if b.subs[i].id == id {
			b.subs[i].fn = fn
			return
		}
	}
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
}

// Unsubscribe removes id. Unknown ids are a no-op.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.subs {
		if b.subs[i].id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers f to every subscriber in subscription order.
func (b *Bus) Publish(f frame.Decoded) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		deliver(s, f)
	}
}

func deliver(s subscriber, f frame.Decoded) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bus: subscriber fault", "id", s.id, "panic", r)
		}
	}()
	s.fn(f)
}
