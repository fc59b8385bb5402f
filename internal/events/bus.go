package events

import (
	"sync"
	"sync/atomic"
)

// Bus fans engine events out to an explicit list of subscribers. Publish
// never blocks the matching path: a subscriber whose buffer is full loses the
// event and the drop counter goes up. Slow collaborators size their buffers
// accordingly.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan Event
	closed  bool
	dropped uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns its receive side. Subscribers registered after events were
// published only see later events.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 256
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

// PublishAll delivers a batch in order.
func (b *Bus) PublishAll(evs ...Event) {
	for _, ev := range evs {
		b.Publish(ev)
	}
}

// Dropped returns how many events were lost to full subscriber buffers.
func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
