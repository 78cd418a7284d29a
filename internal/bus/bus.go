// Package bus provides a small publish-only in-process message bus. The
// propagation core publishes derived notifications (deliveries, drops) for
// outside systems; it never consumes from the bus itself.
package bus

import "sync"

// Handler receives published payloads for the topic it subscribed to.
type Handler func(payload any)

// Bus is a topic-keyed fan-out. Safe for concurrent publish and subscribe.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

// Subscribe registers a handler for a topic. Handlers run synchronously on
// the publisher's goroutine and must not block.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

// Publish delivers a payload to every handler of the topic. Handlers are
// snapshotted first so a handler may subscribe without deadlocking.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := b.subs[topic]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}
