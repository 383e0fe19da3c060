package service

import (
	"sync"
)

// subscriberBuffer is how many frames a slow observer may lag behind.
const subscriberBuffer = 16

// Broker is an in-process pub/sub of JSON-encoded views.
type Broker struct {
	mu     sync.RWMutex
	subs   map[chan []byte]struct{}
	closed bool

	onDrop func()
}

// NewBroker returns an empty broker. onDrop, if set, is called for every
// frame a slow subscriber misses.
func NewBroker(onDrop func()) *Broker {
	return &Broker{
		subs:   make(map[chan []byte]struct{}),
		onDrop: onDrop,
	}
}

// Subscribe returns a channel of frames. It is closed by Unsubscribe or
// Close. Subscribing to a closed broker yields a closed channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Publish sends a frame to every subscriber without blocking.
func (b *Broker) Publish(frame []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- frame:
		default:
			// Drop if subscriber is slow.
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}

// Len returns the number of subscribers.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel and refuses new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
