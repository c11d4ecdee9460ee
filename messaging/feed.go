// Package messaging provides the in-process event feeds that the monitor and
// privacy manager publish on, and the subject names used when those feeds are
// forwarded to an external broker.
package messaging

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber buffer used when none is given
const DefaultBuffer = 64

// Feed broadcasts values to any number of subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the value and the miss is counted.
type Feed[T any] struct {
	mu      sync.RWMutex
	subs    map[*Subscription[T]]struct{}
	closed  bool
	dropped atomic.Int64
}

// Subscription receives values from a Feed
type Subscription[T any] struct {
	feed *Feed[T]
	ch   chan T
	once sync.Once
}

// NewFeed creates an empty feed
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a new subscriber with the given buffer size
func (f *Feed[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscription[T]{feed: f, ch: make(chan T, buffer)}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(s.ch)
		return s
	}
	f.subs[s] = struct{}{}
	return s
}

// Publish delivers v to every subscriber that has room
func (f *Feed[T]) Publish(v T) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for s := range f.subs {
		select {
		case s.ch <- v:
		default:
			f.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full
func (f *Feed[T]) Dropped() int64 {
	return f.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for s := range f.subs {
		s.once.Do(func() { close(s.ch) })
		delete(f.subs, s)
	}
}

// C returns the receive channel. It is closed on Unsubscribe or when the feed closes.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Unsubscribe detaches the subscriber and closes its channel
func (s *Subscription[T]) Unsubscribe() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	delete(s.feed.subs, s)
	s.once.Do(func() { close(s.ch) })
}
