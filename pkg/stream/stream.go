// Package stream provides the bounded, non-blocking channels the feed pipeline
// is built from: a drop-oldest offer, a fan-out broadcaster and an observable
// state value.
package stream

import (
	"sync"
)

// Offer pushes v onto ch without blocking. When ch is full the oldest buffered
// item is evicted to make room. It reports how many items were evicted.
// Offer assumes it is the only sender on ch; receivers may run concurrently.
func Offer[T any](ch chan T, v T) (dropped int) {
	for {
		select {
		case ch <- v:
			return dropped
		default:
		}

		select {
		case <-ch:
			dropped++
		default:
		}
	}
}

// CancelFunc ends a subscription and closes its channel. It is safe to call
// more than once.
type CancelFunc func()

// Broadcaster fans every published value out to all current subscribers.
// Each subscriber has its own bounded buffer with drop-oldest overflow, so a
// slow subscriber never blocks the publisher or its peers.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a subscriber with a buffer of size buf (minimum 1).
// Subscribing to a closed Broadcaster returns an already closed channel.
func (b *Broadcaster[T]) Subscribe(buf int) (<-chan T, CancelFunc) {
	return b.subscribe(buf, nil)
}

// subscribe registers a subscriber and, when seed is non-nil, queues it before
// any value published afterwards.
func (b *Broadcaster[T]) subscribe(buf int, seed *T) (<-chan T, CancelFunc) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan T, buf)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if seed != nil {
		ch <- *seed
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers v to every subscriber and returns the total number of
// buffered items evicted to make room.
func (b *Broadcaster[T]) Publish(v T) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		dropped += Offer(ch, v)
	}
	return dropped
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// State holds a current value and notifies subscribers when it changes.
// A new subscriber receives the current value first. Equal consecutive values
// are conflated.
type State[T any] struct {
	mu    sync.Mutex
	value T
	equal func(a, b T) bool
	out   *Broadcaster[T]
}

// NewState creates a State for a comparable type.
func NewState[T comparable](initial T) *State[T] {
	return NewStateFunc(initial, func(a, b T) bool { return a == b })
}

// NewStateFunc creates a State that uses equal to detect changes. A nil equal
// treats every Set as a change.
func NewStateFunc[T any](initial T, equal func(a, b T) bool) *State[T] {
	return &State[T]{value: initial, equal: equal, out: NewBroadcaster[T]()}
}

func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and notifies subscribers. It reports whether v differed from
// the previous value.
func (s *State[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.equal != nil && s.equal(s.value, v) {
		return false
	}
	s.value = v
	s.out.Publish(v)
	return true
}

// Update applies fn to the current value under the lock and stores the result.
func (s *State[T]) Update(fn func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := fn(s.value)
	if s.equal != nil && s.equal(s.value, v) {
		return false
	}
	s.value = v
	s.out.Publish(v)
	return true
}

// Subscribe returns a channel that first yields the current value and then
// every change. buf bounds the backlog; older changes are dropped first.
func (s *State[T]) Subscribe(buf int) (<-chan T, CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.value
	return s.out.subscribe(buf, &v)
}

// Close closes all subscriber channels.
func (s *State[T]) Close() {
	s.out.Close()
}
