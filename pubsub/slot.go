// Package pubsub provides a single-slot broadcast primitive: subscribers
// receive the current value immediately on attach, then every later publish.
//
// Each subscription buffers exactly one value. A slow subscriber skips
// intermediate values instead of blocking the publisher, but it can never
// observe a value older than one it has already seen.
package pubsub

import "sync"

// Slot is a broadcast cell holding the most recently published value.
// The zero value is not usable; create one with NewSlot.
type Slot[T any] struct {
	mu      sync.Mutex
	current T
	primed  bool
	subs    map[*Subscription[T]]struct{}
}

// NewSlot creates an empty slot. Subscribers attached before the first
// Publish receive nothing until it happens.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{subs: make(map[*Subscription[T]]struct{})}
}

// NewSlotWith creates a slot primed with an initial value, so every
// subscriber sees it on attach.
func NewSlotWith[T any](initial T) *Slot[T] {
	s := NewSlot[T]()
	s.current = initial
	s.primed = true
	return s
}

// Publish stores v as the current value and offers it to every subscriber.
func (s *Slot[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = v
	s.primed = true
	for sub := range s.subs {
		sub.offer(v)
	}
}

// Current returns the most recently published value.
func (s *Slot[T]) Current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.primed
}

// Subscribe attaches a new subscriber. If the slot holds a value, the
// subscriber receives it immediately.
func (s *Slot[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		slot: s,
		ch:   make(chan T, 1),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	if s.primed {
		sub.offer(s.current)
	}
	return sub
}

func (s *Slot[T]) unsubscribe(sub *Subscription[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

// Subscription is one subscriber's view of a Slot.
type Subscription[T any] struct {
	slot *Slot[T]
	ch   chan T
}

// Updates returns the channel of published values. Values are conflated:
// only the newest undelivered value is pending at any time.
func (sub *Subscription[T]) Updates() <-chan T {
	return sub.ch
}

// Close detaches the subscription. The updates channel is left open so a
// racing Publish cannot panic; it simply stops receiving values.
func (sub *Subscription[T]) Close() {
	sub.slot.unsubscribe(sub)
}

// offer performs a conflated send: if the buffer already holds an
// undelivered value it is replaced by the newer one. Called with the slot
// lock held, so there is exactly one concurrent writer.
func (sub *Subscription[T]) offer(v T) {
	for {
		select {
		case sub.ch <- v:
			return
		default:
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}
