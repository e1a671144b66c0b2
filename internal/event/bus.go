package event

import (
	"sync"
)

// Handler receives published events.
type Handler func(Event)

// Bus delivers events to subscribers synchronously, in subscription
// order. Handlers run on the publisher's goroutine, so they must be
// quick and must not publish re-entrantly.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*Subscription
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*Subscription)}
}

// Subscription is a registered handler. Cancel detaches it.
type Subscription struct {
	id      int
	pattern Topic
	handler Handler
	bus     *Bus
}

// Topic returns the subscription's pattern.
func (s *Subscription) Topic() Topic {
	return s.pattern
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}

// Subscribe registers a handler for every topic matching pattern.
func (b *Bus) Subscribe(pattern Topic, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		pattern: pattern,
		handler: fn,
		bus:     b,
	}
	if !b.closed {
		b.subs[sub.id] = sub
	}
	return sub
}

// Publish delivers an event to all matching subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	var matched []*Subscription
	for _, sub := range b.subs {
		if e.Topic.Match(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	// Deterministic delivery order.
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j-1].id > matched[j].id; j-- {
			matched[j-1], matched[j] = matched[j], matched[j-1]
		}
	}
	for _, sub := range matched {
		sub.handler(e)
	}
}

// Close detaches all subscribers; later Subscribe calls are inert.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int]*Subscription)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
