package core

import (
	"sync"

	"github.com/go-drift/modelkit/pkg/errors"
)

// Subscription is returned by the observe and subscribe functions. The
// callback stays registered until Unsubscribe is called or either entity
// involved is released.
type Subscription struct {
	once        sync.Once
	unsubscribe func()
}

// Unsubscribe removes the callback. No delivery happens after it returns,
// including deliveries already in progress for the current flush. Calling
// it more than once, or on a nil Subscription, is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.unsubscribe == nil {
		return
	}
	s.once.Do(s.unsubscribe)
}

// inertSubscription is returned when registering against a stale handle.
func inertSubscription() *Subscription {
	return &Subscription{}
}

type subscriber[C any] struct {
	id       uint64
	callback C
	active   bool
}

// subscriberSet holds ordered callback lists keyed by entity.
type subscriberSet[C any] struct {
	mu    sync.Mutex
	next  uint64
	lists map[EntityID][]*subscriber[C]
}

func newSubscriberSet[C any]() *subscriberSet[C] {
	return &subscriberSet[C]{lists: make(map[EntityID][]*subscriber[C])}
}

func (s *subscriberSet[C]) insert(key EntityID, callback C) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	sub := &subscriber[C]{id: s.next, callback: callback, active: true}
	s.lists[key] = append(s.lists[key], sub)
	return &Subscription{unsubscribe: func() { s.remove(key, sub.id) }}
}

func (s *subscriberSet[C]) remove(key EntityID, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	for i, sub := range list {
		if sub.id == id {
			sub.active = false
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.lists, key)
		return
	}
	s.lists[key] = list
}

// retain calls fn for each callback registered under key at the time of
// the call, in registration order. Callbacks registered during delivery
// wait for the next call; callbacks removed during delivery are skipped.
// A callback for which fn returns false is removed. A panicking callback
// is reported under op and stays registered; delivery moves on to the
// next one.
func (s *subscriberSet[C]) retain(op string, key EntityID, fn func(C) bool) {
	s.mu.Lock()
	snapshot := append([]*subscriber[C](nil), s.lists[key]...)
	s.mu.Unlock()

	for _, sub := range snapshot {
		s.mu.Lock()
		active := sub.active
		s.mu.Unlock()
		if !active {
			continue
		}
		if !s.deliver(op, key, sub.callback, fn) {
			s.remove(key, sub.id)
		}
	}
}

func (s *subscriberSet[C]) deliver(op string, key EntityID, callback C, fn func(C) bool) (keep bool) {
	keep = true
	defer errors.Recover(op, key.String(), nil)
	return fn(callback)
}

func (s *subscriberSet[C]) clear(key EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.lists[key] {
		sub.active = false
	}
	delete(s.lists, key)
}

func (s *subscriberSet[C]) len(key EntityID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[key])
}
