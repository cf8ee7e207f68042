package testing

import (
	"github.com/go-drift/modelkit/pkg/core"
)

// EventRecorder collects the events an entity emits.
type EventRecorder[Ev any] struct {
	events []Ev
	sub    *core.Subscription
}

// RecordEvents subscribes to events of type Ev emitted by m.
func RecordEvents[T, Ev any](a *TestApp, m *core.Model[T]) *EventRecorder[Ev] {
	r := &EventRecorder[Ev]{}
	r.sub = core.Subscribe(a.App, m, func(_ *core.Model[T], ev Ev, _ *core.App) {
		r.events = append(r.events, ev)
	})
	return r
}

// Events returns the recorded events in delivery order.
func (r *EventRecorder[Ev]) Events() []Ev {
	return append([]Ev(nil), r.events...)
}

// Take returns the recorded events and forgets them.
func (r *EventRecorder[Ev]) Take() []Ev {
	events := r.events
	r.events = nil
	return events
}

// Stop ends recording.
func (r *EventRecorder[Ev]) Stop() {
	r.sub.Unsubscribe()
}

// NotificationCounter counts the changed notifications of an entity.
type NotificationCounter struct {
	count int
	sub   *core.Subscription
}

// CountNotifications starts counting notifications of m.
func CountNotifications[T any](a *TestApp, m *core.Model[T]) *NotificationCounter {
	c := &NotificationCounter{}
	c.sub = core.Observe(a.App, m, func(*core.Model[T], *core.App) {
		c.count++
	})
	return c
}

// Count returns how many notifications were delivered.
func (c *NotificationCounter) Count() int {
	return c.count
}

// Stop ends counting.
func (c *NotificationCounter) Stop() {
	c.sub.Unsubscribe()
}
