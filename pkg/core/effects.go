package core

type effectKind int

const (
	effectNotify effectKind = iota
	effectEmit
)

// effect is a deferred delivery queued during an update.
type effect struct {
	kind   effectKind
	entity EntityID
	event  any
}

// batch runs fn and, if it is the outermost scope, flushes the effects it
// queued. Nested scopes leave flushing to the outermost one so that no
// subscriber runs while the entity it cares about is still leased.
// Effects of a scope that panics stay queued for the next flush.
func (a *App) batch(fn func()) {
	a.pendingUpdates++
	defer func() { a.pendingUpdates-- }()
	fn()
	if a.pendingUpdates == 1 && !a.flushing {
		a.flushEffects()
	}
}

// flushEffects drains the effect queue in order, releasing dropped
// entities between effects. Effects queued by callbacks are appended and
// drained by the same loop, so each is delivered exactly once.
func (a *App) flushEffects() {
	a.flushing = true
	defer func() { a.flushing = false }()

	for {
		a.releaseDropped()
		if len(a.effects) == 0 {
			return
		}
		e := a.effects[0]
		a.effects[0] = effect{}
		a.effects = a.effects[1:]

		switch e.kind {
		case effectNotify:
			delete(a.pendingNotifications, e.entity)
			a.applyNotify(e.entity)
		case effectEmit:
			a.applyEmit(e.entity, e.event)
		}
	}
}

// notify queues a changed notification. Notifications for an entity that
// is already pending are coalesced.
func (a *App) notify(id EntityID) {
	if a.pendingNotifications[id] {
		return
	}
	if _, ok := a.entities[id]; !ok {
		return
	}
	a.pendingNotifications[id] = true
	a.effects = append(a.effects, effect{kind: effectNotify, entity: id})
}

func (a *App) emit(id EntityID, event any) {
	a.effects = append(a.effects, effect{kind: effectEmit, entity: id, event: event})
}

func (a *App) applyNotify(id EntityID) {
	for _, w := range a.windows {
		if w.root.id == id && w.root.refs == a.refs {
			w.dirty = true
		}
	}
	a.observers.retain("core.Observe", id, func(cb observeCallback) bool {
		return cb(a)
	})
}

func (a *App) applyEmit(id EntityID, event any) {
	a.listeners.retain("core.Subscribe", id, func(cb eventCallback) bool {
		return cb(event, a)
	})
}
