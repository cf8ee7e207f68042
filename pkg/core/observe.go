package core

// Observe registers fn to run after every flush in which the entity behind
// m was notified. Observing a stale handle returns an inactive
// Subscription.
func Observe[T any](a *App, m *Model[T], fn func(m *Model[T], a *App)) *Subscription {
	if _, err := a.lookup("core.Observe", m.id, m.refs, m.released.Load()); err != nil {
		return inertSubscription()
	}
	weak := m.Downgrade()
	return a.observers.insert(m.id, func(a *App) bool {
		target, ok := weak.Upgrade()
		if !ok {
			return false
		}
		defer target.Release()
		fn(target, a)
		return true
	})
}

// Subscribe registers fn for events of type Ev emitted by the entity
// behind m. Events of other types are ignored.
func Subscribe[T, Ev any](a *App, m *Model[T], fn func(m *Model[T], event Ev, a *App)) *Subscription {
	if _, err := a.lookup("core.Subscribe", m.id, m.refs, m.released.Load()); err != nil {
		return inertSubscription()
	}
	weak := m.Downgrade()
	return a.listeners.insert(m.id, func(event any, a *App) bool {
		ev, ok := event.(Ev)
		if !ok {
			return true
		}
		target, ok := weak.Upgrade()
		if !ok {
			return false
		}
		defer target.Release()
		fn(target, ev, a)
		return true
	})
}

// ObserveRelease registers fn to run with the final value when the entity
// behind m is released.
func ObserveRelease[T any](a *App, m *Model[T], fn func(value *T, a *App)) *Subscription {
	if _, err := a.lookup("core.ObserveRelease", m.id, m.refs, m.released.Load()); err != nil {
		return inertSubscription()
	}
	return a.releaseObservers.insert(m.id, func(value any, a *App) {
		if v, ok := value.(*T); ok {
			fn(v, a)
		}
	})
}

// ObserveModel registers fn to run, with exclusive access to the entity
// cx is bound to, whenever the entity behind m is notified. The
// subscription ends on its own when either entity is released.
//
// Example:
//
//	func newStatus(cx *core.ModelContext[Status], item *core.Model[Item]) Status {
//	    s := Status{}
//	    s.sub = core.ObserveModel(cx, item, func(s *Status, item *core.Model[Item], cx *core.ModelContext[Status]) {
//	        s.refresh(cx, item)
//	        cx.Notify()
//	    })
//	    return s
//	}
func ObserveModel[T, E any](cx *ModelContext[T], m *Model[E], fn func(this *T, m *Model[E], cx *ModelContext[T])) *Subscription {
	a := cx.App
	if _, err := a.lookup("core.ObserveModel", m.id, m.refs, m.released.Load()); err != nil {
		return inertSubscription()
	}
	subscriber := cx.id
	emitter := m.Downgrade()
	return a.observers.insert(m.id, func(a *App) bool {
		target, ok := emitter.Upgrade()
		if !ok {
			return false
		}
		defer target.Release()
		_, err := updateEntity(a, "core.ObserveModel", subscriber, a.refs, false, false,
			func(this *T, cx *ModelContext[T]) struct{} {
				fn(this, target, cx)
				return struct{}{}
			})
		return err == nil
	})
}

// SubscribeModel registers fn to run, with exclusive access to the entity
// cx is bound to, for every event of type Ev emitted by the entity behind
// m.
func SubscribeModel[T, E, Ev any](cx *ModelContext[T], m *Model[E], fn func(this *T, m *Model[E], event Ev, cx *ModelContext[T])) *Subscription {
	a := cx.App
	if _, err := a.lookup("core.SubscribeModel", m.id, m.refs, m.released.Load()); err != nil {
		return inertSubscription()
	}
	subscriber := cx.id
	emitter := m.Downgrade()
	return a.listeners.insert(m.id, func(event any, a *App) bool {
		ev, ok := event.(Ev)
		if !ok {
			return true
		}
		target, ok := emitter.Upgrade()
		if !ok {
			return false
		}
		defer target.Release()
		_, err := updateEntity(a, "core.SubscribeModel", subscriber, a.refs, false, false,
			func(this *T, cx *ModelContext[T]) struct{} {
				fn(this, target, ev, cx)
				return struct{}{}
			})
		return err == nil
	})
}
