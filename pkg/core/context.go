package core

// Context is implemented by *App, *ModelContext, *WindowContext and the
// contexts returned by AsyncApp.Bind. Functions taking a Context fail with
// errors.ErrAppReleased once the app has quit.
type Context interface {
	appContext() (*App, error)
}

// ModelContext is handed to build and update closures of an entity of
// type T. It embeds the App, so every App method is available, and adds
// operations bound to the entity being built or updated.
type ModelContext[T any] struct {
	*App
	id EntityID
}

// EntityID returns the id of the entity the context is bound to.
func (cx *ModelContext[T]) EntityID() EntityID {
	return cx.id
}

// Handle returns a weak handle to the entity.
func (cx *ModelContext[T]) Handle() *WeakModel[T] {
	return &WeakModel[T]{id: cx.id, refs: cx.refs}
}

// Model returns a new strong handle to the entity. The caller owns the
// reference and must release it.
func (cx *ModelContext[T]) Model() (*Model[T], bool) {
	return cx.Handle().Upgrade()
}

// Notify queues a changed notification for the entity. Updates made with
// UpdateModel notify on their own; Notify is for changes made from
// subscription callbacks and spawned work.
func (cx *ModelContext[T]) Notify() {
	cx.notify(cx.id)
}

// Emit queues event for subscribers of the entity. Subscribers receive it
// if its dynamic type matches the event type they subscribed with.
func (cx *ModelContext[T]) Emit(event any) {
	cx.emit(cx.id, event)
}

// OnRelease registers fn to run with the final value when the entity is
// released.
func (cx *ModelContext[T]) OnRelease(fn func(value *T, a *App)) *Subscription {
	return cx.releaseObservers.insert(cx.id, func(value any, a *App) {
		if v, ok := value.(*T); ok {
			fn(v, a)
		}
	})
}
