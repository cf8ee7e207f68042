// Package core provides the entity store, typed handles and the update,
// observation and global-state APIs of the runtime.
//
// # Entities
//
// An App owns every entity. Entities are created with BuildModel and are
// only reachable through handles:
//
//	counter, _ := core.BuildModel(app, func(cx *core.ModelContext[Counter]) Counter {
//	    return Counter{}
//	})
//	core.UpdateModel(app, counter, func(c *Counter, cx *core.ModelContext[Counter]) int {
//	    c.Count++
//	    return c.Count
//	})
//
// An update closure has exclusive access to its entity. Accessing the same
// entity again from inside the closure panics with an *errors.Error of kind
// errors.KindReentrant. Other entities may be updated freely.
//
// # Handles
//
// Model[T] is a strong, reference counted handle. Clone adds a reference
// and Release drops one; the entity is destroyed once the last strong
// handle is released and no update is on the stack. WeakModel[T] does not
// keep the entity alive and must be upgraded before use.
//
// # Notifications and events
//
// Every successful UpdateModel queues a "changed" notification for the
// entity; ModelContext.Emit queues a typed event. Both are delivered after
// the outermost update returns, to subscribers in registration order.
// Several notifications for one entity queued before a flush are delivered
// once. Observe and Subscribe return a *Subscription that stays active
// until Unsubscribe is called.
//
// # Globals
//
// Globals are singletons keyed by type. They are read and written through
// the App with the same exclusive access rules as entities and never
// produce notifications.
//
// # Threading
//
// The App is owned by the foreground lane. Spawn runs work there and hands
// it an AsyncApp, whose operations fail with errors.ErrAppReleased once the
// app has quit. Background work computes values and returns them to a
// foreground task, or hands a closure to AsyncApp.Update, which runs it on
// the foreground lane. A Context bound to a background task refuses every
// operation with errors.ErrWrongLane. Only handle Release and
// WeakModel.Upgrade are safe from other goroutines.
package core
