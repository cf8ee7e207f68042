package core

import (
	"cmp"
	"reflect"
	"slices"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/errors"
	"github.com/go-drift/modelkit/pkg/executor"
	"github.com/go-drift/modelkit/pkg/logging"
)

// quitKey is the subscriber key for quit observers. Entity ids start at 1.
const quitKey EntityID = 0

type (
	observeCallback func(a *App) bool
	eventCallback   func(event any, a *App) bool
	releaseCallback func(value any, a *App)
)

// App owns every entity, window and global of an application. It is the
// root Context; ModelContext and WindowContext embed it.
type App struct {
	id         uuid.UUID
	log        zerolog.Logger
	dispatcher dispatch.Dispatcher
	ownsDisp   bool
	bg         *executor.Background
	fg         *executor.Foreground
	self       weak.Pointer[App]
	quit       atomic.Bool

	refs     *refCounts
	nextID   EntityID
	entities map[EntityID]*entitySlot

	nextWindow WindowID
	windows    map[WindowID]*windowSlot

	globals map[reflect.Type]*globalSlot

	observers        *subscriberSet[observeCallback]
	listeners        *subscriberSet[eventCallback]
	releaseObservers *subscriberSet[releaseCallback]
	quitObservers    *subscriberSet[func(a *App)]

	effects              []effect
	pendingNotifications map[EntityID]bool
	pendingUpdates       int
	flushing             bool
}

// Option configures an App.
type Option func(*App)

// WithDispatcher runs the app's executors on d. Without it the app starts
// and owns a dispatch.PlatformDispatcher, closed on Quit.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(a *App) {
		if d != nil {
			a.dispatcher = d
		}
	}
}

// WithLogger replaces the app logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// NewApp creates an application context.
func NewApp(opts ...Option) *App {
	a := &App{
		id:                   uuid.New(),
		log:                  logging.For("app"),
		refs:                 newRefCounts(),
		entities:             make(map[EntityID]*entitySlot),
		windows:              make(map[WindowID]*windowSlot),
		globals:              make(map[reflect.Type]*globalSlot),
		observers:            newSubscriberSet[observeCallback](),
		listeners:            newSubscriberSet[eventCallback](),
		releaseObservers:     newSubscriberSet[releaseCallback](),
		quitObservers:        newSubscriberSet[func(a *App)](),
		pendingNotifications: make(map[EntityID]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.dispatcher == nil {
		a.dispatcher = dispatch.NewPlatformDispatcher()
		a.ownsDisp = true
	}
	a.log = a.log.With().Str("app", a.id.String()).Logger()
	a.bg = executor.NewBackground(a.dispatcher)
	a.fg = executor.NewForeground(a.dispatcher)
	a.self = weak.Make(a)
	a.log.Debug().Msg("app created")
	return a
}

func (a *App) appContext() (*App, error) {
	if a.quit.Load() {
		return nil, errors.New("core.App", errors.KindAppReleased, "", errors.ErrAppReleased)
	}
	return a, nil
}

// ID returns the app's unique identifier.
func (a *App) ID() uuid.UUID {
	return a.id
}

// Dispatcher returns the dispatcher backing both executors.
func (a *App) Dispatcher() dispatch.Dispatcher {
	return a.dispatcher
}

// Background returns the background executor.
func (a *App) Background() *executor.Background {
	return a.bg
}

// Foreground returns the foreground executor.
func (a *App) Foreground() *executor.Foreground {
	return a.fg
}

// Logger returns the app logger.
func (a *App) Logger() zerolog.Logger {
	return a.log
}

// ToAsync returns an AsyncApp for use inside asynchronous work.
func (a *App) ToAsync() *AsyncApp {
	return &AsyncApp{app: a.self, bg: a.bg, fg: a.fg}
}

// Update runs fn as one batch: notifications, events and releases it
// causes are delivered when fn returns. It is a no-op after Quit.
func (a *App) Update(fn func(a *App)) {
	if a.quit.Load() {
		return
	}
	a.batch(func() {
		if fn != nil {
			fn(a)
		}
	})
}

// Released reports whether Quit has been called.
func (a *App) Released() bool {
	return a.quit.Load()
}

// EntityCount reports how many entities are alive.
func (a *App) EntityCount() int {
	return len(a.entities)
}

// OnQuit registers fn to run when the app quits, before entities are
// released.
func (a *App) OnQuit(fn func(a *App)) *Subscription {
	if fn == nil || a.quit.Load() {
		return inertSubscription()
	}
	return a.quitObservers.insert(quitKey, fn)
}

// Quit tears the application down. Quit observers run first, then every
// entity is released in creation order and its release observers run.
// Afterwards every handle is stale and every AsyncApp fails with
// errors.ErrAppReleased.
func (a *App) Quit() {
	if a.quit.Load() {
		return
	}
	a.batch(func() {
		a.quitObservers.retain("core.OnQuit", quitKey, func(fn func(a *App)) bool {
			fn(a)
			return true
		})
	})
	a.quit.Store(true)
	a.quitObservers.clear(quitKey)

	a.refs.close()
	a.destroyAll()
	a.effects = nil
	clear(a.pendingNotifications)
	clear(a.windows)
	clear(a.globals)

	if closer, ok := a.dispatcher.(interface{ Close() }); ok && a.ownsDisp {
		closer.Close()
	}
	a.log.Debug().Msg("app quit")
}

// Refresh marks every open window dirty.
func (a *App) Refresh() {
	for _, w := range a.windows {
		w.dirty = true
	}
}

// Windows returns the open windows in creation order.
func (a *App) Windows() []WindowHandle {
	handles := make([]WindowHandle, 0, len(a.windows))
	for id := range a.windows {
		handles = append(handles, WindowHandle{id: id})
	}
	slices.SortFunc(handles, func(x, y WindowHandle) int {
		return cmp.Compare(x.id, y.id)
	})
	return handles
}
