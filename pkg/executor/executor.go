package executor

import "github.com/go-drift/modelkit/pkg/dispatch"

// Executor is a scheduling lane. It is implemented by Background and
// Foreground only.
type Executor interface {
	// Dispatcher returns the dispatcher the lane posts to.
	Dispatcher() dispatch.Dispatcher
	post(r dispatch.Runnable)
	foreground() bool
}

// Background posts task steps to the dispatcher's background lane.
type Background struct {
	d dispatch.Dispatcher
}

// NewBackground returns a background executor over d.
func NewBackground(d dispatch.Dispatcher) *Background {
	return &Background{d: d}
}

// Dispatcher returns the underlying dispatcher.
func (b *Background) Dispatcher() dispatch.Dispatcher { return b.d }

func (b *Background) post(r dispatch.Runnable) { b.d.Dispatch(r) }

func (b *Background) foreground() bool { return false }

// Foreground posts task steps to the dispatcher's main lane, so at most
// one foreground step runs at any time.
type Foreground struct {
	d dispatch.Dispatcher
}

// NewForeground returns a foreground executor over d.
func NewForeground(d dispatch.Dispatcher) *Foreground {
	return &Foreground{d: d}
}

// Dispatcher returns the underlying dispatcher.
func (f *Foreground) Dispatcher() dispatch.Dispatcher { return f.d }

func (f *Foreground) post(r dispatch.Runnable) { f.d.DispatchOnMainThread(r) }

func (f *Foreground) foreground() bool { return true }
