package executor

import (
	"context"
	"sync"

	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/errors"
)

type taskKey struct{}

// taskCore is the untyped part of a task. The body runs on its own
// goroutine, but control is handed back and forth over resume and parked
// so the body only ever executes while a dispatcher runnable is waiting
// for it. To the dispatcher a task step looks like an ordinary runnable.
type taskCore struct {
	exec   Executor
	body   func(ctx context.Context) error
	ctx    context.Context
	cancel context.CancelFunc

	resume chan struct{}
	parked chan struct{}
	done   chan struct{}

	// stop withdraws the delayed runnable of a timer task.
	stop dispatch.StopFunc

	mu               sync.Mutex
	started          bool
	scheduled        bool
	running          bool
	wakeWhileRunning bool
	finished         bool
	cancelled        bool
	err              error
	waiters          []func()
}

func newTaskCore(exec Executor, body func(ctx context.Context) error) *taskCore {
	c := &taskCore{
		exec:   exec,
		body:   body,
		resume: make(chan struct{}),
		parked: make(chan struct{}),
		done:   make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.ctx = context.WithValue(ctx, taskKey{}, c)
	c.cancel = cancel
	return c
}

// current returns the task whose body is running with ctx, if any.
func current(ctx context.Context) *taskCore {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(taskKey{}).(*taskCore)
	return c
}

// schedule posts a step of the task to its lane. Repeated calls before
// the step runs are collapsed.
func (c *taskCore) schedule() {
	c.mu.Lock()
	if c.scheduled || c.finished {
		c.mu.Unlock()
		return
	}
	c.scheduled = true
	c.mu.Unlock()
	c.exec.post(c.run)
}

// run executes the body until its next suspension point.
func (c *taskCore) run() {
	c.mu.Lock()
	c.scheduled = false
	if c.finished {
		c.mu.Unlock()
		return
	}
	if c.running {
		c.wakeWhileRunning = true
		c.mu.Unlock()
		return
	}
	c.running = true
	start := !c.started
	c.started = true
	c.mu.Unlock()

	if start {
		go c.main()
	} else {
		c.resume <- struct{}{}
	}
	<-c.parked
}

// suspend hands control back to the runnable that resumed the task and
// waits for the next step. It must be called from the task body.
func (c *taskCore) suspend() {
	c.mu.Lock()
	c.running = false
	wake := c.wakeWhileRunning
	c.wakeWhileRunning = false
	c.mu.Unlock()
	if wake {
		c.schedule()
	}
	c.parked <- struct{}{}
	<-c.resume
}

func (c *taskCore) main() {
	var err error
	func() {
		defer errors.Recover("executor.Task", "", func(p *errors.PanicError) {
			err = p
		})
		err = c.body(c.ctx)
	}()
	if err == nil && c.isCancelled() {
		err = errors.ErrCancelled
	}
	c.finish(err)
	c.parked <- struct{}{}
}

func (c *taskCore) finish(err error) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}
	c.finished = true
	c.running = false
	c.err = err
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	c.cancel()
	close(c.done)
	for _, w := range waiters {
		w()
	}
}

// onFinish registers fn to run once the task finishes. If it already has,
// fn runs immediately.
func (c *taskCore) onFinish(fn func()) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		fn()
		return
	}
	c.waiters = append(c.waiters, fn)
	c.mu.Unlock()
}

func (c *taskCore) isFinished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

func (c *taskCore) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func (c *taskCore) doCancel() {
	c.mu.Lock()
	if c.finished || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	started := c.started
	c.mu.Unlock()

	c.cancel()
	if c.stop != nil {
		c.stop()
	}
	if !started || c.body == nil {
		c.finish(errors.ErrCancelled)
		return
	}
	c.schedule()
}

// Task is a handle to asynchronous work producing R.
type Task[R any] struct {
	core  *taskCore
	value R
}

// Spawn schedules fn on e and returns a handle to its result. The context
// passed to fn is cancelled when the task is cancelled or finishes, and
// must be used for every suspension point inside fn.
func Spawn[R any](e Executor, fn func(ctx context.Context) (R, error)) *Task[R] {
	t := &Task[R]{}
	t.core = newTaskCore(e, func(ctx context.Context) error {
		v, err := fn(ctx)
		t.value = v
		return err
	})
	t.core.schedule()
	return t
}

// Ready returns an already finished task holding v.
func Ready[R any](v R) *Task[R] {
	t := &Task[R]{value: v}
	t.core = newTaskCore(nil, nil)
	t.core.started = true
	t.core.finish(nil)
	return t
}

// Done is closed once the task has finished, failed or been cancelled.
func (t *Task[R]) Done() <-chan struct{} {
	return t.core.done
}

// Result returns the task's value and error. Before the task finishes it
// returns errors.ErrTaskPending.
func (t *Task[R]) Result() (R, error) {
	t.core.mu.Lock()
	defer t.core.mu.Unlock()
	if !t.core.finished {
		var zero R
		return zero, errors.ErrTaskPending
	}
	if t.core.err != nil {
		var zero R
		return zero, t.core.err
	}
	return t.value, nil
}

// Cancel requests cancellation. A task that has not started never runs;
// a running task observes errors.ErrCancelled at its next suspension
// point. Side effects already performed are kept.
func (t *Task[R]) Cancel() {
	t.core.doCancel()
}

// Cancelled reports whether Cancel was called before the task finished.
func (t *Task[R]) Cancelled() bool {
	return t.core.isCancelled()
}
