package executor

import (
	"context"
	"time"

	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/errors"
)

// Await suspends the calling task until t finishes and returns its result.
//
// Outside a task Await blocks the calling goroutine until t finishes or
// ctx is done. Under the test dispatcher nothing progresses unless
// someone ticks it, so synchronous test code should use Block instead.
func Await[R any](ctx context.Context, t *Task[R]) (R, error) {
	cur := current(ctx)
	if cur == nil {
		select {
		case <-t.core.done:
			return t.Result()
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}
	for {
		if t.core.isFinished() {
			return t.Result()
		}
		if cur.isCancelled() {
			var zero R
			return zero, errors.ErrCancelled
		}
		t.core.onFinish(cur.schedule)
		cur.suspend()
	}
}

// InBackground reports whether ctx belongs to a task running on a
// background executor. Contexts of foreground tasks and contexts created
// outside any task report false.
func InBackground(ctx context.Context) bool {
	cur := current(ctx)
	return cur != nil && cur.exec != nil && !cur.exec.foreground()
}

// Yield reschedules the calling task behind the work already queued on
// its lane. Outside a task it does nothing.
func Yield(ctx context.Context) error {
	cur := current(ctx)
	if cur == nil {
		return nil
	}
	if cur.isCancelled() {
		return errors.ErrCancelled
	}
	cur.schedule()
	cur.suspend()
	if cur.isCancelled() {
		return errors.ErrCancelled
	}
	return nil
}

// Timer returns a task that finishes once d has elapsed on e's dispatcher
// clock.
func Timer(e Executor, d time.Duration) *Task[struct{}] {
	t := &Task[struct{}]{}
	t.core = newTaskCore(e, nil)
	t.core.started = true
	t.core.stop = e.Dispatcher().DispatchAfter(d, func() { t.core.finish(nil) })
	return t
}

// Sleep suspends the calling task for d on e's clock.
func Sleep(ctx context.Context, e Executor, d time.Duration) error {
	timer := Timer(e, d)
	_, err := Await(ctx, timer)
	if err != nil {
		timer.Cancel()
	}
	return err
}

// SimulateRandomDelay yields a seeded number of times when the calling
// task runs under a dispatcher that can inject delays. In production it
// does nothing.
func SimulateRandomDelay(ctx context.Context) error {
	cur := current(ctx)
	if cur == nil {
		return nil
	}
	r, ok := cur.exec.Dispatcher().(dispatch.Randomizer)
	if !ok {
		return nil
	}
	for n := r.RandomYields(); n > 0; n-- {
		if err := Yield(ctx); err != nil {
			return err
		}
	}
	return nil
}
