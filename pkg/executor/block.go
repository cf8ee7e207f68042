package executor

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/errors"
)

// Block waits synchronously for t, bridging a synchronous caller onto
// asynchronous work. Only the calling goroutine blocks.
//
// When e's dispatcher is driven manually (dispatch.Ticker), Block runs
// ready work itself, advancing the virtual clock when nothing is ready,
// and returns errors.ErrDeadlock once t can make no further progress.
// Called from inside a task, it only runs background work so foreground
// steps never nest.
func Block[R any](ctx context.Context, e Executor, t *Task[R]) (R, error) {
	ticker, ok := e.Dispatcher().(dispatch.Ticker)
	if !ok {
		select {
		case <-t.core.done:
			return t.Result()
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}

	backgroundOnly := current(ctx) != nil
	for !t.core.isFinished() {
		if err := ctx.Err(); err != nil {
			var zero R
			return zero, err
		}
		if ticker.Tick(backgroundOnly) {
			continue
		}
		if ticker.AdvanceToNextDelayed() {
			continue
		}
		var zero R
		return zero, errors.ErrDeadlock
	}
	return t.Result()
}

// BlockWithTimeout is Block with a deadline measured on e's dispatcher
// clock. It returns errors.ErrTimeout when t has not finished in time; t
// itself keeps running.
func BlockWithTimeout[R any](ctx context.Context, e Executor, d time.Duration, t *Task[R]) (R, error) {
	disp := e.Dispatcher()
	ticker, ok := disp.(dispatch.Ticker)
	if !ok {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		v, err := Block(ctx, e, t)
		if stderrors.Is(err, context.DeadlineExceeded) {
			return v, errors.ErrTimeout
		}
		return v, err
	}

	deadline := disp.Now().Add(d)
	deadlineHit := false
	timer := Timer(e, d)
	timer.core.onFinish(func() { deadlineHit = true })
	defer timer.Cancel()

	backgroundOnly := current(ctx) != nil
	for !t.core.isFinished() {
		if deadlineHit || disp.Now().After(deadline) {
			var zero R
			return zero, errors.ErrTimeout
		}
		if ticker.Tick(backgroundOnly) {
			continue
		}
		if ticker.AdvanceToNextDelayed() {
			continue
		}
		var zero R
		return zero, errors.ErrDeadlock
	}
	return t.Result()
}
