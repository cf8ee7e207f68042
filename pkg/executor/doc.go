// Package executor runs asynchronous tasks on the two lanes of a
// dispatch.Dispatcher.
//
// A Background executor may run tasks in parallel. A Foreground executor
// runs one task step at a time, in the order tasks become ready, and is the
// only place update closures that touch UI-owned state should run.
//
// Tasks are plain functions that receive a context. They give up control
// only at explicit suspension points: Await, Yield, Sleep and
// SimulateRandomDelay. Between suspension points a task runs without
// interruption on its lane, which keeps execution under the test dispatcher
// fully deterministic.
//
//	t := executor.Spawn(bg, func(ctx context.Context) (int, error) {
//		return 2 + 2, nil
//	})
//	v, err := executor.Block(context.Background(), bg, t)
//
// Cancellation is cooperative. Task.Cancel requests it, and the task
// observes it at its next suspension point as errors.ErrCancelled.
package executor
