package dispatch

import "time"

// Runnable is a unit of work handed to a Dispatcher.
type Runnable func()

// StopFunc withdraws delayed work. It reports whether the work was still
// waiting, in which case it will never run.
type StopFunc func() bool

func stopped() bool { return false }

// Dispatcher schedules runnables on the background or main lane.
// All methods are safe for concurrent use.
type Dispatcher interface {
	// Dispatch queues r on the background lane.
	Dispatch(r Runnable)
	// DispatchOnMainThread queues r on the main lane.
	DispatchOnMainThread(r Runnable)
	// DispatchAfter queues r on the background lane once d has elapsed.
	// The returned StopFunc withdraws r if it has not been queued yet.
	DispatchAfter(d time.Duration, r Runnable) StopFunc
	// Now reports the dispatcher's notion of the current time.
	Now() time.Time
}

// Ticker is implemented by dispatchers that are driven manually.
// Executors use it to make progress while blocking under test.
type Ticker interface {
	// Tick runs one ready runnable and reports whether one was run.
	// When backgroundOnly is set, main lane work is left queued.
	Tick(backgroundOnly bool) bool
	// AdvanceToNextDelayed moves the clock to the earliest pending delayed
	// runnable and reports whether there was one.
	AdvanceToNextDelayed() bool
}

// Randomizer is implemented by dispatchers that can inject seeded delays.
type Randomizer interface {
	// RandomYields returns how many times a task should yield to simulate
	// a random delay.
	RandomYields() int
}
