// Package dispatch runs units of work for the executors.
//
// A Dispatcher has two lanes. The background lane may run work in parallel
// on a pool of workers. The main lane runs work one unit at a time, in
// submission order, on the goroutine that drives it.
//
// PlatformDispatcher is the production implementation:
//
//	d := dispatch.NewPlatformDispatcher(dispatch.WithWorkers(4))
//	defer d.Close()
//	go produce(d)
//	d.RunMain(ctx) // drives the main lane until ctx is done
//
// TestDispatcher replaces real concurrency with a single deterministic run
// loop. Nothing runs until the test ticks it, background work is picked in
// an order derived from a seed, and delayed work waits on a virtual clock:
//
//	d := dispatch.NewTestDispatcher(seed)
//	d.RunUntilParked()
//	d.AdvanceClock(time.Second)
//
// Identical operation sequences with the same seed produce identical
// interleavings.
package dispatch
