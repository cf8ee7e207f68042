// Package testing provides a deterministic test harness for the runtime.
//
// # Quick Start
//
// Create a TestApp, build entities and drive the virtual scheduler:
//
//	func TestCounter(t *testing.T) {
//	    app := modeltest.NewTestAppWithT(t)
//	    counter, _ := core.BuildModel(app, newCounter)
//	    changes := modeltest.CountNotifications(app, counter)
//
//	    core.Spawn(app, func(ctx context.Context, async *core.AsyncApp) (struct{}, error) {
//	        return struct{}{}, counter.Update(async.Bind(ctx), increment)
//	    })
//	    app.RunUntilParked()
//
//	    if changes.Count() != 1 {
//	        t.Errorf("expected one notification, got %d", changes.Count())
//	    }
//	}
//
// # Determinism
//
// A TestApp runs on a dispatch.TestDispatcher: nothing executes until the
// test ticks it, there is no real parallelism and time only moves when
// AdvanceClock or RunUntilIdle move it. The order in which ready
// background work runs is drawn from a seeded PRNG, so a failing
// interleaving is reproduced by rerunning with the same seed.
//
// ForEachSeed runs a test body across several seeds:
//
//	MODELKIT_SEED=17 MODELKIT_ITERATIONS=100 go test ./...
package testing
