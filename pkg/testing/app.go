package testing

import (
	"context"
	"testing"
	"time"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/executor"
	"github.com/go-drift/modelkit/pkg/logging"
)

// TestApp is an App running on a deterministic TestDispatcher. It embeds
// the App, so it can be passed anywhere a core.Context is expected.
type TestApp struct {
	*core.App
	Dispatcher *dispatch.TestDispatcher
}

// NewTestApp creates a TestApp whose scheduling choices derive from seed.
// Call Cleanup when done, or use NewTestAppWithT instead.
func NewTestApp(seed uint64) *TestApp {
	logging.ConfigureTests()
	d := dispatch.NewTestDispatcher(seed)
	return &TestApp{
		App:        core.NewApp(core.WithDispatcher(d)),
		Dispatcher: d,
	}
}

// NewTestAppWithT creates a TestApp seeded from MODELKIT_SEED (default 0)
// that quits via t.Cleanup. This is the recommended constructor for tests.
func NewTestAppWithT(t testing.TB) *TestApp {
	return NewTestAppWithSeed(t, seedFromEnv())
}

// NewTestAppWithSeed is NewTestAppWithT with an explicit seed.
func NewTestAppWithSeed(t testing.TB, seed uint64) *TestApp {
	app := NewTestApp(seed)
	t.Cleanup(app.Cleanup)
	return app
}

// Cleanup quits the app.
func (t *TestApp) Cleanup() {
	t.Quit()
}

// Seed returns the dispatcher seed.
func (t *TestApp) Seed() uint64 {
	return t.Dispatcher.Seed()
}

// Executor returns the background executor.
func (t *TestApp) Executor() *executor.Background {
	return t.Background()
}

// Now returns the virtual time.
func (t *TestApp) Now() time.Time {
	return t.Dispatcher.Now()
}

// RunUntilParked runs ready work until nothing is ready, flushing pending
// releases before and after. The clock does not move.
func (t *TestApp) RunUntilParked() {
	t.Update(nil)
	t.Dispatcher.RunUntilParked()
	t.Update(nil)
}

// AdvanceClock moves virtual time forward by d, running everything that
// becomes due.
func (t *TestApp) AdvanceClock(d time.Duration) {
	t.Update(nil)
	t.Dispatcher.AdvanceClock(d)
	t.Update(nil)
}

// RunUntilIdle runs until no work is ready or delayed, advancing the clock
// as far as needed.
func (t *TestApp) RunUntilIdle() {
	t.Update(nil)
	t.Dispatcher.RunUntilIdle()
	t.Update(nil)
}

// Block runs the scheduler until task finishes and returns its result. It
// returns errors.ErrDeadlock if the task can make no progress.
func Block[R any](t *TestApp, task *executor.Task[R]) (R, error) {
	return executor.Block(context.Background(), t.Background(), task)
}

// TryReadGlobal calls read with the global of type G and returns its
// result, or false when the global is not set.
func TryReadGlobal[G, R any](t *TestApp, read func(g *G, a *core.App) R) (R, bool) {
	if !core.HasGlobal[G](t.App) {
		var zero R
		return zero, false
	}
	r, err := core.ReadGlobal(t.App, read)
	return r, err == nil
}
