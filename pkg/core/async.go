package core

import (
	"context"
	"weak"

	"github.com/go-drift/modelkit/pkg/errors"
	"github.com/go-drift/modelkit/pkg/executor"
)

// AsyncApp gives spawned work access to the App without keeping it alive.
// It can be copied and shared freely. Every operation first resolves the
// App and fails with errors.ErrAppReleased, without side effects, once the
// App has quit or been collected. Callers doing best effort updates treat
// that error as a no-op.
//
// Entities, globals and windows belong to the foreground lane. Work on
// the background lane either returns its result to a foreground task or
// calls Update, which runs on the foreground lane.
type AsyncApp struct {
	app weak.Pointer[App]
	bg  *executor.Background
	fg  *executor.Foreground
}

func (c *AsyncApp) resolve(op string) (*App, error) {
	a := c.app.Value()
	if a == nil || a.quit.Load() {
		return nil, errors.New(op, errors.KindAppReleased, "", errors.ErrAppReleased)
	}
	return a, nil
}

// Bind returns the Context through which code running with ctx reaches the
// App. If ctx belongs to a background task every operation through it
// fails with errors.ErrWrongLane.
func (c *AsyncApp) Bind(ctx context.Context) Context {
	return &asyncContext{async: c, ctx: ctx}
}

type asyncContext struct {
	async *AsyncApp
	ctx   context.Context
}

func (b *asyncContext) appContext() (*App, error) {
	const op = "core.AsyncApp"
	if executor.InBackground(b.ctx) {
		return nil, errors.New(op, errors.KindLane, "", errors.ErrWrongLane)
	}
	return b.async.resolve(op)
}

// Update runs fn as one batch on the App. Called from a background task it
// queues fn on the foreground lane and suspends the task until fn has run.
func (c *AsyncApp) Update(ctx context.Context, fn func(a *App)) error {
	const op = "core.AsyncApp.Update"
	a, err := c.resolve(op)
	if err != nil {
		return err
	}
	if !executor.InBackground(ctx) {
		a.Update(fn)
		return nil
	}
	_, err = executor.Await(ctx, executor.Spawn(c.fg, func(context.Context) (struct{}, error) {
		a, err := c.resolve(op)
		if err != nil {
			return struct{}{}, err
		}
		a.Update(fn)
		return struct{}{}, nil
	}))
	return err
}

// Background returns the background executor. It stays usable after the
// App is gone.
func (c *AsyncApp) Background() *executor.Background {
	return c.bg
}

// Foreground returns the foreground executor.
func (c *AsyncApp) Foreground() *executor.Foreground {
	return c.fg
}

// Spawn runs fn on the foreground executor with an AsyncApp for the App
// behind cx.
//
// Example:
//
//	core.Spawn(cx, func(ctx context.Context, async *core.AsyncApp) (struct{}, error) {
//	    sum, err := executor.Await(ctx, executor.Spawn(async.Background(), compute))
//	    if err != nil {
//	        return struct{}{}, err
//	    }
//	    return struct{}{}, model.Update(async.Bind(ctx), func(v *Total, cx *core.ModelContext[Total]) {
//	        v.Value = sum
//	    })
//	})
func Spawn[R any](cx Context, fn func(ctx context.Context, async *AsyncApp) (R, error)) (*executor.Task[R], error) {
	a, err := cx.appContext()
	if err != nil {
		return nil, err
	}
	async := a.ToAsync()
	return executor.Spawn(a.fg, func(ctx context.Context) (R, error) {
		return fn(ctx, async)
	}), nil
}

// SpawnModel is Spawn for work that belongs to the entity cx is bound to.
// fn receives a weak handle to the entity, so the task does not keep it
// alive.
func SpawnModel[T, R any](cx *ModelContext[T], fn func(ctx context.Context, this *WeakModel[T], async *AsyncApp) (R, error)) *executor.Task[R] {
	this := cx.Handle()
	async := cx.ToAsync()
	return executor.Spawn(cx.fg, func(ctx context.Context) (R, error) {
		return fn(ctx, this, async)
	})
}
