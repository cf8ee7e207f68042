package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/errors"
	"github.com/go-drift/modelkit/pkg/executor"
)

func TestSpawn_BackgroundResultWrittenOnForeground(t *testing.T) {
	a, d := newTestApp(t, 7)
	m := buildCounter(t, a, 0)

	_, err := Spawn(a, func(ctx context.Context, async *AsyncApp) (struct{}, error) {
		sum, err := executor.Await(ctx, executor.Spawn(async.Background(), func(ctx context.Context) (int, error) {
			return 2 + 2, nil
		}))
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, m.Update(async.Bind(ctx), func(v *counter, _ *ModelContext[counter]) {
			v.Count = sum
		})
	})
	require.NoError(t, err)

	assert.Equal(t, 0, readCount(t, a, m))
	d.RunUntilIdle()
	assert.Equal(t, 4, readCount(t, a, m))
}

func TestAsyncApp_FailsAfterQuit(t *testing.T) {
	a, d := newTestApp(t, 0)
	m := buildCounter(t, a, 0)
	weak := m.Downgrade()
	async := a.ToAsync()
	cx := async.Bind(context.Background())

	a.Quit()

	assert.ErrorIs(t, async.Update(context.Background(), func(*App) { t.Fatal("ran after quit") }), errors.ErrAppReleased)
	assert.ErrorIs(t, weak.Update(cx, func(*counter, *ModelContext[counter]) {}), errors.ErrStaleHandle)
	_, err := UpdateModel(cx, m, increment)
	assert.ErrorIs(t, err, errors.ErrAppReleased)
	_, err = Spawn(cx, func(context.Context, *AsyncApp) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, errors.ErrAppReleased)
	_, err = BuildModel(a, func(*ModelContext[counter]) counter { return counter{} })
	assert.Equal(t, errors.KindAppReleased, errors.KindOf(err))

	ready, delayed := d.Pending()
	assert.Zero(t, ready+delayed)
	assert.NotNil(t, async.Background())
	assert.NotNil(t, async.Foreground())
}

func TestSpawnModel_WeakSelfAcrossSleep(t *testing.T) {
	a, d := newTestApp(t, 3)
	m, err := BuildModel(a, func(cx *ModelContext[counter]) counter {
		SpawnModel(cx, func(ctx context.Context, this *WeakModel[counter], async *AsyncApp) (struct{}, error) {
			for i := 0; i < 3; i++ {
				if err := executor.Sleep(ctx, async.Foreground(), time.Second); err != nil {
					return struct{}{}, err
				}
				if err := this.Update(async.Bind(ctx), func(v *counter, _ *ModelContext[counter]) { v.Count++ }); err != nil {
					return struct{}{}, err
				}
			}
			return struct{}{}, nil
		})
		return counter{}
	})
	require.NoError(t, err)

	d.AdvanceClock(1500 * time.Millisecond)
	assert.Equal(t, 1, readCount(t, a, m))

	m.Release()
	a.Update(nil)
	d.RunUntilIdle()
	assert.Zero(t, a.EntityCount(), "the task holds only a weak handle")
}

func TestSpawn_ForegroundTasksRunInSubmissionOrder(t *testing.T) {
	for seed := uint64(0); seed < 8; seed++ {
		a, d := newTestApp(t, seed)
		m := buildCounter(t, a, 0)
		var order []int
		for i := 0; i < 5; i++ {
			_, err := Spawn(a, func(ctx context.Context, async *AsyncApp) (struct{}, error) {
				order = append(order, i)
				return struct{}{}, m.Update(async.Bind(ctx), func(v *counter, _ *ModelContext[counter]) { v.Count++ })
			})
			require.NoError(t, err)
		}
		d.RunUntilParked()
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order, "seed %d", seed)
		assert.Equal(t, 5, readCount(t, a, m))
	}
}

func bump(v *counter, _ *ModelContext[counter]) { v.Count++ }

func TestAsyncApp_BackgroundLaneIsRefused(t *testing.T) {
	a, d := newTestApp(t, 11)
	m := buildCounter(t, a, 0)
	async := a.ToAsync()

	task := executor.Spawn(async.Background(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.Update(async.Bind(ctx), bump)
	})
	_, err := executor.Block(context.Background(), async.Background(), task)

	assert.ErrorIs(t, err, errors.ErrWrongLane)
	assert.Equal(t, errors.KindLane, errors.KindOf(err))
	d.RunUntilIdle()
	assert.Equal(t, 0, readCount(t, a, m))
}

func TestAsyncApp_UpdateFromBackgroundRunsOnForeground(t *testing.T) {
	a, d := newTestApp(t, 12)
	m := buildCounter(t, a, 0)
	async := a.ToAsync()
	observed := 0
	Observe(a, m, func(*Model[counter], *App) { observed++ })

	var tasks []*executor.Task[struct{}]
	for i := 0; i < 4; i++ {
		tasks = append(tasks, executor.Spawn(async.Background(), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, async.Update(ctx, func(a *App) {
				assert.NoError(t, m.Update(a, bump))
			})
		}))
	}
	d.RunUntilIdle()

	for _, task := range tasks {
		_, err := task.Result()
		require.NoError(t, err)
	}
	assert.Equal(t, 4, readCount(t, a, m))
	assert.Equal(t, 4, observed)
}

func TestAsyncApp_BackgroundWorkersOnPlatformDispatcher(t *testing.T) {
	d := dispatch.NewPlatformDispatcher(dispatch.WithWorkers(4))
	defer d.Close()
	a := NewApp(WithDispatcher(d))
	defer a.Quit()
	m := buildCounter(t, a, 0)
	async := a.ToAsync()

	refused := make([]error, 4)
	tasks := make([]*executor.Task[struct{}], len(refused))
	for i := range tasks {
		tasks[i] = executor.Spawn(async.Background(), func(ctx context.Context) (struct{}, error) {
			refused[i] = m.Update(async.Bind(ctx), bump)
			return struct{}{}, async.Update(ctx, func(a *App) {
				_ = m.Update(a, bump)
			})
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() {
		for _, task := range tasks {
			<-task.Done()
		}
		cancel()
	}()
	_ = d.RunMain(ctx)

	for i, task := range tasks {
		_, err := task.Result()
		require.NoError(t, err)
		assert.ErrorIs(t, refused[i], errors.ErrWrongLane)
	}
	assert.Equal(t, 4, readCount(t, a, m))
}
