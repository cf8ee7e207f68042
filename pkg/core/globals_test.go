package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/modelkit/pkg/errors"
)

type unitPreference struct {
	Decimal bool
}

func TestGlobals_UnsetThenUpdate(t *testing.T) {
	a, _ := newTestApp(t, 0)
	m := buildCounter(t, a, 0)
	fired := 0
	Observe(a, m, func(*Model[counter], *App) { fired++ })

	assert.False(t, HasGlobal[unitPreference](a))
	_, ok := TryGlobal[unitPreference](a)
	assert.False(t, ok)

	_, err := UpdateGlobal(a, func(g *unitPreference, _ *App) struct{} { return struct{}{} })
	assert.ErrorIs(t, err, errors.ErrMissingGlobal)
	assert.Equal(t, errors.KindMissingGlobal, errors.KindOf(err))

	SetGlobal(a, unitPreference{})
	_, err = UpdateGlobal(a, func(g *unitPreference, _ *App) struct{} {
		g.Decimal = true
		return struct{}{}
	})
	require.NoError(t, err)

	g, ok := TryGlobal[unitPreference](a)
	require.True(t, ok)
	assert.True(t, g.Decimal)
	assert.True(t, Global[unitPreference](a).Decimal)
	assert.Zero(t, fired, "global writes notify nobody")
}

func TestGlobals_MissingPanics(t *testing.T) {
	a, _ := newTestApp(t, 0)
	defer func() {
		err, ok := recover().(*errors.Error)
		require.True(t, ok)
		assert.Equal(t, errors.KindMissingGlobal, err.Kind)
	}()
	Global[unitPreference](a)
}

func TestGlobals_LastWriteWinsAndRemove(t *testing.T) {
	a, _ := newTestApp(t, 0)
	SetGlobal(a, 1)
	SetGlobal(a, 2)
	assert.Equal(t, 2, *Global[int](a))

	v, ok := RemoveGlobal[int](a)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.False(t, HasGlobal[int](a))

	_, ok = RemoveGlobal[int](a)
	assert.False(t, ok)
}

func TestGlobals_Defaults(t *testing.T) {
	a, _ := newTestApp(t, 0)
	assert.Equal(t, unitPreference{}, *DefaultGlobal[unitPreference](a))

	n := UpdateDefaultGlobal(a, func(g *int, _ *App) int {
		*g += 5
		return *g
	})
	assert.Equal(t, 5, n)

	got, err := ReadGlobal(a, func(g *int, _ *App) int { return *g })
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestGlobals_ReentrantUpdatePanics(t *testing.T) {
	a, _ := newTestApp(t, 0)
	SetGlobal(a, unitPreference{})

	assert.Panics(t, func() {
		_, _ = UpdateGlobal(a, func(g *unitPreference, a *App) bool {
			return Global[unitPreference](a).Decimal
		})
	})

	// The slot is usable again afterwards.
	_, err := UpdateGlobal(a, func(g *unitPreference, _ *App) bool { return g.Decimal })
	assert.NoError(t, err)
}
