package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/modelkit/pkg/errors"
)

func TestWindow_OpenReadUpdate(t *testing.T) {
	a, _ := newTestApp(t, 0)
	root := buildCounter(t, a, 0)

	h, err := OpenWindow(a, WindowOptions{Title: "viewer"}, func(cx *WindowContext) AnyModel {
		return root.Any()
	})
	require.NoError(t, err)
	assert.Equal(t, []WindowHandle{h}, a.Windows())

	title, err := ReadWindow(a, h, func(cx *WindowContext) string { return cx.Title() })
	require.NoError(t, err)
	assert.Equal(t, "viewer", title)

	_, err = UpdateWindow(a, h, func(cx *WindowContext) struct{} {
		assert.True(t, cx.TakeDirty())
		cx.SetTitle("renamed")
		assert.Equal(t, root.EntityID(), cx.Root().EntityID())
		return struct{}{}
	})
	require.NoError(t, err)

	dirty, _ := UpdateWindow(a, h, func(cx *WindowContext) bool { return cx.TakeDirty() })
	assert.True(t, dirty)
}

func TestWindow_RootNotifyAndRefreshMarkDirty(t *testing.T) {
	a, _ := newTestApp(t, 0)
	root := buildCounter(t, a, 0)
	h, err := OpenWindow(a, WindowOptions{}, func(cx *WindowContext) AnyModel { return root.Any() })
	require.NoError(t, err)

	takeDirty := func() bool {
		d, err := UpdateWindow(a, h, func(cx *WindowContext) bool { return cx.TakeDirty() })
		require.NoError(t, err)
		return d
	}
	assert.True(t, takeDirty())
	assert.False(t, takeDirty())

	_, _ = UpdateModel(a, root, increment)
	assert.True(t, takeDirty())

	a.Refresh()
	assert.True(t, takeDirty())
}

func TestWindow_UnknownAndRemoved(t *testing.T) {
	a, _ := newTestApp(t, 0)
	_, err := ReadWindow(a, WindowHandle{id: 42}, func(*WindowContext) int { return 0 })
	assert.ErrorIs(t, err, errors.ErrWindowNotFound)
	assert.Equal(t, errors.KindWindow, errors.KindOf(err))

	h, err := OpenWindow(a, WindowOptions{}, nil)
	require.NoError(t, err)
	_, err = UpdateWindow(a, h, func(cx *WindowContext) struct{} {
		cx.Remove()
		return struct{}{}
	})
	require.NoError(t, err)

	_, err = UpdateWindow(a, h, func(*WindowContext) int { return 0 })
	assert.ErrorIs(t, err, errors.ErrWindowNotFound)
	assert.Empty(t, a.Windows())
}

func TestWindow_ReentrantPanics(t *testing.T) {
	a, _ := newTestApp(t, 0)
	h, err := OpenWindow(a, WindowOptions{}, nil)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = UpdateWindow(a, h, func(cx *WindowContext) int {
			n, _ := ReadWindow(cx, h, func(*WindowContext) int { return 1 })
			return n
		})
	})
}
