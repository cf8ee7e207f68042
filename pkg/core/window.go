package core

import (
	"fmt"

	"github.com/go-drift/modelkit/pkg/errors"
)

// WindowID identifies a window within its App.
type WindowID uint64

func (id WindowID) String() string {
	return fmt.Sprintf("window#%d", uint64(id))
}

// WindowHandle refers to an open window.
type WindowHandle struct {
	id WindowID
}

// ID returns the window id.
func (h WindowHandle) ID() WindowID {
	return h.id
}

// WindowOptions configures OpenWindow.
type WindowOptions struct {
	Title string
}

type windowSlot struct {
	id     WindowID
	title  string
	root   AnyModel
	dirty  bool
	leased bool
}

// WindowContext is handed to window closures. It embeds the App.
type WindowContext struct {
	*App
	window *windowSlot
}

// WindowHandle returns the handle of the window.
func (cx *WindowContext) WindowHandle() WindowHandle {
	return WindowHandle{id: cx.window.id}
}

// Title returns the window title.
func (cx *WindowContext) Title() string {
	return cx.window.title
}

// SetTitle changes the window title and marks it dirty.
func (cx *WindowContext) SetTitle(title string) {
	if cx.window.title == title {
		return
	}
	cx.window.title = title
	cx.window.dirty = true
}

// Root returns the window's root entity.
func (cx *WindowContext) Root() AnyModel {
	return cx.window.root
}

// SetRoot replaces the window's root entity. Notifications of the root
// entity mark the window dirty.
func (cx *WindowContext) SetRoot(root AnyModel) {
	cx.window.root = root
	cx.window.dirty = true
}

// Notify marks the window dirty.
func (cx *WindowContext) Notify() {
	cx.window.dirty = true
}

// IsDirty reports whether the window needs to be redrawn.
func (cx *WindowContext) IsDirty() bool {
	return cx.window.dirty
}

// TakeDirty reports whether the window was dirty and clears the flag, as
// a host does when it redraws.
func (cx *WindowContext) TakeDirty() bool {
	dirty := cx.window.dirty
	cx.window.dirty = false
	return dirty
}

// Remove closes the window. Its handle becomes unknown once the current
// closure returns.
func (cx *WindowContext) Remove() {
	delete(cx.windows, cx.window.id)
}

// OpenWindow creates a window whose root entity is returned by build.
func OpenWindow(cx Context, opts WindowOptions, build func(cx *WindowContext) AnyModel) (WindowHandle, error) {
	a, err := cx.appContext()
	if err != nil {
		return WindowHandle{}, err
	}
	a.nextWindow++
	w := &windowSlot{id: a.nextWindow, title: opts.Title, dirty: true, leased: true}
	a.windows[w.id] = w
	a.batch(func() {
		defer func() { w.leased = false }()
		if build != nil {
			w.root = build(&WindowContext{App: a, window: w})
		}
	})
	a.log.Debug().Stringer("window", w.id).Str("title", w.title).Msg("window opened")
	return WindowHandle{id: w.id}, nil
}

// ReadWindow runs fn with read access to the window behind h.
func ReadWindow[R any](cx Context, h WindowHandle, fn func(cx *WindowContext) R) (R, error) {
	return withWindow(cx, "core.ReadWindow", h, fn)
}

// UpdateWindow runs fn with exclusive access to the window behind h. It
// fails with errors.ErrWindowNotFound if the window is unknown.
func UpdateWindow[R any](cx Context, h WindowHandle, fn func(cx *WindowContext) R) (R, error) {
	return withWindow(cx, "core.UpdateWindow", h, fn)
}

func withWindow[R any](cx Context, op string, h WindowHandle, fn func(cx *WindowContext) R) (R, error) {
	var zero R
	a, err := cx.appContext()
	if err != nil {
		return zero, err
	}
	w, ok := a.windows[h.id]
	if !ok {
		return zero, errors.New(op, errors.KindWindow, h.id.String(), errors.ErrWindowNotFound)
	}
	if w.leased {
		panic(errors.Reentrant(op, h.id.String()))
	}
	var r R
	a.batch(func() {
		w.leased = true
		defer func() { w.leased = false }()
		r = fn(&WindowContext{App: a, window: w})
	})
	return r, nil
}
