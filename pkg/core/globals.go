package core

import (
	"reflect"

	"github.com/go-drift/modelkit/pkg/errors"
)

// globalSlot holds a *G for one global type.
type globalSlot struct {
	value  any
	leased bool
}

func globalKey[G any]() reflect.Type {
	return reflect.TypeFor[G]()
}

func (a *App) globalSlot(op string, key reflect.Type) *globalSlot {
	s, ok := a.globals[key]
	if !ok {
		return nil
	}
	if s.leased {
		panic(errors.Reentrant(op, key.String()))
	}
	return s
}

func missingGlobal(op string, key reflect.Type) *errors.Error {
	return errors.New(op, errors.KindMissingGlobal, key.String(), errors.ErrMissingGlobal)
}

// HasGlobal reports whether a global of type G is set.
func HasGlobal[G any](a *App) bool {
	_, ok := a.globals[globalKey[G]()]
	return ok
}

// SetGlobal stores v as the global of type G, replacing any previous
// value. Setting a global never notifies anyone.
func SetGlobal[G any](a *App, v G) {
	key := globalKey[G]()
	if s := a.globalSlot("core.SetGlobal", key); s != nil {
		*s.value.(*G) = v
		return
	}
	a.globals[key] = &globalSlot{value: &v}
}

// RemoveGlobal removes the global of type G and returns it.
func RemoveGlobal[G any](a *App) (G, bool) {
	key := globalKey[G]()
	s := a.globalSlot("core.RemoveGlobal", key)
	if s == nil {
		var zero G
		return zero, false
	}
	delete(a.globals, key)
	return *s.value.(*G), true
}

// Global returns the global of type G. It panics with an *errors.Error of
// kind errors.KindMissingGlobal if the global is not set.
func Global[G any](a *App) *G {
	key := globalKey[G]()
	s := a.globalSlot("core.Global", key)
	if s == nil {
		panic(missingGlobal("core.Global", key))
	}
	return s.value.(*G)
}

// TryGlobal returns the global of type G, or false if it is not set.
func TryGlobal[G any](a *App) (*G, bool) {
	s := a.globalSlot("core.TryGlobal", globalKey[G]())
	if s == nil {
		return nil, false
	}
	return s.value.(*G), true
}

// DefaultGlobal returns the global of type G, storing the zero value
// first if it is not set.
func DefaultGlobal[G any](a *App) *G {
	key := globalKey[G]()
	if s := a.globalSlot("core.DefaultGlobal", key); s != nil {
		return s.value.(*G)
	}
	v := new(G)
	a.globals[key] = &globalSlot{value: v}
	return v
}

// ReadGlobal runs fn with read access to the global of type G.
func ReadGlobal[G, R any](a *App, fn func(g *G, a *App) R) (R, error) {
	return withGlobal(a, "core.ReadGlobal", false, fn)
}

// UpdateGlobal runs fn with exclusive access to the global of type G. It
// fails with errors.ErrMissingGlobal if the global is not set.
func UpdateGlobal[G, R any](a *App, fn func(g *G, a *App) R) (R, error) {
	return withGlobal(a, "core.UpdateGlobal", false, fn)
}

// UpdateDefaultGlobal is UpdateGlobal for a global that is created with
// its zero value when missing.
func UpdateDefaultGlobal[G, R any](a *App, fn func(g *G, a *App) R) R {
	r, _ := withGlobal(a, "core.UpdateDefaultGlobal", true, fn)
	return r
}

func withGlobal[G, R any](a *App, op string, create bool, fn func(g *G, a *App) R) (R, error) {
	var zero R
	key := globalKey[G]()
	s := a.globalSlot(op, key)
	if s == nil {
		if !create {
			return zero, missingGlobal(op, key)
		}
		s = &globalSlot{value: new(G)}
		a.globals[key] = s
	}
	var r R
	a.batch(func() {
		s.leased = true
		defer func() { s.leased = false }()
		r = fn(s.value.(*G), a)
	})
	return r, nil
}
