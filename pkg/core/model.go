package core

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/go-drift/modelkit/pkg/errors"
)

// Model is a strong handle to an entity of type T. Handles compare by
// entity id, not by value.
type Model[T any] struct {
	id       EntityID
	refs     *refCounts
	released atomic.Bool
}

// EntityID returns the id of the entity.
func (m *Model[T]) EntityID() EntityID {
	return m.id
}

// Clone returns another strong handle to the same entity. Cloning a
// released handle returns a released handle.
func (m *Model[T]) Clone() *Model[T] {
	c := &Model[T]{id: m.id, refs: m.refs}
	if m.released.Load() || !m.refs.inc(m.id) {
		c.released.Store(true)
	}
	return c
}

// Downgrade returns a weak handle to the entity.
func (m *Model[T]) Downgrade() *WeakModel[T] {
	return &WeakModel[T]{id: m.id, refs: m.refs}
}

// Release drops this handle's reference. After Release the handle is
// stale. Releasing twice is a no-op.
func (m *Model[T]) Release() {
	if m.released.Swap(true) {
		return
	}
	m.refs.dec(m.id)
}

// Released reports whether Release has been called on this handle.
func (m *Model[T]) Released() bool {
	return m.released.Load()
}

// Any returns an untyped identity for the entity.
func (m *Model[T]) Any() AnyModel {
	return AnyModel{id: m.id, typ: reflect.TypeFor[T](), refs: m.refs}
}

// Update runs fn with exclusive access to the entity.
func (m *Model[T]) Update(cx Context, fn func(v *T, cx *ModelContext[T])) error {
	_, err := UpdateModel(cx, m, func(v *T, cx *ModelContext[T]) struct{} {
		fn(v, cx)
		return struct{}{}
	})
	return err
}

// Read runs fn with read access to the entity.
func (m *Model[T]) Read(cx Context, fn func(v *T)) error {
	_, err := ReadModel(cx, m, func(v *T, _ *App) struct{} {
		fn(v)
		return struct{}{}
	})
	return err
}

func (m *Model[T]) String() string {
	return fmt.Sprintf("Model[%s](%d)", reflect.TypeFor[T](), uint64(m.id))
}

// WeakModel is a handle that does not keep its entity alive.
type WeakModel[T any] struct {
	id   EntityID
	refs *refCounts
}

// EntityID returns the id of the entity.
func (w *WeakModel[T]) EntityID() EntityID {
	return w.id
}

// Upgrade returns a strong handle if the entity is still alive and its
// app has not quit. The caller must release the returned handle.
func (w *WeakModel[T]) Upgrade() (*Model[T], bool) {
	if w == nil || !w.refs.inc(w.id) {
		return nil, false
	}
	return &Model[T]{id: w.id, refs: w.refs}, true
}

// Update upgrades the handle and runs fn with exclusive access to the
// entity. It fails with errors.ErrStaleHandle if the entity is gone.
func (w *WeakModel[T]) Update(cx Context, fn func(v *T, cx *ModelContext[T])) error {
	m, ok := w.Upgrade()
	if !ok {
		return errors.New("core.WeakModel.Update", errors.KindStaleHandle, w.id.String(), errors.ErrStaleHandle)
	}
	defer m.Release()
	return m.Update(cx, fn)
}

// AnyModel is a type-erased entity identity. It does not own a reference.
type AnyModel struct {
	id   EntityID
	typ  reflect.Type
	refs *refCounts
}

// EntityID returns the id of the entity, or zero for the zero AnyModel.
func (m AnyModel) EntityID() EntityID {
	return m.id
}

// TypeName returns the entity's Go type.
func (m AnyModel) TypeName() string {
	if m.typ == nil {
		return ""
	}
	return m.typ.String()
}

// IsZero reports whether m refers to no entity.
func (m AnyModel) IsZero() bool {
	return m.refs == nil
}

// Downcast returns a weak handle to m if its entity has type T.
func Downcast[T any](m AnyModel) (*WeakModel[T], bool) {
	if m.refs == nil || m.typ != reflect.TypeFor[T]() {
		return nil, false
	}
	return &WeakModel[T]{id: m.id, refs: m.refs}, true
}

// BuildModel creates an entity with the value returned by build and
// returns the first strong handle to it. While build runs the entity is
// leased, so build may take a handle to it but not read or update it.
func BuildModel[T any](cx Context, build func(cx *ModelContext[T]) T) (*Model[T], error) {
	a, err := cx.appContext()
	if err != nil {
		return nil, err
	}
	a.nextID++
	id := a.nextID
	slot := &entitySlot{id: id, typ: reflect.TypeFor[T](), leased: true}
	a.entities[id] = slot
	a.refs.track(id)

	built := false
	defer func() {
		if !built {
			delete(a.entities, id)
			a.refs.dec(id)
		}
	}()

	a.batch(func() {
		v := build(&ModelContext[T]{App: a, id: id})
		slot.value = &v
		slot.leased = false
		built = true
	})
	return &Model[T]{id: id, refs: a.refs}, nil
}

// UpdateModel runs fn with exclusive access to the entity behind m and
// returns its result. A changed notification is queued when fn returns
// and delivered once the outermost update completes. It fails with
// errors.ErrStaleHandle if m no longer resolves, and panics if the entity
// is already leased further up the stack.
func UpdateModel[T, R any](cx Context, m *Model[T], fn func(v *T, cx *ModelContext[T]) R) (R, error) {
	var zero R
	a, err := cx.appContext()
	if err != nil {
		return zero, err
	}
	if m == nil {
		return zero, errors.New("core.UpdateModel", errors.KindStaleHandle, "", errors.ErrStaleHandle)
	}
	return updateEntity(a, "core.UpdateModel", m.id, m.refs, m.released.Load(), true, fn)
}

// ReadModel runs fn with read access to the entity behind m. Reading an
// entity that is being updated panics like a re-entrant update.
func ReadModel[T, R any](cx Context, m *Model[T], fn func(v *T, a *App) R) (R, error) {
	var zero R
	a, err := cx.appContext()
	if err != nil {
		return zero, err
	}
	if m == nil {
		return zero, errors.New("core.ReadModel", errors.KindStaleHandle, "", errors.ErrStaleHandle)
	}
	const op = "core.ReadModel"
	s, err := a.lookup(op, m.id, m.refs, m.released.Load())
	if err != nil {
		return zero, err
	}
	v, ok := s.value.(*T)
	if !ok {
		return zero, errors.New(op, errors.KindStaleHandle, s.String(), errors.ErrStaleHandle)
	}
	var r R
	a.batch(func() {
		a.lease(op, s)
		defer a.unlease(s)
		r = fn(v, a)
	})
	return r, nil
}

// updateEntity leases the entity and runs fn with a ModelContext bound to
// it. Subscription deliveries pass notify=false so that a callback only
// notifies when it calls Notify itself.
func updateEntity[T, R any](a *App, op string, id EntityID, refs *refCounts, released, notify bool, fn func(v *T, cx *ModelContext[T]) R) (R, error) {
	var zero R
	s, err := a.lookup(op, id, refs, released)
	if err != nil {
		return zero, err
	}
	v, ok := s.value.(*T)
	if !ok {
		return zero, errors.New(op, errors.KindStaleHandle, s.String(), errors.ErrStaleHandle)
	}
	var r R
	a.batch(func() {
		a.lease(op, s)
		defer a.unlease(s)
		r = fn(v, &ModelContext[T]{App: a, id: id})
		if notify {
			a.notify(id)
		}
	})
	return r, nil
}
