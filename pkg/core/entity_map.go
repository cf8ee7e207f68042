package core

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/go-drift/modelkit/pkg/errors"
)

// EntityID identifies an entity within its App.
type EntityID uint64

func (id EntityID) String() string {
	return fmt.Sprintf("entity#%d", uint64(id))
}

// refCounts tracks strong handle counts. It is shared by every handle of
// an App and is safe for concurrent use, so handles may be released from
// any goroutine. Entities whose count reaches zero are queued in dropped
// and removed from the store at the next flush.
type refCounts struct {
	mu      sync.Mutex
	counts  map[EntityID]int
	dropped []EntityID
	closed  bool
}

func newRefCounts() *refCounts {
	return &refCounts{counts: make(map[EntityID]int)}
}

func (r *refCounts) track(id EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id] = 1
}

// inc adds a strong reference. It fails once the count has reached zero,
// so a released entity is never resurrected.
func (r *refCounts) inc(id EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.counts[id] == 0 {
		return false
	}
	r.counts[id]++
	return true
}

func (r *refCounts) dec(id EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.counts[id]
	if !ok {
		return
	}
	if n <= 1 {
		delete(r.counts, id)
		if !r.closed {
			r.dropped = append(r.dropped, id)
		}
		return
	}
	r.counts[id] = n - 1
}

func (r *refCounts) count(id EntityID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

func (r *refCounts) takeDropped() []EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.dropped
	r.dropped = nil
	return ids
}

func (r *refCounts) requeue(ids []EntityID) {
	if len(ids) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, ids...)
}

// close invalidates every handle at once.
func (r *refCounts) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	clear(r.counts)
	r.dropped = nil
}

// entitySlot is the store's record for one entity. value holds a *T.
type entitySlot struct {
	id     EntityID
	typ    reflect.Type
	value  any
	leased bool
}

func (s *entitySlot) String() string {
	return fmt.Sprintf("%s(%d)", s.typ, uint64(s.id))
}

// lookup resolves a handle to its slot. Handles of another App, released
// handles and dropped entities all resolve to ErrStaleHandle.
func (a *App) lookup(op string, id EntityID, refs *refCounts, released bool) (*entitySlot, error) {
	if refs != a.refs || released {
		return nil, errors.New(op, errors.KindStaleHandle, id.String(), errors.ErrStaleHandle)
	}
	s, ok := a.entities[id]
	if !ok || refs.count(id) == 0 {
		return nil, errors.New(op, errors.KindStaleHandle, id.String(), errors.ErrStaleHandle)
	}
	return s, nil
}

func (a *App) lease(op string, s *entitySlot) {
	if s.leased {
		panic(errors.Reentrant(op, s.String()))
	}
	s.leased = true
}

func (a *App) unlease(s *entitySlot) {
	s.leased = false
}

// releaseDropped removes entities whose last strong handle is gone and
// runs their release observers with the final value.
func (a *App) releaseDropped() {
	for {
		ids := a.refs.takeDropped()
		if len(ids) == 0 {
			return
		}
		var busy []EntityID
		for _, id := range ids {
			s, ok := a.entities[id]
			if !ok {
				continue
			}
			if s.leased {
				busy = append(busy, id)
				continue
			}
			a.destroy(s)
		}
		if len(busy) > 0 {
			a.refs.requeue(busy)
			return
		}
	}
}

func (a *App) destroy(s *entitySlot) {
	delete(a.entities, s.id)
	delete(a.pendingNotifications, s.id)
	a.observers.clear(s.id)
	a.listeners.clear(s.id)
	a.releaseObservers.retain("core.ObserveRelease", s.id, func(cb releaseCallback) bool {
		cb(s.value, a)
		return false
	})
	a.releaseObservers.clear(s.id)
	a.log.Debug().Stringer("entity", s).Msg("released")
}

// destroyAll removes every entity in id order.
func (a *App) destroyAll() {
	ids := make([]EntityID, 0, len(a.entities))
	for id := range a.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if s, ok := a.entities[id]; ok {
			s.leased = false
			a.destroy(s)
		}
	}
}
