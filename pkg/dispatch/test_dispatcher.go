package dispatch

import (
	"container/heap"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-drift/modelkit/pkg/logging"
)

// maxRandomYields bounds the yields injected by RandomYields.
const maxRandomYields = 10

// TestDispatcher is a deterministic, manually driven Dispatcher.
//
// Nothing runs until the test calls Tick, RunUntilParked, AdvanceClock or
// RunUntilIdle, and runnables always execute on the goroutine doing the
// ticking. Main lane work runs in submission order. Background work is
// picked from the ready set using a PRNG seeded at construction, so the
// interleaving only depends on the seed and the sequence of operations.
type TestDispatcher struct {
	mu         sync.Mutex
	seed       uint64
	rng        *rand.Rand
	clock      *VirtualClock
	foreground []Runnable
	background []Runnable
	delayed    delayedQueue
	seq        uint64
	ticks      uint64
	log        zerolog.Logger
}

// NewTestDispatcher creates a dispatcher whose choices derive from seed.
func NewTestDispatcher(seed uint64) *TestDispatcher {
	return &TestDispatcher{
		seed:  seed,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		clock: NewVirtualClock(),
		log:   logging.For("test-dispatcher"),
	}
}

// Seed returns the seed the dispatcher was created with.
func (d *TestDispatcher) Seed() uint64 {
	return d.seed
}

// Dispatch queues r on the background lane.
func (d *TestDispatcher) Dispatch(r Runnable) {
	if r == nil {
		return
	}
	d.mu.Lock()
	d.background = append(d.background, r)
	d.mu.Unlock()
}

// DispatchOnMainThread queues r on the main lane.
func (d *TestDispatcher) DispatchOnMainThread(r Runnable) {
	if r == nil {
		return
	}
	d.mu.Lock()
	d.foreground = append(d.foreground, r)
	d.mu.Unlock()
}

// DispatchAfter parks r until the virtual clock has advanced by dur.
// Stopping it removes r from the delayed set, so it no longer pulls the
// clock forward.
func (d *TestDispatcher) DispatchAfter(dur time.Duration, r Runnable) StopFunc {
	if r == nil {
		return stopped
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq
	heap.Push(&d.delayed, delayed{
		when: d.clock.Now().Add(dur),
		seq:  seq,
		r:    r,
	})
	return func() bool { return d.stopDelayed(seq) }
}

func (d *TestDispatcher) stopDelayed(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.delayed {
		if d.delayed[i].seq == seq {
			heap.Remove(&d.delayed, i)
			return true
		}
	}
	return false
}

// Now returns the virtual time.
func (d *TestDispatcher) Now() time.Time {
	return d.clock.Now()
}

// Clock exposes the virtual clock.
func (d *TestDispatcher) Clock() *VirtualClock {
	return d.clock
}

// Rng returns a PRNG derived from the dispatcher's seed. Tests can use it
// to make their own random choices reproducible.
func (d *TestDispatcher) Rng() *rand.Rand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return rand.New(rand.NewPCG(d.rng.Uint64(), d.rng.Uint64()))
}

// RandomYields returns a seeded number of yields in [0, maxRandomYields).
func (d *TestDispatcher) RandomYields() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(maxRandomYields)
}

// Tick runs one ready runnable. Due delayed work is promoted to the
// background lane first. It reports false when nothing was ready.
func (d *TestDispatcher) Tick(backgroundOnly bool) bool {
	d.mu.Lock()
	d.promoteDueLocked()

	fg := len(d.foreground)
	if backgroundOnly {
		fg = 0
	}
	total := fg + len(d.background)
	if total == 0 {
		d.mu.Unlock()
		return false
	}

	var r Runnable
	lane := "background"
	if i := d.rng.IntN(total); i < fg {
		r = d.foreground[0]
		d.foreground[0] = nil
		d.foreground = d.foreground[1:]
		lane = "main"
	} else {
		j := d.rng.IntN(len(d.background))
		r = d.background[j]
		last := len(d.background) - 1
		d.background[j] = d.background[last]
		d.background[last] = nil
		d.background = d.background[:last]
	}
	d.ticks++
	tick := d.ticks
	d.mu.Unlock()

	d.log.Trace().Uint64("tick", tick).Str("lane", lane).Msg("run")
	r()
	return true
}

// RunUntilParked ticks until no runnable is ready. It does not move the clock.
func (d *TestDispatcher) RunUntilParked() {
	for d.Tick(false) {
	}
}

// AdvanceToNextDelayed moves the clock to the earliest delayed runnable
// and promotes everything due at that instant. It reports false when
// there is no delayed work.
func (d *TestDispatcher) AdvanceToNextDelayed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.delayed.Len() == 0 {
		return false
	}
	d.clock.Set(d.delayed[0].when)
	d.promoteDueLocked()
	return true
}

// AdvanceClock moves virtual time forward by dur, running every runnable
// that becomes due along the way in time order.
func (d *TestDispatcher) AdvanceClock(dur time.Duration) {
	target := d.clock.Now().Add(dur)
	for {
		d.RunUntilParked()
		d.mu.Lock()
		if d.delayed.Len() == 0 || d.delayed[0].when.After(target) {
			d.mu.Unlock()
			break
		}
		d.clock.Set(d.delayed[0].when)
		d.promoteDueLocked()
		d.mu.Unlock()
	}
	d.clock.Set(target)
}

// RunUntilIdle runs ready work and fires delayed work, advancing the clock
// as needed, until nothing at all is pending.
func (d *TestDispatcher) RunUntilIdle() {
	for {
		d.RunUntilParked()
		if !d.AdvanceToNextDelayed() {
			return
		}
	}
}

// Pending reports the number of ready and delayed runnables.
func (d *TestDispatcher) Pending() (ready, delayed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.foreground) + len(d.background), d.delayed.Len()
}

// Ticks reports how many runnables have run.
func (d *TestDispatcher) Ticks() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

func (d *TestDispatcher) promoteDueLocked() {
	now := d.clock.Now()
	for d.delayed.Len() > 0 && !d.delayed[0].when.After(now) {
		item := heap.Pop(&d.delayed).(delayed)
		d.background = append(d.background, item.r)
	}
}

type delayed struct {
	when time.Time
	seq  uint64
	r    Runnable
}

// delayedQueue is a min-heap ordered by due time, then by insertion.
type delayedQueue []delayed

func (q delayedQueue) Len() int { return len(q) }
func (q delayedQueue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}
func (q delayedQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *delayedQueue) Push(x any) {
	*q = append(*q, x.(delayed))
}

func (q *delayedQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = delayed{}
	*q = old[:n-1]
	return x
}
