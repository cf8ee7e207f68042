package dispatch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/go-drift/modelkit/pkg/errors"
	"github.com/go-drift/modelkit/pkg/logging"
)

// PlatformDispatcher runs background work on a pool of worker goroutines
// and main lane work on whichever goroutine calls RunMain or DrainMain.
type PlatformDispatcher struct {
	clock   clockwork.Clock
	workers int
	log     zerolog.Logger

	bgMu     sync.Mutex
	bgCond   *sync.Cond
	bgQueue  []Runnable
	closed   bool
	workerWg sync.WaitGroup

	mainMu    sync.Mutex
	mainQueue []Runnable
	mainWake  chan struct{}

	// OnMainWork is called whenever work is queued on the main lane,
	// signalling a host event loop that RunMain or DrainMain should run.
	OnMainWork func()
}

// Option configures a PlatformDispatcher.
type Option func(*PlatformDispatcher)

// WithWorkers sets the background pool size. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(p *PlatformDispatcher) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock replaces the real clock, typically with clockwork.NewFakeClock().
func WithClock(c clockwork.Clock) Option {
	return func(p *PlatformDispatcher) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger used for pool lifecycle messages.
func WithLogger(l zerolog.Logger) Option {
	return func(p *PlatformDispatcher) {
		p.log = l
	}
}

// NewPlatformDispatcher creates a dispatcher and starts its worker pool.
// Call Close to stop the workers.
func NewPlatformDispatcher(opts ...Option) *PlatformDispatcher {
	p := &PlatformDispatcher{
		clock:    clockwork.NewRealClock(),
		workers:  runtime.GOMAXPROCS(0),
		log:      logging.For("dispatch"),
		mainWake: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bgCond = sync.NewCond(&p.bgMu)
	p.workerWg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker()
	}
	p.log.Debug().Int("workers", p.workers).Msg("worker pool started")
	return p
}

// Dispatch queues r on the background lane. Work queued after Close is dropped.
func (p *PlatformDispatcher) Dispatch(r Runnable) {
	if r == nil {
		return
	}
	p.bgMu.Lock()
	if p.closed {
		p.bgMu.Unlock()
		return
	}
	p.bgQueue = append(p.bgQueue, r)
	p.bgMu.Unlock()
	p.bgCond.Signal()
}

// DispatchOnMainThread queues r on the main lane.
func (p *PlatformDispatcher) DispatchOnMainThread(r Runnable) {
	if r == nil {
		return
	}
	p.mainMu.Lock()
	p.mainQueue = append(p.mainQueue, r)
	p.mainMu.Unlock()
	select {
	case p.mainWake <- struct{}{}:
	default:
	}
	if p.OnMainWork != nil {
		p.OnMainWork()
	}
}

// DispatchAfter queues r on the background lane after d.
func (p *PlatformDispatcher) DispatchAfter(d time.Duration, r Runnable) StopFunc {
	if r == nil {
		return stopped
	}
	if d <= 0 {
		p.Dispatch(r)
		return stopped
	}
	return p.clock.AfterFunc(d, func() { p.Dispatch(r) }).Stop
}

// Now returns the dispatcher clock's current time.
func (p *PlatformDispatcher) Now() time.Time {
	return p.clock.Now()
}

// Clock returns the clock used for delayed work.
func (p *PlatformDispatcher) Clock() clockwork.Clock {
	return p.clock
}

// DrainMain runs the main lane work queued at the time of the call,
// in order, and returns how many runnables ran. Work queued by those
// runnables is left for the next drain.
func (p *PlatformDispatcher) DrainMain() int {
	p.mainMu.Lock()
	queue := p.mainQueue
	p.mainQueue = nil
	p.mainMu.Unlock()

	for _, r := range queue {
		p.runMain(r)
	}
	return len(queue)
}

// PendingMain reports how many runnables wait on the main lane.
func (p *PlatformDispatcher) PendingMain() int {
	p.mainMu.Lock()
	defer p.mainMu.Unlock()
	return len(p.mainQueue)
}

// RunMain drives the main lane on the calling goroutine until ctx is done.
func (p *PlatformDispatcher) RunMain(ctx context.Context) error {
	for {
		for p.DrainMain() > 0 {
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.mainWake:
		}
	}
}

// Close stops the worker pool after the queued background work has run.
func (p *PlatformDispatcher) Close() {
	p.bgMu.Lock()
	if p.closed {
		p.bgMu.Unlock()
		return
	}
	p.closed = true
	p.bgMu.Unlock()
	p.bgCond.Broadcast()
	p.workerWg.Wait()
	p.log.Debug().Msg("worker pool stopped")
}

func (p *PlatformDispatcher) runMain(r Runnable) {
	defer errors.Recover("dispatch.main", "", nil)
	r()
}

func (p *PlatformDispatcher) worker() {
	defer p.workerWg.Done()
	for {
		p.bgMu.Lock()
		for len(p.bgQueue) == 0 && !p.closed {
			p.bgCond.Wait()
		}
		if len(p.bgQueue) == 0 && p.closed {
			p.bgMu.Unlock()
			return
		}
		r := p.bgQueue[0]
		p.bgQueue[0] = nil
		p.bgQueue = p.bgQueue[1:]
		p.bgMu.Unlock()

		func() {
			defer errors.Recover("dispatch.worker", "", nil)
			r()
		}()
	}
}
