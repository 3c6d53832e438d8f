package core

import (
	"sync/atomic"
)

// Scheduler routes spawn requests to workers. DispatcherClient is the production
// implementation; tests may substitute their own.
type Scheduler interface {
	// Dispatch resolves meta's placement and queues req on the chosen worker. The
	// request is consumed in every case: on error its Reject has been called.
	Dispatch(req SpawnRequest, meta TaskMeta) (Domain, error)
	// DispatchSystem queues a blocking task on the system pool. On error the task's
	// Fail has been called.
	DispatchSystem(task SystemTask) error
	// Workers lists the domains of the foreground workers.
	Workers() []Domain
	// Stop requests shutdown. It is idempotent and safe from any goroutine.
	Stop()
	IsStopping() bool
}

// DispatcherCore is the shared routing state of one runtime: the worker registry,
// which is immutable once the runtime is built, plus round-robin cursors and the
// stopping flag.
type DispatcherCore struct {
	name     string
	handlers HandlerConfig
	system   *SystemWorker

	workers       []*AsyncWorker
	foreground    []int
	background    []int
	regionMembers [][]int

	anyNext    atomic.Uint64
	bgNext     atomic.Uint64
	regionNext []atomic.Uint64

	stopping atomic.Bool
	onStop   func()
}

func newDispatcherCore(name string, handlers HandlerConfig, system *SystemWorker) *DispatcherCore {
	return &DispatcherCore{
		name:     name,
		handlers: handlers.withDefaults(),
		system:   system,
	}
}

// register installs the workers. Foreground workers come first in workers.
func (c *DispatcherCore) register(workers []*AsyncWorker, regionCount int) {
	c.workers = workers
	c.regionMembers = make([][]int, regionCount)
	c.regionNext = make([]atomic.Uint64, regionCount)
	for i, w := range workers {
		if w.background {
			c.background = append(c.background, i)
			continue
		}
		c.foreground = append(c.foreground, i)
		r := w.region.Index()
		c.regionMembers[r] = append(c.regionMembers[r], i)
	}
}

// Client returns a Scheduler that spawns on behalf of caller (nil for root code).
func (c *DispatcherCore) Client(caller *ThreadState) *DispatcherClient {
	return &DispatcherClient{core: c, caller: caller}
}

func (c *DispatcherCore) resolve(p Placement, caller *ThreadState) (*AsyncWorker, error) {
	switch p.Kind() {
	case PlacementSameThreadAs:
		token, _ := p.Token()
		if token.Count() != len(c.workers) || token.Index() >= len(c.workers) {
			panicProgramming("placement token %s does not belong to runtime %q", token, c.name)
		}
		w := c.workers[token.Index()]
		if !w.IsLive() {
			return nil, ErrWorkerGone
		}
		return w, nil

	case PlacementBackground:
		if len(c.background) == 0 {
			panicProgramming("background placement on runtime %q which has no background workers", c.name)
		}
		return c.roundRobin(c.background, &c.bgNext)

	case PlacementCurrentRegion:
		region, ok := caller.Region()
		if !ok {
			panicProgramming("CurrentRegion placement requires a caller running on an async worker")
		}
		if members := c.regionMembers[region.Index()]; len(members) > 0 {
			return c.roundRobin(members, &c.regionNext[region.Index()])
		}
		return c.roundRobin(c.foreground, &c.anyNext)

	default:
		return c.roundRobin(c.foreground, &c.anyNext)
	}
}

// roundRobin picks the next live worker among indices.
func (c *DispatcherCore) roundRobin(indices []int, cursor *atomic.Uint64) (*AsyncWorker, error) {
	n := uint64(len(indices))
	if n == 0 {
		return nil, ErrWorkerGone
	}
	start := cursor.Add(1) - 1
	for i := uint64(0); i < n; i++ {
		if w := c.workers[indices[(start+i)%n]]; w.IsLive() {
			return w, nil
		}
	}
	return nil, ErrWorkerGone
}

func (c *DispatcherCore) dispatch(req SpawnRequest, meta TaskMeta, caller *ThreadState) (Domain, error) {
	if req.Name == "" {
		req.Name = meta.Name()
	}
	if c.stopping.Load() {
		return Domain{}, c.refuse(req, ErrRuntimeStopping)
	}

	w, err := c.resolve(meta.Placement(), caller)
	if err != nil {
		return Domain{}, c.refuse(req, err)
	}
	if !w.queue.Push(req) {
		if c.stopping.Load() {
			err = ErrRuntimeStopping
		} else {
			err = ErrWorkerGone
		}
		return Domain{}, c.refuse(req, err)
	}
	return w.domain, nil
}

func (c *DispatcherCore) refuse(req SpawnRequest, cause error) error {
	c.handlers.reject(c.name, resolveTaskName(req.Name), cause)
	req.reject(cause)
	return cause
}

func (c *DispatcherCore) workerDomains() []Domain {
	out := make([]Domain, 0, len(c.foreground))
	for _, idx := range c.foreground {
		out = append(out, c.workers[idx].domain)
	}
	return out
}

// Stop flips the stopping flag once, closes the system pool gate and wakes every
// worker so it starts draining.
func (c *DispatcherCore) Stop() {
	if !c.stopping.CompareAndSwap(false, true) {
		return
	}
	c.handlers.Logger.Info("runtime stop requested", F("runtime", c.name))
	if c.system != nil {
		c.system.BeginShutdown()
	}
	for _, w := range c.workers {
		w.waker.Notify()
	}
	if c.onStop != nil {
		c.onStop()
	}
}

func (c *DispatcherCore) IsStopping() bool {
	return c.stopping.Load()
}

// DispatcherClient is the Scheduler handed to code running on one thread. It
// carries the caller's ThreadState so region placement can be resolved.
type DispatcherClient struct {
	core   *DispatcherCore
	caller *ThreadState
}

var _ Scheduler = (*DispatcherClient)(nil)

func (d *DispatcherClient) Dispatch(req SpawnRequest, meta TaskMeta) (Domain, error) {
	return d.core.dispatch(req, meta, d.caller)
}

func (d *DispatcherClient) DispatchSystem(task SystemTask) error {
	return d.core.system.Submit(task)
}

func (d *DispatcherClient) Workers() []Domain {
	return d.core.workerDomains()
}

func (d *DispatcherClient) Stop() {
	d.core.Stop()
}

func (d *DispatcherClient) IsStopping() bool {
	return d.core.IsStopping()
}
