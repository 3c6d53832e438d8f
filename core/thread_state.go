package core

// ThreadState is the per-thread context handed to task factories and reachable
// from every poll through PollContext.State.
//
// Async workers have a Domain and a Region; root goroutines and system workers do
// not. Its methods are safe on a nil receiver, which behaves like a detached root.
type ThreadState struct {
	domain     Domain
	region     Domain
	background bool
	worker     *AsyncWorker
	scheduler  Scheduler
	timers     *DelayManager
	logger     Logger
	threadID   int
}

// NewDetachedThreadState returns a root-like state bound to s. It has no Domain,
// may block and uses time.AfterFunc for sleeps.
func NewDetachedThreadState(s Scheduler) *ThreadState {
	return &ThreadState{scheduler: s, logger: NewNoOpLogger(), threadID: -1}
}

// Domain returns the worker's position; false on non-worker threads.
func (ts *ThreadState) Domain() (Domain, bool) {
	if ts == nil {
		return Domain{}, false
	}
	return ts.domain, ts.domain.IsValid()
}

// Region returns the memory region of the worker; false on non-worker threads.
func (ts *ThreadState) Region() (Domain, bool) {
	if ts == nil {
		return Domain{}, false
	}
	return ts.region, ts.region.IsValid()
}

// Placement pins to the current worker, or Any when there is none.
func (ts *ThreadState) Placement() Placement {
	if d, ok := ts.Domain(); ok {
		return SameThreadAs(d)
	}
	return Any()
}

// Scheduler returns the spawn surface for tasks running on this thread.
func (ts *ThreadState) Scheduler() Scheduler {
	if ts == nil {
		return nil
	}
	return ts.scheduler
}

// Timers returns the runtime's delay manager, nil outside a runtime.
func (ts *ThreadState) Timers() *DelayManager {
	if ts == nil {
		return nil
	}
	return ts.timers
}

// ThreadID returns the OS thread id of the worker, -1 when unknown.
func (ts *ThreadState) ThreadID() int {
	if ts == nil {
		return -1
	}
	return ts.threadID
}

func (ts *ThreadState) IsBackground() bool {
	return ts != nil && ts.background
}

// MayBlock reports whether blocking calls such as RemoteJoinHandle.Join are
// allowed. They are not on async workers.
func (ts *ThreadState) MayBlock() bool {
	return ts == nil || ts.worker == nil
}

func (ts *ThreadState) Logger() Logger {
	if ts == nil || ts.logger == nil {
		return NewNoOpLogger()
	}
	return ts.logger
}

// Waker returns the wake source of the worker, for I/O drivers that need to unpark
// it when completions arrive. Nil on non-worker threads.
func (ts *ThreadState) Waker() Waker {
	if ts == nil || ts.worker == nil {
		return nil
	}
	return ts.worker.waker
}
