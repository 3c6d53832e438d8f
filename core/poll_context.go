package core

// Waker resumes a pending future or unparks an idle worker. Wake may be called
// from any goroutine, any number of times.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to a Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

var noopWaker Waker = WakerFunc(func() {})

// PollContext is handed to every Future.Poll call.
type PollContext struct {
	waker Waker
	state *ThreadState
}

// NewPollContext creates a context for driving futures outside an executor, such as
// in tests. A nil waker is replaced by a no-op.
func NewPollContext(waker Waker, state *ThreadState) *PollContext {
	if waker == nil {
		waker = noopWaker
	}
	return &PollContext{waker: waker, state: state}
}

// Waker returns the waker of the task being polled.
func (cx *PollContext) Waker() Waker { return cx.waker }

// State returns the thread state of the worker polling the task. It may be nil
// for contexts created with NewPollContext.
func (cx *PollContext) State() *ThreadState { return cx.state }
