package core

import (
	"context"
	"errors"
	"fmt"
)

// joinPanic converts a drop cause into the value raised at the await point.
func joinPanic(name string, cause error) any {
	var perr *TaskPanicError
	if errors.As(cause, &perr) {
		return perr
	}
	return &Error{
		Kind:    KindWrapped,
		Message: fmt.Sprintf("task %q did not complete", resolveTaskName(name)),
		Err:     cause,
	}
}

// =============================================================================
// RemoteJoinHandle
// =============================================================================

// RemoteJoinHandle delivers the result of a task to any goroutine.
//
// It is a Future: awaiting it from another task suspends that task until the
// result arrives. The result can be taken once; polling again panics. If the task
// panicked, was aborted or was rejected, taking the result panics as well.
type RemoteJoinHandle[R any] struct {
	rx     *oneshot[R]
	abort  *AbortFlag
	name   string
	domain Domain
}

var _ Future[int] = (*RemoteJoinHandle[int])(nil)

func newRemoteJoinHandle[R any](name string) *RemoteJoinHandle[R] {
	return &RemoteJoinHandle[R]{
		rx:    newOneshot[R](),
		abort: NewAbortFlag(),
		name:  name,
	}
}

func (h *RemoteJoinHandle[R]) Poll(cx *PollContext) Poll[R] {
	v, cause, ready := h.rx.poll(cx.Waker())
	if !ready {
		return Pending[R]()
	}
	if cause != nil {
		panic(joinPanic(h.name, cause))
	}
	return Ready(v)
}

// RequestAbort asks the task to stop at its next poll. A task that completes before
// then still delivers its result.
func (h *RemoteJoinHandle[R]) RequestAbort() {
	h.abort.Request()
}

// IsFinished reports whether the task delivered a result or was dropped.
func (h *RemoteJoinHandle[R]) IsFinished() bool {
	return h.rx.isClosed()
}

// Done is closed once IsFinished becomes true.
func (h *RemoteJoinHandle[R]) Done() <-chan struct{} {
	return h.rx.done
}

func (h *RemoteJoinHandle[R]) Name() string {
	return h.name
}

// Domain returns the worker the task was placed on. System tasks and rejected
// tasks have no domain.
func (h *RemoteJoinHandle[R]) Domain() Domain {
	return h.domain
}

// Placement returns a placement that pins later tasks to wherever this task ran.
func (h *RemoteJoinHandle[R]) Placement() Placement {
	if h.domain.IsValid() {
		return SameThreadAs(h.domain)
	}
	return Any()
}

// Join blocks until the result is available. It panics on async worker threads,
// which must await the handle instead, and re-raises task failures as panics.
func (h *RemoteJoinHandle[R]) Join() R {
	assertMayBlock("RemoteJoinHandle.Join")
	<-h.rx.done
	v, cause := h.rx.take()
	if cause != nil {
		panic(joinPanic(h.name, cause))
	}
	return v
}

// JoinContext is Join with cancellation. Task failures are returned as errors
// (a *TaskPanicError for panics). A canceled wait leaves the result untaken.
func (h *RemoteJoinHandle[R]) JoinContext(ctx context.Context) (R, error) {
	assertMayBlock("RemoteJoinHandle.JoinContext")
	select {
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	case <-h.rx.done:
	}
	return h.rx.take()
}

// =============================================================================
// LocalJoinHandle
// =============================================================================

// noCopy makes go vet flag copies of values that embed it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// LocalJoinHandle delivers the result of a task spawned with SpawnLocal. It is
// bound to the worker that spawned the task: it must only be awaited by tasks of
// that worker, never passed to another goroutine, and never copied. Polling it from
// another worker panics.
type LocalJoinHandle[R any] struct {
	noCopy noCopy

	slot  *localSlot[R]
	abort *AbortFlag
	name  string
	owner *AsyncWorker
}

var _ Future[int] = (*LocalJoinHandle[int])(nil)

func (h *LocalJoinHandle[R]) Poll(cx *PollContext) Poll[R] {
	if ts := cx.State(); ts == nil || ts.worker != h.owner {
		panicProgramming("LocalJoinHandle for task %q polled outside its owning worker", resolveTaskName(h.name))
	}
	v, cause, ready := h.slot.poll(cx.Waker())
	if !ready {
		return Pending[R]()
	}
	if cause != nil {
		panic(joinPanic(h.name, cause))
	}
	return Ready(v)
}

// RequestAbort asks the task to stop at its next poll.
func (h *LocalJoinHandle[R]) RequestAbort() {
	h.abort.Request()
}

// IsFinished reports whether the task delivered a result or was dropped. Only
// meaningful on the owning worker.
func (h *LocalJoinHandle[R]) IsFinished() bool {
	return h.slot.state != slotPending
}

func (h *LocalJoinHandle[R]) Name() string {
	return h.name
}

// Domain returns the owning worker's domain.
func (h *LocalJoinHandle[R]) Domain() Domain {
	return h.owner.domain
}
