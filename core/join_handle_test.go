package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// expectPanic runs fn and returns the recovered value, failing when fn returns.
func expectPanic(t *testing.T, fn func()) (recovered any) {
	t.Helper()
	defer func() { recovered = recover() }()
	fn()
	t.Fatal("expected a panic")
	return nil
}

// TestRemoteJoinHandle_PollDelivers verifies the future side of the handle
// Main test items:
// 1. Pending registers the waker, send wakes it
// 2. Ready returns the value once
// 3. A second poll panics with a programming error
func TestRemoteJoinHandle_PollDelivers(t *testing.T) {
	h := newRemoteJoinHandle[int]("sum")
	w := &countingWaker{}
	cx := NewPollContext(w, nil)

	if p := h.Poll(cx); p.IsReady() {
		t.Fatal("handle ready before send")
	}
	if h.IsFinished() {
		t.Error("IsFinished = true before send")
	}

	h.rx.send(2)
	if w.n.Load() != 1 {
		t.Errorf("waker woken %d times, want 1", w.n.Load())
	}
	if !h.IsFinished() {
		t.Error("IsFinished = false after send")
	}
	if p := h.Poll(cx); !p.IsReady() || p.Value() != 2 {
		t.Errorf("poll after send = %+v, want Ready(2)", p)
	}

	r := expectPanic(t, func() { h.Poll(cx) })
	if err, ok := r.(error); !ok || !IsKind(err, KindProgramming) {
		t.Errorf("double poll panic = %v, want programming error", r)
	}
}

// TestRemoteJoinHandle_DroppedCause verifies failures are re-raised at the await
// Given: Handles whose task panicked or was aborted
// When: The handle is polled or joined
// Then: A panicked task re-raises its *TaskPanicError, other causes are wrapped
func TestRemoteJoinHandle_DroppedCause(t *testing.T) {
	cx := NewPollContext(nil, nil)

	panicked := newRemoteJoinHandle[int]("p")
	perr := &TaskPanicError{TaskName: "p", Value: "boom"}
	panicked.rx.drop(perr)
	if r := expectPanic(t, func() { panicked.Poll(cx) }); r != perr {
		t.Errorf("panic value = %v, want the task's *TaskPanicError", r)
	}

	aborted := newRemoteJoinHandle[int]("a")
	aborted.rx.drop(ErrTaskAborted)
	r := expectPanic(t, func() { aborted.Join() })
	err, ok := r.(error)
	if !ok || !errors.Is(err, ErrTaskAborted) || !IsKind(err, KindWrapped) {
		t.Errorf("panic value = %v, want wrapped ErrTaskAborted", r)
	}
}

func TestRemoteJoinHandle_JoinContext(t *testing.T) {
	h := newRemoteJoinHandle[string]("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.JoinContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("JoinContext error = %v, want deadline exceeded", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.rx.send("done")
	}()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done never closed")
	}
	v, err := h.JoinContext(context.Background())
	if err != nil || v != "done" {
		t.Errorf("JoinContext = %q, %v, want done", v, err)
	}

	rejected := newRemoteJoinHandle[string]("rejected")
	rejected.rx.drop(ErrRuntimeStopping)
	if _, err := rejected.JoinContext(context.Background()); !errors.Is(err, ErrRuntimeStopping) {
		t.Errorf("JoinContext error = %v, want ErrRuntimeStopping", err)
	}
}

func TestRemoteJoinHandle_Placement(t *testing.T) {
	h := newRemoteJoinHandle[Unit]("x")
	if h.Placement().Kind() != PlacementAny {
		t.Errorf("placement without domain = %v, want any", h.Placement())
	}

	h.domain = NewDomain(1, 3)
	p := h.Placement()
	if token, ok := p.Token(); !ok || token != h.Domain() {
		t.Errorf("placement = %v, want same_thread_as(%v)", p, h.Domain())
	}
}

// TestRemoteJoinHandle_AbortFlag verifies RequestAbort sets the shared flag and
// wakes the bound task
func TestRemoteJoinHandle_AbortFlag(t *testing.T) {
	h := newRemoteJoinHandle[int]("abortable")
	w := &countingWaker{}
	h.abort.bind(w)

	h.RequestAbort()
	if !h.abort.IsSet() {
		t.Error("abort flag not set")
	}
	if w.n.Load() != 1 {
		t.Errorf("bound waker woken %d times, want 1", w.n.Load())
	}
}

func TestOneshot_FirstOutcomeWins(t *testing.T) {
	c := newOneshot[int]()
	c.send(1)
	c.send(2)
	c.drop(ErrTaskAborted)

	v, cause := c.take()
	if v != 1 || cause != nil {
		t.Errorf("take = %d, %v, want 1, nil", v, cause)
	}
	expectPanic(t, func() { c.take() })
}

// TestLocalJoinHandle_OwnerCheck verifies a local handle refuses foreign pollers
func TestLocalJoinHandle_OwnerCheck(t *testing.T) {
	owner := &AsyncWorker{domain: NewDomain(0, 2)}
	other := &AsyncWorker{domain: NewDomain(1, 2)}
	h := &LocalJoinHandle[int]{slot: &localSlot[int]{}, abort: NewAbortFlag(), name: "local", owner: owner}

	foreign := NewPollContext(nil, &ThreadState{worker: other})
	expectPanic(t, func() { h.Poll(foreign) })
	expectPanic(t, func() { h.Poll(NewPollContext(nil, nil)) })

	w := &countingWaker{}
	own := NewPollContext(w, &ThreadState{worker: owner})
	if p := h.Poll(own); p.IsReady() {
		t.Fatal("local handle ready before send")
	}
	h.slot.send(9)
	if w.n.Load() != 1 || !h.IsFinished() {
		t.Errorf("send did not wake the owner task")
	}
	if p := h.Poll(own); p.Value() != 9 {
		t.Errorf("local handle value = %d, want 9", p.Value())
	}
	if h.Domain() != owner.domain {
		t.Errorf("Domain = %v, want %v", h.Domain(), owner.domain)
	}
}
