package core

import (
	"sync"
	"testing"
	"time"
)

// TestThreadState_Detached verifies root-like states
// Main test items:
// 1. A nil state and a detached state have no Domain and may block
// 2. Placement falls back to Any
// 3. Sleep on a detached state still wakes through time.AfterFunc
func TestThreadState_Detached(t *testing.T) {
	var nilState *ThreadState
	detached := NewDetachedThreadState(nil)

	for name, ts := range map[string]*ThreadState{"nil": nilState, "detached": detached} {
		if _, ok := ts.Domain(); ok {
			t.Errorf("%s: Domain reported ok", name)
		}
		if _, ok := ts.Region(); ok {
			t.Errorf("%s: Region reported ok", name)
		}
		if ts.Placement().Kind() != PlacementAny {
			t.Errorf("%s: Placement = %v, want Any", name, ts.Placement())
		}
		if !ts.MayBlock() || ts.IsBackground() || ts.Waker() != nil || ts.ThreadID() != -1 {
			t.Errorf("%s: unexpected worker facts", name)
		}
		if ts.Logger() == nil {
			t.Errorf("%s: Logger is nil", name)
		}
	}

	w := make(chanWaker, 1)
	cx := NewPollContext(w, detached)
	sleep := Sleep(10 * time.Millisecond)
	if sleep.Poll(cx).IsReady() {
		t.Fatal("Sleep ready on first poll")
	}
	expectWake(t, w, time.Second)
	if !sleep.Poll(cx).IsReady() {
		t.Error("Sleep still pending after its wake")
	}
}

// TestThreadState_WorkerHooks verifies what start hooks observe on a worker
// Given: A runtime with two foreground and one background worker
// When: Each worker runs its start hook
// Then: Every state has a Domain, a wake source, timers and a blocking ban
func TestThreadState_WorkerHooks(t *testing.T) {
	var (
		mu     sync.Mutex
		states []*ThreadState
	)
	b := testBuilder().OnWorkerStart(func(ts *ThreadState) {
		mu.Lock()
		states = append(states, ts)
		mu.Unlock()
	})
	startRuntime(t, b)

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 3
	}, "all start hooks ran")

	mu.Lock()
	defer mu.Unlock()
	background := 0
	for _, ts := range states {
		if _, ok := ts.Domain(); !ok {
			t.Error("worker state has no Domain")
		}
		if ts.MayBlock() {
			t.Error("worker state allows blocking")
		}
		if ts.Waker() == nil || ts.Timers() == nil || ts.Scheduler() == nil {
			t.Error("worker state is missing its waker, timers or scheduler")
		}
		if ts.Placement().Kind() != PlacementSameThreadAs {
			t.Errorf("worker Placement = %v, want SameThreadAs", ts.Placement())
		}
		if ts.IsBackground() {
			background++
		}
	}
	if background != 1 {
		t.Errorf("background states = %d, want 1", background)
	}
}
