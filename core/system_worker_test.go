package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// TestSystemWorker_RunsTasks verifies tasks run on system threads
// Main test items:
// 1. Submitted tasks run
// 2. They run on goroutines marked as system worker threads
// 3. Stats reflect the pool size
func TestSystemWorker_RunsTasks(t *testing.T) {
	pool := NewSystemWorker("sys", 2, HandlerConfig{Logger: NewNoOpLogger()})
	pool.Start()
	defer func() {
		pool.Close()
		<-pool.Done()
	}()

	var wg sync.WaitGroup
	var onSystem atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := pool.Submit(SystemTask{Meta: DefaultSystemTaskMeta(), Run: func() {
			defer wg.Done()
			if currentThreadRole() == roleSystemWorker {
				onSystem.Add(1)
			}
		}})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	wg.Wait()

	if onSystem.Load() != 10 {
		t.Errorf("%d of 10 tasks ran on a system thread", onSystem.Load())
	}
	if s := pool.Stats(); s.Workers != 2 || !s.Running {
		t.Errorf("Stats = %+v", s)
	}
}

// TestSystemWorker_ShutdownGate verifies category handling during shutdown
// Given: A pool after BeginShutdown
// When: Default and release-resources tasks are submitted
// Then: Default is rejected through Fail and the handler, release-resources still runs
func TestSystemWorker_ShutdownGate(t *testing.T) {
	rejected := &recordingRejectedHandler{}
	pool := NewSystemWorker("sys", 1, HandlerConfig{Logger: NewNoOpLogger(), RejectedTaskHandler: rejected})
	pool.Start()
	pool.BeginShutdown()

	var failed error
	err := pool.Submit(SystemTask{
		Meta: NewSystemTaskMeta().Name("late").Build(),
		Run:  func() { t.Error("rejected task ran") },
		Fail: func(cause error) { failed = cause },
	})
	if !errors.Is(err, ErrRuntimeStopping) || !errors.Is(failed, ErrRuntimeStopping) {
		t.Errorf("Submit = %v, Fail = %v, want ErrRuntimeStopping", err, failed)
	}
	if r := rejected.Rejections(); len(r) != 1 || r[0].TaskName != "late" || r[0].Reason != "shutdown" {
		t.Errorf("rejections = %+v", r)
	}

	ran := make(chan struct{})
	if err := pool.Submit(SystemTask{
		Meta: NewSystemTaskMeta().Category(SystemCategoryReleaseResources).Build(),
		Run:  func() { close(ran) },
	}); err != nil {
		t.Fatalf("release task rejected: %v", err)
	}
	waitClosed(t, ran, "release task")

	pool.Close()
	waitClosed(t, pool.Done(), "pool exit")
	if pool.Stats().Running {
		t.Error("pool still running after Done")
	}
}

// TestSystemWorker_ReleaseAfterExit verifies release-resources tasks still run
// once every thread has exited
func TestSystemWorker_ReleaseAfterExit(t *testing.T) {
	pool := NewSystemWorker("sys", 1, HandlerConfig{Logger: NewNoOpLogger()})
	pool.Start()
	pool.Close()
	waitClosed(t, pool.Done(), "pool exit")

	ran := make(chan struct{})
	if err := pool.Submit(SystemTask{
		Meta: NewSystemTaskMeta().Category(SystemCategoryReleaseResources).Build(),
		Run:  func() { close(ran) },
	}); err != nil {
		t.Fatalf("Submit after exit: %v", err)
	}
	waitClosed(t, ran, "release task after exit")
}

func TestSystemWorker_PanicFailsTask(t *testing.T) {
	panics := &recordingPanicHandler{}
	pool := NewSystemWorker("sys", 1, HandlerConfig{Logger: NewNoOpLogger(), PanicHandler: panics})
	pool.Start()
	defer pool.Close()

	failed := make(chan error, 1)
	pool.Submit(SystemTask{
		Meta: NewSystemTaskMeta().Name("explode").Build(),
		Run:  func() { panic("kaboom") },
		Fail: func(cause error) { failed <- cause },
	})

	select {
	case cause := <-failed:
		var perr *TaskPanicError
		if !errors.As(cause, &perr) || perr.Value != "kaboom" || perr.TaskName != "explode" {
			t.Errorf("Fail cause = %v", cause)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fail was never called")
	}
	if c := panics.Calls(); len(c) != 1 || c[0].WorkerName != "sys-0" {
		t.Errorf("panic handler calls = %+v", c)
	}
}
