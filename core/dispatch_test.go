package core

import (
	"errors"
	"testing"
)

// newTestDispatcher builds a dispatcher over workers that are marked live but
// never started, so dispatched requests stay in their spawn queues.
func newTestDispatcher(t *testing.T, foreground, background, regions int) (*DispatcherCore, []*AsyncWorker, *recordingRejectedHandler) {
	t.Helper()
	rejected := &recordingRejectedHandler{}
	core := newDispatcherCore("rt", HandlerConfig{Logger: NewNoOpLogger(), RejectedTaskHandler: rejected}, nil)

	total := foreground + background
	workers := make([]*AsyncWorker, 0, total)
	for i := 0; i < total; i++ {
		opts := workerOptions{
			name:   "w",
			domain: NewDomain(i, total),
			cpu:    -1,
		}
		if i < foreground {
			opts.region = NewDomain(regionOf(i, foreground, regions), regions)
		} else {
			opts.region = NewDomain(regionOf(i-foreground, background, regions), regions)
			opts.background = true
		}
		w := newAsyncWorker(core, opts)
		w.live.Store(true)
		workers = append(workers, w)
	}
	core.register(workers, regions)
	return core, workers, rejected
}

func request(name string, rejected *error) SpawnRequest {
	return SpawnRequest{Name: name, Kind: TaskKindAsync, Reject: func(cause error) { *rejected = cause }}
}

func metaFor(p Placement) TaskMeta {
	return NewTaskMeta().Placement(p).Build()
}

// TestDispatch_AnyRoundRobin verifies Any placement
// Main test items:
// 1. Foreground workers are used in turn
// 2. Background workers are never chosen
// 3. Workers that are not live are skipped
func TestDispatch_AnyRoundRobin(t *testing.T) {
	core, workers, _ := newTestDispatcher(t, 2, 1, 1)
	client := core.Client(nil)

	var got []int
	for i := 0; i < 4; i++ {
		var rej error
		d, err := client.Dispatch(request("any", &rej), metaFor(Any()))
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		got = append(got, d.Index())
	}
	if got[0] == got[1] || got[0] != got[2] || got[1] != got[3] {
		t.Errorf("placement sequence = %v, want alternating", got)
	}
	if workers[2].queue.Len() != 0 {
		t.Error("Any placement reached a background worker")
	}

	workers[0].live.Store(false)
	for i := 0; i < 3; i++ {
		var rej error
		if d, _ := client.Dispatch(request("any", &rej), metaFor(Any())); d.Index() != 1 {
			t.Errorf("dispatch to dead worker: domain %v", d)
		}
	}

	if ds := client.Workers(); len(ds) != 2 || ds[0] != workers[0].domain || ds[1] != workers[1].domain {
		t.Errorf("Workers() = %v, want the foreground domains", ds)
	}
}

// TestDispatch_SameThreadAs verifies exact placement and its failure modes
// Given: A runtime with three workers
// When: Tasks are pinned to a live worker, an exited worker and a foreign token
// Then: They land on the pinned worker, fail with ErrWorkerGone, or panic
func TestDispatch_SameThreadAs(t *testing.T) {
	core, workers, rejected := newTestDispatcher(t, 3, 0, 1)
	client := core.Client(nil)

	var rej error
	d, err := client.Dispatch(request("pinned", &rej), metaFor(SameThreadAs(workers[2].domain)))
	if err != nil || d != workers[2].domain || workers[2].queue.Len() != 1 {
		t.Fatalf("pinned dispatch = %v, %v", d, err)
	}

	workers[1].live.Store(false)
	d, err = client.Dispatch(request("gone", &rej), metaFor(SameThreadAs(workers[1].domain)))
	if !errors.Is(err, ErrWorkerGone) || !errors.Is(rej, ErrWorkerGone) || d.IsValid() {
		t.Errorf("dispatch to exited worker = %v, %v, reject %v", d, err, rej)
	}
	if r := rejected.Rejections(); len(r) != 1 || r[0].TaskName != "gone" || r[0].Reason != "worker_gone" {
		t.Errorf("rejections = %+v", r)
	}

	expectPanic(t, func() {
		client.Dispatch(request("foreign", &rej), metaFor(SameThreadAs(NewDomain(0, 7))))
	})
}

func TestDispatch_Background(t *testing.T) {
	core, workers, _ := newTestDispatcher(t, 1, 2, 1)
	client := core.Client(nil)

	for i := 0; i < 4; i++ {
		var rej error
		d, err := client.Dispatch(request("bg", &rej), metaFor(Background()))
		if err != nil || d.Index() < 1 {
			t.Fatalf("background dispatch = %v, %v", d, err)
		}
	}
	if workers[1].queue.Len() != 2 || workers[2].queue.Len() != 2 {
		t.Errorf("background queues = %d, %d, want 2, 2", workers[1].queue.Len(), workers[2].queue.Len())
	}

	noBackground, _, _ := newTestDispatcher(t, 1, 0, 1)
	var rej error
	expectPanic(t, func() {
		noBackground.Client(nil).Dispatch(request("bg", &rej), metaFor(Background()))
	})
}

// TestDispatch_CurrentRegion verifies region-local placement
// Main test items:
// 1. Tasks from a worker stay within its region
// 2. Root callers without a region panic
func TestDispatch_CurrentRegion(t *testing.T) {
	core, workers, _ := newTestDispatcher(t, 4, 0, 2)
	caller := workers[3].state // region 1 holds workers 2 and 3
	client := core.Client(caller)

	for i := 0; i < 6; i++ {
		var rej error
		d, err := client.Dispatch(request("local-region", &rej), metaFor(CurrentRegion()))
		if err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if d.Index() != 2 && d.Index() != 3 {
			t.Errorf("task left region 1: landed on %v", d)
		}
	}
	if workers[0].queue.Len()+workers[1].queue.Len() != 0 {
		t.Error("region 0 received region 1 tasks")
	}

	var rej error
	expectPanic(t, func() {
		core.Client(nil).Dispatch(request("root", &rej), metaFor(CurrentRegion()))
	})
}

// TestDispatch_Stop verifies dispatch after Stop and the stop side effects
func TestDispatch_Stop(t *testing.T) {
	core, workers, rejected := newTestDispatcher(t, 2, 0, 1)
	stops := 0
	core.onStop = func() { stops++ }
	client := core.Client(nil)

	client.Stop()
	client.Stop()
	if stops != 1 || !client.IsStopping() {
		t.Errorf("stops = %d, IsStopping = %v", stops, client.IsStopping())
	}
	for _, w := range workers {
		if !w.waker.IsNotified() {
			t.Errorf("worker %v not woken by Stop", w.domain)
		}
	}

	var rej error
	if _, err := client.Dispatch(request("late", &rej), metaFor(Any())); !errors.Is(err, ErrRuntimeStopping) {
		t.Errorf("dispatch after stop = %v, want ErrRuntimeStopping", err)
	}
	if !errors.Is(rej, ErrRuntimeStopping) {
		t.Errorf("reject cause = %v", rej)
	}
	if r := rejected.Rejections(); len(r) != 1 || r[0].Reason != "shutdown" {
		t.Errorf("rejections = %+v", r)
	}
}

func TestDispatch_ClosedQueue(t *testing.T) {
	core, workers, _ := newTestDispatcher(t, 1, 0, 1)
	workers[0].queue.Close()

	var rej error
	_, err := core.Client(nil).Dispatch(request("closed", &rej), metaFor(SameThreadAs(workers[0].domain)))
	if !errors.Is(err, ErrWorkerGone) || !errors.Is(rej, ErrWorkerGone) {
		t.Errorf("dispatch to closed queue = %v, reject %v", err, rej)
	}
}

func TestRegionOf(t *testing.T) {
	got := []int{regionOf(0, 4, 2), regionOf(1, 4, 2), regionOf(2, 4, 2), regionOf(3, 4, 2)}
	if got[0] != 0 || got[1] != 0 || got[2] != 1 || got[3] != 1 {
		t.Errorf("regionOf = %v, want [0 0 1 1]", got)
	}
	if detectRegions() < 1 {
		t.Error("detectRegions < 1")
	}
}
