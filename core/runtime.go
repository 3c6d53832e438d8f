package core

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
)

// LifecycleState is the coarse state of a Runtime.
type LifecycleState int32

// A Runtime is StateCreated only inside Build, while its workers are starting;
// Build returns it StateRunning, or not at all.
const (
	StateCreated LifecycleState = iota
	StateRunning
	StateStopRequested
	StateStopped
)

func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopRequested:
		return "stop_requested"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Runtime owns the async workers, the system pool and the timer goroutine of one
// scheduler instance.
//
// Lifecycle: Build starts every thread (Running). Stop, from anywhere, makes the
// workers drain (StopRequested). Once every async worker exited the system pool is
// closed and timers are stopped (Stopped), which releases Wait.
type Runtime struct {
	name     string
	cfg      Config
	handlers HandlerConfig

	core    *DispatcherCore
	workers []*AsyncWorker
	system  *SystemWorker
	timers  *DelayManager
	history *executionHistory
	root    *ThreadState

	state atomic.Int32
	done  chan struct{}
}

// New builds and starts a runtime with the default configuration.
func New() (*Runtime, error) {
	return NewRuntimeBuilder().Build()
}

func (rt *Runtime) Name() string {
	return rt.name
}

// Config returns the effective configuration, with worker and region counts
// resolved.
func (rt *Runtime) Config() Config {
	return rt.cfg
}

// Scheduler returns the spawn surface for code outside the runtime.
func (rt *Runtime) Scheduler() Scheduler {
	return rt.root.scheduler
}

// RootState is the ThreadState of code outside the runtime: no Domain, may block.
func (rt *Runtime) RootState() *ThreadState {
	return rt.root
}

// Workers lists the domains of the foreground workers.
func (rt *Runtime) Workers() []Domain {
	return rt.core.workerDomains()
}

func (rt *Runtime) State() LifecycleState {
	return LifecycleState(rt.state.Load())
}

// Stop requests shutdown. It returns immediately and may be called any number of
// times from any goroutine, including runtime threads.
func (rt *Runtime) Stop() {
	rt.core.Stop()
}

// Wait blocks until every runtime thread has exited. Calling it from a runtime
// thread would deadlock, so it panics instead.
func (rt *Runtime) Wait() {
	assertNotRuntimeThread("Runtime.Wait")
	<-rt.done
}

// WaitContext is Wait with cancellation.
func (rt *Runtime) WaitContext(ctx context.Context) error {
	assertNotRuntimeThread("Runtime.WaitContext")
	select {
	case <-rt.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the runtime reaches StateStopped.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.done
}

// Run spawns main, waits for it, then stops the runtime and waits for it to exit.
// A non-nil error from main is returned wrapped; a panic in main is re-raised
// after shutdown.
func (rt *Runtime) Run(main AsyncFactory[error]) error {
	assertNotRuntimeThread("Runtime.Run")

	h, err := TrySpawn(rt.Scheduler(), main, NewTaskMeta().Name("main").Build())
	var result error
	if err == nil {
		result, err = h.JoinContext(context.Background())
	}

	rt.Stop()
	rt.Wait()

	var perr *TaskPanicError
	if errors.As(err, &perr) {
		panic(perr)
	}
	if err != nil {
		return WrapError(err)
	}
	if result != nil {
		return WrapError(result)
	}
	return nil
}

// BlockOn spawns factory with default placement and blocks until its result is
// available. The runtime keeps running.
func BlockOn[R any](rt *Runtime, factory AsyncFactory[R]) R {
	assertNotRuntimeThread("BlockOn")
	return Spawn(rt.Scheduler(), factory, DefaultTaskMeta()).Join()
}

func (rt *Runtime) Stats() RuntimeStats {
	workers := make([]WorkerStats, 0, len(rt.workers))
	for _, w := range rt.workers {
		workers = append(workers, w.Stats())
	}
	return RuntimeStats{
		Name:     rt.name,
		State:    rt.State(),
		Workers:  workers,
		System:   rt.system.Stats(),
		Timers:   rt.timers.TimerCount(),
		Outcomes: rt.history.Outcomes(),
	}
}

// RecentTasks returns up to limit finished tasks, newest first.
func (rt *Runtime) RecentTasks(limit int) []TaskExecutionRecord {
	return rt.history.Recent(limit)
}

// LastTask returns the most recently finished task.
func (rt *Runtime) LastTask() (TaskExecutionRecord, bool) {
	return rt.history.Last()
}

// WriteStatsJSON writes Stats as one JSON document.
func (rt *Runtime) WriteStatsJSON(w io.Writer) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(rt.Stats())
}

func (rt *Runtime) onStopRequested() {
	rt.state.CompareAndSwap(int32(StateRunning), int32(StateStopRequested))
}

// supervise finishes shutdown once every async worker has exited.
func (rt *Runtime) supervise() {
	for _, w := range rt.workers {
		<-w.Done()
	}
	rt.system.Close()
	<-rt.system.Done()
	rt.timers.Stop()

	rt.state.Store(int32(StateStopped))
	rt.handlers.Logger.Info("runtime stopped", F("runtime", rt.name))
	close(rt.done)
}
