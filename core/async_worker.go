package core

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// ExecutorFactory builds the executor of one worker. The runtime uses
// NewAsyncTaskExecutor unless the builder was given another factory.
type ExecutorFactory func(workerName string, notifier Waker, opts ExecutorOptions) Executor

func defaultExecutorFactory(workerName string, notifier Waker, opts ExecutorOptions) Executor {
	return NewAsyncTaskExecutor(workerName, notifier, opts)
}

// WorkerHook runs on a worker's own thread when it starts or stops.
type WorkerHook func(ts *ThreadState)

type workerOptions struct {
	name         string
	domain       Domain
	region       Domain
	background   bool
	cpu          int // -1 leaves the thread unpinned
	nice         int
	idleTimeout  time.Duration
	drainTimeout time.Duration
	handlers     HandlerConfig
	record       func(TaskExecutionRecord)
	newExecutor  ExecutorFactory
	timers       *DelayManager
	onStart      []WorkerHook
	onStop       []WorkerHook
}

// AsyncWorker runs one executor on a dedicated OS thread.
type AsyncWorker struct {
	name         string
	domain       Domain
	region       Domain
	background   bool
	cpu          int
	nice         int
	idleTimeout  time.Duration
	drainTimeout time.Duration

	waker    *ThreadWaker
	queue    *SpawnQueue
	exec     Executor
	core     *DispatcherCore
	state    *ThreadState
	handlers HandlerConfig
	onStart  []WorkerHook
	onStop   []WorkerHook

	threadID  atomic.Int64
	goroutine atomic.Int64
	live      atomic.Bool
	done      chan struct{}
}

func newAsyncWorker(core *DispatcherCore, opts workerOptions) *AsyncWorker {
	newExecutor := opts.newExecutor
	if newExecutor == nil {
		newExecutor = defaultExecutorFactory
	}
	w := &AsyncWorker{
		name:         opts.name,
		domain:       opts.domain,
		region:       opts.region,
		background:   opts.background,
		cpu:          opts.cpu,
		nice:         opts.nice,
		idleTimeout:  opts.idleTimeout,
		drainTimeout: opts.drainTimeout,
		waker:        NewThreadWaker(),
		core:         core,
		handlers:     opts.handlers.withDefaults(),
		onStart:      opts.onStart,
		onStop:       opts.onStop,
		done:         make(chan struct{}),
	}
	w.threadID.Store(-1)
	w.queue = NewSpawnQueue(w.waker)
	w.exec = newExecutor(w.name, w.waker, ExecutorOptions{Handlers: w.handlers, Record: opts.record})
	w.state = &ThreadState{
		domain:     w.domain,
		region:     w.region,
		background: w.background,
		worker:     w,
		timers:     opts.timers,
		logger:     w.handlers.Logger,
		threadID:   -1,
	}
	w.state.scheduler = core.Client(w.state)
	return w
}

// start launches the worker goroutine. started receives nil once the thread is set
// up, or the platform error that prevented it.
func (w *AsyncWorker) start(started chan<- error) {
	go w.run(started)
}

func (w *AsyncWorker) run(started chan<- error) {
	defer close(w.done)

	// The thread stays locked until the goroutine exits, so the runtime discards it
	// together with its affinity and priority.
	runtime.LockOSThread()
	exit := enterRuntimeThread(roleAsyncWorker)
	defer exit()
	w.goroutine.Store(goid.Get())
	defer w.goroutine.Store(0)

	tid := currentThreadID()
	w.threadID.Store(int64(tid))
	w.state.threadID = tid

	if w.cpu >= 0 {
		if err := pinCurrentThread(w.cpu); err != nil {
			w.rejectLeftovers(w.queue.Close())
			started <- PlatformError(fmt.Sprintf("pin worker %s to cpu %d", w.name, w.cpu), err)
			return
		}
	}
	if w.background && w.nice > 0 {
		if err := lowerCurrentThreadPriority(w.nice); err != nil {
			w.handlers.Logger.Warn("failed to lower background worker priority",
				F("worker", w.name),
				F("nice", w.nice),
				F("error", err))
		}
	}

	w.live.Store(true)
	started <- nil

	w.handlers.Logger.Debug("worker started",
		F("worker", w.name),
		F("domain", w.domain),
		F("thread_id", tid))
	for _, hook := range w.onStart {
		hook(w.state)
	}

	w.loop()
	w.shutdown()
}

func (w *AsyncWorker) loop() {
	for {
		w.queue.Drain(w.admit)

		if w.core.IsStopping() && !w.exec.IsShuttingDown() {
			var deadline time.Time
			if w.drainTimeout > 0 {
				deadline = time.Now().Add(w.drainTimeout)
			}
			w.exec.BeginShutdown(deadline)
		}

		switch w.exec.ExecuteCycle(w.state) {
		case CycleShuttingDownComplete:
			if w.queue.Len() == 0 {
				return
			}
		case CycleIdle:
			w.waker.Wait(w.parkTimeout())
		}
	}
}

// parkTimeout bounds idle waits while draining so the drain deadline is observed
// even when no task wakes the worker.
func (w *AsyncWorker) parkTimeout() time.Duration {
	if !w.exec.IsShuttingDown() || w.drainTimeout <= 0 {
		return w.idleTimeout
	}
	if w.idleTimeout <= 0 || w.idleTimeout > w.drainTimeout {
		return w.drainTimeout
	}
	return w.idleTimeout
}

// admit turns a spawn request into a task on this thread. Requests reaching the
// worker were accepted by the dispatcher, so they are essential.
func (w *AsyncWorker) admit(req SpawnRequest) {
	body, perr := w.build(req)
	if perr != nil {
		w.handlers.Metrics.RecordTaskPanic(w.name, perr.Value)
		w.handlers.PanicHandler.HandlePanic(w.name, perr.TaskName, perr.Value, perr.Stack)
		w.handlers.reject(w.name, perr.TaskName, perr)
		req.reject(perr)
		return
	}

	task := w.exec.NewTask(req.Name, req.Kind, body, req.Abort)
	task.MarkEssential()
	if err := w.exec.Enqueue(task); err != nil {
		w.handlers.reject(w.name, task.Name(), err)
		req.reject(err)
	}
}

func (w *AsyncWorker) build(req SpawnRequest) (body TaskBody, perr *TaskPanicError) {
	defer func() {
		if r := recover(); r != nil {
			perr = &TaskPanicError{TaskName: resolveTaskName(req.Name), Value: r, Stack: debug.Stack()}
		}
	}()
	return req.Factory(w.state), nil
}

func (w *AsyncWorker) shutdown() {
	w.live.Store(false)
	w.rejectLeftovers(w.queue.Close())

	for _, hook := range w.onStop {
		hook(w.state)
	}
	w.handlers.Logger.Debug("worker exited",
		F("worker", w.name),
		F("domain", w.domain),
		F("stats", w.exec.Stats()))
}

func (w *AsyncWorker) rejectLeftovers(leftovers []SpawnRequest) {
	for _, req := range leftovers {
		w.handlers.reject(w.name, resolveTaskName(req.Name), ErrRuntimeStopping)
		req.reject(ErrRuntimeStopping)
	}
}

func (w *AsyncWorker) Name() string   { return w.name }
func (w *AsyncWorker) Domain() Domain { return w.domain }
func (w *AsyncWorker) IsLive() bool   { return w.live.Load() }

// Done is closed when the worker goroutine has returned.
func (w *AsyncWorker) Done() <-chan struct{} {
	return w.done
}

func (w *AsyncWorker) Stats() WorkerStats {
	return WorkerStats{
		Name:       w.name,
		Index:      w.domain.Index(),
		Region:     w.region.Index(),
		Background: w.background,
		ThreadID:   int(w.threadID.Load()),
		Queued:     w.queue.Len(),
		Executor:   w.exec.Stats(),
		Live:       w.live.Load(),
	}
}
