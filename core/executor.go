package core

import (
	"sync"
	"sync/atomic"
	"time"
)

const maxRecycledTasks = 256

// CycleResult reports what one ExecuteCycle call achieved.
type CycleResult int

const (
	// CycleIdle means no task was ready.
	CycleIdle CycleResult = iota
	// CycleProgressed means at least one task was polled.
	CycleProgressed
	// CycleShuttingDownComplete means the executor is draining and has no live tasks.
	CycleShuttingDownComplete
)

func (r CycleResult) String() string {
	switch r {
	case CycleIdle:
		return "idle"
	case CycleProgressed:
		return "progressed"
	case CycleShuttingDownComplete:
		return "shutting_down_complete"
	default:
		return "unknown"
	}
}

// Executor owns the tasks of one worker. It has no goroutine of its own: the
// worker drives it by calling ExecuteCycle. All methods except Stats must be called
// from the owning worker.
type Executor interface {
	// NewTask returns a task ready for Enqueue, reusing reclaimed slots when possible.
	NewTask(name string, kind TaskKind, body TaskBody, abort *AbortFlag) *AsyncTask
	Enqueue(task *AsyncTask) error
	ExecuteCycle(ts *ThreadState) CycleResult
	BeginShutdown(deadline time.Time)
	IsShuttingDown() bool
	Len() int
	Stats() ExecutorStats
}

// ExecutorOptions configures an AsyncTaskExecutor.
type ExecutorOptions struct {
	Handlers HandlerConfig
	// Record receives a record for every finished task.
	Record func(TaskExecutionRecord)
}

type readyEntry struct {
	task *AsyncTask
	gen  uint64
}

type taskWaker struct {
	exec *AsyncTaskExecutor
	task *AsyncTask
	gen  uint64
}

func (w taskWaker) Wake() {
	w.exec.schedule(w.task, w.gen)
}

// AsyncTaskExecutor is the production Executor: an arena of task slots plus a ready
// queue fed by wakers.
type AsyncTaskExecutor struct {
	name     string
	notifier Waker
	handlers HandlerConfig
	record   func(TaskExecutionRecord)

	slots    []*AsyncTask
	free     []int
	recycled []*AsyncTask

	// ready is the only state touched by other goroutines.
	readyMu sync.Mutex
	ready   []readyEntry
	spare   []readyEntry

	cx PollContext

	shuttingDown atomic.Bool
	deadline     time.Time
	aborting     bool

	live      atomic.Int64
	polls     atomic.Uint64
	completed atomic.Uint64
	aborted   atomic.Uint64
	panicked  atomic.Uint64
}

var _ Executor = (*AsyncTaskExecutor)(nil)

// NewAsyncTaskExecutor creates an executor. notifier is woken whenever a task
// becomes ready, typically the owning worker's ThreadWaker.
func NewAsyncTaskExecutor(name string, notifier Waker, opts ExecutorOptions) *AsyncTaskExecutor {
	if notifier == nil {
		notifier = noopWaker
	}
	return &AsyncTaskExecutor{
		name:     name,
		notifier: notifier,
		handlers: opts.Handlers.withDefaults(),
		record:   opts.Record,
	}
}

func (e *AsyncTaskExecutor) NewTask(name string, kind TaskKind, body TaskBody, abort *AbortFlag) *AsyncTask {
	if n := len(e.recycled); n > 0 {
		t := e.recycled[n-1]
		e.recycled[n-1] = nil
		e.recycled = e.recycled[:n-1]
		t.reset(name, kind, body, abort)
		return t
	}
	return NewAsyncTask(name, kind, body, abort)
}

// Enqueue adds a freshly spawned task and schedules its first poll. While draining
// only essential tasks are admitted.
func (e *AsyncTaskExecutor) Enqueue(task *AsyncTask) error {
	if task.inert {
		panicProgramming("enqueue of inert task %q", task.name)
	}
	if task.slot >= 0 {
		panicProgramming("task %q is already enqueued", task.name)
	}
	if e.shuttingDown.Load() && !task.essential {
		return ErrExecutorDraining
	}

	var idx int
	if n := len(e.free); n > 0 {
		idx = e.free[n-1]
		e.free = e.free[:n-1]
	} else {
		idx = len(e.slots)
		e.slots = append(e.slots, nil)
	}
	e.slots[idx] = task
	task.slot = idx
	e.live.Add(1)

	gen := task.generation()
	task.abort.bind(taskWaker{exec: e, task: task, gen: gen})
	e.schedule(task, gen)
	return nil
}

func (e *AsyncTaskExecutor) schedule(task *AsyncTask, gen uint64) {
	if !task.markScheduled(gen) {
		return
	}
	e.readyMu.Lock()
	e.ready = append(e.ready, readyEntry{task: task, gen: gen})
	e.readyMu.Unlock()
	e.notifier.Wake()
}

// ExecuteCycle polls every task that was ready when the cycle started, once.
// Tasks woken during the cycle are polled in the next one.
func (e *AsyncTaskExecutor) ExecuteCycle(ts *ThreadState) CycleResult {
	e.maybeAbortAll()

	e.readyMu.Lock()
	batch := e.ready
	e.ready = e.spare[:0]
	e.readyMu.Unlock()

	polled := 0
	for i, ent := range batch {
		batch[i] = readyEntry{}
		t := ent.task
		if !t.claim(ent.gen) || t.inert {
			continue
		}

		e.cx = PollContext{waker: taskWaker{exec: e, task: t, gen: ent.gen}, state: ts}
		status, perr := t.Poll(&e.cx)
		polled++
		e.polls.Add(1)
		if status != TaskPending {
			e.finish(t, status, perr)
		}
	}
	e.cx = PollContext{}
	e.spare = batch[:0]

	if e.shuttingDown.Load() && e.live.Load() == 0 {
		return CycleShuttingDownComplete
	}
	if polled == 0 {
		return CycleIdle
	}
	return CycleProgressed
}

func (e *AsyncTaskExecutor) finish(t *AsyncTask, status TaskStatus, perr *TaskPanicError) {
	now := time.Now()
	var outcome TaskOutcome
	switch status {
	case TaskCompleted:
		outcome = OutcomeCompleted
		e.completed.Add(1)
		e.handlers.Metrics.RecordTaskDuration(e.name, t.kind, now.Sub(t.spawnedAt))
	case TaskAborted:
		outcome = OutcomeAborted
		e.aborted.Add(1)
		e.handlers.Metrics.RecordTaskAborted(e.name)
	case TaskPanicked:
		outcome = OutcomePanicked
		e.panicked.Add(1)
		e.handlers.Metrics.RecordTaskPanic(e.name, perr.Value)
		e.handlers.PanicHandler.HandlePanic(e.name, t.name, perr.Value, perr.Stack)
	}

	if e.record != nil {
		e.record(TaskExecutionRecord{
			TaskID:     t.id,
			Name:       t.name,
			WorkerName: e.name,
			Kind:       t.kind,
			SpawnedAt:  t.spawnedAt,
			FinishedAt: now,
			Duration:   now.Sub(t.spawnedAt),
			Polls:      t.polls,
			Outcome:    outcome,
		})
	}

	e.slots[t.slot] = nil
	e.free = append(e.free, t.slot)
	t.slot = -1
	t.Clear()
	if len(e.recycled) < maxRecycledTasks {
		e.recycled = append(e.recycled, t)
	}
	e.handlers.Metrics.RecordQueueDepth(e.name, int(e.live.Add(-1)))
}

// BeginShutdown switches to draining: tasks already enqueued keep running, new
// non-essential tasks are refused. Once deadline passes, every live task is aborted.
// A zero deadline drains without limit.
func (e *AsyncTaskExecutor) BeginShutdown(deadline time.Time) {
	if !e.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	e.deadline = deadline
	e.handlers.Logger.Debug("executor draining",
		F("worker", e.name),
		F("live", e.live.Load()),
		F("deadline", deadline))
	e.notifier.Wake()
}

func (e *AsyncTaskExecutor) IsShuttingDown() bool {
	return e.shuttingDown.Load()
}

func (e *AsyncTaskExecutor) maybeAbortAll() {
	if !e.shuttingDown.Load() || e.aborting || e.deadline.IsZero() || time.Now().Before(e.deadline) {
		return
	}
	e.aborting = true
	if n := e.live.Load(); n > 0 {
		e.handlers.Logger.Warn("drain deadline exceeded, aborting tasks",
			F("worker", e.name),
			F("live", n))
	}
	e.AbortAll()
}

// AbortAll requests abort of every live task.
func (e *AsyncTaskExecutor) AbortAll() {
	for _, t := range e.slots {
		if t != nil {
			t.abort.Request()
		}
	}
}

func (e *AsyncTaskExecutor) Len() int {
	return int(e.live.Load())
}

func (e *AsyncTaskExecutor) Stats() ExecutorStats {
	return ExecutorStats{
		Live:      int(e.live.Load()),
		Polls:     e.polls.Load(),
		Completed: e.completed.Load(),
		Aborted:   e.aborted.Load(),
		Panicked:  e.panicked.Load(),
		Draining:  e.shuttingDown.Load(),
	}
}
