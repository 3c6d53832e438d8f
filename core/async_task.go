package core

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// TaskStatus is the outcome of polling an AsyncTask once.
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskCompleted
	TaskAborted
	TaskPanicked
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskCompleted:
		return "completed"
	case TaskAborted:
		return "aborted"
	case TaskPanicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// TaskBody is a type-erased task ready to be polled.
//
// Poll advances the task and reports whether it finished; the result has already
// been delivered to the join handle when it returns true. Drop is called instead of
// delivery when the task is torn down, with the cause the handle should observe.
type TaskBody struct {
	Poll func(cx *PollContext) bool
	Drop func(cause error)
}

// AbortFlag is the cancellation flag shared by a task and its join handle.
type AbortFlag struct {
	set   atomic.Bool
	mu    sync.Mutex
	waker Waker
}

func NewAbortFlag() *AbortFlag {
	return &AbortFlag{}
}

// Request flips the flag and wakes the task so that it observes the abort on its
// next poll. It never interrupts a poll in progress.
func (f *AbortFlag) Request() {
	f.set.Store(true)
	f.mu.Lock()
	w := f.waker
	f.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

func (f *AbortFlag) IsSet() bool {
	return f != nil && f.set.Load()
}

func (f *AbortFlag) bind(w Waker) {
	f.mu.Lock()
	f.waker = w
	f.mu.Unlock()
}

// AsyncTask is one pollable, abortable, reusable future slot inside an executor.
//
// All fields except state are owned by the executor's thread.
type AsyncTask struct {
	id        TaskID
	name      string
	kind      TaskKind
	body      TaskBody
	abort     *AbortFlag
	essential bool
	inert     bool
	polls     int
	spawnedAt time.Time

	slot int
	// state packs the slot generation (upper bits) with the scheduled bit (bit 0).
	// Wakers carry the generation they were created for so that a waker outliving
	// its task never schedules the slot's next occupant.
	state atomic.Uint64
}

// NewAsyncTask creates a task. A nil abort flag gets a private one.
func NewAsyncTask(name string, kind TaskKind, body TaskBody, abort *AbortFlag) *AsyncTask {
	t := &AsyncTask{}
	t.reset(name, kind, body, abort)
	return t
}

func (t *AsyncTask) reset(name string, kind TaskKind, body TaskBody, abort *AbortFlag) {
	if abort == nil {
		abort = NewAbortFlag()
	}
	t.id = GenerateTaskID()
	t.name = resolveTaskName(name)
	t.kind = kind
	t.body = body
	t.abort = abort
	t.essential = false
	t.inert = body.Poll == nil
	t.polls = 0
	t.spawnedAt = time.Now()
	t.slot = -1
}

func (t *AsyncTask) ID() TaskID        { return t.id }
func (t *AsyncTask) Name() string      { return t.name }
func (t *AsyncTask) Kind() TaskKind    { return t.kind }
func (t *AsyncTask) IsInert() bool     { return t.inert }
func (t *AsyncTask) IsAborted() bool   { return t.abort.IsSet() }
func (t *AsyncTask) IsEssential() bool { return t.essential }

// MarkEssential lets the task into an executor that is already draining. Tasks the
// dispatcher accepted before stop are essential.
func (t *AsyncTask) MarkEssential() {
	t.essential = true
}

// Abort requests cancellation; see AbortFlag.Request.
func (t *AsyncTask) Abort() {
	t.abort.Request()
}

// Poll advances the task once.
//
// An aborted task is torn down instead of advanced. A panic in the body is caught
// here and becomes the drop cause of the task's join handle.
func (t *AsyncTask) Poll(cx *PollContext) (TaskStatus, *TaskPanicError) {
	if t.inert {
		panicProgramming("poll of inert task %q", t.name)
	}
	if t.abort.IsSet() {
		t.tearDown(ErrTaskAborted)
		return TaskAborted, nil
	}

	t.polls++
	done, perr := t.pollBody(cx)
	if perr != nil {
		t.tearDown(perr)
		return TaskPanicked, perr
	}
	if done {
		t.inert = true
		t.body = TaskBody{}
		return TaskCompleted, nil
	}
	return TaskPending, nil
}

func (t *AsyncTask) pollBody(cx *PollContext) (done bool, perr *TaskPanicError) {
	defer func() {
		if r := recover(); r != nil {
			perr = &TaskPanicError{TaskName: t.name, Value: r, Stack: debug.Stack()}
		}
	}()
	return t.body.Poll(cx), nil
}

func (t *AsyncTask) tearDown(cause error) {
	drop := t.body.Drop
	t.inert = true
	t.body = TaskBody{}
	if drop != nil {
		drop(cause)
	}
}

// Clear releases the body and bumps the generation so the slot can be reused.
func (t *AsyncTask) Clear() {
	t.body = TaskBody{}
	t.abort = nil
	t.inert = true
	t.essential = false
	gen := t.state.Load() >> 1
	t.state.Store((gen + 1) << 1)
}

func (t *AsyncTask) generation() uint64 {
	return t.state.Load() >> 1
}

// markScheduled sets the scheduled bit for generation gen. It reports false when the
// task is already scheduled or gen is stale.
func (t *AsyncTask) markScheduled(gen uint64) bool {
	for {
		s := t.state.Load()
		if s>>1 != gen || s&1 == 1 {
			return false
		}
		if t.state.CompareAndSwap(s, s|1) {
			return true
		}
	}
}

// claim clears the scheduled bit before a poll so that wakes during the poll
// schedule the task again. It reports false when gen is stale.
func (t *AsyncTask) claim(gen uint64) bool {
	for {
		s := t.state.Load()
		if s>>1 != gen {
			return false
		}
		if t.state.CompareAndSwap(s, s&^1) {
			return true
		}
	}
}
