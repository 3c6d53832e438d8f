package core

import "time"

// AsyncFactory builds a task's future on the worker that runs it.
type AsyncFactory[R any] func(ts *ThreadState) Future[R]

// futureBody erases a Future[R] into a TaskBody that delivers its value.
func futureBody[R any](f Future[R], deliver func(R), drop func(error)) TaskBody {
	return TaskBody{
		Poll: func(cx *PollContext) bool {
			p := f.Poll(cx)
			if !p.IsReady() {
				return false
			}
			deliver(p.Value())
			return true
		},
		Drop: drop,
	}
}

// Spawn runs the future built by factory on the worker selected by meta's
// placement and returns a handle to its result. When the runtime is stopping the
// handle is already dropped and awaiting it panics; use TrySpawn to observe the
// error instead.
func Spawn[R any](s Scheduler, factory AsyncFactory[R], meta TaskMeta) *RemoteJoinHandle[R] {
	h, _ := TrySpawn(s, factory, meta)
	return h
}

// TrySpawn is Spawn that also reports why the task was not accepted.
func TrySpawn[R any](s Scheduler, factory AsyncFactory[R], meta TaskMeta) (*RemoteJoinHandle[R], error) {
	if s == nil {
		panicProgramming("spawn of task %q without a scheduler", resolveTaskName(meta.Name()))
	}
	if factory == nil {
		panicProgramming("spawn of task %q with a nil factory", resolveTaskName(meta.Name()))
	}

	name := resolveTaskName(meta.Name())
	h := newRemoteJoinHandle[R](name)
	tx := h.rx
	req := SpawnRequest{
		Name:      name,
		Kind:      TaskKindAsync,
		Abort:     h.abort,
		Reject:    tx.drop,
		SpawnedAt: time.Now(),
		Factory: func(ts *ThreadState) TaskBody {
			return futureBody(factory(ts), tx.send, tx.drop)
		},
	}

	domain, err := s.Dispatch(req, meta)
	h.domain = domain
	return h, err
}

// SpawnOnAll starts one instance of factory on every foreground worker, in domain
// order.
func SpawnOnAll[R any](s Scheduler, factory AsyncFactory[R], meta TaskMeta) []*RemoteJoinHandle[R] {
	domains := s.Workers()
	handles := make([]*RemoteJoinHandle[R], 0, len(domains))
	for _, d := range domains {
		pinned := NewTaskMeta().Name(meta.Name()).Placement(SameThreadAs(d)).Build()
		handles = append(handles, Spawn(s, factory, pinned))
	}
	return handles
}

// SpawnLocal starts a task on the calling worker. The factory runs immediately on
// the caller's thread, so the future it builds never crosses threads. ts must be
// the state of the worker the caller is running on.
func SpawnLocal[R any](ts *ThreadState, factory AsyncFactory[R], meta LocalTaskMeta) *LocalJoinHandle[R] {
	if ts == nil || ts.worker == nil {
		panicProgramming("SpawnLocal of task %q outside an async worker", resolveTaskName(meta.Name()))
	}
	assertOwnerThread(ts.worker, "SpawnLocal")

	w := ts.worker
	name := resolveTaskName(meta.Name())
	h := &LocalJoinHandle[R]{
		slot:  &localSlot[R]{},
		abort: NewAbortFlag(),
		name:  name,
		owner: w,
	}

	body := futureBody(factory(ts), h.slot.send, h.slot.drop)
	task := w.exec.NewTask(name, TaskKindLocal, body, h.abort)
	if err := w.exec.Enqueue(task); err != nil {
		w.handlers.reject(w.name, name, err)
		h.slot.drop(err)
	}
	return h
}

// SpawnSystem runs fn on the system worker pool. Release-resources tasks are
// accepted even while the runtime is stopping.
func SpawnSystem[R any](s Scheduler, fn func() R, meta SystemTaskMeta) *RemoteJoinHandle[R] {
	if s == nil {
		panicProgramming("system spawn of task %q without a scheduler", resolveTaskName(meta.Name()))
	}

	h := newRemoteJoinHandle[R](resolveTaskName(meta.Name()))
	tx := h.rx
	abort := h.abort
	_ = s.DispatchSystem(SystemTask{
		Meta: meta,
		Run: func() {
			if abort.IsSet() {
				tx.drop(ErrTaskAborted)
				return
			}
			tx.send(fn())
		},
		Fail: tx.drop,
	})
	return h
}
