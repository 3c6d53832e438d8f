package core

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// SystemWorker is a pool of OS threads running short blocking closures, such as
// closing handles, that must not run on async workers.
//
// Lifecycle:
//   - BeginShutdown closes the gate for default-category tasks. Release-resources
//     tasks are still accepted and run.
//   - Close lets the threads exit once the queue is empty. The runtime calls it
//     after every async worker has exited, so tasks those workers submitted while
//     draining still run.
//   - A release-resources task submitted after the threads exited runs on a fresh
//     goroutine.
type SystemWorker struct {
	name     string
	workers  int
	queue    *SystemTaskQueue
	signal   chan struct{}
	closeCh  chan struct{}
	handlers HandlerConfig

	metricQueued atomic.Int32 // Waiting in queue
	metricActive atomic.Int32 // Executing on a thread

	stopping  atomic.Bool
	closeOnce sync.Once
	startOnce sync.Once
	running   atomic.Bool

	// lifeMu orders Submit against the final exit so no task is stranded.
	lifeMu sync.Mutex
	exited bool

	wg   sync.WaitGroup
	done chan struct{}
}

// NewSystemWorker creates a pool with the given number of threads (at least one).
func NewSystemWorker(name string, workers int, handlers HandlerConfig) *SystemWorker {
	if workers < 1 {
		workers = 1
	}
	return &SystemWorker{
		name:     name,
		workers:  workers,
		queue:    NewSystemTaskQueue(),
		signal:   make(chan struct{}, workers*2),
		closeCh:  make(chan struct{}),
		handlers: handlers.withDefaults(),
		done:     make(chan struct{}),
	}
}

// Start launches the pool threads. Repeated calls are no-ops.
func (p *SystemWorker) Start() {
	p.startOnce.Do(func() {
		p.running.Store(true)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.workerLoop(i)
		}
		go p.awaitExit()
	})
}

// Submit queues a task. Default-category tasks are rejected once BeginShutdown was
// called; the task's Fail receives ErrRuntimeStopping.
func (p *SystemWorker) Submit(task SystemTask) error {
	if task.Meta.Category() != SystemCategoryReleaseResources && p.stopping.Load() {
		p.handlers.reject(p.name, resolveTaskName(task.Meta.Name()), ErrRuntimeStopping)
		task.fail(ErrRuntimeStopping)
		return ErrRuntimeStopping
	}
	task.EnqueuedAt = time.Now()

	p.lifeMu.Lock()
	if p.exited {
		p.lifeMu.Unlock()
		go p.runTask(-1, task)
		return nil
	}
	p.queue.Push(task)
	p.metricQueued.Add(1)
	p.lifeMu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
	}
	return nil
}

// getWork blocks until a task is available or the pool is closed and empty.
func (p *SystemWorker) getWork() (SystemTask, bool) {
	for {
		if task, ok := p.queue.Pop(); ok {
			p.metricQueued.Add(-1)
			return task, true
		}

		select {
		case <-p.signal:
			continue
		case <-p.closeCh:
			if task, ok := p.queue.Pop(); ok {
				p.metricQueued.Add(-1)
				return task, true
			}
			return SystemTask{}, false
		}
	}
}

func (p *SystemWorker) workerLoop(id int) {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	exit := enterRuntimeThread(roleSystemWorker)
	defer exit()

	for {
		task, ok := p.getWork()
		if !ok {
			return
		}
		p.runTask(id, task)
	}
}

func (p *SystemWorker) runTask(id int, task SystemTask) {
	p.metricActive.Add(1)
	defer p.metricActive.Add(-1)

	name := resolveTaskName(task.Meta.Name())
	workerName := p.name
	if id >= 0 {
		workerName = fmt.Sprintf("%s-%d", p.name, id)
	}

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			p.handlers.Metrics.RecordTaskPanic(workerName, r)
			p.handlers.PanicHandler.HandlePanic(workerName, name, r, stack)
			task.fail(&TaskPanicError{TaskName: name, Value: r, Stack: stack})
			return
		}
		p.handlers.Metrics.RecordTaskDuration(workerName, TaskKindSystem, time.Since(task.EnqueuedAt))
	}()

	task.Run()
}

// awaitExit runs leftover tasks that raced with the last thread's exit.
func (p *SystemWorker) awaitExit() {
	p.wg.Wait()

	p.lifeMu.Lock()
	p.exited = true
	leftovers := p.queue.DrainAll()
	p.lifeMu.Unlock()

	for _, task := range leftovers {
		p.metricQueued.Add(-1)
		p.runTask(-1, task)
	}
	p.running.Store(false)
	close(p.done)
}

// BeginShutdown stops accepting default-category tasks.
func (p *SystemWorker) BeginShutdown() {
	p.stopping.Store(true)
}

// Close lets the threads exit once the queue is drained.
func (p *SystemWorker) Close() {
	p.BeginShutdown()
	p.closeOnce.Do(func() { close(p.closeCh) })
}

// Done is closed after every thread exited and leftovers ran.
func (p *SystemWorker) Done() <-chan struct{} {
	return p.done
}

func (p *SystemWorker) IsStopping() bool {
	return p.stopping.Load()
}

// Metrics
func (p *SystemWorker) WorkerCount() int     { return p.workers }
func (p *SystemWorker) QueuedTaskCount() int { return int(p.metricQueued.Load()) }
func (p *SystemWorker) ActiveTaskCount() int { return int(p.metricActive.Load()) }

func (p *SystemWorker) Stats() SystemPoolStats {
	return SystemPoolStats{
		Workers: p.workers,
		Queued:  p.QueuedTaskCount(),
		Active:  p.ActiveTaskCount(),
		Running: p.running.Load(),
	}
}
