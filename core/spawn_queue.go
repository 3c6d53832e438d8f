package core

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// TaskFactory builds a task body on the worker that will run it.
type TaskFactory func(ts *ThreadState) TaskBody

// SpawnRequest is a not-yet-started task travelling to its worker.
type SpawnRequest struct {
	Name    string
	Kind    TaskKind
	Factory TaskFactory
	Abort   *AbortFlag
	// Reject is called with the cause when the request never becomes a task.
	Reject    func(cause error)
	SpawnedAt time.Time
}

func (r SpawnRequest) reject(cause error) {
	if r.Reject != nil {
		r.Reject(cause)
	}
}

// SpawnQueue is the unbounded multi-producer, single-consumer inbox of one worker.
type SpawnQueue struct {
	mu       sync.Mutex
	items    *queue.Queue
	spare    *queue.Queue
	closed   bool
	notifier Waker
}

// NewSpawnQueue creates a queue that wakes notifier on every push.
func NewSpawnQueue(notifier Waker) *SpawnQueue {
	if notifier == nil {
		notifier = noopWaker
	}
	return &SpawnQueue{
		items:    queue.New(),
		spare:    queue.New(),
		notifier: notifier,
	}
}

// Push appends a request from any goroutine. It returns false once the queue is
// closed; the caller keeps ownership of the request in that case.
func (q *SpawnQueue) Push(req SpawnRequest) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.Add(req)
	q.mu.Unlock()

	q.notifier.Wake()
	return true
}

// Drain hands every queued request to fn in FIFO order and returns how many there
// were. Only the owning worker may call it. fn runs without the lock held, so it may
// push to this queue again; such requests wait for the next Drain.
func (q *SpawnQueue) Drain(fn func(SpawnRequest)) int {
	q.mu.Lock()
	batch := q.items
	if batch.Length() == 0 {
		q.mu.Unlock()
		return 0
	}
	q.items = q.spare
	if q.items == nil {
		q.items = queue.New()
	}
	q.spare = nil
	q.mu.Unlock()

	n := 0
	for batch.Length() > 0 {
		fn(batch.Remove().(SpawnRequest))
		n++
	}

	q.mu.Lock()
	q.spare = batch
	q.mu.Unlock()
	return n
}

// Close refuses further pushes and returns the requests that were still queued.
func (q *SpawnQueue) Close() []SpawnRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	leftovers := make([]SpawnRequest, 0, q.items.Length())
	for q.items.Length() > 0 {
		leftovers = append(leftovers, q.items.Remove().(SpawnRequest))
	}
	return leftovers
}

func (q *SpawnQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *SpawnQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
