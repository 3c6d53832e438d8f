package core

import (
	"container/heap"
	"sync"
	"time"
)

const defaultQueueCap = 16

// SystemTask is a blocking closure for the system worker pool.
type SystemTask struct {
	Meta SystemTaskMeta
	Run  func()
	// Fail is called instead of Run when the task is rejected, and after Run when
	// it panicked.
	Fail       func(cause error)
	EnqueuedAt time.Time
}

func (t SystemTask) fail(cause error) {
	if t.Fail != nil {
		t.Fail(cause)
	}
}

// =============================================================================
// SystemTaskQueue: Min-Heap based queue with Stability (FIFO for same category)
// =============================================================================

type systemItem struct {
	task     SystemTask
	sequence uint64 // For stability
	index    int    // For heap
}

// systemHeap implements heap.Interface
type systemHeap []*systemItem

func (h systemHeap) Len() int { return len(h) }

// Less serves release-resources work first, then earlier sequence first (FIFO)
func (h systemHeap) Less(i, j int) bool {
	ci, cj := h[i].task.Meta.Category(), h[j].task.Meta.Category()
	if ci != cj {
		return ci == SystemCategoryReleaseResources
	}
	return h[i].sequence < h[j].sequence
}

func (h systemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *systemHeap) Push(x interface{}) {
	n := len(*h)
	item := x.(*systemItem)
	item.index = n
	*h = append(*h, item)
}

func (h *systemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

// SystemTaskQueue orders system tasks by category, FIFO within a category.
type SystemTaskQueue struct {
	mu           sync.Mutex
	pq           systemHeap
	nextSequence uint64
}

func NewSystemTaskQueue() *SystemTaskQueue {
	return &SystemTaskQueue{
		pq: make(systemHeap, 0, defaultQueueCap),
	}
}

func (q *SystemTaskQueue) Push(t SystemTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := &systemItem{
		task:     t,
		sequence: q.nextSequence,
	}
	q.nextSequence++

	heap.Push(&q.pq, item)
}

func (q *SystemTaskQueue) Pop() (SystemTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pq) == 0 {
		return SystemTask{}, false
	}

	item := heap.Pop(&q.pq).(*systemItem)
	return item.task, true
}

func (q *SystemTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pq)
}

func (q *SystemTaskQueue) IsEmpty() bool {
	return q.Len() == 0
}

// DrainAll removes and returns every queued task in service order.
func (q *SystemTaskQueue) DrainAll() []SystemTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]SystemTask, 0, len(q.pq))
	for len(q.pq) > 0 {
		out = append(out, heap.Pop(&q.pq).(*systemItem).task)
	}
	q.pq = make(systemHeap, 0, defaultQueueCap)
	return out
}
