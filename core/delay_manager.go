package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// timerEntry is a registered deadline whose waker fires once it passes.
type timerEntry struct {
	RunAt time.Time
	waker Waker
	index int // for heap interface
}

// timerHeap implements heap.Interface
type timerHeap []*timerEntry

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].RunAt.Before(h[j].RunAt) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	n := len(*h)
	item := x.(*timerEntry)
	item.index = n
	*h = append(*h, item)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *timerHeap) Peek() *timerEntry {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// DelayManager wakes sleeping futures from a single timer goroutine per runtime.
// Methods on a nil *DelayManager fall back to time.AfterFunc.
type DelayManager struct {
	pq      timerHeap
	mu      sync.Mutex
	wakeup  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

func NewDelayManager() *DelayManager {
	ctx, cancel := context.WithCancel(context.Background())
	dm := &DelayManager{
		pq:     make(timerHeap, 0),
		wakeup: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	heap.Init(&dm.pq)
	go dm.loop()
	return dm
}

// TimerHandle refers to a registration made with Register.
type TimerHandle struct {
	entry *timerEntry
	timer *time.Timer
}

// Register arranges for w to be woken at runAt.
func (dm *DelayManager) Register(runAt time.Time, w Waker) *TimerHandle {
	if dm == nil {
		return &TimerHandle{timer: time.AfterFunc(time.Until(runAt), w.Wake)}
	}

	dm.mu.Lock()
	if dm.stopped {
		dm.mu.Unlock()
		return &TimerHandle{timer: time.AfterFunc(time.Until(runAt), w.Wake)}
	}
	item := &timerEntry{RunAt: runAt, waker: w}
	heap.Push(&dm.pq, item)
	first := item.index == 0
	dm.mu.Unlock()

	if first {
		select {
		case dm.wakeup <- struct{}{}:
		default:
		}
	}
	return &TimerHandle{entry: item}
}

// Update replaces the waker of a pending registration.
func (dm *DelayManager) Update(h *TimerHandle, w Waker) {
	if h == nil {
		return
	}
	if h.timer != nil {
		// AfterFunc registrations cannot swap their callback; a stale wake is harmless.
		return
	}
	dm.mu.Lock()
	h.entry.waker = w
	dm.mu.Unlock()
}

// Cancel removes a pending registration.
func (dm *DelayManager) Cancel(h *TimerHandle) {
	if h == nil {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
		return
	}
	dm.mu.Lock()
	if h.entry.index >= 0 {
		heap.Remove(&dm.pq, h.entry.index)
	}
	dm.mu.Unlock()
}

func (dm *DelayManager) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		// Calculate next run time
		nextRun := dm.calculateNextRun()
		if nextRun < 0 {
			// No timers, wait indefinitely
			nextRun = 1000 * time.Hour
		}

		timer.Reset(nextRun)

		select {
		case <-dm.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			dm.fireExpired()
		case <-dm.wakeup:
			// New earliest deadline, need to recalculate
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// calculateNextRun returns how long to wait for the earliest deadline, 0 if it has
// already passed and -1 if there is none.
func (dm *DelayManager) calculateNextRun() time.Duration {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	item := dm.pq.Peek()
	if item == nil {
		return -1
	}

	now := time.Now()
	if item.RunAt.Before(now) {
		return 0
	}
	return item.RunAt.Sub(now)
}

func (dm *DelayManager) fireExpired() {
	dm.mu.Lock()

	now := time.Now()
	var expired []Waker

	for dm.pq.Len() > 0 {
		item := dm.pq.Peek()
		if item.RunAt.After(now) {
			break
		}
		heap.Pop(&dm.pq)
		expired = append(expired, item.waker)
	}

	dm.mu.Unlock()

	// Wake outside the lock
	for _, w := range expired {
		w.Wake()
	}
}

// Stop ends the timer goroutine and wakes every sleeper so that it is polled
// again; later registrations fall back to time.AfterFunc.
func (dm *DelayManager) Stop() {
	if dm == nil {
		return
	}
	dm.cancel()

	dm.mu.Lock()
	if dm.stopped {
		dm.mu.Unlock()
		return
	}
	dm.stopped = true
	pending := dm.pq
	dm.pq = make(timerHeap, 0)
	dm.mu.Unlock()

	for _, item := range pending {
		item.index = -1
		time.AfterFunc(time.Until(item.RunAt), item.waker.Wake)
	}
}

// TimerCount returns the number of pending registrations.
func (dm *DelayManager) TimerCount() int {
	if dm == nil {
		return 0
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.pq)
}

// =============================================================================
// Sleep futures
// =============================================================================

// Sleep completes after d has elapsed.
func Sleep(d time.Duration) Future[Unit] {
	return &sleepFuture{deadline: time.Now().Add(d)}
}

// SleepUntil completes once t has passed.
func SleepUntil(t time.Time) Future[Unit] {
	return &sleepFuture{deadline: t}
}

type sleepFuture struct {
	deadline time.Time
	timers   *DelayManager
	handle   *TimerHandle
}

func (f *sleepFuture) Poll(cx *PollContext) Poll[Unit] {
	if !time.Now().Before(f.deadline) {
		if f.handle != nil {
			f.timers.Cancel(f.handle)
			f.handle = nil
		}
		return Ready(Unit{})
	}
	if f.handle == nil {
		f.timers = cx.State().Timers()
		f.handle = f.timers.Register(f.deadline, cx.Waker())
	} else {
		f.timers.Update(f.handle, cx.Waker())
	}
	return Pending[Unit]()
}
