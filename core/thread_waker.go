package core

import "time"

// ThreadWaker parks an idle worker until it is notified or a timeout elapses.
//
// The notification flag is a one-slot channel: Notify with no waiter leaves the
// slot full so the next Wait returns at once, and Wait empties it exactly once.
// Repeated notifications before a Wait coalesce.
type ThreadWaker struct {
	signal chan struct{}
}

func NewThreadWaker() *ThreadWaker {
	return &ThreadWaker{signal: make(chan struct{}, 1)}
}

// Notify sets the flag. It never blocks.
func (w *ThreadWaker) Notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Wake makes ThreadWaker usable as a Waker.
func (w *ThreadWaker) Wake() {
	w.Notify()
}

// Wait consumes a pending notification or blocks until one arrives. It returns
// false if timeout elapsed first. A timeout <= 0 waits without limit.
func (w *ThreadWaker) Wait(timeout time.Duration) bool {
	select {
	case <-w.signal:
		return true
	default:
	}
	if timeout <= 0 {
		<-w.signal
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.signal:
		return true
	case <-timer.C:
		return false
	}
}

// IsNotified reports whether a notification is pending.
func (w *ThreadWaker) IsNotified() bool {
	return len(w.signal) > 0
}
