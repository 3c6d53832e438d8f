package core

import "sync"

// slotState is the state machine shared by both join handle flavors.
type slotState int

const (
	slotPending slotState = iota
	slotReady
	slotDropped
	slotConsumed
)

// oneshot is a single-producer, single-consumer result channel that can cross
// threads. The producer either sends once or drops with a cause.
type oneshot[T any] struct {
	mu    sync.Mutex
	state slotState
	value T
	cause error
	waker Waker
	done  chan struct{}
}

func newOneshot[T any]() *oneshot[T] {
	return &oneshot[T]{done: make(chan struct{})}
}

func (c *oneshot[T]) send(v T) {
	c.mu.Lock()
	if c.state != slotPending {
		c.mu.Unlock()
		return
	}
	c.state = slotReady
	c.value = v
	w := c.waker
	c.waker = nil
	close(c.done)
	c.mu.Unlock()

	if w != nil {
		w.Wake()
	}
}

// drop closes the channel without a value. The receiver observes cause.
func (c *oneshot[T]) drop(cause error) {
	c.mu.Lock()
	if c.state != slotPending {
		c.mu.Unlock()
		return
	}
	c.state = slotDropped
	c.cause = cause
	w := c.waker
	c.waker = nil
	close(c.done)
	c.mu.Unlock()

	if w != nil {
		w.Wake()
	}
}

// poll registers w while pending, or consumes the outcome. Polling a consumed
// channel panics.
func (c *oneshot[T]) poll(w Waker) (v T, cause error, ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == slotPending {
		c.waker = w
		return v, nil, false
	}
	v, cause = c.takeLocked()
	return v, cause, true
}

// take consumes the outcome of a closed channel.
func (c *oneshot[T]) take() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.takeLocked()
}

func (c *oneshot[T]) takeLocked() (T, error) {
	if c.state == slotConsumed {
		panicProgramming("join handle polled after its result was consumed")
	}
	v, cause := c.value, c.cause
	var zero T
	c.value = zero
	c.state = slotConsumed
	return v, cause
}

func (c *oneshot[T]) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != slotPending
}

// localSlot is the thread-affine counterpart of oneshot. Producer and consumer are
// tasks of the same worker, so it needs no locking.
type localSlot[T any] struct {
	state slotState
	value T
	cause error
	waker Waker
}

func (s *localSlot[T]) send(v T) {
	if s.state != slotPending {
		return
	}
	s.state = slotReady
	s.value = v
	s.wake()
}

func (s *localSlot[T]) drop(cause error) {
	if s.state != slotPending {
		return
	}
	s.state = slotDropped
	s.cause = cause
	s.wake()
}

func (s *localSlot[T]) wake() {
	w := s.waker
	s.waker = nil
	if w != nil {
		w.Wake()
	}
}

func (s *localSlot[T]) poll(w Waker) (v T, cause error, ready bool) {
	switch s.state {
	case slotPending:
		s.waker = w
		return v, nil, false
	case slotConsumed:
		panicProgramming("join handle polled after its result was consumed")
	}
	v, cause = s.value, s.cause
	var zero T
	s.value = zero
	s.state = slotConsumed
	return v, cause, true
}
