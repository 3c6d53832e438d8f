package core

import (
	"testing"
	"time"
)

type chanWaker chan struct{}

func (c chanWaker) Wake() {
	select {
	case c <- struct{}{}:
	default:
	}
}

func expectWake(t *testing.T, w chanWaker, within time.Duration) {
	t.Helper()
	select {
	case <-w:
	case <-time.After(within):
		t.Fatalf("waker not woken within %v", within)
	}
}

// TestDelayManager_FiresInOrder verifies registrations fire at their deadline
// Main test items:
// 1. An earlier deadline registered later still fires first
// 2. Fired entries leave the heap
func TestDelayManager_FiresInOrder(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	late, early := make(chanWaker, 1), make(chanWaker, 1)
	dm.Register(time.Now().Add(200*time.Millisecond), late)
	dm.Register(time.Now().Add(20*time.Millisecond), early)
	if dm.TimerCount() != 2 {
		t.Fatalf("TimerCount = %d, want 2", dm.TimerCount())
	}

	expectWake(t, early, time.Second)
	select {
	case <-late:
		t.Fatal("late timer fired before the early one was observed")
	default:
	}
	expectWake(t, late, 2*time.Second)
	if dm.TimerCount() != 0 {
		t.Errorf("TimerCount after firing = %d, want 0", dm.TimerCount())
	}
}

func TestDelayManager_CancelAndUpdate(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	cancelled := make(chanWaker, 1)
	h := dm.Register(time.Now().Add(30*time.Millisecond), cancelled)
	dm.Cancel(h)
	dm.Cancel(h)
	if dm.TimerCount() != 0 {
		t.Errorf("TimerCount after Cancel = %d, want 0", dm.TimerCount())
	}

	first, second := make(chanWaker, 1), make(chanWaker, 1)
	h = dm.Register(time.Now().Add(30*time.Millisecond), first)
	dm.Update(h, second)
	expectWake(t, second, time.Second)

	select {
	case <-cancelled:
		t.Error("cancelled timer fired")
	case <-first:
		t.Error("replaced waker fired")
	case <-time.After(60 * time.Millisecond):
	}
}

// TestDelayManager_StopFallback verifies sleepers survive Stop
// Given: A pending registration
// When: The manager is stopped, and a new registration is made afterwards
// Then: Both are still woken through time.AfterFunc
func TestDelayManager_StopFallback(t *testing.T) {
	dm := NewDelayManager()
	pending := make(chanWaker, 1)
	dm.Register(time.Now().Add(20*time.Millisecond), pending)

	dm.Stop()
	dm.Stop()
	if dm.TimerCount() != 0 {
		t.Errorf("TimerCount after Stop = %d, want 0", dm.TimerCount())
	}
	expectWake(t, pending, time.Second)

	after := make(chanWaker, 1)
	dm.Register(time.Now().Add(10*time.Millisecond), after)
	expectWake(t, after, time.Second)

	var nilManager *DelayManager
	viaNil := make(chanWaker, 1)
	nilManager.Register(time.Now(), viaNil)
	expectWake(t, viaNil, time.Second)
}

func TestSleepFuture(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	w := make(chanWaker, 1)
	cx := NewPollContext(w, &ThreadState{timers: dm})
	f := Sleep(30 * time.Millisecond)

	if f.Poll(cx).IsReady() {
		t.Fatal("Sleep ready immediately")
	}
	expectWake(t, w, time.Second)
	if !f.Poll(cx).IsReady() {
		t.Error("Sleep still pending after its wake")
	}

	if !SleepUntil(time.Now().Add(-time.Second)).Poll(cx).IsReady() {
		t.Error("SleepUntil in the past is pending")
	}
}
