package core

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Recording handlers shared by the package tests
// =============================================================================

type panicCall struct {
	WorkerName string
	TaskName   string
	PanicInfo  any
}

type recordingPanicHandler struct {
	mu    sync.Mutex
	calls []panicCall
}

func (h *recordingPanicHandler) HandlePanic(workerName string, taskName string, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, panicCall{WorkerName: workerName, TaskName: taskName, PanicInfo: panicInfo})
}

func (h *recordingPanicHandler) Calls() []panicCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]panicCall(nil), h.calls...)
}

type rejection struct {
	WorkerName string
	TaskName   string
	Reason     string
}

type recordingRejectedHandler struct {
	mu         sync.Mutex
	rejections []rejection
}

func (h *recordingRejectedHandler) HandleRejectedTask(workerName string, taskName string, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejections = append(h.rejections, rejection{WorkerName: workerName, TaskName: taskName, Reason: reason})
}

func (h *recordingRejectedHandler) Rejections() []rejection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]rejection(nil), h.rejections...)
}

type recordingMetrics struct {
	mu        sync.Mutex
	durations map[TaskKind]int
	panics    int
	depths    []int
	rejected  map[string]int
	aborted   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{durations: map[TaskKind]int{}, rejected: map[string]int{}}
}

func (m *recordingMetrics) RecordTaskDuration(workerName string, kind TaskKind, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[kind]++
}

func (m *recordingMetrics) RecordTaskPanic(workerName string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics++
}

func (m *recordingMetrics) RecordQueueDepth(workerName string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths = append(m.depths, depth)
}

func (m *recordingMetrics) RecordTaskRejected(workerName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) RecordTaskAborted(workerName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted++
}

func (m *recordingMetrics) Durations(kind TaskKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durations[kind]
}

func (m *recordingMetrics) Panics() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.panics
}

func (m *recordingMetrics) Rejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[reason]
}

func (m *recordingMetrics) Aborted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted
}

var (
	_ PanicHandler        = (*recordingPanicHandler)(nil)
	_ RejectedTaskHandler = (*recordingRejectedHandler)(nil)
	_ Metrics             = (*recordingMetrics)(nil)
)

// =============================================================================
// Tests
// =============================================================================

func TestDefaultPanicHandler(t *testing.T) {
	// Given: A DefaultPanicHandler without a logger
	handler := &DefaultPanicHandler{}

	// When: HandlePanic is called
	handler.HandlePanic("worker-0", "task", "test panic", []byte("stack trace"))

	// Then: No panic should occur (handler falls back to the default logger)
}

func TestDefaultRejectedTaskHandler(t *testing.T) {
	handler := &DefaultRejectedTaskHandler{Logger: NewNoOpLogger()}
	handler.HandleRejectedTask("worker-0", "task", "shutdown")
}

func TestNilMetrics(t *testing.T) {
	var m Metrics = &NilMetrics{}
	m.RecordTaskDuration("w", TaskKindAsync, time.Second)
	m.RecordTaskPanic("w", "boom")
	m.RecordQueueDepth("w", 3)
	m.RecordTaskRejected("w", "shutdown")
	m.RecordTaskAborted("w")
}

// TestHandlerConfig_WithDefaults verifies missing handlers are filled in
// Main test items:
// 1. Every nil handler gets a default
// 2. Provided handlers are kept
func TestHandlerConfig_WithDefaults(t *testing.T) {
	metrics := newRecordingMetrics()
	h := HandlerConfig{Metrics: metrics}.withDefaults()

	if h.Logger == nil || h.PanicHandler == nil || h.RejectedTaskHandler == nil {
		t.Fatalf("withDefaults left a nil handler: %+v", h)
	}
	if h.Metrics != metrics {
		t.Error("withDefaults replaced the provided metrics")
	}
}

// TestHandlerConfig_Reject verifies rejections reach both handler and metrics
// with a reason derived from the cause
func TestHandlerConfig_Reject(t *testing.T) {
	metrics := newRecordingMetrics()
	rejected := &recordingRejectedHandler{}
	h := HandlerConfig{Logger: NewNoOpLogger(), Metrics: metrics, RejectedTaskHandler: rejected}.withDefaults()

	h.reject("w", "a", ErrRuntimeStopping)
	h.reject("w", "b", ErrExecutorDraining)
	h.reject("w", "c", ErrWorkerGone)
	h.reject("w", "d", &TaskPanicError{TaskName: "d", Value: "boom"})
	h.reject("w", "e", WrapError(ErrRuntimeStopping))

	want := []string{"shutdown", "draining", "worker_gone", "factory_panic", "shutdown"}
	got := rejected.Rejections()
	if len(got) != len(want) {
		t.Fatalf("rejections = %d, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Reason != want[i] {
			t.Errorf("rejection %d reason = %q, want %q", i, r.Reason, want[i])
		}
	}
	if metrics.Rejected("shutdown") != 2 {
		t.Errorf("shutdown rejections = %d, want 2", metrics.Rejected("shutdown"))
	}
	if !errors.Is(WrapError(ErrRuntimeStopping), ErrRuntimeStopping) {
		t.Error("wrapped sentinel is not matched by errors.Is")
	}
}
