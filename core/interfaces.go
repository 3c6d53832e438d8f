package core

import (
	"errors"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// The panic has already been converted into a dropped join-handle sender; the
// handler only observes it.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - workerName: The name of the worker where the panic occurred
	// - taskName: The task name from its meta, or "anonymous"
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(workerName string, taskName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs panic information at error level.
func (h *DefaultPanicHandler) HandlePanic(workerName string, taskName string, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("task panicked",
		F("worker", workerName),
		F("task", taskName),
		F("panic", panicInfo),
		F("stack", string(stackTrace)))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from worker threads and should be non-blocking and fast.
type Metrics interface {
	// RecordTaskDuration records how long a task lived, from spawn to completion.
	RecordTaskDuration(workerName string, kind TaskKind, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(workerName string, panicInfo any)

	// RecordQueueDepth records the number of live tasks on a worker.
	RecordQueueDepth(workerName string, depth int)

	// RecordTaskRejected records that a task was rejected (e.g., during shutdown).
	RecordTaskRejected(workerName string, reason string)

	// RecordTaskAborted records that a task was torn down after RequestAbort.
	RecordTaskAborted(workerName string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(workerName string, kind TaskKind, duration time.Duration) {
}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(workerName string, panicInfo any) {
}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(workerName string, depth int) {
}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(workerName string, reason string) {
}

// RecordTaskAborted is a no-op.
func (m *NilMetrics) RecordTaskAborted(workerName string) {
}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a spawn request is refused.
// This can happen when:
// - The runtime is stopping
// - The target worker has already exited
// - The executor is draining and the task is not essential
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	// HandleRejectedTask is called when a task is rejected.
	HandleRejectedTask(workerName string, taskName string, reason string)
}

// DefaultRejectedTaskHandler logs rejected tasks at warn level.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(workerName string, taskName string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Warn("task rejected", F("worker", workerName), F("task", taskName), F("reason", reason))
}

// =============================================================================
// HandlerConfig: handlers shared by executors, dispatcher and system pool
// =============================================================================

// HandlerConfig holds the pluggable handlers of a runtime.
// All handlers are optional; if not provided, default implementations will be used.
type HandlerConfig struct {
	// Logger receives lifecycle logs. Defaults to DefaultLogger.
	Logger Logger

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

// DefaultHandlerConfig returns a config with default handlers.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{}.withDefaults()
}

func (h HandlerConfig) withDefaults() HandlerConfig {
	if h.Logger == nil {
		h.Logger = NewDefaultLogger()
	}
	if h.PanicHandler == nil {
		h.PanicHandler = &DefaultPanicHandler{Logger: h.Logger}
	}
	if h.Metrics == nil {
		h.Metrics = &NilMetrics{}
	}
	if h.RejectedTaskHandler == nil {
		h.RejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: h.Logger}
	}
	return h
}

// reject reports a refused task to both the rejected handler and metrics.
func (h HandlerConfig) reject(workerName, taskName string, cause error) {
	reason := rejectReason(cause)
	h.Metrics.RecordTaskRejected(workerName, reason)
	h.RejectedTaskHandler.HandleRejectedTask(workerName, taskName, reason)
}

func rejectReason(cause error) string {
	switch {
	case cause == nil:
		return "unknown"
	case errors.Is(cause, ErrRuntimeStopping):
		return "shutdown"
	case errors.Is(cause, ErrExecutorDraining):
		return "draining"
	case errors.Is(cause, ErrWorkerGone):
		return "worker_gone"
	default:
		return "factory_panic"
	}
}
