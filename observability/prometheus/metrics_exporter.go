package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-async-runtime/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	taskAbortedTotal    *prom.CounterVec
	liveTasks           *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "asyncruntime"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task lifetime from spawn to completion in seconds.",
		Buckets:   buckets,
	}, []string{"worker", "kind"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"worker"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks.",
	}, []string{"worker", "reason"})
	abortedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_aborted_total",
		Help:      "Total number of tasks torn down after an abort request.",
	}, []string{"worker"})
	liveTasksVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "live_tasks",
		Help:      "Current number of live tasks per worker.",
	}, []string{"worker"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if abortedVec, err = registerCollector(reg, abortedVec); err != nil {
		return nil, err
	}
	if liveTasksVec, err = registerCollector(reg, liveTasksVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskRejectedTotal:   rejectedVec,
		taskAbortedTotal:    abortedVec,
		liveTasks:           liveTasksVec,
	}, nil
}

// RecordTaskDuration records task lifetime.
func (m *MetricsExporter) RecordTaskDuration(workerName string, kind core.TaskKind, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(workerName, "unknown"), kind.String()).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(workerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(workerName, "unknown")).Inc()
}

// RecordQueueDepth records the number of live tasks on a worker.
func (m *MetricsExporter) RecordQueueDepth(workerName string, depth int) {
	if m == nil {
		return
	}
	m.liveTasks.WithLabelValues(normalizeLabel(workerName, "unknown")).Set(float64(depth))
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(workerName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(workerName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordTaskAborted records tasks torn down after an abort request.
func (m *MetricsExporter) RecordTaskAborted(workerName string) {
	if m == nil {
		return
	}
	m.taskAbortedTotal.WithLabelValues(normalizeLabel(workerName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
