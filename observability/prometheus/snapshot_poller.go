package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-async-runtime/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// RuntimeSnapshotProvider provides current runtime stats snapshots.
// *core.Runtime implements it.
type RuntimeSnapshotProvider interface {
	Stats() core.RuntimeStats
}

// SnapshotPoller periodically exports runtime Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	runtimesMu sync.RWMutex
	runtimes   map[string]RuntimeSnapshotProvider

	runtimeState  *prom.GaugeVec
	runtimeTimers *prom.GaugeVec

	workerLive     *prom.GaugeVec
	workerTasks    *prom.GaugeVec
	workerQueued   *prom.GaugeVec
	workerPolls    *prom.GaugeVec
	workerDraining *prom.GaugeVec

	systemQueued  *prom.GaugeVec
	systemActive  *prom.GaugeVec
	systemWorkers *prom.GaugeVec
	systemRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "asyncruntime",
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval:       interval,
		runtimes:       make(map[string]RuntimeSnapshotProvider),
		runtimeState:   gauge("runtime_state", "Lifecycle state (0=created, 1=running, 2=stop_requested, 3=stopped).", "runtime"),
		runtimeTimers:  gauge("runtime_pending_timers", "Pending sleep registrations.", "runtime"),
		workerLive:     gauge("worker_live", "Worker accepting tasks (1=live, 0=exited).", "runtime", "worker", "kind"),
		workerTasks:    gauge("worker_tasks", "Live tasks per worker.", "runtime", "worker", "kind"),
		workerQueued:   gauge("worker_spawn_queued", "Spawn requests waiting per worker.", "runtime", "worker", "kind"),
		workerPolls:    gauge("worker_polls", "Polls executed per worker snapshot.", "runtime", "worker", "kind"),
		workerDraining: gauge("worker_draining", "Worker draining state (1=draining, 0=normal).", "runtime", "worker", "kind"),
		systemQueued:   gauge("system_queued", "Queued system tasks.", "runtime"),
		systemActive:   gauge("system_active", "Running system tasks.", "runtime"),
		systemWorkers:  gauge("system_workers", "System pool thread count.", "runtime"),
		systemRunning:  gauge("system_running", "System pool running state (1=running, 0=stopped).", "runtime"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.runtimeState, &p.runtimeTimers,
		&p.workerLive, &p.workerTasks, &p.workerQueued, &p.workerPolls, &p.workerDraining,
		&p.systemQueued, &p.systemActive, &p.systemWorkers, &p.systemRunning,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}
	return p, nil
}

// AddRuntime adds or replaces a runtime snapshot provider by name.
func (p *SnapshotPoller) AddRuntime(name string, provider RuntimeSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "runtime")
	p.runtimesMu.Lock()
	p.runtimes[name] = provider
	p.runtimesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.runtimesMu.RLock()
	defer p.runtimesMu.RUnlock()

	for name, provider := range p.runtimes {
		stats := provider.Stats()
		p.runtimeState.WithLabelValues(name).Set(float64(stats.State))
		p.runtimeTimers.WithLabelValues(name).Set(float64(stats.Timers))

		for _, w := range stats.Workers {
			kind := "foreground"
			if w.Background {
				kind = "background"
			}
			worker := normalizeLabel(w.Name, "unknown")
			p.workerLive.WithLabelValues(name, worker, kind).Set(boolGauge(w.Live))
			p.workerTasks.WithLabelValues(name, worker, kind).Set(float64(w.Executor.Live))
			p.workerQueued.WithLabelValues(name, worker, kind).Set(float64(w.Queued))
			p.workerPolls.WithLabelValues(name, worker, kind).Set(float64(w.Executor.Polls))
			p.workerDraining.WithLabelValues(name, worker, kind).Set(boolGauge(w.Executor.Draining))
		}

		p.systemQueued.WithLabelValues(name).Set(float64(stats.System.Queued))
		p.systemActive.WithLabelValues(name).Set(float64(stats.System.Active))
		p.systemWorkers.WithLabelValues(name).Set(float64(stats.System.Workers))
		p.systemRunning.WithLabelValues(name).Set(boolGauge(stats.System.Running))
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
