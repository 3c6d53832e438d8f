package core

import (
	"fmt"
	"time"
)

// RuntimeBuilder configures and starts a Runtime.
type RuntimeBuilder struct {
	cfg         Config
	handlers    HandlerConfig
	newExecutor ExecutorFactory
	onStart     []WorkerHook
	onStop      []WorkerHook
}

func NewRuntimeBuilder() *RuntimeBuilder {
	return &RuntimeBuilder{cfg: DefaultConfig()}
}

// Config replaces the whole configuration.
func (b *RuntimeBuilder) Config(cfg Config) *RuntimeBuilder {
	b.cfg = cfg
	return b
}

func (b *RuntimeBuilder) Name(name string) *RuntimeBuilder {
	b.cfg.Name = name
	return b
}

func (b *RuntimeBuilder) Workers(n int) *RuntimeBuilder {
	b.cfg.Workers = n
	return b
}

func (b *RuntimeBuilder) BackgroundWorkers(n int) *RuntimeBuilder {
	b.cfg.BackgroundWorkers = n
	return b
}

func (b *RuntimeBuilder) SystemWorkers(n int) *RuntimeBuilder {
	b.cfg.SystemWorkers = n
	return b
}

func (b *RuntimeBuilder) Regions(n int) *RuntimeBuilder {
	b.cfg.Regions = n
	return b
}

func (b *RuntimeBuilder) PinWorkers(pin bool) *RuntimeBuilder {
	b.cfg.PinWorkers = pin
	return b
}

func (b *RuntimeBuilder) IdleTimeout(d time.Duration) *RuntimeBuilder {
	b.cfg.IdleTimeout = d
	return b
}

func (b *RuntimeBuilder) DrainTimeout(d time.Duration) *RuntimeBuilder {
	b.cfg.DrainTimeout = d
	return b
}

func (b *RuntimeBuilder) TaskHistoryCapacity(n int) *RuntimeBuilder {
	b.cfg.TaskHistoryCapacity = n
	return b
}

// Handlers sets logger, panic handler, metrics and rejected-task handler at once.
func (b *RuntimeBuilder) Handlers(h HandlerConfig) *RuntimeBuilder {
	b.handlers = h
	return b
}

func (b *RuntimeBuilder) Logger(l Logger) *RuntimeBuilder {
	b.handlers.Logger = l
	return b
}

func (b *RuntimeBuilder) Metrics(m Metrics) *RuntimeBuilder {
	b.handlers.Metrics = m
	return b
}

func (b *RuntimeBuilder) PanicHandler(h PanicHandler) *RuntimeBuilder {
	b.handlers.PanicHandler = h
	return b
}

func (b *RuntimeBuilder) RejectedTaskHandler(h RejectedTaskHandler) *RuntimeBuilder {
	b.handlers.RejectedTaskHandler = h
	return b
}

// ExecutorFactory replaces the executor used by every worker.
func (b *RuntimeBuilder) ExecutorFactory(f ExecutorFactory) *RuntimeBuilder {
	b.newExecutor = f
	return b
}

// OnWorkerStart registers a hook run on each worker thread before its first task.
func (b *RuntimeBuilder) OnWorkerStart(h WorkerHook) *RuntimeBuilder {
	b.onStart = append(b.onStart, h)
	return b
}

// OnWorkerStop registers a hook run on each worker thread after its last task.
func (b *RuntimeBuilder) OnWorkerStop(h WorkerHook) *RuntimeBuilder {
	b.onStop = append(b.onStop, h)
	return b
}

// Build validates the configuration and starts every thread. Invalid settings
// yield a programming *Error; a worker that cannot set up its thread yields a
// platform *Error after the threads already started were shut down.
func (b *RuntimeBuilder) Build() (*Runtime, error) {
	cfg := b.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	handlers := b.handlers.withDefaults()
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkerCount(handlers.Logger)
	}
	if cfg.Regions == 0 {
		cfg.Regions = detectRegions()
	}
	if cfg.Regions > cfg.Workers {
		cfg.Regions = cfg.Workers
	}

	rt := &Runtime{
		name:     cfg.Name,
		cfg:      cfg,
		handlers: handlers,
		system:   NewSystemWorker(cfg.Name+"-system", cfg.SystemWorkers, handlers),
		timers:   NewDelayManager(),
		history:  newExecutionHistory(cfg.TaskHistoryCapacity),
		done:     make(chan struct{}),
	}
	rt.core = newDispatcherCore(cfg.Name, handlers, rt.system)
	rt.core.onStop = rt.onStopRequested
	rt.root = &ThreadState{timers: rt.timers, logger: handlers.Logger, threadID: -1}
	rt.root.scheduler = rt.core.Client(rt.root)

	total := cfg.Workers + cfg.BackgroundWorkers
	rt.workers = make([]*AsyncWorker, 0, total)
	for i := 0; i < total; i++ {
		rt.workers = append(rt.workers, newAsyncWorker(rt.core, b.workerOptions(cfg, handlers, rt, i, total)))
	}
	rt.core.register(rt.workers, cfg.Regions)

	if err := rt.start(); err != nil {
		return nil, err
	}
	handlers.Logger.Info("runtime started",
		F("runtime", cfg.Name),
		F("workers", cfg.Workers),
		F("background_workers", cfg.BackgroundWorkers),
		F("system_workers", cfg.SystemWorkers),
		F("regions", cfg.Regions))
	return rt, nil
}

func (b *RuntimeBuilder) workerOptions(cfg Config, handlers HandlerConfig, rt *Runtime, i, total int) workerOptions {
	opts := workerOptions{
		name:         fmt.Sprintf("%s-worker-%d", cfg.Name, i),
		domain:       NewDomain(i, total),
		cpu:          -1,
		idleTimeout:  cfg.IdleTimeout,
		drainTimeout: cfg.DrainTimeout,
		handlers:     handlers,
		record:       rt.history.Add,
		newExecutor:  b.newExecutor,
		timers:       rt.timers,
		onStart:      b.onStart,
		onStop:       b.onStop,
	}
	if i < cfg.Workers {
		opts.region = NewDomain(regionOf(i, cfg.Workers, cfg.Regions), cfg.Regions)
		if cfg.PinWorkers {
			opts.cpu = cpuForWorker(i)
		}
		return opts
	}

	bg := i - cfg.Workers
	opts.name = fmt.Sprintf("%s-background-%d", cfg.Name, bg)
	opts.region = NewDomain(regionOf(bg, cfg.BackgroundWorkers, cfg.Regions), cfg.Regions)
	opts.background = true
	opts.nice = cfg.BackgroundNice
	return opts
}

// start launches the system pool and every worker, and tears them down again if
// any worker fails to set up its thread.
func (rt *Runtime) start() error {
	rt.system.Start()

	started := make(chan error, len(rt.workers))
	for _, w := range rt.workers {
		w.start(started)
	}

	var firstErr error
	for range rt.workers {
		if err := <-started; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	rt.state.Store(int32(StateRunning))
	go rt.supervise()

	if firstErr != nil {
		rt.handlers.Logger.Error("runtime failed to start", F("runtime", rt.name), F("error", firstErr))
		rt.Stop()
		<-rt.done
		return firstErr
	}
	return nil
}
