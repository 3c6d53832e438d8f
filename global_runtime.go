package asyncruntime

import (
	"sync"

	"github.com/Swind/go-async-runtime/core"
)

// =============================================================================
// Global Runtime Helper (Singleton)
// =============================================================================

var (
	globalRuntime *core.Runtime
	globalMu      sync.Mutex
)

// InitGlobalRuntime builds and starts the global runtime from cfg.
// Calling it again while a global runtime exists is a no-op.
func InitGlobalRuntime(cfg Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		return nil // Already initialized
	}

	rt, err := core.NewRuntimeBuilder().Config(cfg).Build()
	if err != nil {
		return err
	}
	globalRuntime = rt
	return nil
}

// GetGlobalRuntime returns the global runtime instance.
// It panics if InitGlobalRuntime has not been called.
func GetGlobalRuntime() *Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime == nil {
		panic("GlobalRuntime not initialized. Call InitGlobalRuntime() first.")
	}
	return globalRuntime
}

// GlobalScheduler returns the root scheduler of the global runtime.
func GlobalScheduler() Scheduler {
	return GetGlobalRuntime().Scheduler()
}

// ShutdownGlobalRuntime stops the global runtime and waits for its threads.
func ShutdownGlobalRuntime() {
	globalMu.Lock()
	rt := globalRuntime
	globalRuntime = nil
	globalMu.Unlock()

	if rt != nil {
		rt.Stop()
		rt.Wait()
	}
}

// Main builds a runtime from cfg, runs main on it and shuts it down. It is the
// entry point for programs whose whole life is one async task.
func Main(cfg Config, main AsyncFactory[error]) error {
	rt, err := core.NewRuntimeBuilder().Config(cfg).Build()
	if err != nil {
		return err
	}
	return rt.Run(main)
}
