package core

import (
	"sync"

	"github.com/petermattis/goid"
)

// threadRole records which kind of runtime thread a goroutine is.
type threadRole int

const (
	roleNone threadRole = iota
	roleAsyncWorker
	roleSystemWorker
)

func (r threadRole) String() string {
	switch r {
	case roleAsyncWorker:
		return "async worker"
	case roleSystemWorker:
		return "system worker"
	default:
		return "foreign"
	}
}

// runtimeThreads maps goroutine ids of runtime-owned threads to their role. Entries
// live exactly as long as the worker goroutine.
var runtimeThreads sync.Map

// enterRuntimeThread marks the calling goroutine and returns the matching exit.
func enterRuntimeThread(role threadRole) (exit func()) {
	id := goid.Get()
	runtimeThreads.Store(id, role)
	return func() { runtimeThreads.Delete(id) }
}

func currentThreadRole() threadRole {
	if v, ok := runtimeThreads.Load(goid.Get()); ok {
		return v.(threadRole)
	}
	return roleNone
}

// assertMayBlock panics when op would block an async worker.
func assertMayBlock(op string) {
	if role := currentThreadRole(); role == roleAsyncWorker {
		panicProgramming("%s must not be called from an %s thread; await the future instead", op, role)
	}
}

// assertNotRuntimeThread panics when op is called from any runtime-owned thread.
func assertNotRuntimeThread(op string) {
	if role := currentThreadRole(); role != roleNone {
		panicProgramming("%s must not be called from a runtime-owned %s thread", op, role)
	}
}

// assertOwnerThread panics unless the caller is the goroutine running w.
func assertOwnerThread(w *AsyncWorker, op string) {
	if owner := w.goroutine.Load(); owner == 0 || owner != goid.Get() {
		panicProgramming("%s must be called on worker %s itself, not from a %s thread", op, w.name, currentThreadRole())
	}
}
