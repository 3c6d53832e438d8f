package asyncruntime

import "github.com/Swind/go-async-runtime/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the asyncruntime package for most use cases.

// Future is a poll-based computation producing a T
type Future[T any] = core.Future[T]

// Poll is the outcome of polling a Future once
type Poll[T any] = core.Poll[T]

// FutureFunc adapts a poll function into a Future
type FutureFunc[T any] = core.FutureFunc[T]

// PollContext carries the waker and thread state of the current poll
type PollContext = core.PollContext

// Unit is the output of futures that produce nothing
type Unit = core.Unit

// Waker schedules a pending future to be polled again
type Waker = core.Waker

// ThreadState is the per-thread context handed to task factories
type ThreadState = core.ThreadState

// AsyncFactory builds a task's future on the worker that runs it
type AsyncFactory[R any] = core.AsyncFactory[R]

// Scheduler routes spawn requests to workers
type Scheduler = core.Scheduler

// Runtime owns the worker threads
type Runtime = core.Runtime

// RuntimeBuilder configures a Runtime
type RuntimeBuilder = core.RuntimeBuilder

// Config holds runtime configuration
type Config = core.Config

// Domain identifies a worker or memory region
type Domain = core.Domain

// Placement decides where a new task runs
type Placement = core.Placement

// TaskMeta, SystemTaskMeta and LocalTaskMeta configure a spawn
type TaskMeta = core.TaskMeta
type SystemTaskMeta = core.SystemTaskMeta
type LocalTaskMeta = core.LocalTaskMeta

// Join handles
type RemoteJoinHandle[R any] = core.RemoteJoinHandle[R]
type LocalJoinHandle[R any] = core.LocalJoinHandle[R]

// Error is the umbrella error type
type Error = core.Error

// TaskPanicError is raised when awaiting a task that panicked
type TaskPanicError = core.TaskPanicError

// System task categories
const (
	SystemCategoryDefault          = core.SystemCategoryDefault
	SystemCategoryReleaseResources = core.SystemCategoryReleaseResources
)

// Sentinel errors
var (
	ErrRuntimeStopping  = core.ErrRuntimeStopping
	ErrExecutorDraining = core.ErrExecutorDraining
	ErrWorkerGone       = core.ErrWorkerGone
	ErrTaskAborted      = core.ErrTaskAborted
)

// Convenience functions for building metadata and placements
var (
	DefaultConfig         = core.DefaultConfig
	NewRuntimeBuilder     = core.NewRuntimeBuilder
	DefaultTaskMeta       = core.DefaultTaskMeta
	NewTaskMeta           = core.NewTaskMeta
	DefaultSystemTaskMeta = core.DefaultSystemTaskMeta
	NewSystemTaskMeta     = core.NewSystemTaskMeta
	NewLocalTaskMeta      = core.NewLocalTaskMeta
	Any                   = core.Any
	SameThreadAs          = core.SameThreadAs
	Background            = core.Background
	CurrentRegion         = core.CurrentRegion
	Yield                 = core.Yield
	Sleep                 = core.Sleep
	SleepUntil            = core.SleepUntil
)

// Spawn runs a future on the worker chosen by meta's placement.
func Spawn[R any](s Scheduler, factory AsyncFactory[R], meta TaskMeta) *RemoteJoinHandle[R] {
	return core.Spawn(s, factory, meta)
}

// TrySpawn is Spawn that also reports why the task was not accepted.
func TrySpawn[R any](s Scheduler, factory AsyncFactory[R], meta TaskMeta) (*RemoteJoinHandle[R], error) {
	return core.TrySpawn(s, factory, meta)
}

// SpawnOnAll runs one instance of factory on every foreground worker.
func SpawnOnAll[R any](s Scheduler, factory AsyncFactory[R], meta TaskMeta) []*RemoteJoinHandle[R] {
	return core.SpawnOnAll(s, factory, meta)
}

// SpawnLocal runs a future on the calling worker.
func SpawnLocal[R any](ts *ThreadState, factory AsyncFactory[R], meta LocalTaskMeta) *LocalJoinHandle[R] {
	return core.SpawnLocal(ts, factory, meta)
}

// SpawnSystem runs a blocking closure on the system pool.
func SpawnSystem[R any](s Scheduler, fn func() R, meta SystemTaskMeta) *RemoteJoinHandle[R] {
	return core.SpawnSystem(s, fn, meta)
}

// Value returns a future that is immediately ready with v.
func Value[T any](v T) Future[T] {
	return core.Value(v)
}

// Lazy returns a future that runs fn on its first poll.
func Lazy[T any](fn func() T) Future[T] {
	return core.Lazy(fn)
}

// Ready and Pending build poll results for hand-written futures.
func Ready[T any](v T) Poll[T] {
	return core.Ready(v)
}

func Pending[T any]() Poll[T] {
	return core.Pending[T]()
}

// JoinAll completes when every future has, keeping input order.
func JoinAll[T any](futures ...Future[T]) Future[[]T] {
	return core.JoinAll(futures...)
}

// Map transforms the output of f.
func Map[T, U any](f Future[T], fn func(T) U) Future[U] {
	return core.Map(f, fn)
}

// Then chains a second future after f.
func Then[T, U any](f Future[T], next func(T) Future[U]) Future[U] {
	return core.Then(f, next)
}

// BlockOn spawns factory and blocks until its result is available.
func BlockOn[R any](rt *Runtime, factory AsyncFactory[R]) R {
	return core.BlockOn(rt, factory)
}
