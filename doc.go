// Package asyncruntime provides a cooperative, multi-worker async task runtime for Go.
//
// Tasks are poll-based futures. Each async worker is a goroutine locked to its own OS
// thread and runs a single-threaded executor: tasks on one worker never run
// concurrently and are never preempted, so state owned by a worker needs no locks.
// Parallelism exists only across workers.
//
// # Quick Start
//
// Initialize the global runtime at application startup:
//
//	asyncruntime.InitGlobalRuntime(asyncruntime.DefaultConfig())
//	defer asyncruntime.ShutdownGlobalRuntime()
//
// Spawn a future and wait for its result:
//
//	h := asyncruntime.Spawn(asyncruntime.GlobalScheduler(),
//		func(ts *asyncruntime.ThreadState) asyncruntime.Future[int] {
//			return asyncruntime.Value(1 + 1)
//		},
//		asyncruntime.DefaultTaskMeta())
//	fmt.Println(h.Join()) // 2
//
// # Key Concepts
//
// Placement: where a task runs, resolved once at spawn time. Any lets the scheduler
// pick, SameThreadAs pins to a Domain observed earlier, Background selects the
// low-priority workers and CurrentRegion stays in the caller's memory region.
//
// Join handles: RemoteJoinHandle can be awaited from any task or joined from any
// goroutine that may block. LocalJoinHandle, returned by SpawnLocal, is bound to the
// worker that created it. Taking a result twice panics, and so does awaiting a task
// that panicked or was aborted.
//
// System tasks: short blocking closures run on a separate pool. Release-resources
// tasks still run after the runtime was asked to stop.
//
// # Shutdown
//
// Stop may be called any number of times from anywhere. Workers finish the tasks
// they already accepted, bounded by the drain timeout, and then exit. Wait blocks
// until they have; calling it from a runtime thread panics instead of deadlocking.
//
// # Example
//
//	func main() {
//		err := asyncruntime.Main(asyncruntime.DefaultConfig(),
//			func(ts *asyncruntime.ThreadState) asyncruntime.Future[error] {
//				return asyncruntime.Map(asyncruntime.Sleep(10*time.Millisecond),
//					func(asyncruntime.Unit) error { return nil })
//			})
//		if err != nil {
//			log.Fatal(err)
//		}
//	}
package asyncruntime
