package core

import "time"

// TaskOutcome describes how a task left its executor or pool.
type TaskOutcome int

const (
	OutcomeCompleted TaskOutcome = iota
	OutcomeAborted
	OutcomePanicked
)

func (o TaskOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	case OutcomePanicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// MarshalText lets JSON dumps show the outcome by name.
func (o TaskOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// TaskExecutionRecord captures a finished task.
type TaskExecutionRecord struct {
	TaskID     TaskID        `json:"task_id"`
	Name       string        `json:"name"`
	WorkerName string        `json:"worker"`
	Kind       TaskKind      `json:"kind"`
	SpawnedAt  time.Time     `json:"spawned_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Polls      int           `json:"polls"`
	Outcome    TaskOutcome   `json:"outcome"`
}

// ExecutorStats is a point-in-time view of an executor's counters.
type ExecutorStats struct {
	Live      int    `json:"live"`
	Polls     uint64 `json:"polls"`
	Completed uint64 `json:"completed"`
	Aborted   uint64 `json:"aborted"`
	Panicked  uint64 `json:"panicked"`
	Draining  bool   `json:"draining"`
}

// WorkerStats represents observability state for one async worker.
type WorkerStats struct {
	Name       string        `json:"name"`
	Index      int           `json:"index"`
	Region     int           `json:"region"`
	Background bool          `json:"background"`
	ThreadID   int           `json:"thread_id"`
	Queued     int           `json:"queued"`
	Executor   ExecutorStats `json:"executor"`
	Live       bool          `json:"live"`
}

// SystemPoolStats represents observability state for the system worker pool.
type SystemPoolStats struct {
	Workers int  `json:"workers"`
	Queued  int  `json:"queued"`
	Active  int  `json:"active"`
	Running bool `json:"running"`
}

// RuntimeStats aggregates the state of a whole runtime.
type RuntimeStats struct {
	Name     string            `json:"name"`
	State    LifecycleState    `json:"state"`
	Workers  []WorkerStats     `json:"workers"`
	System   SystemPoolStats   `json:"system"`
	Timers   int               `json:"timers"`
	Outcomes TaskOutcomeCounts `json:"outcomes"`
}
