package core

import (
	"sync"
)

const defaultTaskHistoryCapacity = 100

// TaskOutcomeCounts totals every record a history has seen, including those
// already evicted from its window.
type TaskOutcomeCounts struct {
	Completed uint64 `json:"completed"`
	Aborted   uint64 `json:"aborted"`
	Panicked  uint64 `json:"panicked"`
}

func (c *TaskOutcomeCounts) add(o TaskOutcome) {
	switch o {
	case OutcomeCompleted:
		c.Completed++
	case OutcomeAborted:
		c.Aborted++
	case OutcomePanicked:
		c.Panicked++
	}
}

// executionHistory keeps a window of the latest finished tasks. seq counts every
// Add, so the slot of the n-th record is n modulo the window size.
type executionHistory struct {
	mu       sync.Mutex
	window   []TaskExecutionRecord
	seq      uint64
	outcomes TaskOutcomeCounts
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &executionHistory{window: make([]TaskExecutionRecord, capacity)}
}

func (h *executionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	h.window[h.seq%uint64(len(h.window))] = record
	h.seq++
	h.outcomes.add(record.Outcome)
	h.mu.Unlock()
}

// Recent returns up to limit records, newest first. limit <= 0 means the whole
// window.
func (h *executionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	held := min(h.seq, uint64(len(h.window)))
	if held == 0 {
		return nil
	}
	n := held
	if limit > 0 && uint64(limit) < held {
		n = uint64(limit)
	}

	out := make([]TaskExecutionRecord, n)
	for i := range out {
		out[i] = h.window[(h.seq-1-uint64(i))%uint64(len(h.window))]
	}
	return out
}

func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	if recent := h.Recent(1); len(recent) == 1 {
		return recent[0], true
	}
	return TaskExecutionRecord{}, false
}

func (h *executionHistory) Outcomes() TaskOutcomeCounts {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcomes
}

func resolveTaskName(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return "anonymous"
}
