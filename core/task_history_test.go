package core

import "testing"

// TestExecutionHistory_Window verifies the bounded window of finished tasks
// Main test items:
// 1. Recent returns newest first and never more than the capacity
// 2. Last tracks the newest record
// 3. Zero capacity falls back to the default
func TestExecutionHistory_Window(t *testing.T) {
	h := newExecutionHistory(3)
	if _, ok := h.Last(); ok {
		t.Error("Last reported a record on an empty history")
	}
	if h.Recent(0) != nil {
		t.Error("Recent on empty history is not nil")
	}

	for _, name := range []string{"a", "b", "c", "d"} {
		h.Add(TaskExecutionRecord{Name: name})
	}

	got := h.Recent(0)
	if len(got) != 3 || got[0].Name != "d" || got[1].Name != "c" || got[2].Name != "b" {
		t.Errorf("Recent = %+v, want d c b", got)
	}
	if got := h.Recent(1); len(got) != 1 || got[0].Name != "d" {
		t.Errorf("Recent(1) = %+v", got)
	}
	if last, ok := h.Last(); !ok || last.Name != "d" {
		t.Errorf("Last = %+v, %v", last, ok)
	}

	if len(newExecutionHistory(0).window) != defaultTaskHistoryCapacity {
		t.Error("zero capacity did not fall back to the default")
	}
}

// TestExecutionHistory_Outcomes verifies outcome totals outlive the window
// Given: A history of capacity 2
// When: Four records with mixed outcomes are added
// Then: Outcomes counts all four even though only two are still held
func TestExecutionHistory_Outcomes(t *testing.T) {
	h := newExecutionHistory(2)
	for _, o := range []TaskOutcome{OutcomeCompleted, OutcomePanicked, OutcomeCompleted, OutcomeAborted} {
		h.Add(TaskExecutionRecord{Outcome: o})
	}

	want := TaskOutcomeCounts{Completed: 2, Aborted: 1, Panicked: 1}
	if got := h.Outcomes(); got != want {
		t.Errorf("Outcomes = %+v, want %+v", got, want)
	}
	if got := h.Recent(0); len(got) != 2 || got[0].Outcome != OutcomeAborted {
		t.Errorf("Recent = %+v, want the last two records", got)
	}
}
