package trace

import (
	"testing"
	"time"
)

func TestSimulationTrace_RecordAttempts_AppendsRecords(t *testing.T) {
	// GIVEN a trace configured for attempts
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelAttempts})

	// WHEN two attempt records are recorded
	st.RecordAttempts(
		AttemptRecord{Sample: 0, Replicate: 1, Attempt: 1, Outcome: "survival", Events: 3},
		AttemptRecord{Sample: 0, Replicate: 1, Attempt: 2, Outcome: OutcomeAccepted, Events: 12, Elapsed: time.Millisecond},
	)

	// THEN both are kept in order
	if len(st.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(st.Attempts))
	}
	if st.Attempts[0].Accepted() {
		t.Error("expected first attempt rejected")
	}
	if !st.Attempts[1].Accepted() {
		t.Error("expected second attempt accepted")
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})
	st.RecordAttempts(AttemptRecord{Outcome: OutcomeAccepted})
	if len(st.Attempts) != 0 {
		t.Errorf("expected no records, got %d", len(st.Attempts))
	}

	var nilTrace *SimulationTrace
	nilTrace.RecordAttempts(AttemptRecord{Outcome: OutcomeAccepted}) // must not panic
}

func TestSimulationTrace_Sort_OrdersBySampleReplicateAttempt(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelAttempts})
	st.RecordAttempts(
		AttemptRecord{Sample: 1, Replicate: 0, Attempt: 1},
		AttemptRecord{Sample: 0, Replicate: 1, Attempt: 2},
		AttemptRecord{Sample: 0, Replicate: 1, Attempt: 1},
		AttemptRecord{Sample: 0, Replicate: 0, Attempt: 1},
	)

	st.Sort()

	want := [][3]int{{0, 0, 1}, {0, 1, 1}, {0, 1, 2}, {1, 0, 1}}
	for i, a := range st.Attempts {
		got := [3]int{a.Sample, a.Replicate, a.Attempt}
		if got != want[i] {
			t.Errorf("record %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, level := range []string{"", "none", "attempts"} {
		if !IsValidTraceLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	if IsValidTraceLevel("decisions") {
		t.Error("expected \"decisions\" to be invalid")
	}
}
