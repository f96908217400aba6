package trace

import "sort"

// TraceLevel controls the verbosity of attempt tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelAttempts captures every replicate attempt.
	TraceLevelAttempts TraceLevel = "attempts"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelAttempts: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects attempt records during a batch.
// Not safe for concurrent use; workers hand their records to the batch,
// which records them after all replicates finish.
type SimulationTrace struct {
	Config   TraceConfig
	Attempts []AttemptRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Attempts: make([]AttemptRecord, 0),
	}
}

// Enabled reports whether records are kept.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelAttempts
}

// RecordAttempts appends attempt records. It is a no-op when tracing is off.
func (st *SimulationTrace) RecordAttempts(records ...AttemptRecord) {
	if !st.Enabled() {
		return
	}
	st.Attempts = append(st.Attempts, records...)
}

// Sort orders records by sample, replicate and attempt.
func (st *SimulationTrace) Sort() {
	sort.SliceStable(st.Attempts, func(i, j int) bool {
		a, b := st.Attempts[i], st.Attempts[j]
		if a.Sample != b.Sample {
			return a.Sample < b.Sample
		}
		if a.Replicate != b.Replicate {
			return a.Replicate < b.Replicate
		}
		return a.Attempt < b.Attempt
	})
}
