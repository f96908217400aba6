package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAttempts    int
	Accepted         int            // replicates that produced a tree
	Rejected         int            // attempts discarded and regenerated
	Recovered        int            // accepted replicates that needed more than one attempt
	TerminalFailures int            // replicates that gave up
	MaxAttempts      int            // most attempts spent on one replicate
	RejectedByReason map[string]int // rejection reason → count
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		RejectedByReason: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalAttempts = len(st.Attempts)
	for _, a := range st.Attempts {
		switch {
		case a.Accepted():
			summary.Accepted++
			if a.Attempt > 1 {
				summary.Recovered++
			}
		case a.Fatal:
			summary.TerminalFailures++
		default:
			summary.Rejected++
			summary.RejectedByReason[a.Outcome]++
		}
		if a.Attempt > summary.MaxAttempts {
			summary.MaxAttempts = a.Attempt
		}
	}

	return summary
}
