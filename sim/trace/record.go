// Package trace records every replicate attempt made during a batch.
// It has no dependencies on sim/ and stores pure data types.
package trace

import "time"

// Outcome of an attempt that produced a usable tree.
const OutcomeAccepted = "accepted"

// AttemptRecord captures one attempt at growing a replicate.
type AttemptRecord struct {
	Sample    int
	Replicate int
	Attempt   int    // 1-based within the replicate
	Outcome   string // OutcomeAccepted, a rejection reason or a fatal failure tag
	Fatal     bool   // the replicate gave up after this attempt
	Events    int    // events executed while growing
	Elapsed   time.Duration
}

// Accepted reports whether the attempt produced the replicate's tree.
func (r AttemptRecord) Accepted() bool {
	return r.Outcome == OutcomeAccepted
}
