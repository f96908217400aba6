package sim

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sse-sim/sse-sim/sim/simerr"
	"github.com/sse-sim/sse-sim/sim/trace"
	"github.com/sse-sim/sse-sim/sim/tree"
)

// Run regenerates attempts until one is accepted (rejection sampling). It
// stops with a *simerr.ReplicateError when the runtime limit runs out, the
// context is canceled or an attempt fails in a way a retry cannot fix.
// The returned records cover every attempt made, in order.
func (s *Simulator) Run(ctx context.Context) (*tree.Tree, []trace.AttemptRecord, error) {
	start := time.Now()
	if s.cfg.RuntimeLimit > 0 {
		s.deadline = start.Add(s.cfg.RuntimeLimit)
	}
	var records []trace.AttemptRecord
	record := func(attempt int, outcome string, fatal bool, elapsed time.Duration) {
		records = append(records, trace.AttemptRecord{
			Sample:    s.sample,
			Replicate: s.replicate,
			Attempt:   attempt,
			Outcome:   outcome,
			Fatal:     fatal,
			Events:    s.events,
			Elapsed:   elapsed,
		})
	}
	fail := func(attempt int, reason string, err error) error {
		logrus.Errorf("sample %d replicate %d failed after %d attempt(s) (%s): %v",
			s.sample, s.replicate, attempt, reason, err)
		return &simerr.ReplicateError{
			Sample:    s.sample,
			Replicate: s.replicate,
			Attempts:  attempt,
			Reason:    reason,
			Err:       err,
		}
	}

	for attempt := 1; ; attempt++ {
		attemptStart := time.Now()
		tr, err := s.Attempt(ctx)
		if err == nil {
			record(attempt, trace.OutcomeAccepted, false, time.Since(attemptStart))
			logrus.Infof("sample %d replicate %d accepted after %d attempt(s), %d event(s)",
				s.sample, s.replicate, attempt, s.events)
			return tr, records, nil
		}

		reason, ok := RejectionReason(err)
		if !ok {
			reason = failureReason(err)
			record(attempt, reason, true, time.Since(attemptStart))
			return nil, records, fail(attempt, reason, err)
		}
		logrus.Warnf("sample %d replicate %d attempt %d rejected: %v", s.sample, s.replicate, attempt, err)

		if err := s.checkBudget(ctx); err != nil {
			reason = failureReason(err)
			record(attempt, reason, true, time.Since(attemptStart))
			return nil, records, fail(attempt, reason, err)
		}
		record(attempt, reason, false, time.Since(attemptStart))
	}
}
