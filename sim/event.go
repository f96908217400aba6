package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sse-sim/sse-sim/sim/params"
	"github.com/sse-sim/sse-sim/sim/tree"
)

// Event is one sampled occurrence on a living lineage.
type Event struct {
	Time      float64
	Lineage   tree.NodeID
	Rate      *params.Rate // the rate that fired
	Daughters []int        // resulting states from Rate.DaughterStates()
}

// Timestamp returns the forward time of the event.
func (e Event) Timestamp() float64 {
	return e.Time
}

// Kind returns the event kind of the rate that fired.
func (e Event) Kind() params.EventKind {
	return e.Rate.Kind
}

// apply executes ev on the replicate's tree. It is the only place the
// driver branches on event kind.
func (s *Simulator) apply(ev Event) error {
	logrus.Debugf("[t %.6f] %s on node %d (%s)", ev.Time, ev.Kind(), ev.Lineage, ev.Rate.Name)
	switch ev.Kind() {
	case params.WithinRegionSpeciation, params.BetweenRegionSpeciation:
		if len(ev.Daughters) != 2 {
			return fmt.Errorf("rate %s: speciation needs two daughter states, got %v", ev.Rate.Name, ev.Daughters)
		}
		_, _, err := s.tree.Speciate(ev.Lineage, ev.Time, ev.Daughters[0], ev.Daughters[1])
		return err
	case params.Extinction:
		return s.tree.GoExtinct(ev.Lineage, ev.Time)
	case params.AnageneticTransition:
		if len(ev.Daughters) != 1 {
			return fmt.Errorf("rate %s: transition needs one target state, got %v", ev.Rate.Name, ev.Daughters)
		}
		return s.tree.Transition(ev.Lineage, ev.Time, ev.Daughters[0])
	case params.AncestorSampling:
		_, _, err := s.tree.SampleAncestor(ev.Lineage, ev.Time)
		return err
	default:
		return fmt.Errorf("rate %s: unknown event kind %d", ev.Rate.Name, int(ev.Kind()))
	}
}
