// Package params stores state- and epoch-indexed event rates and sampling
// probabilities, and resolves which of them are active at a given time.
package params

import (
	"math"

	"github.com/sse-sim/sse-sim/sim/simerr"
)

// Parameter is the common view of rates and probabilities held by a Manager.
type Parameter interface {
	ParamName() string
	Epoch() int
	State() int
	NumValues() int
}

// Rate is a state-dependent event rate, possibly vectorized across samples.
type Rate struct {
	Name     string
	Values   []float64 // one value per sample, or a single broadcast value
	Kind     EventKind
	States   []int // (parent[, to1[, to2]]); see EventKind.NumStates
	EpochIdx int
}

// NewRate validates and builds a Rate.
func NewRate(name string, values []float64, kind EventKind, states []int, epoch int) (*Rate, error) {
	const fn = "NewRate"
	if len(values) == 0 {
		return nil, simerr.NewConfigError(fn, name, "at least one value required")
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, simerr.NewConfigError(fn, name, "value[%d] must be finite, got %f", i, v)
		}
		if v < 0 {
			return nil, simerr.NewConfigError(fn, name, "value[%d] must be non-negative, got %f", i, v)
		}
	}
	if _, ok := eventKindNames[kind]; !ok {
		return nil, simerr.NewConfigError(fn, name, "unknown event kind %d", int(kind))
	}
	if len(states) != kind.NumStates() {
		return nil, simerr.NewConfigError(fn, name, "event kind %s needs %d state(s), got %d",
			kind, kind.NumStates(), len(states))
	}
	for _, s := range states {
		if s < 0 {
			return nil, simerr.NewConfigError(fn, name, "states must be non-negative, got %v", states)
		}
	}
	if epoch < 0 {
		return nil, simerr.NewConfigError(fn, name, "epoch index must be non-negative, got %d", epoch)
	}
	return &Rate{
		Name:     name,
		Values:   append([]float64(nil), values...),
		Kind:     kind,
		States:   append([]int(nil), states...),
		EpochIdx: epoch,
	}, nil
}

func (r *Rate) ParamName() string { return r.Name }
func (r *Rate) Epoch() int        { return r.EpochIdx }
func (r *Rate) NumValues() int    { return len(r.Values) }

// State is the state a lineage must be in for this rate to apply.
func (r *Rate) State() int { return r.States[0] }

// Value returns the rate for sample i. A single value is shared by all samples.
func (r *Rate) Value(i int) float64 {
	if len(r.Values) == 1 {
		return r.Values[0]
	}
	return r.Values[i]
}

// DaughterStates returns the states a firing of this rate leaves behind:
// two states for speciation, the target state for a transition, nil otherwise.
func (r *Rate) DaughterStates() []int {
	switch r.Kind {
	case WithinRegionSpeciation, BetweenRegionSpeciation:
		return []int{r.States[1], r.States[2]}
	case AnageneticTransition:
		return []int{r.States[1]}
	default:
		return nil
	}
}
