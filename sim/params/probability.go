package params

import (
	"math"

	"github.com/sse-sim/sse-sim/sim/simerr"
)

// Probability is a state-dependent tip sampling probability used to thin
// extant tips after growth.
type Probability struct {
	Name     string
	Values   []float64 // each in [0, 1]
	StateIdx int
	EpochIdx int
}

// NewProbability validates and builds a Probability. Any component outside
// [0, 1] is rejected.
func NewProbability(name string, values []float64, state, epoch int) (*Probability, error) {
	const fn = "NewProbability"
	if len(values) == 0 {
		return nil, simerr.NewConfigError(fn, name, "at least one value required")
	}
	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, simerr.NewConfigError(fn, name, "value[%d] must lie in [0, 1], got %f", i, v)
		}
	}
	if state < 0 {
		return nil, simerr.NewConfigError(fn, name, "state must be non-negative, got %d", state)
	}
	if epoch < 0 {
		return nil, simerr.NewConfigError(fn, name, "epoch index must be non-negative, got %d", epoch)
	}
	return &Probability{
		Name:     name,
		Values:   append([]float64(nil), values...),
		StateIdx: state,
		EpochIdx: epoch,
	}, nil
}

func (p *Probability) ParamName() string { return p.Name }
func (p *Probability) Epoch() int        { return p.EpochIdx }
func (p *Probability) State() int        { return p.StateIdx }
func (p *Probability) NumValues() int    { return len(p.Values) }

// Value returns the probability for sample i, broadcasting a single value.
func (p *Probability) Value(i int) float64 {
	if len(p.Values) == 1 {
		return p.Values[0]
	}
	return p.Values[i]
}
