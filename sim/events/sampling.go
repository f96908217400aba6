package events

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sse-sim/sse-sim/sim/params"
	"github.com/sse-sim/sse-sim/sim/simerr"
)

// ProbabilityHandler decides whether extant tips are sampled. A nil
// *ProbabilityHandler samples every tip.
type ProbabilityHandler struct {
	probs *params.Manager
}

// NewProbabilityHandler wraps a Manager holding at most one probability per
// state and epoch. Cells without one sample every tip.
func NewProbabilityHandler(m *params.Manager) (*ProbabilityHandler, error) {
	const fn = "NewProbabilityHandler"
	if m == nil {
		return nil, simerr.NewConfigError(fn, "flat_prob_mat", "probability manager is required")
	}
	if m.Family() != params.FamilyProbability {
		return nil, simerr.NewConfigError(fn, "flat_prob_mat",
			"expected probability parameters, got %s parameters", m.Family())
	}
	for e := 0; e < m.NumEpochs(); e++ {
		for s := 0; s < m.NumStates(); s++ {
			if ps := m.At(e, s); len(ps) > 1 {
				return nil, simerr.NewConfigError(fn, ps[1].ParamName(),
					"epoch %d state %d has %d probabilities; expected one", e, s, len(ps))
			}
		}
	}
	return &ProbabilityHandler{probs: m}, nil
}

// Manager returns the wrapped probability manager, or nil.
func (h *ProbabilityHandler) Manager() *params.Manager {
	if h == nil {
		return nil
	}
	return h.probs
}

// Probability returns the sampling probability for a tip in state at
// forward time t. Without a handler or a matching parameter it is 1.
func (h *ProbabilityHandler) Probability(sample int, t float64, state int) float64 {
	if h == nil || state >= h.probs.NumStates() {
		return 1
	}
	ps := h.probs.Lookup(state, t)
	if len(ps) == 0 {
		return 1
	}
	return ps[0].(*params.Probability).Value(sample)
}

// DecideSampling draws a Bernoulli outcome with the looked-up probability.
func (h *ProbabilityHandler) DecideSampling(rng *rand.Rand, sample int, t float64, state int) bool {
	p := h.Probability(sample, t, state)
	if p >= 1 {
		return true
	}
	if p <= 0 {
		return false
	}
	return distuv.Bernoulli{P: p, Src: rng}.Rand() == 1
}
