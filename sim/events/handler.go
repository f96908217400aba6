// Package events aggregates event rates over a lineage census, samples the
// event that fires, and decides incomplete-sampling outcomes for tips.
package events

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/sse-sim/sse-sim/sim/params"
	"github.com/sse-sim/sse-sim/sim/simerr"
)

// RateTotals summarizes the event rates of a living-lineage census at one time.
type RateTotals struct {
	Total      float64   // sum over every living lineage
	PerState   []float64 // per-state totals weighted by lineage counts
	PerLineage []float64 // rate sum for a single lineage in each state
}

// EventHandler wraps a rate Manager. It is read-only and safe for
// concurrent use by replicate workers.
type EventHandler struct {
	rates *params.Manager
}

// NewEventHandler wraps a Manager holding rates.
func NewEventHandler(m *params.Manager) (*EventHandler, error) {
	if m == nil {
		return nil, simerr.NewConfigError("NewEventHandler", "flat_rate_mat", "rate manager is required")
	}
	if m.Family() != params.FamilyRate {
		return nil, simerr.NewConfigError("NewEventHandler", "flat_rate_mat",
			"expected rate parameters, got %s parameters", m.Family())
	}
	return &EventHandler{rates: m}, nil
}

// Manager returns the wrapped rate manager.
func (h *EventHandler) Manager() *params.Manager { return h.rates }

// NumStates returns the number of discrete states.
func (h *EventHandler) NumStates() int { return h.rates.NumStates() }

// NextBoundary returns the forward time at which rates next change.
func (h *EventHandler) NextBoundary(t float64) float64 { return h.rates.NextBoundary(t) }

// ActiveRates returns the rates applicable to state at time t.
func (h *EventHandler) ActiveRates(t float64, state int) []*params.Rate {
	ps := h.rates.Lookup(state, t)
	out := make([]*params.Rate, len(ps))
	for i, p := range ps {
		out[i] = p.(*params.Rate)
	}
	return out
}

// LineageRate is the sum of all rates a single lineage in state experiences at t.
func (h *EventHandler) LineageRate(sample int, t float64, state int) float64 {
	total := 0.0
	for _, r := range h.ActiveRates(t, state) {
		total += r.Value(sample)
	}
	return total
}

// TotalRate sums, over every living lineage in census (census[s] lineages in
// state s), the rates of all events applicable at time t.
func (h *EventHandler) TotalRate(sample int, t float64, census []int) RateTotals {
	n := h.rates.NumStates()
	rt := RateTotals{
		PerState:   make([]float64, n),
		PerLineage: make([]float64, n),
	}
	for s := 0; s < n && s < len(census); s++ {
		rt.PerLineage[s] = h.LineageRate(sample, t, s)
		rt.PerState[s] = float64(census[s]) * rt.PerLineage[s]
	}
	rt.Total = floats.Sum(rt.PerState)
	return rt
}

// SampleEvent draws one rate active for state at time t with probability
// proportional to its value, by inverting the cumulative weights scaled by
// stateTotal (RateTotals.PerLineage[state]). Rates whose value is zero are
// never chosen. It returns the chosen rate and the daughter states it
// encodes (two for speciation, one for a transition).
func (h *EventHandler) SampleEvent(rng *rand.Rand, sample int, stateTotal, t float64, state int) (*params.Rate, []int, error) {
	active := h.ActiveRates(t, state)
	candidates := make([]*params.Rate, 0, len(active))
	weights := make([]float64, 0, len(active))
	for _, r := range active {
		if v := r.Value(sample); v > 0 {
			candidates = append(candidates, r)
			weights = append(weights, v)
		}
	}
	if len(candidates) == 0 || stateTotal <= 0 {
		return nil, nil, fmt.Errorf("no event with positive rate for state %d at time %f", state, t)
	}
	cum := floats.CumSum(make([]float64, len(weights)), weights)
	u := rng.Float64() * stateTotal
	idx := sort.SearchFloat64s(cum, u)
	if idx >= len(candidates) {
		idx = len(candidates) - 1
	}
	chosen := candidates[idx]
	return chosen, chosen.DaughterStates(), nil
}
