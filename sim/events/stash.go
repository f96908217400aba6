package events

import (
	"fmt"

	"github.com/sse-sim/sse-sim/sim/params"
	"github.com/sse-sim/sse-sim/sim/simerr"
)

// Source records which configuration entry produced a parameter. Export
// layers use it to map simulated parameters back to their definitions.
type Source struct {
	Param string // parameter name
	Entry string // configuration entry, e.g. "rates[2]"
	Note  string
}

// Provenance maps parameter names to their configuration sources.
type Provenance map[string]Source

// StashConfig carries the flat parameter lists and epoch layout a Stash is
// built from.
type StashConfig struct {
	FlatRates    []*params.Rate
	FlatProbs    []*params.Probability // optional
	NStates      int
	NEpochs      int
	SeedAge      *float64
	EpochAgeEnds []float64
	Provenance   Provenance // optional; missing entries are filled in
}

// Stash is the complete, read-only parameter configuration for a batch of
// simulations: an EventHandler and an optional ProbabilityHandler.
type Stash struct {
	Events     *EventHandler
	Sampling   *ProbabilityHandler
	Provenance Provenance
}

// NewStash groups the flat parameter lists by epoch and builds the handlers.
func NewStash(cfg StashConfig) (*Stash, error) {
	const fn = "NewStash"
	if cfg.NEpochs < 1 {
		return nil, simerr.NewConfigError(fn, "n_epochs", "must be at least 1, got %d", cfg.NEpochs)
	}
	if len(cfg.FlatRates) == 0 {
		return nil, simerr.NewConfigError(fn, "flat_rate_mat", "at least one rate required")
	}

	prov := make(Provenance, len(cfg.FlatRates)+len(cfg.FlatProbs))
	for k, v := range cfg.Provenance {
		prov[k] = v
	}

	rateRows := make([][]params.Parameter, cfg.NEpochs)
	for i, r := range cfg.FlatRates {
		if r == nil {
			return nil, simerr.NewConfigError(fn, "flat_rate_mat", "entry %d is nil", i)
		}
		if r.EpochIdx >= cfg.NEpochs {
			return nil, simerr.NewConfigError(fn, r.Name, "epoch %d out of range for %d epoch(s)", r.EpochIdx, cfg.NEpochs)
		}
		rateRows[r.EpochIdx] = append(rateRows[r.EpochIdx], r)
		if _, ok := prov[r.Name]; !ok {
			prov[r.Name] = Source{Param: r.Name, Entry: fmt.Sprintf("flat_rate_mat[%d]", i)}
		}
	}
	rm, err := params.NewManager(rateRows, cfg.NStates, cfg.SeedAge, cfg.EpochAgeEnds)
	if err != nil {
		return nil, err
	}
	eh, err := NewEventHandler(rm)
	if err != nil {
		return nil, err
	}

	st := &Stash{Events: eh, Provenance: prov}
	if len(cfg.FlatProbs) == 0 {
		return st, nil
	}

	probRows := make([][]params.Parameter, cfg.NEpochs)
	for i, p := range cfg.FlatProbs {
		if p == nil {
			return nil, simerr.NewConfigError(fn, "flat_prob_mat", "entry %d is nil", i)
		}
		if p.EpochIdx >= cfg.NEpochs {
			return nil, simerr.NewConfigError(fn, p.Name, "epoch %d out of range for %d epoch(s)", p.EpochIdx, cfg.NEpochs)
		}
		probRows[p.EpochIdx] = append(probRows[p.EpochIdx], p)
		if _, ok := prov[p.Name]; !ok {
			prov[p.Name] = Source{Param: p.Name, Entry: fmt.Sprintf("flat_prob_mat[%d]", i)}
		}
	}
	pm, err := params.NewManager(probRows, cfg.NStates, cfg.SeedAge, cfg.EpochAgeEnds)
	if err != nil {
		return nil, err
	}
	if st.Sampling, err = NewProbabilityHandler(pm); err != nil {
		return nil, err
	}
	return st, nil
}

// NumStates returns the number of discrete states.
func (s *Stash) NumStates() int { return s.Events.NumStates() }

// CheckSampleCount verifies every parameter vector has length 1 or n.
func (s *Stash) CheckSampleCount(n int) error {
	if err := s.Events.Manager().CheckSampleCount(n); err != nil {
		return err
	}
	if m := s.Sampling.Manager(); m != nil {
		return m.CheckSampleCount(n)
	}
	return nil
}
