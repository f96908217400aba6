package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sse-sim/sse-sim/sim"
	"github.com/sse-sim/sse-sim/sim/events"
	"github.com/sse-sim/sse-sim/sim/params"
)

// defaultRuntimeLimit applies when a scenario leaves runtime_limit unset.
const defaultRuntimeLimit = 15 * time.Minute

// RateEntry is one element of the flat rate matrix.
type RateEntry struct {
	Name   string    `yaml:"name"`
	Kind   string    `yaml:"kind"`   // w, bw, e, t, s (or long names)
	States []int     `yaml:"states"` // [parent, left, right], [from, to] or [state]
	Epoch  int       `yaml:"epoch"`
	Values []float64 `yaml:"values"` // one value, or one per sample
	Note   string    `yaml:"note"`
}

// ProbabilityEntry is one element of the flat probability matrix.
type ProbabilityEntry struct {
	Name   string    `yaml:"name"`
	State  int       `yaml:"state"`
	Epoch  int       `yaml:"epoch"`
	Values []float64 `yaml:"values"`
	Note   string    `yaml:"note"`
}

// Scenario represents a scenario YAML file.
// All top-level keys must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	N            int                `yaml:"n"`
	NR           int                `yaml:"nr"`
	NStates      int                `yaml:"n_states"`
	NEpochs      int                `yaml:"n_epochs"`
	SeedAge      *float64           `yaml:"seed_age"`
	EpochAgeEnds []float64          `yaml:"epoch_age_ends"`
	Rates        []RateEntry        `yaml:"rates"`
	Probs        []ProbabilityEntry `yaml:"probabilities"`

	StartState []int     `yaml:"start_state"`
	Stop       string    `yaml:"stop"`
	StopValue  []float64 `yaml:"stop_value"`
	Origin     *bool     `yaml:"origin"` // default true

	CondSpn          bool `yaml:"cond_spn"`
	CondSurv         bool `yaml:"cond_surv"`
	CondObsBothSides bool `yaml:"cond_obs_both_sides"`

	MinRecTaxa        int      `yaml:"min_rec_taxa"`
	MaxRecTaxa        int      `yaml:"max_rec_taxa"`
	AbortAtAliveCount int      `yaml:"abort_at_alive_count"`
	Eps               *float64 `yaml:"eps"`           // default sim.DefaultEps
	RuntimeLimit      *float64 `yaml:"runtime_limit"` // minutes; default 15, 0 = unlimited
	Seed              uint64   `yaml:"seed"`
}

// LoadScenario reads a scenario file with strict field checking: unknown
// keys are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// Build converts the scenario into a stash and a batch configuration. The
// configuration is validated against the stash.
func (sc *Scenario) Build() (*sim.Config, *events.Stash, error) {
	stash, err := sc.buildStash()
	if err != nil {
		return nil, nil, err
	}

	cfg := &sim.Config{
		N:                 orDefault(sc.N, 1),
		NR:                orDefault(sc.NR, 1),
		StartState:        sc.StartState,
		Stop:              sim.StopKind(sc.Stop),
		StopValues:        sc.StopValue,
		Origin:            sc.Origin == nil || *sc.Origin,
		CondSpn:           sc.CondSpn,
		CondSurv:          sc.CondSurv,
		CondObsBothSides:  sc.CondObsBothSides,
		MinRecTaxa:        sc.MinRecTaxa,
		MaxRecTaxa:        sc.MaxRecTaxa,
		AbortAtAliveCount: sc.AbortAtAliveCount,
		Eps:               sim.DefaultEps,
		RuntimeLimit:      defaultRuntimeLimit,
		Seed:              sc.Seed,
	}
	if len(cfg.StartState) == 0 {
		cfg.StartState = []int{0}
	}
	if sc.Eps != nil {
		cfg.Eps = *sc.Eps
	}
	if sc.RuntimeLimit != nil {
		cfg.RuntimeLimit = time.Duration(*sc.RuntimeLimit * float64(time.Minute))
	}
	if err := cfg.Validate(stash); err != nil {
		return nil, nil, err
	}
	return cfg, stash, nil
}

func (sc *Scenario) buildStash() (*events.Stash, error) {
	prov := make(events.Provenance, len(sc.Rates)+len(sc.Probs))
	rates := make([]*params.Rate, 0, len(sc.Rates))
	for i, e := range sc.Rates {
		kind, err := params.ParseEventKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("rates[%d]: %w", i, err)
		}
		r, err := params.NewRate(e.Name, e.Values, kind, e.States, e.Epoch)
		if err != nil {
			return nil, fmt.Errorf("rates[%d]: %w", i, err)
		}
		rates = append(rates, r)
		prov[e.Name] = events.Source{Param: e.Name, Entry: fmt.Sprintf("rates[%d]", i), Note: e.Note}
	}
	probs := make([]*params.Probability, 0, len(sc.Probs))
	for i, e := range sc.Probs {
		p, err := params.NewProbability(e.Name, e.Values, e.State, e.Epoch)
		if err != nil {
			return nil, fmt.Errorf("probabilities[%d]: %w", i, err)
		}
		probs = append(probs, p)
		prov[e.Name] = events.Source{Param: e.Name, Entry: fmt.Sprintf("probabilities[%d]", i), Note: e.Note}
	}
	return events.NewStash(events.StashConfig{
		FlatRates:    rates,
		FlatProbs:    probs,
		NStates:      orDefault(sc.NStates, 1),
		NEpochs:      orDefault(sc.NEpochs, 1),
		SeedAge:      sc.SeedAge,
		EpochAgeEnds: sc.EpochAgeEnds,
		Provenance:   prov,
	})
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
