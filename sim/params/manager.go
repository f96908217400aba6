package params

import (
	"math"
	"sort"
	"sync"

	"github.com/sse-sim/sse-sim/sim/simerr"
)

// Family distinguishes managers holding rates from managers holding probabilities.
type Family int

const (
	FamilyRate Family = iota
	FamilyProbability
)

func (f Family) String() string {
	if f == FamilyProbability {
		return "probability"
	}
	return "rate"
}

// epochCacheCap bounds the memoized time→epoch table. Simulated times are
// continuous, so the table is reset rather than grown without limit.
const epochCacheCap = 4096

// Manager owns a [epoch][state] matrix of parameters and the epoch boundaries.
//
// Epoch boundaries are ages, oldest first: the seed age (the age at which a
// simulation starts) followed by the age at which each epoch but the last
// ends. The last epoch is open-ended toward the future. Simulation time runs
// forward from 0 at the seed age, so the epoch active at time t is the one
// whose half-open interval [start, end) contains t.
//
// A Manager is read-only after construction and may be shared across
// goroutines; only the epoch cache is mutated, under its own lock.
type Manager struct {
	family    Family
	nStates   int
	matrix    [][][]Parameter // [epoch][state] -> parameters
	seedAge   float64         // NaN when there is a single epoch and no seed age
	ageEnds   []float64
	timeEnds  []float64 // forward times at which epochs 0..n-2 end
	maxValues int

	cacheMu sync.RWMutex
	cache   map[float64]int
}

// NewManager builds a Manager from per-epoch rows of parameters.
// seedAge may be nil when epochAgeEnds is empty.
//
// Construction fails if the number of rows differs from len(epochAgeEnds)+1,
// if a row of rates lacks a parameter for some state, if a parameter sits in the
// wrong row or names an out-of-range state, or if rates and probabilities
// are mixed.
func NewManager(matrix [][]Parameter, nStates int, seedAge *float64, epochAgeEnds []float64) (*Manager, error) {
	const fn = "NewParameterManager"
	if nStates < 1 {
		return nil, simerr.NewConfigError(fn, "n_states", "must be at least 1, got %d", nStates)
	}
	nEpochs := len(epochAgeEnds) + 1
	if len(matrix) != nEpochs {
		return nil, simerr.NewConfigError(fn, "n_epochs",
			"parameter matrix has %d epoch row(s) but epoch_age_ends implies %d", len(matrix), nEpochs)
	}

	m := &Manager{
		nStates: nStates,
		seedAge: math.NaN(),
		ageEnds: append([]float64(nil), epochAgeEnds...),
		cache:   make(map[float64]int),
	}

	if len(epochAgeEnds) > 0 {
		if seedAge == nil {
			return nil, simerr.NewConfigError(fn, "seed_age", "required when epoch_age_ends is given")
		}
		prev := *seedAge
		for i, a := range epochAgeEnds {
			if math.IsNaN(a) || a >= prev {
				return nil, simerr.NewConfigError(fn, "epoch_age_ends",
					"ages must strictly decrease from seed_age %f; entry %d is %f", *seedAge, i, a)
			}
			prev = a
		}
	}
	if seedAge != nil {
		if math.IsNaN(*seedAge) || math.IsInf(*seedAge, 0) {
			return nil, simerr.NewConfigError(fn, "seed_age", "must be finite, got %f", *seedAge)
		}
		m.seedAge = *seedAge
		m.timeEnds = make([]float64, len(epochAgeEnds))
		for i, a := range epochAgeEnds {
			m.timeEnds[i] = *seedAge - a
		}
	}

	familySet := false
	m.matrix = make([][][]Parameter, nEpochs)
	for e, row := range matrix {
		m.matrix[e] = make([][]Parameter, nStates)
		for _, p := range row {
			if p == nil {
				return nil, simerr.NewConfigError(fn, "parameters", "nil parameter in epoch %d", e)
			}
			var f Family
			switch p.(type) {
			case *Rate:
				f = FamilyRate
			case *Probability:
				f = FamilyProbability
			default:
				return nil, simerr.NewConfigError(fn, p.ParamName(), "unsupported parameter type %T", p)
			}
			if !familySet {
				m.family, familySet = f, true
			} else if f != m.family {
				return nil, simerr.NewConfigError(fn, p.ParamName(),
					"cannot mix %s and %s parameters in one manager", m.family, f)
			}
			if p.Epoch() != e {
				return nil, simerr.NewConfigError(fn, p.ParamName(),
					"declares epoch %d but is listed in epoch row %d", p.Epoch(), e)
			}
			if r, ok := p.(*Rate); ok {
				for _, s := range r.States {
					if s >= nStates {
						return nil, simerr.NewConfigError(fn, p.ParamName(),
							"state %d out of range for %d state(s)", s, nStates)
					}
				}
			}
			if p.State() >= nStates {
				return nil, simerr.NewConfigError(fn, p.ParamName(),
					"state %d out of range for %d state(s)", p.State(), nStates)
			}
			m.matrix[e][p.State()] = append(m.matrix[e][p.State()], p)
			m.maxValues = max(m.maxValues, p.NumValues())
		}
	}
	if !familySet {
		return nil, simerr.NewConfigError(fn, "parameters", "no parameters supplied")
	}
	// Probabilities may leave cells empty; the sampling default applies there.
	if m.family == FamilyRate {
		for e := range m.matrix {
			for s := 0; s < nStates; s++ {
				if len(m.matrix[e][s]) == 0 {
					return nil, simerr.NewConfigError(fn, "parameters",
						"epoch %d has no parameter for state %d", e, s)
				}
			}
		}
	}
	return m, nil
}

// Family reports whether the manager holds rates or probabilities.
func (m *Manager) Family() Family { return m.family }

// NumStates returns the number of discrete states.
func (m *Manager) NumStates() int { return m.nStates }

// NumEpochs returns the number of epochs.
func (m *Manager) NumEpochs() int { return len(m.matrix) }

// SeedAge returns the seed age and whether one was configured.
func (m *Manager) SeedAge() (float64, bool) { return m.seedAge, !math.IsNaN(m.seedAge) }

// EpochAgeEnds returns a copy of the configured epoch end ages.
func (m *Manager) EpochAgeEnds() []float64 { return append([]float64(nil), m.ageEnds...) }

// MaxValues is the longest value vector of any parameter.
func (m *Manager) MaxValues() int { return m.maxValues }

// CheckSampleCount verifies that every parameter carries either one value
// or exactly n values.
func (m *Manager) CheckSampleCount(n int) error {
	for _, row := range m.matrix {
		for _, cell := range row {
			for _, p := range cell {
				if k := p.NumValues(); k != 1 && k != n {
					return simerr.NewConfigError("NewParameterManager", p.ParamName(),
						"has %d value(s); expected 1 or %d (one per sample)", k, n)
				}
			}
		}
	}
	return nil
}

// EpochAt returns the index of the epoch active at forward time t.
func (m *Manager) EpochAt(t float64) int {
	if len(m.timeEnds) == 0 {
		return 0
	}
	m.cacheMu.RLock()
	e, ok := m.cache[t]
	m.cacheMu.RUnlock()
	if ok {
		return e
	}
	// Number of boundaries at or before t: boundaries belong to the younger epoch.
	e = sort.Search(len(m.timeEnds), func(i int) bool { return m.timeEnds[i] > t })
	m.cacheMu.Lock()
	if len(m.cache) >= epochCacheCap {
		m.cache = make(map[float64]int)
	}
	m.cache[t] = e
	m.cacheMu.Unlock()
	return e
}

// EpochAtAge returns the epoch containing the given age. With no seed age
// configured there is a single epoch.
func (m *Manager) EpochAtAge(age float64) int {
	if math.IsNaN(m.seedAge) {
		return 0
	}
	return m.EpochAt(m.seedAge - age)
}

// NextBoundary returns the forward time at which the epoch active at t
// ends, or +Inf when t is in the last epoch.
func (m *Manager) NextBoundary(t float64) float64 {
	e := m.EpochAt(t)
	if e >= len(m.timeEnds) {
		return math.Inf(1)
	}
	return m.timeEnds[e]
}

// At returns the parameters for a state in a given epoch.
func (m *Manager) At(epoch, state int) []Parameter {
	return m.matrix[epoch][state]
}

// Lookup returns the parameters active for state at forward time t.
func (m *Manager) Lookup(state int, t float64) []Parameter {
	return m.matrix[m.EpochAt(t)][state]
}

// All returns every parameter, epoch by epoch and state by state.
func (m *Manager) All() []Parameter {
	var out []Parameter
	for _, row := range m.matrix {
		for _, cell := range row {
			out = append(out, cell...)
		}
	}
	return out
}

func (m *Manager) cacheLen() int {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()
	return len(m.cache)
}
