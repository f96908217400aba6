package sim

import (
	"math"
	"time"

	"github.com/sse-sim/sse-sim/sim/events"
	"github.com/sse-sim/sse-sim/sim/simerr"
)

// StopKind selects how a replicate stops growing.
type StopKind string

const (
	// StopAge halts growth when the tree reaches the target age.
	StopAge StopKind = "age"
	// StopSize halts growth when the number of living lineages reaches the target.
	StopSize StopKind = "size"
)

// DefaultEps is the tolerance used when comparing event times with the stop age.
const DefaultEps = 1e-12

// Config groups the batch-level simulation options.
type Config struct {
	N          int       // samples (must be > 0)
	NR         int       // replicates per sample (must be > 0)
	StartState []int     // per-sample start state (length 1 broadcasts)
	Stop       StopKind  // "age" or "size"
	StopValues []float64 // per-sample target age or size (length 1 broadcasts)
	Origin     bool      // start at an origin (single lineage) instead of a root (two lineages)

	CondSpn          bool // require at least one branching event
	CondSurv         bool // require at least one extant tip
	CondObsBothSides bool // require observed tips on both sides of the root

	MinRecTaxa        int // reject trees with fewer sampled extant tips (0 = no bound)
	MaxRecTaxa        int // reject trees with more sampled extant tips (0 = no bound)
	AbortAtAliveCount int // abort growth past this many living lineages (0 = no bound)

	Eps          float64       // stop-age comparison tolerance
	RuntimeLimit time.Duration // wall-clock budget per replicate (0 = unlimited)

	Seed    uint64 // master seed for all replicate streams
	Workers int    // concurrent replicates (0 = GOMAXPROCS)
}

// StartStateFor returns the start state of sample i.
func (c *Config) StartStateFor(i int) int {
	if len(c.StartState) == 1 {
		return c.StartState[0]
	}
	return c.StartState[i]
}

// StopValueFor returns the stop target of sample i.
func (c *Config) StopValueFor(i int) float64 {
	if len(c.StopValues) == 1 {
		return c.StopValues[0]
	}
	return c.StopValues[i]
}

// Validate checks the configuration against itself and against the stash it
// will run with. All failures are *simerr.ConfigError.
func (c *Config) Validate(stash *events.Stash) error {
	const fn = "sim.Config"
	if c.N < 1 {
		return simerr.NewConfigError(fn, "n", "must be at least 1, got %d", c.N)
	}
	if c.NR < 1 {
		return simerr.NewConfigError(fn, "nr", "must be at least 1, got %d", c.NR)
	}
	if stash == nil || stash.Events == nil {
		return simerr.NewConfigError(fn, "stash", "rate configuration is required")
	}
	nStates := stash.NumStates()

	if len(c.StartState) != 1 && len(c.StartState) != c.N {
		return simerr.NewConfigError(fn, "start_state", "expected 1 or %d value(s), got %d", c.N, len(c.StartState))
	}
	for _, s := range c.StartState {
		if s < 0 || s >= nStates {
			return simerr.NewConfigError(fn, "start_state", "state %d out of range for %d state(s)", s, nStates)
		}
	}

	if c.Stop != StopAge && c.Stop != StopSize {
		return simerr.NewConfigError(fn, "stop", "must be %q or %q, got %q", StopAge, StopSize, c.Stop)
	}
	if len(c.StopValues) != 1 && len(c.StopValues) != c.N {
		return simerr.NewConfigError(fn, "stop_value", "expected 1 or %d value(s), got %d", c.N, len(c.StopValues))
	}
	for _, v := range c.StopValues {
		if err := c.checkStopValue(v); err != nil {
			return err
		}
	}

	if c.MinRecTaxa < 0 {
		return simerr.NewConfigError(fn, "min_rec_taxa", "must be non-negative, got %d", c.MinRecTaxa)
	}
	if c.MaxRecTaxa < 0 {
		return simerr.NewConfigError(fn, "max_rec_taxa", "must be non-negative, got %d", c.MaxRecTaxa)
	}
	if c.MaxRecTaxa > 0 && c.MaxRecTaxa < c.MinRecTaxa {
		return simerr.NewConfigError(fn, "max_rec_taxa", "%d is below min_rec_taxa %d", c.MaxRecTaxa, c.MinRecTaxa)
	}
	if c.AbortAtAliveCount < 0 {
		return simerr.NewConfigError(fn, "abort_at_alive_count", "must be non-negative, got %d", c.AbortAtAliveCount)
	}
	if c.Eps < 0 || math.IsNaN(c.Eps) || math.IsInf(c.Eps, 0) {
		return simerr.NewConfigError(fn, "eps", "must be a finite non-negative number, got %v", c.Eps)
	}
	if c.RuntimeLimit < 0 {
		return simerr.NewConfigError(fn, "runtime_limit", "must be non-negative, got %v", c.RuntimeLimit)
	}
	if c.Workers < 0 {
		return simerr.NewConfigError(fn, "workers", "must be non-negative, got %d", c.Workers)
	}
	if err := stash.CheckSampleCount(c.N); err != nil {
		return err
	}
	return nil
}

func (c *Config) checkStopValue(v float64) error {
	const fn = "sim.Config"
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return simerr.NewConfigError(fn, "stop_value", "must be finite, got %v", v)
	}
	if v < 0 {
		return simerr.NewConfigError(fn, "stop_value", "%s target must be non-negative, got %v", c.Stop, v)
	}
	if c.Stop == StopAge {
		if v == 0 {
			return simerr.NewConfigError(fn, "stop_value", "age target must be positive")
		}
		return nil
	}
	if v != math.Trunc(v) {
		return simerr.NewConfigError(fn, "stop_value", "size target must be an integer, got %v", v)
	}
	if c.Origin && v < 1 {
		return simerr.NewConfigError(fn, "stop_value", "size target must be at least 1, got %v", v)
	}
	if !c.Origin && v < 2 {
		return simerr.NewConfigError(fn, "stop_value", "size target must be at least 2 when starting at a root, got %v", v)
	}
	return nil
}
