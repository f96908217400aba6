// sim/simulator.go
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sse-sim/sse-sim/sim/events"
	"github.com/sse-sim/sse-sim/sim/simerr"
	"github.com/sse-sim/sse-sim/sim/tree"
)

// checkEvery is how many events pass between wall-clock and context checks.
const checkEvery = 256

// rejection is a recoverable attempt failure; the replicate is regenerated.
type rejection struct {
	reason string
	err    error
}

func (r *rejection) Error() string { return fmt.Sprintf("%s: %v", r.reason, r.err) }
func (r *rejection) Unwrap() error { return r.err }

func reject(reason string, err error) error {
	return &rejection{reason: reason, err: err}
}

// Simulator grows the trees of one (sample, replicate) pair. It owns its tree
// and random stream and is not safe for concurrent use; the stash is shared
// read-only.
type Simulator struct {
	cfg       *Config
	stash     *events.Stash
	sample    int
	replicate int
	rng       *rand.Rand
	deadline  time.Time // zero when there is no runtime limit

	// per attempt
	tree   *tree.Tree
	clock  float64
	events int
}

// NewSimulator creates the simulator for replicate r of sample s. The
// configuration must already be validated against stash.
func NewSimulator(cfg *Config, stash *events.Stash, s, r int, rng *rand.Rand) *Simulator {
	return &Simulator{
		cfg:       cfg,
		stash:     stash,
		sample:    s,
		replicate: r,
		rng:       rng,
	}
}

// Events returns the number of events executed in the last attempt.
func (s *Simulator) Events() int { return s.events }

// Attempt grows one candidate tree, thins its extant tips and checks the
// conditioning rules. Recoverable failures are returned as errors for which
// RejectionReason reports a reason; anything else is fatal for the replicate.
func (s *Simulator) Attempt(ctx context.Context) (*tree.Tree, error) {
	if err := s.grow(ctx); err != nil {
		return nil, err
	}
	s.thin()
	if reason, err := s.condition(); err != nil {
		return nil, reject(reason, err)
	}
	return s.tree, nil
}

// RejectionReason reports the reason tag of a recoverable attempt failure.
func RejectionReason(err error) (string, bool) {
	var r *rejection
	if errors.As(err, &r) {
		return r.reason, true
	}
	return "", false
}

func (s *Simulator) grow(ctx context.Context) error {
	cfg := s.cfg
	tr, err := tree.New(s.stash.NumStates(), cfg.StartStateFor(s.sample), cfg.Origin)
	if err != nil {
		return err
	}
	s.tree, s.clock, s.events = tr, 0, 0

	target := cfg.StopValueFor(s.sample)
	bySize := cfg.Stop == StopSize
	if bySize && float64(tr.NumAlive()) >= target {
		tr.Freeze(0)
		return nil
	}

	handler := s.stash.Events
	for {
		if s.events%checkEvery == 0 {
			if err := s.checkBudget(ctx); err != nil {
				return err
			}
		}
		alive := tr.NumAlive()
		if cfg.AbortAtAliveCount > 0 && alive > cfg.AbortAtAliveCount {
			return reject("explosion", fmt.Errorf("%w: %d > %d", simerr.ErrExplosion, alive, cfg.AbortAtAliveCount))
		}
		if alive == 0 {
			if bySize {
				return reject("extinct", simerr.ErrExtinctBeforeSize)
			}
			tr.Freeze(target)
			return nil
		}

		census := tr.Census()
		rt := handler.TotalRate(s.sample, s.clock, census)
		boundary := handler.NextBoundary(s.clock)
		next := math.Inf(1)
		if rt.Total > 0 {
			next = s.clock + distuv.Exponential{Rate: rt.Total, Src: s.rng}.Rand()
		}

		if !bySize && target <= boundary && next >= target-cfg.Eps {
			tr.Freeze(target)
			return nil
		}
		if next >= boundary {
			if math.IsInf(boundary, 1) {
				return fmt.Errorf("no event can occur at time %g with %d living lineage(s)", s.clock, alive)
			}
			// rates change at the boundary; the waiting time is memoryless
			s.clock = boundary
			continue
		}
		s.clock = next

		state := pickIndex(rt.PerState, s.rng.Float64()*rt.Total)
		lineage := tr.LivingInState(state, s.rng.IntN(census[state]))
		rate, daughters, err := handler.SampleEvent(s.rng, s.sample, rt.PerLineage[state], s.clock, state)
		if err != nil {
			return err
		}
		if err := s.apply(Event{Time: s.clock, Lineage: lineage, Rate: rate, Daughters: daughters}); err != nil {
			return err
		}
		s.events++

		if bySize && float64(tr.NumAlive()) >= target {
			tr.Freeze(s.clock)
			return nil
		}
	}
}

func (s *Simulator) checkBudget(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return fmt.Errorf("%w: %v", simerr.ErrRuntimeLimit, s.cfg.RuntimeLimit)
	}
	return nil
}

// thin applies incomplete sampling to the extant tips at the stop time.
func (s *Simulator) thin() {
	sampling := s.stash.Sampling
	if sampling == nil {
		return
	}
	for _, id := range s.tree.Living() {
		n := s.tree.Node(id)
		if !sampling.DecideSampling(s.rng, s.sample, s.tree.StopTime(), n.State) {
			s.tree.MarkUnsampled(id)
		}
	}
}

// condition returns a reason tag and error for the first rule the tree breaks.
func (s *Simulator) condition() (string, error) {
	cfg, tr := s.cfg, s.tree
	counts := tr.Counts()
	if cfg.CondSurv && counts.Extant == 0 {
		return "survival", fmt.Errorf("%w: no extant lineage", simerr.ErrConditioning)
	}
	if cfg.CondSpn && tr.Root() == tree.NoNode {
		return "speciation", fmt.Errorf("%w: no branching event", simerr.ErrConditioning)
	}
	if cfg.CondObsBothSides && !s.observedBothSides() {
		return "both_sides", fmt.Errorf("%w: root lacks observed tips on both sides", simerr.ErrConditioning)
	}
	if cfg.MinRecTaxa > 0 && counts.ExtantSampled < cfg.MinRecTaxa {
		return "min_rec_taxa", fmt.Errorf("%w: %d sampled extant tip(s) < %d", simerr.ErrConditioning, counts.ExtantSampled, cfg.MinRecTaxa)
	}
	if cfg.MaxRecTaxa > 0 && counts.ExtantSampled > cfg.MaxRecTaxa {
		return "max_rec_taxa", fmt.Errorf("%w: %d sampled extant tip(s) > %d", simerr.ErrConditioning, counts.ExtantSampled, cfg.MaxRecTaxa)
	}
	return "", nil
}

func (s *Simulator) observedBothSides() bool {
	tr := s.tree
	root := tr.Root()
	if root == tree.NoNode {
		return false
	}
	for _, child := range tr.Node(root).Children {
		if !s.hasObservedTip(child) {
			return false
		}
	}
	return true
}

func (s *Simulator) hasObservedTip(id tree.NodeID) bool {
	stack := []tree.NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := s.tree.Node(cur)
		if n.Observed() {
			return true
		}
		stack = append(stack, n.Children...)
	}
	return false
}

// pickIndex returns the first index whose cumulative weight exceeds u,
// skipping zero-weight entries.
func pickIndex(weights []float64, u float64) int {
	cum := floats.CumSum(make([]float64, len(weights)), weights)
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
	if i < len(cum) {
		return i
	}
	for i = len(weights) - 1; i > 0; i-- {
		if weights[i] > 0 {
			break
		}
	}
	return i
}

// failureReason tags a fatal replicate error for traces and metrics.
func failureReason(err error) string {
	switch {
	case errors.Is(err, simerr.ErrRuntimeLimit):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
