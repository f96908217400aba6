package sim

import (
	"context"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sse-sim/sse-sim/sim/events"
	"github.com/sse-sim/sse-sim/sim/trace"
	"github.com/sse-sim/sse-sim/sim/tree"
)

// Batch runs N × NR independent replicates over a shared, read-only stash.
type Batch struct {
	cfg   *Config
	stash *events.Stash
	rng   *PartitionedRNG

	Metrics *Metrics               // may be nil
	Trace   *trace.SimulationTrace // may be nil
}

// NewBatch validates cfg against stash and prepares a batch.
func NewBatch(cfg *Config, stash *events.Stash, metrics *Metrics, st *trace.SimulationTrace) (*Batch, error) {
	if err := cfg.Validate(stash); err != nil {
		return nil, err
	}
	b := &Batch{
		cfg:     cfg,
		stash:   stash,
		rng:     NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		Metrics: metrics,
		Trace:   st,
	}
	b.warnSeedAge()
	return b, nil
}

// warnSeedAge flags age targets that differ from the age the epochs are
// anchored to; epoch boundaries are then measured from the simulation start.
func (b *Batch) warnSeedAge() {
	seedAge, ok := b.stash.Events.Manager().SeedAge()
	if !ok || b.cfg.Stop != StopAge {
		return
	}
	for i := 0; i < b.cfg.N; i++ {
		if v := b.cfg.StopValueFor(i); math.Abs(v-seedAge) > b.cfg.Eps {
			logrus.Warnf("sample %d: stop age %g differs from seed_age %g; epochs are anchored at the start of the simulation", i, v, seedAge)
		}
	}
}

// Run grows every replicate and returns the trees in sample-major order:
// tree s*NR + r belongs to replicate r of sample s. Results do not depend
// on the number of workers.
//
// A replicate that gives up, including one that exhausts its runtime limit,
// fails the whole batch: sibling replicates still running are canceled
// through the shared context and the first *simerr.ReplicateError is returned.
func (b *Batch) Run(ctx context.Context) ([]*tree.Tree, error) {
	cfg := b.cfg
	total := cfg.N * cfg.NR
	trees := make([]*tree.Tree, total)
	records := make([][]trace.AttemptRecord, total)

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	logrus.Infof("running %d sample(s) x %d replicate(s) on %d worker(s)", cfg.N, cfg.NR, workers)
	for s := 0; s < cfg.N; s++ {
		for r := 0; r < cfg.NR; r++ {
			idx := s*cfg.NR + r
			g.Go(func() error {
				sim := NewSimulator(cfg, b.stash, s, r, b.rng.ForReplicate(s, r))
				tr, recs, err := sim.Run(gCtx)
				records[idx] = recs
				b.Metrics.observe(recs)
				if err != nil {
					return err
				}
				trees[idx] = tr
				return nil
			})
		}
	}
	err := g.Wait()

	if b.Trace.Enabled() {
		for _, recs := range records {
			b.Trace.RecordAttempts(recs...)
		}
	}
	if err != nil {
		return nil, err
	}
	return trees, nil
}
