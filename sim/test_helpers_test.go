package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sse-sim/sse-sim/sim/events"
	"github.com/sse-sim/sse-sim/sim/params"
	"github.com/sse-sim/sse-sim/sim/tree"
)

func mustRate(t *testing.T, name string, v float64, kind params.EventKind, states ...int) *params.Rate {
	t.Helper()
	r, err := params.NewRate(name, []float64{v}, kind, states, 0)
	require.NoError(t, err)
	return r
}

// bdStash is a one-state birth-death configuration.
func bdStash(t *testing.T, lambda, mu float64) *events.Stash {
	t.Helper()
	st, err := events.NewStash(events.StashConfig{
		FlatRates: []*params.Rate{
			mustRate(t, "lambda", lambda, params.WithinRegionSpeciation, 0, 0, 0),
			mustRate(t, "mu", mu, params.Extinction, 0),
		},
		NStates: 1,
		NEpochs: 1,
	})
	require.NoError(t, err)
	return st
}

// baseConfig returns a valid single-sample configuration; tests adjust it.
func baseConfig(stop StopKind, values ...float64) *Config {
	return &Config{
		N:            1,
		NR:           1,
		StartState:   []int{0},
		Stop:         stop,
		StopValues:   values,
		Origin:       true,
		Eps:          DefaultEps,
		RuntimeLimit: time.Minute,
		Seed:         42,
	}
}

func runBatch(t *testing.T, cfg *Config, stash *events.Stash) []*tree.Tree {
	t.Helper()
	b, err := NewBatch(cfg, stash, nil, nil)
	require.NoError(t, err)
	trees, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, trees, cfg.N*cfg.NR)
	return trees
}
