package events

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sse-sim/sse-sim/sim/params"
)

func TestProbabilityHandler_NilSamplesEverything(t *testing.T) {
	var h *ProbabilityHandler
	rng := rand.New(rand.NewPCG(1, 1))
	assert.Equal(t, 1.0, h.Probability(0, 0, 0))
	for i := 0; i < 100; i++ {
		require.True(t, h.DecideSampling(rng, 0, 0, 0))
	}
	assert.Nil(t, h.Manager())
}

func TestProbabilityHandler_BernoulliFrequency(t *testing.T) {
	// GIVEN a stash with rho=0.5 for state 0 and rho=0 for state 1
	rho0, err := params.NewProbability("rho0", []float64{0.5}, 0, 0)
	require.NoError(t, err)
	rho1, err := params.NewProbability("rho1", []float64{0}, 1, 0)
	require.NoError(t, err)
	st, err := NewStash(StashConfig{
		FlatRates: []*params.Rate{
			newRate(t, "l0", 1, params.WithinRegionSpeciation, 0, 0, 0),
			newRate(t, "l1", 1, params.WithinRegionSpeciation, 1, 1, 1),
		},
		FlatProbs: []*params.Probability{rho0, rho1},
		NStates:   2,
		NEpochs:   1,
	})
	require.NoError(t, err)
	require.NotNil(t, st.Sampling)

	// WHEN deciding 10,000 tips in each state
	rng := rand.New(rand.NewPCG(3, 4))
	kept0, kept1 := 0, 0
	const n = 10000
	for i := 0; i < n; i++ {
		if st.Sampling.DecideSampling(rng, 0, 0, 0) {
			kept0++
		}
		if st.Sampling.DecideSampling(rng, 0, 0, 1) {
			kept1++
		}
	}

	// THEN about half the state-0 tips and none of the state-1 tips are kept
	assert.InDelta(t, 0.5, float64(kept0)/n, 0.02)
	assert.Zero(t, kept1)
}

func TestProbabilityHandler_MissingStateDefaultsToOne(t *testing.T) {
	// GIVEN rho=0.5 for state 0 and no probability for state 1
	rho0, err := params.NewProbability("rho0", []float64{0.5}, 0, 0)
	require.NoError(t, err)
	st, err := NewStash(StashConfig{
		FlatRates: []*params.Rate{
			newRate(t, "l0", 1, params.WithinRegionSpeciation, 0, 0, 0),
			newRate(t, "l1", 1, params.WithinRegionSpeciation, 1, 1, 1),
		},
		FlatProbs: []*params.Probability{rho0},
		NStates:   2,
		NEpochs:   1,
	})
	require.NoError(t, err)
	require.NotNil(t, st.Sampling)

	// WHEN deciding state-1 tips
	rng := rand.New(rand.NewPCG(5, 6))
	assert.Equal(t, 1.0, st.Sampling.Probability(0, 0, 1))
	assert.Equal(t, 0.5, st.Sampling.Probability(0, 0, 0))

	// THEN every one is kept
	for i := 0; i < 1000; i++ {
		require.True(t, st.Sampling.DecideSampling(rng, 0, 0, 1))
	}
}

func TestNewProbabilityHandler_RejectsDuplicates(t *testing.T) {
	a, err := params.NewProbability("a", []float64{0.5}, 0, 0)
	require.NoError(t, err)
	b, err := params.NewProbability("b", []float64{0.4}, 0, 0)
	require.NoError(t, err)
	m, err := params.NewManager([][]params.Parameter{{a, b}}, 1, nil, nil)
	require.NoError(t, err)
	_, err = NewProbabilityHandler(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected one")
}
