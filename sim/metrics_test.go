package sim

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sse-sim/sse-sim/sim/trace"
)

func TestMetrics_CountsAcceptedAndRejected(t *testing.T) {
	// GIVEN a batch that rejects trees without survivors
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelAttempts})
	cfg := baseConfig(StopAge, 3)
	cfg.NR = 20
	cfg.CondSurv = true

	b, err := NewBatch(cfg, bdStash(t, 1.0, 0.8), m, st)
	require.NoError(t, err)

	// WHEN it runs
	_, err = b.Run(t.Context())
	require.NoError(t, err)

	// THEN the collectors agree with the trace
	summary := trace.Summarize(st)
	assert.Equal(t, 20.0, promtestutil.ToFloat64(m.Accepted))
	assert.Equal(t, 20, summary.Accepted)
	assert.Equal(t, float64(summary.RejectedByReason["survival"]),
		promtestutil.ToFloat64(m.Rejected.WithLabelValues("survival")))
	assert.Positive(t, summary.Rejected, "mu close to lambda should force some rejections")
	assert.Equal(t, summary.Rejected > 0, summary.Recovered > 0)
	assert.Zero(t, summary.TerminalFailures)
	assert.GreaterOrEqual(t, promtestutil.CollectAndCount(m.Rejected), 1)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observe([]trace.AttemptRecord{{Outcome: trace.OutcomeAccepted}})
}

func TestSummarizeTrees_MeansAndPrint(t *testing.T) {
	cfg := baseConfig(StopSize, 5)
	cfg.NR = 10
	trees := runBatch(t, cfg, bdStash(t, 1.0, 0))

	s, err := SummarizeTrees(trees)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Trees)
	assert.Equal(t, 10, s.WithRoot)
	assert.Equal(t, 5.0, s.MeanExtant)
	assert.Equal(t, 5.0, s.MeanSampled)
	assert.Equal(t, 5.0, s.MeanReconTipSize)
	assert.Equal(t, 4.0, s.MeanSpeciations)
	assert.Zero(t, s.MeanExtinct)

	var buf bytes.Buffer
	s.Print(&buf, &trace.TraceSummary{TotalAttempts: 12, Rejected: 2, RejectedByReason: map[string]int{"survival": 2}})
	out := buf.String()
	assert.Contains(t, out, "=== Simulation Summary ===")
	assert.Contains(t, out, "Mean Extant Tips     : 5.00")
	assert.Contains(t, out, "survival")
}
