// Tracks batch-wide counters and summary statistics of the accepted trees.

package sim

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gonum.org/v1/gonum/stat"

	"github.com/sse-sim/sse-sim/sim/trace"
	"github.com/sse-sim/sse-sim/sim/tree"
)

// Metrics exposes replicate outcomes as Prometheus collectors. Counters are
// shared by all replicate workers.
type Metrics struct {
	Accepted         prometheus.Counter
	Rejected         *prometheus.CounterVec // by rejection reason
	TerminalFailures *prometheus.CounterVec // by failure reason
	EventsPerTree    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sse_sim",
			Subsystem: "replicates",
			Name:      "accepted_total",
			Help:      "Replicates that produced an accepted tree",
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sse_sim",
			Subsystem: "replicates",
			Name:      "rejected_attempts_total",
			Help:      "Attempts discarded by rejection sampling",
		}, []string{"reason"}),
		TerminalFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sse_sim",
			Subsystem: "replicates",
			Name:      "failures_total",
			Help:      "Replicates that gave up without a tree",
		}, []string{"reason"}),
		EventsPerTree: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sse_sim",
			Subsystem: "replicates",
			Name:      "events_per_tree",
			Help:      "Events executed while growing each accepted tree",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

// observe folds one replicate's attempt records into the collectors.
func (m *Metrics) observe(records []trace.AttemptRecord) {
	if m == nil {
		return
	}
	for _, r := range records {
		switch {
		case r.Accepted():
			m.Accepted.Inc()
			m.EventsPerTree.Observe(float64(r.Events))
		case r.Fatal:
			m.TerminalFailures.WithLabelValues(r.Outcome).Inc()
		default:
			m.Rejected.WithLabelValues(r.Outcome).Inc()
		}
	}
}

// BatchSummary aggregates statistics about the accepted trees
// for final reporting.
type BatchSummary struct {
	Trees            int
	WithRoot         int     // trees with at least one branching event
	MeanOriginAge    float64 // NaN without an origin
	MeanRootAge      float64 // over trees with a root; NaN if none
	MeanExtant       float64
	MeanSampled      float64 // extant tips kept by incomplete sampling
	MeanExtinct      float64
	MeanSampledAnc   float64
	MeanSpeciations  float64
	MeanReconTipSize float64 // tips of the reconstructed trees
}

// SummarizeTrees computes means over frozen trees.
func SummarizeTrees(trees []*tree.Tree) (*BatchSummary, error) {
	s := &BatchSummary{Trees: len(trees)}
	var origin, root, extant, sampled, extinct, sa, spn, recon []float64
	for _, tr := range trees {
		if age, ok := tr.OriginAge(); ok {
			origin = append(origin, age)
		}
		if age, ok := tr.RootAge(); ok {
			root = append(root, age)
		}
		c := tr.Counts()
		extant = append(extant, float64(c.Extant))
		sampled = append(sampled, float64(c.ExtantSampled))
		extinct = append(extinct, float64(c.Extinct))
		sa = append(sa, float64(c.SampledAncestors))
		spn = append(spn, float64(tr.NumSpeciations()))
		rec, err := tr.Reconstructed()
		if err != nil {
			return nil, err
		}
		recon = append(recon, float64(len(rec.Tips())))
	}
	s.WithRoot = len(root)
	s.MeanOriginAge = mean(origin)
	s.MeanRootAge = mean(root)
	s.MeanExtant = mean(extant)
	s.MeanSampled = mean(sampled)
	s.MeanExtinct = mean(extinct)
	s.MeanSampledAnc = mean(sa)
	s.MeanSpeciations = mean(spn)
	s.MeanReconTipSize = mean(recon)
	return s, nil
}

// mean is stat.Mean that yields NaN for an empty sample.
func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// Print displays the summary together with the attempt trace summary.
func (s *BatchSummary) Print(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Trees                : %d\n", s.Trees)
	if s.Trees > 0 {
		fmt.Fprintf(w, "Mean Origin Age      : %.4f\n", s.MeanOriginAge)
		fmt.Fprintf(w, "Mean Root Age        : %.4f (%d tree(s) with a root)\n", s.MeanRootAge, s.WithRoot)
		fmt.Fprintf(w, "Mean Extant Tips     : %.2f\n", s.MeanExtant)
		fmt.Fprintf(w, "Mean Sampled Tips    : %.2f\n", s.MeanSampled)
		fmt.Fprintf(w, "Mean Extinct Tips    : %.2f\n", s.MeanExtinct)
		fmt.Fprintf(w, "Mean Sampled Anc.    : %.2f\n", s.MeanSampledAnc)
		fmt.Fprintf(w, "Mean Speciations     : %.2f\n", s.MeanSpeciations)
		fmt.Fprintf(w, "Mean Recon. Tips     : %.2f\n", s.MeanReconTipSize)
	}
	if ts != nil && ts.TotalAttempts > 0 {
		fmt.Fprintf(w, "Attempts             : %d\n", ts.TotalAttempts)
		fmt.Fprintf(w, "Rejected Attempts    : %d\n", ts.Rejected)
		for _, reason := range slices.Sorted(maps.Keys(ts.RejectedByReason)) {
			fmt.Fprintf(w, "  %-18s : %d\n", reason, ts.RejectedByReason[reason])
		}
		fmt.Fprintf(w, "Recovered Replicates : %d\n", ts.Recovered)
		fmt.Fprintf(w, "Terminal Failures    : %d\n", ts.TerminalFailures)
	}
}
