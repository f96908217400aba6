// Package testutil provides shared test assertion helpers for the sim
// packages. It depends on nothing in sim/ so any sim package may use it in
// its own tests.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertMeanWithin checks that the sample mean of xs lies within z standard
// errors of want. Use it for Monte-Carlo expectations with a fixed seed.
func AssertMeanWithin(t *testing.T, name string, want float64, xs []float64, z float64) {
	t.Helper()
	if len(xs) < 2 {
		t.Fatalf("%s: need at least two observations, got %d", name, len(xs))
	}
	mean, std := stat.MeanStdDev(xs, nil)
	se := std / math.Sqrt(float64(len(xs)))
	if math.Abs(mean-want) > z*se {
		t.Errorf("%s: mean %v is more than %v standard errors (se=%v) from %v", name, mean, z, se, want)
	}
}
