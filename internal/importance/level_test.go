package importance

import (
	"testing"

	"nsflow/internal/sample"
)

func uniformLogWPoints(logLs []float64) []sample.Sample {
	points := make([]sample.Sample, len(logLs))
	for i, l := range logLs {
		points[i] = sample.Sample{LogL: l, LogW: 0}
	}
	return points
}

func TestChooseRemovalCountEntropyWithinBounds(t *testing.T) {
	points := uniformLogWPoints([]float64{-10, -8, -6, -4, -2, -1, 0})
	n := chooseRemovalCount(points, RemovalEntropy, 0.5, 0, 1)
	if n < 0 || n > len(points)-1 {
		t.Fatalf("removal count %d out of range [0, %d)", n, len(points))
	}
}

func TestChooseRemovalCountQuantileWithinBounds(t *testing.T) {
	points := uniformLogWPoints([]float64{-10, -8, -6, -4, -2, -1, 0})
	quantile := 1 - 1.0/2.718281828
	n := chooseRemovalCount(points, RemovalQuantile, 0, quantile, 1)
	if n < 0 || n > len(points)-1 {
		t.Fatalf("removal count %d out of range [0, %d)", n, len(points))
	}
}

func TestChooseRemovalCountRespectsMinSamples(t *testing.T) {
	points := uniformLogWPoints([]float64{-10, -8, -6, -4, -2})
	n := chooseRemovalCount(points, RemovalQuantile, 0, 0.99, 4)
	if len(points)-n < 4 {
		t.Errorf("removal count %d leaves only %d samples, want at least 4", n, len(points)-n)
	}
}

func TestChooseRemovalCountEmptyPopulation(t *testing.T) {
	if n := chooseRemovalCount(nil, RemovalEntropy, 0.5, 0, 0); n != 0 {
		t.Errorf("removal count on an empty population = %d, want 0", n)
	}
}

func TestQuantileRemovalCountMonotonicInQuantile(t *testing.T) {
	points := uniformLogWPoints([]float64{-10, -8, -6, -4, -2, -1, 0, 1, 2, 3})
	nLow := quantileRemovalCount(points, 0.1)
	nHigh := quantileRemovalCount(points, 0.9)
	if nHigh < nLow {
		t.Errorf("a higher quantile should remove at least as many points: q=0.1 -> %d, q=0.9 -> %d", nLow, nHigh)
	}
}
