package importance

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"nsflow/internal/sample"
)

// RemovalMethod selects how many live points are evicted into the
// nested-sample archive at the start of a level (§4.7 step 1).
type RemovalMethod int

const (
	RemovalEntropy RemovalMethod = iota
	RemovalQuantile
)

// chooseRemovalCount implements both removal strategies over a
// LogL-sorted population. bits defaults to 0.5 for the entropy method;
// quantile defaults to 1-1/e for the quantile method.
func chooseRemovalCount(points []sample.Sample, method RemovalMethod, bits, quantile float64, minSamples int) int {
	nlive := len(points)
	var n int

	switch method {
	case RemovalQuantile:
		n = quantileRemovalCount(points, quantile)
	default:
		n = entropyRemovalCount(points, bits)
	}

	if nlive-n < minSamples {
		n = nlive - minSamples
	}
	if n < 0 {
		n = 0
	}
	if n > nlive {
		n = nlive
	}
	return n
}

// entropyRemovalCount picks the largest prefix size n such that the
// entropy retained by keeping points[n:] still exceeds the population's
// total entropy minus bits.
func entropyRemovalCount(points []sample.Sample, bits float64) int {
	nlive := len(points)
	if nlive == 0 {
		return 0
	}

	logP := make([]float64, nlive)
	maxLogP := math.Inf(-1)
	for i, s := range points {
		logP[i] = s.LogL + s.LogW
		if logP[i] > maxLogP {
			maxLogP = logP[i]
		}
	}

	sumExp := 0.0
	for _, lp := range logP {
		sumExp += math.Exp(lp - maxLogP)
	}
	logNorm := maxLogP + math.Log(sumExp)

	entropyMass := make([]float64, nlive)
	totalEntropy := 0.0
	for i, lp := range logP {
		p := math.Exp(lp - logNorm)
		e := 0.0
		if p > 0 {
			e = -p * math.Log(p)
		}
		entropyMass[i] = e
		totalEntropy += e
	}

	cumFromTop := make([]float64, nlive+1)
	for i := nlive - 1; i >= 0; i-- {
		cumFromTop[i] = cumFromTop[i+1] + entropyMass[i]
	}

	threshold := totalEntropy - bits
	n := 0
	for k := nlive; k >= 0; k-- {
		if cumFromTop[k] > threshold {
			n = k
			break
		}
	}
	return n
}

// quantileRemovalCount picks n as the index of the first point whose
// LogL is at or above the weighted quantile cutoff.
func quantileRemovalCount(points []sample.Sample, quantile float64) int {
	nlive := len(points)
	if nlive == 0 {
		return 0
	}

	logLs := make([]float64, nlive)
	weights := make([]float64, nlive)
	for i, s := range points {
		logLs[i] = s.LogL
		weights[i] = math.Exp(s.LogW)
	}

	idx := make([]int, nlive)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return logLs[idx[a]] < logLs[idx[b]] })

	sortedLogL := make([]float64, nlive)
	sortedW := make([]float64, nlive)
	for i, j := range idx {
		sortedLogL[i] = logLs[j]
		sortedW[i] = weights[j]
	}

	cutoff := stat.Quantile(quantile, stat.Empirical, sortedLogL, sortedW)

	n := sort.SearchFloat64s(sortedLogL, cutoff)
	return n
}
