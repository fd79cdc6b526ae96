// Package diagnostics provides the insertion-index diagnostic oracle: a
// two-sided Kolmogorov-Smirnov test of the recorded insertion indices
// against the discrete uniform distribution on [0, nlive).
package diagnostics

import "math"

// KSTest computes the two-sided KS statistic of indices against the
// discrete uniform distribution on {0, ..., nlive-1}. p is nil if fewer
// than nlive indices were supplied.
func KSTest(indices []int, nlive int) (d float64, p *float64) {
	n := len(indices)
	if n < nlive {
		return 0, nil
	}

	counts := make([]int, nlive)
	for _, idx := range indices {
		if idx >= 0 && idx < nlive {
			counts[idx]++
		}
	}

	empirical := 0.0
	d = 0.0
	for i := 0; i < nlive; i++ {
		empirical += float64(counts[i]) / float64(n)
		uniform := float64(i+1) / float64(nlive)
		if diff := math.Abs(empirical - uniform); diff > d {
			d = diff
		}
	}

	pv := kolmogorovPValue(d, n)
	return d, &pv
}

// kolmogorovPValue returns the asymptotic two-sided p-value for a KS
// statistic d computed from a sample of size n, using the Kolmogorov
// distribution's series expansion.
func kolmogorovPValue(d float64, n int) float64 {
	if n == 0 {
		return 1
	}
	sqrtN := math.Sqrt(float64(n))
	lambda := (sqrtN + 0.12 + 0.11/sqrtN) * d

	if lambda < 0.2 {
		return 1
	}

	sum := 0.0
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k)*float64(k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}

	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// RollingOracle runs the KS test over a sliding window of the most
// recently recorded insertion indices, one window-length wide, and keeps
// the history of p-values it has produced.
type RollingOracle struct {
	Nlive    int
	indices  []int
	RollingP []float64
}

// NewRollingOracle returns an oracle that tests windows of length nlive.
func NewRollingOracle(nlive int) *RollingOracle {
	return &RollingOracle{Nlive: nlive}
}

// Record appends one insertion index to the running history.
func (o *RollingOracle) Record(index int) {
	o.indices = append(o.indices, index)
}

// RunRolling tests the most recent Nlive indices and appends the
// resulting p-value to RollingP. Intended to be called every Nlive
// iterations. Returns the statistic and p-value (nil if not enough
// history yet).
func (o *RollingOracle) RunRolling() (float64, *float64) {
	if len(o.indices) < o.Nlive {
		return 0, nil
	}
	window := o.indices[len(o.indices)-o.Nlive:]
	d, p := KSTest(window, o.Nlive)
	if p != nil {
		o.RollingP = append(o.RollingP, *p)
	}
	return d, p
}

// FinalKS tests the full recorded index series at the end of a run. It is
// diagnostic only and never affects control flow.
func (o *RollingOracle) FinalKS() (float64, *float64) {
	return KSTest(o.indices, o.Nlive)
}

// Indices exposes the recorded series, e.g. for plotting a histogram.
func (o *RollingOracle) Indices() []int { return o.indices }
