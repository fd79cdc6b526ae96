package proposal

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// GaussianFlow is a reference Flow implementation: each Train call fits a
// full-covariance Gaussian to the weighted training batch and appends it
// as a new addressable snapshot. It stands in for a real normalising
// flow in tests and examples, trading expressiveness for a closed-form,
// dependency-light fit.
type GaussianFlow struct {
	dim       int
	rng       *rand.Rand
	snapshots []*distmv.Normal
}

// NewGaussianFlow constructs an untrained flow over the given dimension.
func NewGaussianFlow(dim int, rng *rand.Rand) *GaussianFlow {
	return &GaussianFlow{dim: dim, rng: rng}
}

func (f *GaussianFlow) Initialise() error { return nil }

// Train fits a weighted-mean, weighted-covariance Gaussian to x and
// appends it as the newest snapshot. output and plot are accepted for
// interface conformance and ignored: this reference flow has no
// persisted weights to render diagnostics for.
func (f *GaussianFlow) Train(x [][]float64, weights []float64, output string, plot bool) error {
	if len(x) == 0 {
		return errors.New("proposal: cannot train gaussian flow on zero samples")
	}
	n, d := len(x), len(x[0])

	raw := mat.NewDense(n, d, nil)
	for i, row := range x {
		raw.SetRow(i, row)
	}

	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, raw)
		mean[j] = stat.Mean(col, weights)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, raw, weights)
	regularise(&cov, d)

	dist, ok := distmv.NewNormal(mean, &cov, f.rng)
	if !ok {
		return errors.New("proposal: fitted covariance is not positive definite")
	}
	f.snapshots = append(f.snapshots, dist)
	return nil
}

// regularise nudges the diagonal to keep near-degenerate weighted
// covariance estimates (e.g. from a single distinct training point)
// positive definite.
func regularise(cov *mat.SymDense, d int) {
	const eps = 1e-10
	for i := 0; i < d; i++ {
		cov.SetSym(i, i, cov.At(i, i)+eps)
	}
}

func (f *GaussianFlow) latest() (*distmv.Normal, error) {
	if len(f.snapshots) == 0 {
		return nil, errors.New("proposal: gaussian flow has no trained snapshot")
	}
	return f.snapshots[len(f.snapshots)-1], nil
}

func (f *GaussianFlow) SampleAndLogProb(n int) ([][]float64, []float64, error) {
	dist, err := f.latest()
	if err != nil {
		return nil, nil, err
	}
	xs := make([][]float64, n)
	logQ := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, f.dim)
		dist.Rand(row)
		xs[i] = row
		logQ[i] = dist.LogProb(row)
	}
	return xs, logQ, nil
}

func (f *GaussianFlow) LogProbIth(x [][]float64, k int) ([]float64, error) {
	if k < 0 || k >= len(f.snapshots) {
		return nil, fmt.Errorf("proposal: snapshot index %d out of range [0,%d)", k, len(f.snapshots))
	}
	dist := f.snapshots[k]
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = dist.LogProb(row)
	}
	return out, nil
}

func (f *GaussianFlow) LogProbAll(x [][]float64, excludeLast bool) ([][]float64, error) {
	upto := len(f.snapshots)
	if excludeLast && upto > 0 {
		upto--
	}
	out := make([][]float64, upto)
	for k := 0; k < upto; k++ {
		lp, err := f.LogProbIth(x, k)
		if err != nil {
			return nil, err
		}
		out[k] = lp
	}
	return out, nil
}

func (f *GaussianFlow) SampleIth(k, n int) ([][]float64, error) {
	if k < 0 || k >= len(f.snapshots) {
		return nil, fmt.Errorf("proposal: snapshot index %d out of range [0,%d)", k, len(f.snapshots))
	}
	dist := f.snapshots[k]
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, f.dim)
		dist.Rand(row)
		out[i] = row
	}
	return out, nil
}

// ResetModelWeights discards every trained snapshot, returning the flow
// to its initial untrained state.
func (f *GaussianFlow) ResetModelWeights() error {
	f.snapshots = nil
	return nil
}

// ReloadWeights and UpdateWeightsPath are no-ops: this reference flow
// keeps its entire snapshot history resident in memory rather than on
// disk.
func (f *GaussianFlow) ReloadWeights(path string) error     { return nil }
func (f *GaussianFlow) UpdateWeightsPath(path string) error { return nil }
