package model

import (
	"math"
	"math/rand"

	"nsflow/internal/sample"
)

// UnitCubeModel is a reference Model living on the unit hypercube [0,1]^d,
// parameterised by an arbitrary log-likelihood function. It backs the
// Gaussian-shell, flat-likelihood, and step-likelihood scenarios used in
// the sampler test suites.
type UnitCubeModel struct {
	names []string
	logL  func(x []float64) float64
	rng   *rand.Rand

	evaluations int64
}

// NewUnitCubeModel constructs a model over the named parameters (all
// with uniform[0,1] priors) and the given log-likelihood function.
func NewUnitCubeModel(names []string, logL func(x []float64) float64, rng *rand.Rand) *UnitCubeModel {
	return &UnitCubeModel{names: names, logL: logL, rng: rng}
}

// GaussianShellLogL implements Scenario A: a thin spherical shell of
// radius 0.2 and width 0.01 centred on (0.5, 0.5).
func GaussianShellLogL(x []float64) float64 {
	sumSq := 0.0
	for _, v := range x {
		d := v - 0.5
		sumSq += d * d
	}
	r := math.Sqrt(sumSq)
	return -((r - 0.2) * (r - 0.2)) / (0.01 * 0.01)
}

// FlatLogL implements Scenario B: a constant likelihood equal to the
// prior, so logZ must equal 0 regardless of nlive.
func FlatLogL(x []float64) float64 { return 0 }

// StepLogL implements Scenario C: logL is 0 above the threshold and -Inf
// below it, so logZ collapses to log(volume of the surviving half-cube).
func StepLogL(x []float64) float64 {
	if x[0] > 0.5 {
		return 0
	}
	return math.Inf(-1)
}

func (m *UnitCubeModel) Names() []string { return m.names }

func (m *UnitCubeModel) NewPoint() sample.Sample {
	x := make([]float64, len(m.names))
	for i := range x {
		x[i] = m.rng.Float64()
	}
	return sample.Sample{X: x, LogP: 0, It: -1}
}

func (m *UnitCubeModel) LogPrior(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = 0
		for _, v := range row {
			if v < 0 || v > 1 {
				out[i] = math.Inf(-1)
				break
			}
		}
	}
	return out
}

func (m *UnitCubeModel) EvaluateLogLikelihood(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.logL(row)
	}
	m.evaluations += int64(len(x))
	return out
}

func (m *UnitCubeModel) InBounds(x [][]float64) []bool {
	out := make([]bool, len(x))
	for i, row := range x {
		in := true
		for _, v := range row {
			if v < 0 || v > 1 {
				in = false
				break
			}
		}
		out[i] = in
	}
	return out
}

func (m *UnitCubeModel) ToUnitHypercube(x []float64) []float64 {
	return append([]float64(nil), x...)
}

func (m *UnitCubeModel) FromUnitHypercube(u []float64) []float64 {
	return append([]float64(nil), u...)
}

func (m *UnitCubeModel) LikelihoodEvaluations() int64 { return m.evaluations }

// MixtureOfGaussiansModel implements Scenario D's 4-mode 2-D target: the
// prior is uniform on [0,1]^2 and the likelihood places a narrow Gaussian
// bump at each of four symmetric mode centres.
type MixtureOfGaussiansModel struct {
	*UnitCubeModel
	Centres [][]float64
	Sigma   float64
}

// NewMixtureOfGaussiansModel builds the 4-mode target used by the
// importance-sampler scenario.
func NewMixtureOfGaussiansModel(rng *rand.Rand) *MixtureOfGaussiansModel {
	centres := [][]float64{
		{0.25, 0.25}, {0.25, 0.75}, {0.75, 0.25}, {0.75, 0.75},
	}
	sigma := 0.05
	logL := func(x []float64) float64 {
		terms := make([]float64, len(centres))
		for i, c := range centres {
			sumSq := 0.0
			for j, v := range x {
				d := v - c[j]
				sumSq += d * d
			}
			terms[i] = -sumSq / (2 * sigma * sigma)
		}
		maxTerm := math.Inf(-1)
		for _, t := range terms {
			if t > maxTerm {
				maxTerm = t
			}
		}
		sumExp := 0.0
		for _, t := range terms {
			sumExp += math.Exp(t - maxTerm)
		}
		return maxTerm + math.Log(sumExp) - math.Log(float64(len(centres)))
	}
	return &MixtureOfGaussiansModel{
		UnitCubeModel: NewUnitCubeModel([]string{"x", "y"}, logL, rng),
		Centres:       centres,
		Sigma:         sigma,
	}
}
