package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Reparam is a bijection between [0,1]^d and an unbounded "prime" space,
// used by the importance variant so flows can be trained in an unbounded
// space. ToPrime and FromPrime must be exact inverses; both report the
// per-row summed log-Jacobian of the forward map they perform.
type Reparam interface {
	Kind() string
	ToPrime(x [][]float64) (prime [][]float64, logJ []float64)
	FromPrime(prime [][]float64) (x [][]float64, logJ []float64)
}

// NewReparam constructs the reparametrisation named by kind.
func NewReparam(kind string) Reparam {
	switch kind {
	case "gaussian_cdf":
		return gaussianCDFReparam{}
	case "identity":
		return identityReparam{}
	default:
		return logitReparam{}
	}
}

var unitNormal = distuv.Normal{Mu: 0, Sigma: 1}

// logitReparam maps x in (0,1) to y = log(x/(1-x)).
type logitReparam struct{}

func (logitReparam) Kind() string { return "logit" }

func (logitReparam) ToPrime(x [][]float64) ([][]float64, []float64) {
	y := make([][]float64, len(x))
	logJ := make([]float64, len(x))
	for i, row := range x {
		yr := make([]float64, len(row))
		sum := 0.0
		for j, xv := range row {
			yr[j] = math.Log(xv) - math.Log1p(-xv)
			sum += -math.Log(xv) - math.Log1p(-xv)
		}
		y[i] = yr
		logJ[i] = sum
	}
	return y, logJ
}

func (logitReparam) FromPrime(y [][]float64) ([][]float64, []float64) {
	x := make([][]float64, len(y))
	logJ := make([]float64, len(y))
	for i, row := range y {
		xr := make([]float64, len(row))
		sum := 0.0
		for j, yv := range row {
			xv := 1.0 / (1.0 + math.Exp(-yv))
			xr[j] = xv
			sum += math.Log(xv) + math.Log1p(-xv)
		}
		x[i] = xr
		logJ[i] = sum
	}
	return x, logJ
}

// gaussianCDFReparam maps x in (0,1) to y = Phi^-1(x), the standard
// normal quantile function.
type gaussianCDFReparam struct{}

func (gaussianCDFReparam) Kind() string { return "gaussian_cdf" }

func (gaussianCDFReparam) ToPrime(x [][]float64) ([][]float64, []float64) {
	y := make([][]float64, len(x))
	logJ := make([]float64, len(x))
	for i, row := range x {
		yr := make([]float64, len(row))
		for j, xv := range row {
			yr[j] = unitNormal.Quantile(xv)
		}
		y[i] = yr
		logJ[i] = -sumLogNormalPDF(yr)
	}
	return y, logJ
}

func (gaussianCDFReparam) FromPrime(y [][]float64) ([][]float64, []float64) {
	x := make([][]float64, len(y))
	logJ := make([]float64, len(y))
	for i, row := range y {
		xr := make([]float64, len(row))
		for j, yv := range row {
			xr[j] = unitNormal.CDF(yv)
		}
		x[i] = xr
		logJ[i] = sumLogNormalPDF(row)
	}
	return x, logJ
}

func sumLogNormalPDF(y []float64) float64 {
	sum := 0.0
	for _, v := range y {
		sum += unitNormal.LogProb(v)
	}
	return sum
}

// identityReparam is the no-op reparametrisation.
type identityReparam struct{}

func (identityReparam) Kind() string { return "identity" }

func (identityReparam) ToPrime(x [][]float64) ([][]float64, []float64) {
	out := make([][]float64, len(x))
	logJ := make([]float64, len(x))
	for i, row := range x {
		out[i] = append([]float64(nil), row...)
	}
	return out, logJ
}

func (identityReparam) FromPrime(x [][]float64) ([][]float64, []float64) {
	return identityReparam{}.ToPrime(x)
}
