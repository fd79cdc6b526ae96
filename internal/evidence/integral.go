// Package evidence accumulates the nested-sampling evidence integral log Z
// and its information estimate under the standard volume-shrinkage model.
package evidence

import (
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// State is the running accumulator for the evidence integral.
//
// Invariants: LogLs is weakly increasing after the prior sentinel -Inf;
// LogVols is strictly decreasing; all four series have equal length;
// Iteration == len(LogLs)-1.
type State struct {
	Iteration int
	LogZ      float64
	LogW      float64
	LogLs     []float64
	LogVols   []float64
	Info      []float64
	Gradients []float64

	// Nlive is the default population size used to derive the shrinkage
	// factor 1/Nlive when Increment is called without an override.
	Nlive int
}

// New returns a freshly reset state for the given live-point population size.
func New(nlive int) *State {
	s := &State{Nlive: nlive}
	s.Reset()
	return s
}

// Reset returns the state to its initial, empty condition.
func (s *State) Reset() {
	s.Iteration = 0
	s.LogZ = math.Inf(-1)
	s.LogW = 0
	s.LogLs = []float64{math.Inf(-1)}
	s.LogVols = []float64{0}
	s.Info = []float64{0}
	s.Gradients = []float64{0}
}

// Increment folds one more likelihood value into the integral, shrinking
// the enclosed prior volume by 1/n (n defaults to s.Nlive).
func (s *State) Increment(logL float64, nliveOverride ...int) {
	n := s.Nlive
	if len(nliveOverride) > 0 && nliveOverride[0] > 0 {
		n = nliveOverride[0]
	}

	last := s.LogLs[len(s.LogLs)-1]
	if logL <= last {
		log.Warn().
			Float64("logL", logL).
			Float64("previous_logL", last).
			Msg("non-monotonic logL passed to evidence integrator")
	}

	logt := -1.0 / float64(n)
	wt := s.LogW + logL + log1mexp(logt)

	oldZ := s.LogZ
	s.LogZ = LogAddExp(s.LogZ, wt)

	hPrev := s.Info[len(s.Info)-1]
	hNew := 0.0
	if !math.IsInf(oldZ, 0) && !math.IsInf(s.LogZ, 0) && !math.IsInf(logL, 0) {
		hNew = math.Exp(wt-s.LogZ)*logL + math.Exp(oldZ-s.LogZ)*(hPrev+oldZ) - s.LogZ
		if math.IsNaN(hNew) {
			log.Warn().Msg("NaN encountered computing information estimate, clamping to 0")
			hNew = 0
		}
	}
	s.Info = append(s.Info, hNew)

	newLogVol := s.LogW + logt
	s.LogW += logt

	prevLogVol := s.LogVols[len(s.LogVols)-1]
	grad := 0.0
	dv := newLogVol - prevLogVol
	if dv != 0 {
		grad = (logL - last) / dv
	}

	s.LogLs = append(s.LogLs, logL)
	s.LogVols = append(s.LogVols, newLogVol)
	s.Gradients = append(s.Gradients, grad)

	s.Iteration++
}

// Finalise replaces LogZ with the trapezoidal refinement over the stored
// (logL, logVol) grid and returns the refined value.
func (s *State) Finalise() float64 {
	s.LogZ = logIntegrateLogTrap(s.LogLs, s.LogVols)
	return s.LogZ
}

// LogAddExp computes log(exp(a)+exp(b)) in a numerically stable way.
func LogAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	return floats.LogSumExp([]float64{a, b})
}

// log1mexp computes log(1-exp(x)) for x <= 0, stable both near 0 and far
// below it (Maechler's 2012 two-branch formula).
func log1mexp(x float64) float64 {
	if x > 0 {
		// Not a valid input (1-exp(x) would be negative); fail loud rather
		// than return a silently wrong magnitude.
		return math.NaN()
	}
	if x > -math.Ln2 {
		return math.Log(-math.Expm1(x))
	}
	return math.Log1p(-math.Exp(x))
}

// logIntegrateLogTrap applies the trapezoidal rule in log-space to a
// logL(logVol) profile, integrating L over the prior volume X = exp(logVol):
// sum over adjacent pairs of
// logaddexp(logL_i, logL_{i+1}) + log(X_i - X_{i+1}) - log(2).
func logIntegrateLogTrap(logLs, logVols []float64) float64 {
	if len(logLs) < 2 {
		return math.Inf(-1)
	}
	total := math.Inf(-1)
	for i := 0; i+1 < len(logLs); i++ {
		a, b := logLs[i], logLs[i+1]
		if math.IsInf(a, -1) && math.IsInf(b, -1) {
			continue
		}
		logWidth := logVols[i] + log1mexp(logVols[i+1]-logVols[i])
		if math.IsInf(logWidth, -1) || math.IsNaN(logWidth) {
			continue
		}
		term := LogAddExp(a, b) + logWidth - math.Ln2
		total = LogAddExp(total, term)
	}
	return total
}
