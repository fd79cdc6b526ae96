package model

import (
	"math"
	"math/rand"
	"testing"
)

func TestUnitCubeModelNewPointIsInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewUnitCubeModel([]string{"x", "y"}, FlatLogL, rng)
	for i := 0; i < 50; i++ {
		s := m.NewPoint()
		if !m.InBounds([][]float64{s.X})[0] {
			t.Fatalf("NewPoint produced an out-of-bounds point: %v", s.X)
		}
		if s.It != -1 {
			t.Errorf("NewPoint should mark prior draws with It=-1, got %d", s.It)
		}
	}
}

func TestUnitCubeModelLogPriorFlagsOutOfBounds(t *testing.T) {
	m := NewUnitCubeModel([]string{"x"}, FlatLogL, rand.New(rand.NewSource(1)))
	logP := m.LogPrior([][]float64{{0.5}, {-0.1}, {1.1}})
	if logP[0] != 0 {
		t.Errorf("in-bounds point logP = %v, want 0", logP[0])
	}
	if !math.IsInf(logP[1], -1) || !math.IsInf(logP[2], -1) {
		t.Errorf("out-of-bounds points should have logP=-Inf, got %v, %v", logP[1], logP[2])
	}
}

func TestUnitCubeModelTracksEvaluationCount(t *testing.T) {
	m := NewUnitCubeModel([]string{"x"}, FlatLogL, rand.New(rand.NewSource(1)))
	m.EvaluateLogLikelihood([][]float64{{0.1}, {0.2}, {0.3}})
	if m.LikelihoodEvaluations() != 3 {
		t.Errorf("LikelihoodEvaluations() = %d, want 3", m.LikelihoodEvaluations())
	}
	m.EvaluateLogLikelihood([][]float64{{0.4}})
	if m.LikelihoodEvaluations() != 4 {
		t.Errorf("LikelihoodEvaluations() = %d after a second batch, want 4", m.LikelihoodEvaluations())
	}
}

func TestGaussianShellLogLPeaksOnTheShell(t *testing.T) {
	onShell := GaussianShellLogL([]float64{0.7, 0.5})
	offShell := GaussianShellLogL([]float64{0.5, 0.5})
	if onShell <= offShell {
		t.Errorf("shell likelihood at radius 0.2 (%v) should exceed the centre (%v)", onShell, offShell)
	}
}

func TestStepLogLIsBimodal(t *testing.T) {
	if got := StepLogL([]float64{0.6, 0.1}); got != 0 {
		t.Errorf("StepLogL above threshold = %v, want 0", got)
	}
	if got := StepLogL([]float64{0.4, 0.1}); !math.IsInf(got, -1) {
		t.Errorf("StepLogL below threshold = %v, want -Inf", got)
	}
}

func TestMixtureOfGaussiansPeaksAtEachCentre(t *testing.T) {
	m := NewMixtureOfGaussiansModel(rand.New(rand.NewSource(2)))
	offMode := m.EvaluateLogLikelihood([][]float64{{0.5, 0.5}})[0]
	for _, c := range m.Centres {
		atMode := m.EvaluateLogLikelihood([][]float64{c})[0]
		if atMode <= offMode {
			t.Errorf("mode centre %v logL=%v should exceed the off-mode point logL=%v", c, atMode, offMode)
		}
	}
}
