package evidence

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestLogAddExpMatchesNaiveSum(t *testing.T) {
	cases := [][2]float64{
		{0, 0},
		{1, 2},
		{-5, -5},
		{-1000, 1},
		{math.Inf(-1), 3},
		{3, math.Inf(-1)},
	}
	for _, c := range cases {
		got := LogAddExp(c[0], c[1])
		want := math.Log(math.Exp(c[0]) + math.Exp(c[1]))
		if math.IsInf(c[0], -1) {
			want = c[1]
		} else if math.IsInf(c[1], -1) {
			want = c[0]
		}
		if !almostEqual(got, want, 1e-9) {
			t.Errorf("LogAddExp(%v, %v) = %v, want %v", c[0], c[1], got, want)
		}
	}
}

func TestLog1mexpStableAcrossBranches(t *testing.T) {
	for _, x := range []float64{-1e-10, -0.5, -math.Ln2, -1, -50, -700} {
		got := log1mexp(x)
		want := math.Log(1 - math.Exp(x))
		if math.IsInf(want, 0) {
			continue
		}
		if !almostEqual(got, want, 1e-6) {
			t.Errorf("log1mexp(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestIncrementShrinksVolumeMonotonically(t *testing.T) {
	s := New(100)
	logLs := []float64{-10, -8, -6, -4, -2}
	for _, l := range logLs {
		s.Increment(l)
	}
	for i := 1; i < len(s.LogVols); i++ {
		if s.LogVols[i] >= s.LogVols[i-1] {
			t.Fatalf("log-volume not strictly decreasing at %d: %v >= %v", i, s.LogVols[i], s.LogVols[i-1])
		}
	}
	if s.Iteration != len(logLs) {
		t.Fatalf("iteration = %d, want %d", s.Iteration, len(logLs))
	}
	if len(s.LogLs) != len(s.LogVols) || len(s.LogLs) != len(s.Info) || len(s.LogLs) != len(s.Gradients) {
		t.Fatalf("parallel series length mismatch: logLs=%d logVols=%d info=%d gradients=%d",
			len(s.LogLs), len(s.LogVols), len(s.Info), len(s.Gradients))
	}
}

func TestFinaliseRefinesViaTrapezoidalRule(t *testing.T) {
	s := New(50)
	for _, l := range []float64{-20, -15, -10, -5, -1} {
		s.Increment(l)
	}
	beforeFinalise := s.LogZ
	refined := s.Finalise()
	if math.IsInf(refined, -1) || math.IsNaN(refined) {
		t.Fatalf("refined logZ is degenerate: %v", refined)
	}
	// the trapezoidal refinement over the same (logL, logVol) grid should
	// land close to the running estimate, not diverge wildly.
	if math.Abs(refined-beforeFinalise) > 5 {
		t.Errorf("refined logZ %v too far from running estimate %v", refined, beforeFinalise)
	}
}

func TestFinaliseWithSinglePointIsNegativeInfinity(t *testing.T) {
	s := New(10)
	if got := s.Finalise(); !math.IsInf(got, -1) {
		t.Errorf("Finalise on a freshly reset state = %v, want -Inf", got)
	}
}

func TestIncrementRespectsNliveOverride(t *testing.T) {
	s := New(100)
	s.Increment(-5)
	volAfterDefault := s.LogVols[len(s.LogVols)-1]

	s2 := New(100)
	s2.Increment(-5, 10)
	volAfterOverride := s2.LogVols[len(s2.LogVols)-1]

	if volAfterOverride >= volAfterDefault {
		t.Errorf("overriding nlive to a smaller population should shrink volume faster: override=%v default=%v",
			volAfterOverride, volAfterDefault)
	}
}
