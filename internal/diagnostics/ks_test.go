package diagnostics

import (
	"math/rand"
	"testing"
)

func TestKSTestUniformIndicesHaveSmallStatistic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nlive := 50
	indices := make([]int, 0, nlive*20)
	for i := 0; i < nlive*20; i++ {
		indices = append(indices, rng.Intn(nlive))
	}
	d, p := KSTest(indices, nlive)
	if p == nil {
		t.Fatal("expected a p-value for a full sample")
	}
	if d > 0.1 {
		t.Errorf("KS statistic for uniform indices too large: %v", d)
	}
	if *p < 0.01 {
		t.Errorf("uniform indices rejected uniformity at p=%v", *p)
	}
}

func TestKSTestDegenerateIndicesHaveLargeStatistic(t *testing.T) {
	nlive := 20
	indices := make([]int, nlive*5)
	for i := range indices {
		indices[i] = 0
	}
	d, p := KSTest(indices, nlive)
	if p == nil {
		t.Fatal("expected a p-value for a full sample")
	}
	if d < 0.5 {
		t.Errorf("KS statistic for all-zero indices too small: %v", d)
	}
	if *p > 0.01 {
		t.Errorf("all-zero indices not rejected, p=%v", *p)
	}
}

func TestKSTestReturnsNilPValueBelowNlive(t *testing.T) {
	_, p := KSTest([]int{0, 1, 2}, 50)
	if p != nil {
		t.Errorf("expected nil p-value for a short sample, got %v", *p)
	}
}

func TestRollingOracleWindowsOverMostRecentIndices(t *testing.T) {
	oracle := NewRollingOracle(10)
	for i := 0; i < 9; i++ {
		oracle.Record(0)
	}
	if _, p := oracle.RunRolling(); p != nil {
		t.Fatal("expected nil p-value before the window fills")
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		oracle.Record(rng.Intn(10))
	}
	d, p := oracle.RunRolling()
	if p == nil {
		t.Fatal("expected a p-value once the window is full")
	}
	_ = d
	if len(oracle.RollingP) != 1 {
		t.Fatalf("RollingP length = %d, want 1", len(oracle.RollingP))
	}
}

func TestFinalKSUsesFullHistory(t *testing.T) {
	oracle := NewRollingOracle(5)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		oracle.Record(rng.Intn(5))
	}
	d, p := oracle.FinalKS()
	if p == nil {
		t.Fatal("expected a p-value from FinalKS over a full history")
	}
	if d < 0 || d > 1 {
		t.Errorf("KS statistic out of range: %v", d)
	}
}
