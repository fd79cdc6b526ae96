package proposal

import (
	"math"
	"math/rand"
	"testing"
)

func trainingBatch(rng *rand.Rand, n, d int, mean float64) [][]float64 {
	x := make([][]float64, n)
	for i := range x {
		row := make([]float64, d)
		for j := range row {
			row[j] = mean + rng.NormFloat64()*0.1
		}
		x[i] = row
	}
	return x
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func TestGaussianFlowTrainRequiresSamples(t *testing.T) {
	f := NewGaussianFlow(2, rand.New(rand.NewSource(1)))
	if err := f.Train(nil, nil, "", false); err == nil {
		t.Fatal("expected an error training on zero samples")
	}
}

func TestGaussianFlowAccumulatesAddressableSnapshots(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f := NewGaussianFlow(2, rng)

	x1 := trainingBatch(rng, 200, 2, 0)
	if err := f.Train(x1, uniformWeights(len(x1)), "", false); err != nil {
		t.Fatalf("Train (level 0): %v", err)
	}
	x2 := trainingBatch(rng, 200, 2, 5)
	if err := f.Train(x2, uniformWeights(len(x2)), "", false); err != nil {
		t.Fatalf("Train (level 1): %v", err)
	}

	probe := [][]float64{{0, 0}, {5, 5}}
	lp0, err := f.LogProbIth(probe, 0)
	if err != nil {
		t.Fatalf("LogProbIth(0): %v", err)
	}
	lp1, err := f.LogProbIth(probe, 1)
	if err != nil {
		t.Fatalf("LogProbIth(1): %v", err)
	}

	if lp0[0] <= lp0[1] {
		t.Errorf("snapshot 0 (trained near origin) should favour probe[0]=(0,0) over probe[1]=(5,5): %v vs %v", lp0[0], lp0[1])
	}
	if lp1[1] <= lp1[0] {
		t.Errorf("snapshot 1 (trained near (5,5)) should favour probe[1]=(5,5) over probe[0]=(0,0): %v vs %v", lp1[1], lp1[0])
	}

	all, err := f.LogProbAll(probe, false)
	if err != nil {
		t.Fatalf("LogProbAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("LogProbAll returned %d snapshots, want 2", len(all))
	}

	allExcludeLast, err := f.LogProbAll(probe, true)
	if err != nil {
		t.Fatalf("LogProbAll(excludeLast): %v", err)
	}
	if len(allExcludeLast) != 1 {
		t.Fatalf("LogProbAll(excludeLast) returned %d snapshots, want 1", len(allExcludeLast))
	}
}

func TestGaussianFlowLogProbIthOutOfRange(t *testing.T) {
	f := NewGaussianFlow(2, rand.New(rand.NewSource(1)))
	if _, err := f.LogProbIth([][]float64{{0, 0}}, 0); err == nil {
		t.Fatal("expected an error indexing an untrained flow")
	}
}

func TestGaussianFlowResetDiscardsSnapshots(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f := NewGaussianFlow(2, rng)
	x := trainingBatch(rng, 50, 2, 0)
	if err := f.Train(x, uniformWeights(len(x)), "", false); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := f.ResetModelWeights(); err != nil {
		t.Fatalf("ResetModelWeights: %v", err)
	}
	if _, err := f.LogProbIth([][]float64{{0, 0}}, 0); err == nil {
		t.Fatal("expected an error after ResetModelWeights discarded all snapshots")
	}
}

func TestGaussianFlowSampleAndLogProbAgreesWithLogProbIth(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	f := NewGaussianFlow(2, rng)
	x := trainingBatch(rng, 300, 2, 1)
	if err := f.Train(x, uniformWeights(len(x)), "", false); err != nil {
		t.Fatalf("Train: %v", err)
	}
	xs, logQ, err := f.SampleAndLogProb(10)
	if err != nil {
		t.Fatalf("SampleAndLogProb: %v", err)
	}
	recomputed, err := f.LogProbIth(xs, 0)
	if err != nil {
		t.Fatalf("LogProbIth: %v", err)
	}
	for i := range logQ {
		if math.Abs(logQ[i]-recomputed[i]) > 1e-9 {
			t.Errorf("sample %d: SampleAndLogProb logQ=%v, recomputed via LogProbIth=%v", i, logQ[i], recomputed[i])
		}
	}
}
