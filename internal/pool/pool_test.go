package pool

import (
	"context"
	"testing"
)

func square(x []float64) float64 { return x[0] * x[0] }

func TestMapPreservesInputOrder(t *testing.T) {
	workers := make([]Evaluator, 4)
	for i := range workers {
		workers[i] = square
	}
	p := New(workers)

	x := make([][]float64, 100)
	for i := range x {
		x[i] = []float64{float64(i)}
	}

	out, err := p.Map(context.Background(), x)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i, v := range out {
		want := float64(i * i)
		if v != want {
			t.Errorf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestMapDegeneratesToSerialWithOneWorker(t *testing.T) {
	p := New([]Evaluator{square})
	out, err := p.Map(context.Background(), [][]float64{{2}, {3}, {4}})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := []float64{4, 9, 16}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestSizeReportsWorkerCount(t *testing.T) {
	p := New(make([]Evaluator, 6))
	if p.Size() != 6 {
		t.Errorf("Size() = %d, want 6", p.Size())
	}
}
