package report

import (
	"path/filepath"
	"testing"

	"nsflow/internal/checkpoint"
	"nsflow/internal/classical"
	"nsflow/internal/evidence"
	"nsflow/internal/sample"
)

func TestClassicalRecorderAccumulatesHistory(t *testing.T) {
	r := NewClassicalRecorder()
	r.Snapshot(classical.Snapshot{Iteration: 1, LogZ: -5})
	r.Snapshot(classical.Snapshot{Iteration: 2, LogZ: -4})
	r.InsertionIndex(1, 10)
	r.InsertionIndex(2, 15)
	p := 0.5
	r.RollingKS(2, 0.1, &p)

	if len(r.Snapshots) != 2 {
		t.Fatalf("Snapshots length = %d, want 2", len(r.Snapshots))
	}
	if len(r.InsertionIdx) != 2 {
		t.Fatalf("InsertionIdx length = %d, want 2", len(r.InsertionIdx))
	}
	if len(r.RollingKSStat) != 1 || r.RollingKSStat[0] != 0.1 {
		t.Errorf("RollingKSStat = %v, want [0.1]", r.RollingKSStat)
	}
}

func TestImportanceRecorderAccumulatesHistory(t *testing.T) {
	r := NewImportanceRecorder()
	r.Level(0, 10, 12, -5, -3)
	r.Level(1, 8, 9, -4, -2)
	if len(r.Iteration) != 2 || len(r.LogZ) != 2 {
		t.Fatalf("expected 2 recorded levels, got iteration=%v logZ=%v", r.Iteration, r.LogZ)
	}
	if r.LogZ[1] != -2 {
		t.Errorf("LogZ[1] = %v, want -2", r.LogZ[1])
	}
}

type fakeCheckpointable struct {
	nested []sample.Sample
}

func (f *fakeCheckpointable) NestedSoFar() []sample.Sample { return f.nested }

func TestCheckpointingRecorderPersistsOnSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")

	state := evidence.New(10)
	state.Increment(-5)

	store := sample.NewStore(10)
	store.ReplaceAll([]sample.Sample{{LogL: -1}, {LogL: -2}})

	base := NewClassicalRecorder()
	rec := &CheckpointingRecorder{
		ClassicalRecorder: base,
		Path:              path,
		Seed:              7,
		Nlive:             10,
		State:             state,
		Store:             store,
	}
	rec.SetSampler(&fakeCheckpointable{nested: []sample.Sample{{LogL: -9}}})

	rec.Snapshot(classical.Snapshot{Iteration: 5, LogZ: -3})

	if len(base.Snapshots) != 1 {
		t.Fatalf("expected the wrapped ClassicalRecorder to also record the snapshot, got %d", len(base.Snapshots))
	}

	loaded, err := checkpoint.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a checkpoint file to have been written")
	}
	if loaded.Seed != 7 {
		t.Errorf("loaded.Seed = %d, want 7", loaded.Seed)
	}
	if len(loaded.LivePoints) != 2 {
		t.Errorf("loaded.LivePoints length = %d, want 2", len(loaded.LivePoints))
	}
	if len(loaded.NestedSamples) != 1 {
		t.Errorf("loaded.NestedSamples length = %d, want 1", len(loaded.NestedSamples))
	}
}

func TestCheckpointingRecorderNoOpBeforeSamplerAttached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	base := NewClassicalRecorder()
	rec := &CheckpointingRecorder{ClassicalRecorder: base, Path: path}
	rec.Snapshot(classical.Snapshot{Iteration: 1})

	loaded, err := checkpoint.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Error("expected no checkpoint file before SetSampler was called")
	}
}
