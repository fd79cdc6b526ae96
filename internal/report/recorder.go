// Package report implements the observer/recorder collaborators the
// sampler loops report their history through (C9), plus the diagnostic
// plots and persisted chain files built from that history.
package report

import (
	"github.com/rs/zerolog/log"

	"nsflow/internal/checkpoint"
	"nsflow/internal/classical"
	"nsflow/internal/evidence"
	"nsflow/internal/sample"
)

// ClassicalRecorder accumulates a classical run's snapshot history,
// insertion indices, and rolling KS statistics, decoupled from the loop
// itself.
type ClassicalRecorder struct {
	Snapshots       []classical.Snapshot
	InsertionIdx    []int
	RollingKSStat   []float64
	RollingKSP      []*float64
	RollingKSIter   []int
}

// NewClassicalRecorder returns an empty recorder.
func NewClassicalRecorder() *ClassicalRecorder {
	return &ClassicalRecorder{}
}

func (r *ClassicalRecorder) Snapshot(s classical.Snapshot) {
	r.Snapshots = append(r.Snapshots, s)
	log.Debug().
		Int("iteration", s.Iteration).
		Float64("log_z", s.LogZ).
		Float64("condition", s.Condition).
		Msg("recorded classical snapshot")
}

func (r *ClassicalRecorder) InsertionIndex(iteration, index int) {
	r.InsertionIdx = append(r.InsertionIdx, index)
}

func (r *ClassicalRecorder) RollingKS(iteration int, d float64, p *float64) {
	r.RollingKSIter = append(r.RollingKSIter, iteration)
	r.RollingKSStat = append(r.RollingKSStat, d)
	r.RollingKSP = append(r.RollingKSP, p)
	if p != nil && *p < 0.01 {
		log.Warn().
			Int("iteration", iteration).
			Float64("ks_stat", d).
			Float64("ks_p", *p).
			Msg("rolling insertion-index KS test rejected uniformity")
	}
}

// Checkpointable is the subset of classical.Sampler a CheckpointingRecorder
// needs to assemble a mid-run snapshot.
type Checkpointable interface {
	NestedSoFar() []sample.Sample
}

// CheckpointingRecorder wraps a ClassicalRecorder and additionally
// persists a resumable checkpoint.Snapshot every time the loop emits a
// periodic Snapshot (§4.6 step 3's cadence). The sampler must be attached
// via SetSampler once constructed, since the recorder is built before the
// sampler that owns it.
type CheckpointingRecorder struct {
	*ClassicalRecorder

	Path    string
	Seed    int64
	Nlive   int
	State   *evidence.State
	Store   *sample.Store
	Driver  interface {
		TrainingCount() int
		Uninformed() bool
		LogLmax() float64
	}
	sampler Checkpointable
}

// SetSampler attaches the sampler whose retired-sample archive is read at
// checkpoint time.
func (r *CheckpointingRecorder) SetSampler(s Checkpointable) { r.sampler = s }

func (r *CheckpointingRecorder) Snapshot(s classical.Snapshot) {
	r.ClassicalRecorder.Snapshot(s)

	if r.sampler == nil {
		return
	}
	snap := checkpoint.Snapshot{
		Mode:          checkpoint.ModeClassical,
		Seed:          r.Seed,
		Nlive:         r.Nlive,
		Evidence:      r.State,
		LivePoints:    r.Store.Points(),
		NestedSamples: r.sampler.NestedSoFar(),
	}
	if r.Driver != nil {
		snap.TrainingCount = r.Driver.TrainingCount()
		snap.Uninformed = r.Driver.Uninformed()
		snap.LogLmax = r.Driver.LogLmax()
	}
	if err := checkpoint.Save(r.Path, snap); err != nil {
		log.Warn().Err(err).Str("path", r.Path).Msg("failed to save periodic checkpoint")
	}
}

// ImportanceRecorder accumulates an importance run's per-level history.
type ImportanceRecorder struct {
	Iteration []int
	Removed   []int
	Drawn     []int
	MinLogL   []float64
	LogZ      []float64
}

// NewImportanceRecorder returns an empty recorder.
func NewImportanceRecorder() *ImportanceRecorder {
	return &ImportanceRecorder{}
}

func (r *ImportanceRecorder) Level(iteration, removed, drawn int, minLogL, logZ float64) {
	r.Iteration = append(r.Iteration, iteration)
	r.Removed = append(r.Removed, removed)
	r.Drawn = append(r.Drawn, drawn)
	r.MinLogL = append(r.MinLogL, minLogL)
	r.LogZ = append(r.LogZ, logZ)
	log.Debug().
		Int("level", iteration).
		Int("removed", removed).
		Int("drawn", drawn).
		Float64("log_z", logZ).
		Msg("recorded importance level")
}
