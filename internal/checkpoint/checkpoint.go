// Package checkpoint persists and restores an in-progress sampler run.
// Snapshots are written atomically (temp file + rename) following the
// same pattern eventlog's cache files use.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/segmentio/encoding/json"

	"github.com/rs/zerolog/log"

	"nsflow/internal/evidence"
	"nsflow/internal/sample"
)

// Mode distinguishes which loop a snapshot belongs to.
type Mode string

const (
	ModeClassical  Mode = "classical"
	ModeImportance Mode = "importance"
)

// Snapshot is the complete serialisable state of a run in progress.
type Snapshot struct {
	Mode Mode   `json:"mode"`
	Seed int64  `json:"seed"`
	Nlive int   `json:"nlive"`

	// Classical-loop state.
	Evidence      *evidence.State `json:"evidence,omitempty"`
	LivePoints    []sample.Sample `json:"live_points,omitempty"`
	NestedSamples []sample.Sample `json:"nested_samples,omitempty"`
	TrainingCount int             `json:"training_count,omitempty"`
	Uninformed    bool            `json:"uninformed,omitempty"`
	LogLmax       float64         `json:"log_l_max,omitempty"`

	// Importance-loop state.
	Iteration      int     `json:"iteration,omitempty"`
	NDrawn         []int   `json:"n_drawn,omitempty"`
	NRequested     []int   `json:"n_requested,omitempty"`
	NInitial       int     `json:"n_initial,omitempty"`
	WeightsPath    string  `json:"weights_path,omitempty"`
	FinalLogZ      float64 `json:"final_log_z,omitempty"`
}

// Save writes the snapshot to path atomically: it encodes to path+".tmp"
// and renames over path only once the write has fully flushed, so a crash
// mid-write never leaves a truncated checkpoint at the expected name.
func Save(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("checkpoint: create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	if err := enc.Encode(snap); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: encode snapshot: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}

	log.Info().Str("path", path).Str("mode", string(snap.Mode)).Int("iteration", snap.Iteration).Msg("checkpoint saved")
	return nil
}

// Load reads a snapshot previously written by Save. A missing file is not
// an error; callers should treat it as "nothing to resume".
func Load(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: open: %w", err)
	}
	defer file.Close()

	var snap Snapshot
	dec := json.NewDecoder(file)
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}

	log.Info().Str("path", path).Str("mode", string(snap.Mode)).Int("iteration", snap.Iteration).Msg("checkpoint loaded")
	return &snap, nil
}
