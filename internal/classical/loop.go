// Package classical implements the classical nested sampler (C6): a
// fixed-size live-point population repeatedly replacing its worst point
// with a fresh draw exceeding that point's likelihood.
package classical

import (
	"context"

	"github.com/rs/zerolog/log"

	"nsflow/internal/diagnostics"
	"nsflow/internal/evidence"
	"nsflow/internal/model"
	"nsflow/internal/proposal"
	"nsflow/internal/sample"
)

// Config holds the classical loop's stopping and snapshot parameters.
type Config struct {
	Nlive        int
	Tolerance    float64
	MaxIteration int
}

// Snapshot is one periodic state record, emitted every Nlive/10
// iterations (§4.6 step 3).
type Snapshot struct {
	Iteration      int
	LogLmin        float64
	LogLmax        float64
	LogZ           float64
	Condition      float64
	MeanAcceptance float64
}

// Recorder decouples history accumulation from the loop itself (spec.md
// §9: "mutable append-only history ... should live in an observer/
// recorder abstraction, not in the loop state").
type Recorder interface {
	Snapshot(Snapshot)
	InsertionIndex(iteration, index int)
	RollingKS(iteration int, d float64, p *float64)
}

// Result is the outcome of a completed run.
type Result struct {
	LogZ          float64
	Info          float64
	NestedSamples []sample.Sample
	Iterations    int
	FinalKSStat   float64
	FinalKSP      *float64
}

// Sampler orchestrates C1-C5 for the classical loop.
type Sampler struct {
	cfg     Config
	model   model.Model
	driver  *proposal.Driver
	store   *sample.Store
	state   *evidence.State
	oracle  *diagnostics.RollingOracle
	rec     Recorder

	nested []sample.Sample
	cost   int
}

// New constructs a classical sampler. The store must already be
// populated (via store.Populate) before Run is called, unless resuming
// from a checkpoint. initialNested seeds the retired-sample archive when
// resuming a run that had already retired points before it was
// interrupted; omit it for a fresh run.
func New(cfg Config, m model.Model, d *proposal.Driver, store *sample.Store, state *evidence.State, rec Recorder, initialNested ...[]sample.Sample) *Sampler {
	s := &Sampler{
		cfg:    cfg,
		model:  m,
		driver: d,
		store:  store,
		state:  state,
		oracle: diagnostics.NewRollingOracle(cfg.Nlive),
		rec:    rec,
	}
	if len(initialNested) > 0 {
		s.nested = append(s.nested, initialNested[0]...)
	}
	return s
}

// Run executes iterations until the stopping condition is met.
func (s *Sampler) Run(ctx context.Context, train func(resetWeights bool) error) (Result, error) {
	lastDrawRejected := false

	for {
		select {
		case <-ctx.Done():
			return s.finalise(), ctx.Err()
		default:
		}

		if err := s.driver.CheckState(s.state.Iteration, false, lastDrawRejected, train); err != nil {
			return s.finalise(), err
		}

		condition, rejected, err := s.consumeSample(ctx)
		lastDrawRejected = rejected
		if err != nil {
			return s.finalise(), err
		}

		s.updateState(condition)

		if condition <= s.cfg.Tolerance || s.state.Iteration >= s.cfg.MaxIteration {
			break
		}
	}

	return s.finalise(), nil
}

// consumeSample implements §4.6 step 2: pop the worst point, fold it into
// the integral, and draw a replacement.
func (s *Sampler) consumeSample(ctx context.Context) (condition float64, rejected bool, err error) {
	worst := s.store.Worst()
	logLmin := worst.LogL

	s.state.Increment(logLmin)
	s.nested = append(s.nested, worst)

	condition = evidence.LogAddExp(s.state.LogZ, s.driver.LogLmax()-float64(s.state.Iteration)/float64(s.cfg.Nlive)) - s.state.LogZ

	iterCost := 0
	for {
		select {
		case <-ctx.Done():
			return condition, rejected, ctx.Err()
		default:
		}

		cost, cand, drawErr := s.driver.Draw(logLmin)
		iterCost += cost

		if drawErr == nil {
			idx := s.store.Insert(cand)
			s.oracle.Record(idx)
			if s.rec != nil {
				s.rec.InsertionIndex(s.state.Iteration, idx)
			}
			log.Debug().
				Int("iteration", s.state.Iteration).
				Float64("logL", cand.LogL).
				Int("insertion_index", idx).
				Msg("accepted replacement live point")
			break
		}

		if proposal.IsAbandoned(drawErr) {
			rejected = true
			continue
		}

		return condition, rejected, drawErr
	}

	s.cost += iterCost
	return condition, rejected, nil
}

// updateState implements §4.6 step 3's periodic snapshotting and rolling
// diagnostics.
func (s *Sampler) updateState(condition float64) {
	snapInterval := max(s.cfg.Nlive/10, 1)
	if s.state.Iteration%snapInterval == 0 {
		snap := Snapshot{
			Iteration:      s.state.Iteration,
			LogLmin:        s.store.Worst().LogL,
			LogLmax:        s.driver.LogLmax(),
			LogZ:           s.state.LogZ,
			Condition:      condition,
			MeanAcceptance: s.driver.MeanAcceptance(),
		}
		if s.rec != nil {
			s.rec.Snapshot(snap)
		}
	}

	if s.state.Iteration%s.cfg.Nlive == 0 {
		d, p := s.oracle.RunRolling()
		if s.rec != nil {
			s.rec.RollingKS(s.state.Iteration, d, p)
		}
	}
}

// NestedSoFar returns a copy of the samples retired into the archive up
// to this point, for use by a Recorder that wants to checkpoint
// mid-run.
func (s *Sampler) NestedSoFar() []sample.Sample {
	return append([]sample.Sample(nil), s.nested...)
}

// finalise drains the remaining live points into the nested-sample
// archive with decreasing nlive, refines logZ, and runs a final KS test.
func (s *Sampler) finalise() Result {
	iterations := s.state.Iteration
	remaining := s.store.Len()
	for remaining > 0 {
		worst := s.store.RemoveBelow(1)[0]
		nliveOverride := remaining
		s.state.Increment(worst.LogL, nliveOverride)
		s.nested = append(s.nested, worst)
		remaining--
	}

	logZ := s.state.Finalise()
	d, p := s.oracle.FinalKS()

	finalInfo := 0.0
	if n := len(s.state.Info); n > 0 {
		finalInfo = s.state.Info[n-1]
	}

	return Result{
		LogZ:          logZ,
		Info:          finalInfo,
		NestedSamples: s.nested,
		Iterations:    iterations,
		FinalKSStat:   d,
		FinalKSP:      p,
	}
}
