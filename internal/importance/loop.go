package importance

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	"nsflow/internal/model"
	"nsflow/internal/sample"
)

// StoppingCriterion selects which of §4.7's exit conditions gates the
// loop.
type StoppingCriterion int

const (
	StopDZ StoppingCriterion = iota
	StopDeltaLogZ
	StopSMCDeltaLogZ
	StopKL
	StopEntropyAbsolute
	StopEntropyRelative
)

// Config holds the importance loop's tunables.
type Config struct {
	Nlive      int
	Method     RemovalMethod
	Bits       float64 // entropy-method bits, default 0.5
	Quantile   float64 // quantile-method quantile, default 1-1/e
	MinSamples int

	ReplaceAll bool // draw nlive new samples per level instead of n
	Leaky      bool // keep all drawn samples regardless of min_logL
	Beta       float64

	UpdateNestedSamples bool
	ReweightDraws       bool // experimental; off by default (§9)

	Stopping     StoppingCriterion
	Tolerance    float64
	MinIteration int
	MinDZ        float64
	MaxLevels    int
}

// Recorder decouples history accumulation from loop state (mirrors the
// classical loop's Recorder).
type Recorder interface {
	Level(iteration, removed, drawn int, minLogL, logZ float64)
}

// Result is the outcome of a completed importance run.
type Result struct {
	LogZ          float64
	NestedSamples []sample.Sample
	Levels        int
	ESS           float64
}

// Sampler orchestrates the importance loop.
type Sampler struct {
	cfg     Config
	model   model.Model
	reparam model.Reparam
	meta    *MetaProposal
	store   *sample.Store
	nested  []sample.Sample
	rec     Recorder

	iteration int
	logZPrev  float64
}

// New constructs an importance sampler. store must already hold Nlive
// points drawn from the prior (logG/logQ/logW populated against the
// prior-only meta-proposal) unless resuming from a checkpoint. meta.Flow
// is trained in place, one snapshot per level.
func New(cfg Config, m model.Model, re model.Reparam, meta *MetaProposal, store *sample.Store, rec Recorder) *Sampler {
	if cfg.Bits == 0 {
		cfg.Bits = 0.5
	}
	if cfg.Quantile == 0 {
		cfg.Quantile = 1 - 1/math.E
	}
	if cfg.MinDZ == 0 {
		cfg.MinDZ = 5.0
	}
	if cfg.ReweightDraws {
		meta.ReweightDraws = true
	}
	return &Sampler{
		cfg:      cfg,
		model:    m,
		reparam:  re,
		meta:     meta,
		store:    store,
		rec:      rec,
		logZPrev: math.Inf(-1),
	}
}

// Run advances levels until a configured stopping criterion is satisfied.
func (s *Sampler) Run(ctx context.Context) (Result, error) {
	for {
		select {
		case <-ctx.Done():
			return s.finalise(), ctx.Err()
		default:
		}

		if s.cfg.MaxLevels > 0 && s.iteration >= s.cfg.MaxLevels {
			break
		}

		criterion, err := s.advanceLevel(ctx)
		if err != nil {
			return s.finalise(), err
		}

		s.iteration++
		if criterion <= s.cfg.Tolerance &&
			s.iteration >= s.cfg.MinIteration &&
			math.Abs(s.currentLogZ()-s.logZPrev) <= s.cfg.MinDZ {
			break
		}
		s.logZPrev = s.currentLogZ()
	}
	return s.finalise(), nil
}

// advanceLevel implements §4.7 steps 1-9 and returns the chosen stopping
// criterion's value for this level.
func (s *Sampler) advanceLevel(ctx context.Context) (float64, error) {
	points := s.store.Points()
	n := chooseRemovalCount(points, s.cfg.Method, s.cfg.Bits, s.cfg.Quantile, s.cfg.MinSamples)

	var minLogL float64
	if n < len(points) {
		minLogL = points[n].LogL
	} else if len(points) > 0 {
		minLogL = points[len(points)-1].LogL
	}

	removed := s.store.RemoveBelow(n)
	s.nested = append(s.nested, removed...)

	xPrime, weights := s.buildTrainingSet()
	if err := s.meta.Flow.Train(xPrime, weights, "", false); err != nil {
		return 0, err
	}

	nDraw := n
	if s.cfg.ReplaceAll {
		nDraw = s.cfg.Nlive
	}

	drawn, nRequested, err := s.drawLevelSamples(nDraw, minLogL)
	if err != nil {
		return 0, err
	}
	s.meta.AddLevel(len(drawn), nRequested)

	if err := s.assignWeights(drawn, len(s.meta.NDrawn)-1); err != nil {
		return 0, err
	}
	for _, d := range drawn {
		s.store.InsertSorted(d)
	}

	if s.cfg.UpdateNestedSamples {
		if err := s.reweightNestedSamples(); err != nil {
			return 0, err
		}
	}

	if s.rec != nil {
		s.rec.Level(s.iteration, n, len(drawn), minLogL, s.currentLogZ())
	}

	log.Info().
		Int("level", s.iteration).
		Int("removed", n).
		Int("drawn", len(drawn)).
		Float64("min_logL", minLogL).
		Float64("logZ", s.currentLogZ()).
		Msg("advanced importance-sampler level")

	return s.stoppingValue(), nil
}

// buildTrainingSet assembles prime-space coordinates and weights
// (exp(logW), optionally tempered by exp(beta*logL)) from the current
// live points.
func (s *Sampler) buildTrainingSet() ([][]float64, []float64) {
	points := s.store.Points()
	u := make([][]float64, len(points))
	weights := make([]float64, len(points))
	for i, p := range points {
		u[i] = s.model.ToUnitHypercube(p.X)
		w := p.LogW
		if s.cfg.Beta != 0 {
			w += s.cfg.Beta * p.LogL
		}
		weights[i] = math.Exp(w)
	}
	prime, _ := s.reparam.ToPrime(u)
	return prime, weights
}

// drawLevelSamples draws nDraw samples from the just-trained snapshot,
// applying the leaky/non-leaky filter from §4.7 step 5.
func (s *Sampler) drawLevelSamples(nDraw int, minLogL float64) ([]sample.Sample, int, error) {
	var kept []sample.Sample
	requested := 0
	maxAttempts := nDraw * 20
	if maxAttempts < nDraw {
		maxAttempts = nDraw
	}

	for len(kept) < nDraw && requested < maxAttempts {
		batch := nDraw - len(kept)
		xPrime, _, err := s.meta.Flow.SampleAndLogProb(batch)
		if err != nil {
			return nil, requested, err
		}
		requested += len(xPrime)
		if len(xPrime) == 0 {
			break
		}

		uRows, _ := s.reparam.FromPrime(xPrime)
		xs := make([][]float64, len(uRows))
		for i, u := range uRows {
			xs[i] = s.model.FromUnitHypercube(u)
		}
		logLs := s.model.EvaluateLogLikelihood(xs)
		logPs := s.model.LogPrior(xs)

		for i := range xs {
			if math.IsInf(logPs[i], -1) {
				continue
			}
			if !s.cfg.Leaky && logLs[i] < minLogL {
				continue
			}
			kept = append(kept, sample.Sample{
				X:    xs[i],
				LogP: logPs[i],
				LogL: logLs[i],
				It:   s.iteration,
			})
		}
	}
	return kept, requested, nil
}

// assignWeights computes logG/logQ/logW for newly drawn samples under
// the now-enlarged meta-proposal (§4.7 step 6).
func (s *Sampler) assignWeights(drawn []sample.Sample, newestLevel int) error {
	if len(drawn) == 0 {
		return nil
	}
	u := make([][]float64, len(drawn))
	for i, d := range drawn {
		u[i] = s.model.ToUnitHypercube(d.X)
	}
	prime, logJ := s.reparam.ToPrime(u)

	logQ, err := s.meta.LogQ(prime, logJ)
	if err != nil {
		return err
	}
	logG, err := s.meta.Flow.LogProbIth(prime, newestLevel)
	if err != nil {
		return err
	}
	for i := range drawn {
		drawn[i].LogG = logG[i] + logJ[i]
		drawn[i].LogQ = logQ[i]
		drawn[i].LogW = -logQ[i]
	}
	return nil
}

// reweightNestedSamples recomputes logQ/logW for the full retired archive
// under the enlarged meta-proposal so older samples receive weights
// consistent with every flow trained so far (§4.7 step 7).
func (s *Sampler) reweightNestedSamples() error {
	if len(s.nested) == 0 {
		return nil
	}
	u := make([][]float64, len(s.nested))
	for i, n := range s.nested {
		u[i] = s.model.ToUnitHypercube(n.X)
	}
	prime, logJ := s.reparam.ToPrime(u)
	logQ, err := s.meta.LogQ(prime, logJ)
	if err != nil {
		return err
	}
	for i := range s.nested {
		s.nested[i].LogQ = logQ[i]
		s.nested[i].LogW = -logQ[i]
	}
	return nil
}

// currentLogZ computes the evidence from the full nested-sample archive:
// logZ = logsumexp_i(logL_i + logW_i), where logW_i = -logQ_unnorm(x_i) and
// logQ_unnorm is the meta-proposal's unnormalised mixture numerator
// (metaproposal.go's LogQ). Because logW already carries the 1/Q_unnorm
// factor and Q_unnorm's normalising total cancels against it, no further
// -log(total draws) term belongs here.
func (s *Sampler) currentLogZ() float64 {
	if len(s.nested) == 0 {
		return math.Inf(-1)
	}
	terms := make([]float64, len(s.nested))
	for i, n := range s.nested {
		terms[i] = n.LogL + n.LogW
	}
	return floats.LogSumExp(terms)
}

// stoppingValue computes the configured stopping criterion's current
// value.
func (s *Sampler) stoppingValue() float64 {
	switch s.cfg.Stopping {
	case StopDeltaLogZ:
		return math.Abs(s.currentLogZ() - s.logZPrev)
	case StopSMCDeltaLogZ:
		return math.Abs(s.logZWithLive() - s.logZPrev)
	case StopKL:
		return s.klToMetaProposal()
	case StopEntropyAbsolute, StopEntropyRelative:
		return s.entropyChange()
	default: // StopDZ
		return s.remainingEvidenceFraction()
	}
}

// remainingEvidenceFraction estimates dZ = Z_remaining/Z, the fraction of
// evidence still unaccounted for in the current live population, by
// comparing the archive-only evidence against the archive-plus-live
// evidence (§4.7's dZ stopping criterion).
func (s *Sampler) remainingEvidenceFraction() float64 {
	logZ := s.currentLogZ()
	if math.IsInf(logZ, -1) {
		return math.Inf(1)
	}
	return math.Exp(s.logZWithLive()-logZ) - 1
}

func (s *Sampler) logZWithLive() float64 {
	points := s.store.Points()
	all := append(append([]sample.Sample(nil), s.nested...), points...)
	if len(all) == 0 {
		return math.Inf(-1)
	}
	terms := make([]float64, len(all))
	for i, n := range all {
		terms[i] = n.LogL + n.LogW
	}
	return floats.LogSumExp(terms)
}

// klToMetaProposal estimates KL(posterior-proxy || meta-proposal) using
// the current nested-sample weights as the posterior proxy.
func (s *Sampler) klToMetaProposal() float64 {
	if len(s.nested) == 0 {
		return math.Inf(1)
	}
	logZ := s.currentLogZ()
	kl := 0.0
	for _, n := range s.nested {
		logPost := n.LogL + n.LogW - logZ
		p := math.Exp(logPost)
		if p <= 0 {
			continue
		}
		kl += p * (logPost - n.LogQ)
	}
	return math.Abs(kl)
}

// entropyChange returns the entropy of the live points' normalised weights
// p ∝ exp(logL + logW) at the current level. It is not differenced against
// the previous level, and StopEntropyAbsolute and StopEntropyRelative both
// use this same value.
func (s *Sampler) entropyChange() float64 {
	points := s.store.Points()
	if len(points) == 0 {
		return 0
	}
	logP := make([]float64, len(points))
	for i, p := range points {
		logP[i] = p.LogL + p.LogW
	}
	norm := floats.LogSumExp(logP)
	h := 0.0
	for _, lp := range logP {
		p := math.Exp(lp - norm)
		if p > 0 {
			h -= p * math.Log(p)
		}
	}
	return h
}

// ESS returns the effective sample size of the nested-sample archive
// under its current importance weights.
func (s *Sampler) ESS() float64 {
	if len(s.nested) == 0 {
		return 0
	}
	logWs := make([]float64, len(s.nested))
	for i, n := range s.nested {
		logWs[i] = n.LogL + n.LogW
	}
	logSum := floats.LogSumExp(logWs)
	logSumSq := make([]float64, len(logWs))
	for i, lw := range logWs {
		logSumSq[i] = 2 * lw
	}
	logSumOfSquares := floats.LogSumExp(logSumSq)
	return math.Exp(2*logSum - logSumOfSquares)
}

// finalise appends all remaining live points into the archive and
// computes the final evidence, matching §4.7's "On finalisation" step.
func (s *Sampler) finalise() Result {
	remaining := s.store.RemoveBelow(s.store.Len())
	s.nested = append(s.nested, remaining...)

	return Result{
		LogZ:          s.currentLogZ(),
		NestedSamples: s.nested,
		Levels:        s.iteration,
		ESS:           s.ESS(),
	}
}
