package proposal

import (
	"errors"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"

	"nsflow/internal/model"
	"nsflow/internal/sample"
)

// ErrRetrainNeeded is returned by Draw when the flow's draw buffer is
// empty between attempts, signalling the outer loop to trigger
// retraining before trying again (§4.5 step 6).
var ErrRetrainNeeded = errors.New("proposal: flow pool empty, retraining needed")

// Config holds the driver's retraining policy thresholds (§4.5).
type Config struct {
	Kind Kind

	AcceptanceThreshold            float64
	UninformedAcceptanceThreshold  float64
	MaximumUninformed              int
	TrainingFrequency              int
	Cooldown                       int
	ResetWeights                   int
	Memory                         int
	TrainOnEmpty                   bool
	RetrainAcceptance              bool
	MaxCandidatesPerDraw           int
	AcceptanceWindow               int // defaults to nlive/10 when zero
	Nlive                          int
}

// Driver wraps a Flow (or an uninformed fallback) with the reject/accept
// loop and retraining policy shared by both sampler loops.
type Driver struct {
	cfg   Config
	model model.Model
	flow  Flow
	re    model.Reparam
	rng   *rand.Rand

	uninformed bool
	populated  bool

	logLmax float64

	window       []int // 1 = accepted cleanly, 0 = abandoned (max_count)
	windowCursor int

	blockAttempts  int
	blockAccepted  int
	maxCount       int
	iterations     int
	lastTrainIter  int
	trainingCount  int
	forceTrainSoon bool
	resumed        bool

	drawBuffer   [][]float64
	drawLogQ     []float64
	drawCursor   int
}

// NewDriver constructs a driver starting in uninformed mode.
func NewDriver(cfg Config, m model.Model, f Flow, re model.Reparam, rng *rand.Rand) *Driver {
	if cfg.AcceptanceWindow == 0 {
		cfg.AcceptanceWindow = max(cfg.Nlive/10, 1)
	}
	if cfg.MaxCandidatesPerDraw == 0 {
		cfg.MaxCandidatesPerDraw = 10000
	}
	return &Driver{
		cfg:        cfg,
		model:      m,
		flow:       f,
		re:         re,
		rng:        rng,
		uninformed: true,
		logLmax:    math.Inf(-1),
	}
}

// Resumed marks the driver as having just been restored from a
// checkpoint; the retraining policy skips its next scheduled training.
func (d *Driver) Resumed() { d.resumed = true }

// Populated reports whether the flow's current draw buffer has
// candidates available.
func (d *Driver) Populated() bool { return d.populated }

// MeanAcceptance returns the windowed mean acceptance rate over the last
// AcceptanceWindow draws.
func (d *Driver) MeanAcceptance() float64 {
	if len(d.window) == 0 {
		return 1
	}
	sum := 0
	for _, v := range d.window {
		sum += v
	}
	return float64(sum) / float64(len(d.window))
}

func (d *Driver) recordOutcome(accepted bool) {
	v := 0
	if accepted {
		v = 1
	}
	if len(d.window) < d.cfg.AcceptanceWindow {
		d.window = append(d.window, v)
	} else {
		d.window[d.windowCursor] = v
		d.windowCursor = (d.windowCursor + 1) % d.cfg.AcceptanceWindow
	}
}

// CheckState applies the retraining policy (§4.5) for the current
// iteration. lastDrawRejected reports whether the most recent Draw call
// fell back to a best-effort candidate. trainer performs the actual
// training given the policy's decision.
func (d *Driver) CheckState(iteration int, force bool, lastDrawRejected bool, trainer func(resetWeights bool) error) error {
	d.iterations = iteration

	if d.uninformed {
		if d.MeanAcceptance() < d.cfg.UninformedAcceptanceThreshold || iteration >= d.cfg.MaximumUninformed {
			d.uninformed = false
			log.Info().Int("iteration", iteration).Msg("switching proposal from uninformed to flow mode")
		} else {
			return nil
		}
	}

	shouldTrain := force

	blockAcc := 1.0
	if d.blockAttempts > 0 {
		blockAcc = float64(d.blockAccepted) / float64(d.blockAttempts)
	}

	withinCooldown := iteration-d.lastTrainIter < d.cfg.Cooldown

	if !shouldTrain && blockAcc < d.cfg.AcceptanceThreshold && withinCooldown && d.cfg.RetrainAcceptance {
		d.forceTrainSoon = true
	}
	if !shouldTrain && lastDrawRejected && blockAcc < d.cfg.AcceptanceThreshold {
		shouldTrain = true
	}
	if !shouldTrain && d.cfg.TrainingFrequency > 0 && iteration > 0 && iteration%d.cfg.TrainingFrequency == 0 {
		shouldTrain = true
	}
	if !shouldTrain && !d.populated && d.cfg.TrainOnEmpty {
		shouldTrain = true
	}

	if withinCooldown && !force {
		shouldTrain = false
	}

	if d.resumed {
		d.resumed = false
		return nil
	}

	if !shouldTrain {
		return nil
	}

	resetWeights := d.cfg.ResetWeights > 0 && d.trainingCount > 0 && d.trainingCount%d.cfg.ResetWeights == 0
	if err := trainer(resetWeights); err != nil {
		return err
	}

	d.blockAttempts = 0
	d.blockAccepted = 0
	d.lastTrainIter = iteration
	d.trainingCount++
	d.forceTrainSoon = false
	return nil
}

// Draw performs one accept/reject cycle, returning the number of
// candidate trials used and the accepted sample.
func (d *Driver) Draw(logLmin float64) (cost int, s sample.Sample, err error) {
	var best sample.Sample
	haveBest := false

	for counter := 1; counter <= d.cfg.MaxCandidatesPerDraw; counter++ {
		cand, ok, genErr := d.nextCandidate()
		if genErr != nil {
			return counter, sample.Sample{}, genErr
		}
		if !ok {
			// Flow pool exhausted between attempts (§4.5 step 6).
			return counter, sample.Sample{}, ErrRetrainNeeded
		}

		logP := d.model.LogPrior([][]float64{cand.X})[0]
		if math.IsInf(logP, -1) {
			continue
		}
		cand.LogP = logP

		if math.IsNaN(cand.LogL) {
			cand.LogL = d.model.EvaluateLogLikelihood([][]float64{cand.X})[0]
		}

		d.blockAttempts++
		if cand.LogL > logLmin {
			d.blockAccepted++
			if cand.LogL > d.logLmax {
				d.logLmax = cand.LogL
			}
			d.recordOutcome(true)
			return counter, cand, nil
		}

		best = cand
		haveBest = true

		rate := 1.0 / float64(counter)
		if rate < d.cfg.AcceptanceThreshold {
			d.maxCount++
			d.recordOutcome(false)
			if haveBest {
				return counter, best, errAbandoned
			}
			return counter, sample.Sample{}, errAbandoned
		}
	}

	d.maxCount++
	d.recordOutcome(false)
	if haveBest {
		return d.cfg.MaxCandidatesPerDraw, best, errAbandoned
	}
	return d.cfg.MaxCandidatesPerDraw, sample.Sample{}, errAbandoned
}

// errAbandoned signals a draw that fell back to the best-so-far
// candidate (or nothing) without crossing logLmin. Callers treat it as
// "try again", feeding lastDrawRejected=true into the next CheckState
// call.
var errAbandoned = errors.New("proposal: draw abandoned below acceptance threshold")

// IsAbandoned reports whether err is the abandoned-draw sentinel.
func IsAbandoned(err error) bool { return errors.Is(err, errAbandoned) }

func (d *Driver) nextCandidate() (sample.Sample, bool, error) {
	if d.uninformed {
		cand := d.model.NewPoint()
		cand.LogL = math.NaN()
		return cand, true, nil
	}

	if d.drawCursor >= len(d.drawBuffer) {
		xPrime, logQ, err := d.flow.SampleAndLogProb(max(d.cfg.Nlive, 100))
		if err != nil {
			return sample.Sample{}, false, err
		}
		if len(xPrime) == 0 {
			d.populated = false
			return sample.Sample{}, false, nil
		}
		d.drawBuffer = xPrime
		d.drawLogQ = logQ
		d.drawCursor = 0
		d.populated = true
	}

	prime := d.drawBuffer[d.drawCursor]
	d.drawCursor++
	if d.drawCursor >= len(d.drawBuffer) {
		d.populated = false
	}

	uRows, _ := d.re.FromPrime([][]float64{prime})
	x := d.model.FromUnitHypercube(uRows[0])

	return sample.Sample{X: x, It: -1, LogL: math.NaN()}, true, nil
}

// LogLmax returns the highest log-likelihood seen across all draws.
func (d *Driver) LogLmax() float64 { return d.logLmax }

// TrainingCount returns how many times the flow has been (re)trained.
func (d *Driver) TrainingCount() int { return d.trainingCount }

// Uninformed reports whether the driver is still in the uninformed
// sampling phase.
func (d *Driver) Uninformed() bool { return d.uninformed }

// MaxCount returns the running count of abandoned draws.
func (d *Driver) MaxCount() int { return d.maxCount }
