package commands

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"nsflow/internal/classical"
	"nsflow/internal/evidence"
	"nsflow/internal/importance"
	"nsflow/internal/model"
	"nsflow/internal/proposal"
	"nsflow/internal/report"
	"nsflow/internal/sample"
)

var (
	outputFlag        string
	nliveFlag         int
	toleranceFlag     float64
	seedFlag          int64
	nPoolFlag         int
	checkpointingFlag bool
	importanceFlag    bool
	reparamFlag       string
	maxIterationFlag  int
	demoFlag          string
	resumeFlag        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run a nested-sampling estimate of a demo scenario's evidence",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&outputFlag, "output", ".", "output directory for chains, checkpoints, and plots")
	runCmd.Flags().IntVar(&nliveFlag, "nlive", 1000, "live-point population size")
	runCmd.Flags().Float64Var(&toleranceFlag, "tolerance", 0.1, "stopping tolerance")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "random seed (0 selects the fixed seed 1)")
	runCmd.Flags().IntVar(&nPoolFlag, "n-pool", 1, "number of parallel likelihood-evaluation workers")
	runCmd.Flags().BoolVar(&checkpointingFlag, "checkpointing", true, "periodically persist resumable checkpoints")
	runCmd.Flags().BoolVar(&importanceFlag, "importance", false, "use the importance-sampling variant instead of classical nested sampling")
	runCmd.Flags().StringVar(&reparamFlag, "reparam", "logit", "reparametrisation for flow training: logit, gaussian_cdf, identity")
	runCmd.Flags().IntVar(&maxIterationFlag, "max-iteration", 0, "hard cap on iterations/levels, 0 means unbounded")
	runCmd.Flags().StringVar(&demoFlag, "demo", "shell", "demo likelihood: shell, flat, step, mixture")
}

func runRun(cmd *cobra.Command, args []string) error {
	if seedFlag == 0 {
		seedFlag = 1
	}
	rng := rand.New(rand.NewSource(seedFlag))

	m, names := buildDemoModel(demoFlag, rng, nPoolFlag)

	if importanceFlag {
		return runImportance(cmd.Context(), m, names, rng)
	}
	return runClassical(cmd.Context(), m, names, rng)
}

func buildDemoModel(demo string, rng *rand.Rand, workers int) (model.Model, []string) {
	names := []string{"x", "y"}
	var base *model.UnitCubeModel
	switch demo {
	case "flat":
		base = model.NewUnitCubeModel(names, model.FlatLogL, rng)
	case "step":
		base = model.NewUnitCubeModel(names, model.StepLogL, rng)
	case "mixture":
		return model.NewMixtureOfGaussiansModel(rng), names
	default:
		base = model.NewUnitCubeModel(names, model.GaussianShellLogL, rng)
	}
	if workers <= 1 {
		return base, names
	}
	return model.NewPooledModel(base, workers), names
}

func runClassical(ctx context.Context, m model.Model, names []string, rng *rand.Rand) error {
	re := model.NewReparam(reparamFlag)
	flow := proposal.NewGaussianFlow(len(names), rng)

	driverCfg := proposal.Config{
		Kind:                          proposal.KindFlow,
		AcceptanceThreshold:           0.01,
		UninformedAcceptanceThreshold: 0.5,
		MaximumUninformed:             nliveFlag,
		TrainingFrequency:             nliveFlag,
		Cooldown:                      nliveFlag / 10,
		Nlive:                         nliveFlag,
	}
	driver := proposal.NewDriver(driverCfg, m, flow, re, rng)

	store := sample.NewStore(nliveFlag)
	if err := store.Populate(func() (sample.Sample, error) {
		s := m.NewPoint()
		s.LogL = m.EvaluateLogLikelihood([][]float64{s.X})[0]
		return s, nil
	}); err != nil {
		return fmt.Errorf("populate live points: %w", err)
	}

	state := evidence.New(nliveFlag)

	var rec classical.Recorder
	base := report.NewClassicalRecorder()
	ckptRec := &report.CheckpointingRecorder{
		ClassicalRecorder: base,
		Path:              checkpointPath(),
		Seed:              seedFlag,
		Nlive:             nliveFlag,
		State:             state,
		Store:             store,
		Driver:            driver,
	}
	if checkpointingFlag {
		rec = ckptRec
	} else {
		rec = base
	}

	sampler := classical.New(classical.Config{
		Nlive:        nliveFlag,
		Tolerance:    toleranceFlag,
		MaxIteration: orUnbounded(maxIterationFlag),
	}, m, driver, store, state, rec)
	ckptRec.SetSampler(sampler)

	train := func(resetWeights bool) error {
		if resetWeights {
			if err := flow.ResetModelWeights(); err != nil {
				return err
			}
		}
		points := store.Points()
		u := make([][]float64, len(points))
		weights := make([]float64, len(points))
		for i, p := range points {
			u[i] = m.ToUnitHypercube(p.X)
			weights[i] = 1
		}
		prime, _ := re.ToPrime(u)
		return flow.Train(prime, weights, outputFlag, false)
	}

	result, err := sampler.Run(ctx, train)
	if err != nil {
		return fmt.Errorf("classical run: %w", err)
	}

	log.Info().
		Float64("log_z", result.LogZ).
		Float64("info", result.Info).
		Int("iterations", result.Iterations).
		Msg("classical run complete")

	if err := report.WriteChain(outputFlag, nliveFlag, names, result.NestedSamples); err != nil {
		return err
	}
	if err := report.WriteEvidenceSummary(outputFlag, nliveFlag, result.LogZ, result.Info); err != nil {
		return err
	}
	return report.PlotInsertionIndices(outputFlag+"/insertion_indices.png", base.InsertionIdx, nliveFlag)
}

func runImportance(ctx context.Context, m model.Model, names []string, rng *rand.Rand) error {
	re := model.NewReparam(reparamFlag)
	flow := proposal.NewGaussianFlow(len(names), rng)

	initialLogQ := math.Log(float64(nliveFlag))
	store := sample.NewStore(nliveFlag)
	if err := store.Populate(func() (sample.Sample, error) {
		s := m.NewPoint()
		s.LogL = m.EvaluateLogLikelihood([][]float64{s.X})[0]
		s.LogQ = initialLogQ
		s.LogW = -initialLogQ
		return s, nil
	}); err != nil {
		return fmt.Errorf("populate live points: %w", err)
	}

	meta := importance.NewMetaProposal(flow, nliveFlag)
	rec := report.NewImportanceRecorder()

	sampler := importance.New(importance.Config{
		Nlive:        nliveFlag,
		Method:       importance.RemovalEntropy,
		Stopping:     importance.StopDZ,
		Tolerance:    toleranceFlag,
		MinIteration: 1,
		MaxLevels:    maxIterationFlag,
	}, m, re, meta, store, rec)

	result, err := sampler.Run(ctx)
	if err != nil {
		return fmt.Errorf("importance run: %w", err)
	}

	log.Info().
		Float64("log_z", result.LogZ).
		Int("levels", result.Levels).
		Float64("ess", result.ESS).
		Msg("importance run complete")

	if err := report.WriteChain(outputFlag, nliveFlag, names, result.NestedSamples); err != nil {
		return err
	}
	return report.WriteEvidenceSummary(outputFlag, nliveFlag, result.LogZ, 0)
}

func orUnbounded(n int) int {
	if n <= 0 {
		return 1 << 30
	}
	return n
}

func checkpointPath() string {
	return outputFlag + "/checkpoint.json"
}
