package commands

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"nsflow/internal/checkpoint"
	"nsflow/internal/classical"
	"nsflow/internal/model"
	"nsflow/internal/proposal"
	"nsflow/internal/report"
	"nsflow/internal/sample"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "resume a classical run from a saved checkpoint",
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeFlag, "checkpoint", "", "path to a checkpoint file (defaults to <output>/checkpoint.json)")
	resumeCmd.Flags().StringVar(&outputFlag, "output", ".", "output directory for chains and plots")
	resumeCmd.Flags().Float64Var(&toleranceFlag, "tolerance", 0.1, "stopping tolerance")
	resumeCmd.Flags().IntVar(&maxIterationFlag, "max-iteration", 0, "hard cap on iterations, 0 means unbounded")
	resumeCmd.Flags().StringVar(&reparamFlag, "reparam", "logit", "reparametrisation used when the checkpointed run was started")
	resumeCmd.Flags().StringVar(&demoFlag, "demo", "shell", "demo likelihood the checkpointed run was started with")
}

func runResume(cmd *cobra.Command, args []string) error {
	path := resumeFlag
	if path == "" {
		path = checkpointPath()
	}

	snap, err := checkpoint.Load(path)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("no checkpoint found at %s", path)
	}
	if snap.Mode != checkpoint.ModeClassical {
		return fmt.Errorf("resume only supports classical checkpoints, got %q", snap.Mode)
	}

	rng := rand.New(rand.NewSource(snap.Seed))
	baseModel, names := buildDemoModel(demoFlag, rng, nPoolFlag)

	re := model.NewReparam(reparamFlag)
	flow := proposal.NewGaussianFlow(len(names), rng)

	store := sample.NewStore(snap.Nlive)
	store.ReplaceAll(snap.LivePoints)

	driverCfg := proposal.Config{
		Kind:                          proposal.KindFlow,
		AcceptanceThreshold:           0.01,
		UninformedAcceptanceThreshold: 0.5,
		MaximumUninformed:             snap.Nlive,
		TrainingFrequency:             snap.Nlive,
		Cooldown:                      snap.Nlive / 10,
		Nlive:                         snap.Nlive,
	}
	driver := proposal.NewDriver(driverCfg, baseModel, flow, re, rng)
	driver.Resumed()

	rec := report.NewClassicalRecorder()
	sampler := classical.New(classical.Config{
		Nlive:        snap.Nlive,
		Tolerance:    toleranceFlag,
		MaxIteration: orUnbounded(maxIterationFlag),
	}, baseModel, driver, store, snap.Evidence, rec, snap.NestedSamples)

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
			u[i] = baseModel.ToUnitHypercube(p.X)
			weights[i] = 1
		}
		prime, _ := re.ToPrime(u)
		return flow.Train(prime, weights, outputFlag, false)
	}

	result, err := sampler.Run(cmd.Context(), train)
	if err != nil {
		return fmt.Errorf("resumed classical run: %w", err)
	}

	log.Info().
		Float64("log_z", result.LogZ).
		Int("iterations", result.Iterations).
		Msg("resumed run complete")

	if err := report.WriteChain(outputFlag, snap.Nlive, names, result.NestedSamples); err != nil {
		return err
	}
	return report.WriteEvidenceSummary(outputFlag, snap.Nlive, result.LogZ, result.Info)
}
