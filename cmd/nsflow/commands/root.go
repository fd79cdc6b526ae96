// Package commands wires the nsflow CLI together: a root command plus
// run/resume subcommands driving the classical and importance samplers.
package commands

import (
	"os"

	"nsflow/internal/config"
	"nsflow/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "nsflow",
	Short: "nsflow is a nested-sampling Bayesian-evidence engine",
	Long: `nsflow estimates Bayesian evidence and draws posterior samples using
classical nested sampling or an importance-sampling variant driven by a
meta-proposal of trained normalising flows.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			os.Setenv("VERBOSE", "true")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load configuration")
		}

		logging.Init(outputFlag)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("build_date", BuildDate).
			Msg("nsflow starting")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
}
