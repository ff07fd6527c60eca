package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Archetype/internal/calibration"
	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate archetype vectors in a catalog file",
	Long:  "Simulates a random respondent population against the catalog and writes calibrated archetype scores so that matches spread evenly across archetypes.",
	RunE:  runCalibrate,
}

var (
	calibrateCatalog    string
	calibrateOutput     string
	calibrateSamples    int
	calibrateIterations int
	calibrateRate       float64
	calibrateReg        float64
	calibrateWorkers    int
	calibrateSeed       uint64
)

func init() {
	d := calibration.DefaultTunables()
	calibrateCmd.Flags().StringVarP(&calibrateCatalog, "catalog", "c", "", "Path to input catalog JSON or YAML file (required)")
	calibrateCmd.Flags().StringVarP(&calibrateOutput, "out", "o", "", "Path to output catalog file (defaults to overwriting --catalog)")
	calibrateCmd.Flags().IntVar(&calibrateSamples, "samples", d.SampleCount, "Simulated respondents")
	calibrateCmd.Flags().IntVar(&calibrateIterations, "iterations", d.Iterations, "Optimization iterations")
	calibrateCmd.Flags().Float64Var(&calibrateRate, "learning-rate", d.LearningRate, "Step size for each adjustment")
	calibrateCmd.Flags().Float64Var(&calibrateReg, "regularization", d.RegularizationWeight, "Pull toward the authored profile, 0-1")
	calibrateCmd.Flags().IntVar(&calibrateWorkers, "workers", d.Workers, "Parallel assignment workers")
	calibrateCmd.Flags().Uint64Var(&calibrateSeed, "seed", 0, "Random seed, 0 for a random run")
	mustRequire(calibrateCmd, "catalog")

	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, _ []string) error {
	cat, err := catalog.LoadFile(calibrateCatalog)
	if err != nil {
		return err
	}
	if err := cat.Validate(); err != nil {
		return err
	}
	if n := cat.AssignIDs(); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "assigned %d ids\n", n)
	}

	t := calibration.Tunables{
		SampleCount:          calibrateSamples,
		Iterations:           calibrateIterations,
		LearningRate:         calibrateRate,
		RegularizationWeight: calibrateReg,
		Workers:              calibrateWorkers,
	}
	logger := cliLogger(cmd)
	opt, err := calibration.NewOptimizer(t, seededRand(calibrateSeed), logger)
	if err != nil {
		return err
	}
	opt.OnIteration(func(s calibration.IterationStats) {
		logger.Debug("iteration", "n", s.Iteration, "counts", s.Counts)
	})

	report := opt.Calibrate(cat)
	if report.Skipped {
		return fmt.Errorf("catalog %s needs axes, questions and archetypes before it can be calibrated", calibrateCatalog)
	}

	out := calibrateOutput
	if out == "" {
		out = calibrateCatalog
	}
	if err := catalog.WriteFile(out, cat); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report)
	return nil
}

func seededRand(seed uint64) scoring.Rand {
	if seed == 0 {
		return nil
	}
	return scoring.NewRand(seed)
}
