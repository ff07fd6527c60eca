package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an answer set against a catalog file",
	Long:  "Normalizes a JSON object of question id to choice (yes, slightly_yes, slightly_no, no) and prints the per-axis scores and the matched archetype.",
	RunE:  runScore,
}

var (
	scoreCatalog string
	scoreAnswers string
	scorePolicy  string
	scoreSeed    uint64
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreCatalog, "catalog", "c", "", "Path to catalog JSON or YAML file (required)")
	scoreCmd.Flags().StringVarP(&scoreAnswers, "answers", "a", "", "Path to answers JSON file (required)")
	scoreCmd.Flags().StringVar(&scorePolicy, "policy", string(scoring.PolicyEuclidean), "Matching policy: euclidean or cosine")
	scoreCmd.Flags().Uint64Var(&scoreSeed, "seed", 0, "Tie-break seed, 0 for random")
	mustRequire(scoreCmd, "catalog", "answers")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	policy, err := scoring.ParsePolicy(scorePolicy)
	if err != nil {
		return err
	}
	cat, err := catalog.LoadFile(scoreCatalog)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(scoreAnswers)
	if err != nil {
		return fmt.Errorf("failed to read answers file %s: %w", scoreAnswers, err)
	}
	var answers map[string]string
	if err := json.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("failed to unmarshal answers JSON: %w", err)
	}

	scorer := scoring.NewScorer(scoring.NewMatcher(policy, seededRand(scoreSeed)), cliLogger(cmd))
	res, err := scorer.Score(cat, answers)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
