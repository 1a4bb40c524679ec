package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/detect"
	"github.com/kozaktomas/face-recognizer/internal/training"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the stored model on original photos",
	Long: `Load the stored model and predict up to --per-identity original photos of
every identity, with the live recognition threshold. Photos without a
detected face are reported but not counted.

Examples:
  face-recognizer test
  face-recognizer test --per-identity 5 --json`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().String("data", "", "Dataset directory (default from DATA_DIR)")
	testCmd.Flags().String("model", "", "Model directory (default from MODEL_DIR)")
	testCmd.Flags().Int("per-identity", 3, "Original photos tested per identity")
	testCmd.Flags().Int64("seed", 0, "Random seed for picking photos (0 = random)")
	testCmd.Flags().Bool("json", false, "Output as JSON")
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyDatasetFlags(cmd, cfg)
	jsonOutput := mustGetBool(cmd, "json")

	locator, trainer, err := newBackends(cfg)
	if err != nil {
		return err
	}
	defer locator.Close()

	report, err := training.HeldOutCheck(context.Background(), training.HeldOutOptions{
		DataDir:     cfg.DataDir,
		ModelDir:    cfg.ModelDir,
		Classifier:  trainer,
		Locator:     locator,
		Params:      detect.ParamsFromConfig(cfg.Detector),
		PerIdentity: mustGetInt(cmd, "per-identity"),
		Threshold:   cfg.Thresholds.Recognition,
		Seed:        mustGetInt64(cmd, "seed"),
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(report)
	}
	fmt.Printf("Model run: %s\n", report.RunID)
	printHeldOut(report)
	return nil
}
