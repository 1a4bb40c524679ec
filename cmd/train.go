package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-recognizer/internal/augment"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
	"github.com/kozaktomas/face-recognizer/internal/detect"
	"github.com/kozaktomas/face-recognizer/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the face recognizer from the dataset",
	Long: `Train a new model from the dataset directory and replace the stored one.

Every identity is balanced to --quota images, the first face of each image
is extracted and expanded with synthesized head turns and a mirror image.
After fitting, a quick in-sample check runs, followed by a test on original
photos (skip it with --skip-test).

Examples:
  # Train with defaults from the environment
  face-recognizer train

  # Reproducible run without the confirmation prompt
  face-recognizer train --seed 42 --yes

  # JSON output for scripting
  face-recognizer train --yes --json`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("data", "", "Dataset directory (default from DATA_DIR)")
	trainCmd.Flags().String("model", "", "Model directory (default from MODEL_DIR)")
	trainCmd.Flags().Int("quota", 0, "Training images per identity (default from TRAINING_QUOTA)")
	trainCmd.Flags().Int64("seed", 0, "Random seed for balancing and shuffling (0 = random)")
	trainCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	trainCmd.Flags().Bool("skip-test", false, "Skip the test on original photos")
	trainCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// TrainResult is the JSON output of the train command
type TrainResult struct {
	Success    bool                      `json:"success"`
	RunID      string                    `json:"run_id"`
	Identities []training.IdentityReport `json:"identities"`
	Trained    int                       `json:"trained"`
	Samples    int                       `json:"samples"`
	SelfTest   training.InSampleReport   `json:"self_test"`
	HeldOut    *training.HeldOutReport   `json:"held_out,omitempty"`
	DurationMs int64                     `json:"duration_ms"`
}

// applyDatasetFlags overrides data and model directories from flags.
func applyDatasetFlags(cmd *cobra.Command, cfg *config.Config) {
	if dir := mustGetString(cmd, "data"); dir != "" {
		cfg.DataDir = dir
	}
	if dir := mustGetString(cmd, "model"); dir != "" {
		cfg.ModelDir = dir
	}
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyDatasetFlags(cmd, cfg)
	if quota := mustGetInt(cmd, "quota"); quota > 0 {
		cfg.Training.Quota = quota
	}
	if seed := mustGetInt64(cmd, "seed"); seed != 0 {
		cfg.Training.Seed = seed
	}
	skipConfirm := mustGetBool(cmd, "yes")
	skipTest := mustGetBool(cmd, "skip-test")
	jsonOutput := mustGetBool(cmd, "json")

	summary, err := dataset.Survey(cfg.DataDir)
	if err != nil {
		return err
	}
	if !jsonOutput {
		fmt.Printf("Dataset:     %s (%d identities, %d images)\n", cfg.DataDir, summary.Identities, summary.TotalImages)
		fmt.Printf("Model:       %s\n", cfg.ModelDir)
		fmt.Printf("Backends:    %s detector, %s classifier\n", cfg.Detector.Backend, cfg.Classifier)
		fmt.Printf("Quota:       %d images per identity\n", cfg.Training.Quota)
	}

	if !skipConfirm && !jsonOutput && !confirmAction("\nTrain a new model and replace the current one? [y/N]: ") {
		fmt.Println("Cancelled.")
		return nil
	}

	locator, trainer, err := newBackends(cfg)
	if err != nil {
		return err
	}
	defer locator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	selfTest := training.DefaultInSampleOptions()
	selfTest.Threshold = cfg.Thresholds.SelfTest

	var bar *progressbar.ProgressBar
	opts := training.Options{
		DataDir:     cfg.DataDir,
		ModelDir:    cfg.ModelDir,
		Quota:       cfg.Training.Quota,
		Seed:        cfg.Training.Seed,
		Params:      detect.ParamsFromConfig(cfg.Detector),
		Synthesizer: augment.Default(),
		SelfTest:    selfTest,
	}
	if !jsonOutput {
		opts.OnProgress = func(info training.ProgressInfo) {
			switch info.Phase {
			case training.PhaseCollecting:
				if bar == nil {
					bar = progressbar.NewOptions(info.Total,
						progressbar.OptionSetDescription("Collecting faces"),
						progressbar.OptionShowCount(),
						progressbar.OptionShowIts(),
						progressbar.OptionSetItsString("identities"),
						progressbar.OptionShowElapsedTimeOnFinish(),
						progressbar.OptionSetPredictTime(true),
						progressbar.OptionFullWidth(),
					)
				}
				bar.Set(info.Current)
			case training.PhaseFitting:
				fmt.Printf("\nFitting %s classifier on %d samples...\n", info.Message, info.Total)
			case training.PhaseSaving:
				fmt.Printf("Saving model to %s...\n", info.Message)
			}
		}
	}

	result, err := training.New(locator, trainer, opts).Run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, training.ErrNoIdentities):
			return fmt.Errorf("training failed: %w (add one folder per person to %s)", err, cfg.DataDir)
		case errors.Is(err, training.ErrNoSamples):
			return fmt.Errorf("training failed: %w (no faces were detected, nothing was saved)", err)
		}
		return fmt.Errorf("training failed: %w", err)
	}

	var heldOut *training.HeldOutReport
	if !skipTest {
		heldOut, err = training.HeldOutCheck(ctx, training.HeldOutOptions{
			DataDir:     cfg.DataDir,
			ModelDir:    cfg.ModelDir,
			Classifier:  trainer,
			Locator:     locator,
			Params:      opts.Params,
			PerIdentity: constants.HeldOutPerIdentity,
			Threshold:   cfg.Thresholds.Recognition,
			Seed:        cfg.Training.Seed,
		})
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		return outputJSON(TrainResult{
			Success:    true,
			RunID:      result.RunID,
			Identities: result.Identities,
			Trained:    result.Trained,
			Samples:    result.Samples,
			SelfTest:   result.SelfTest,
			HeldOut:    heldOut,
			DurationMs: result.Duration.Milliseconds(),
		})
	}

	printTrainingReport(result)
	printSelfTest(result.SelfTest)
	if heldOut != nil {
		printHeldOut(heldOut)
	}
	return nil
}

func printTrainingReport(result *training.Result) {
	fmt.Println("\nTraining complete!")
	fmt.Printf("  Run:        %s\n", result.RunID)
	fmt.Printf("  Identities: %d of %d trained\n", result.Trained, len(result.Identities))
	fmt.Printf("  Samples:    %d\n", result.Samples)
	fmt.Printf("  Duration:   %s\n", formatDuration(result.Duration))

	fmt.Println("\nPer identity:")
	for _, r := range result.Identities {
		if r.Skipped {
			fmt.Printf("  - %-24s skipped: %s\n", dataset.DisplayName(r.Name), r.Reason)
			continue
		}
		fmt.Printf("  - %-24s %3d originals, %3d faces, %4d samples", dataset.DisplayName(r.Name), r.Originals, r.FacesFound, r.Samples)
		if r.Misses > 0 {
			fmt.Printf(", %d without face", r.Misses)
		}
		if r.DetectorFailures > 0 {
			fmt.Printf(", %d detector errors", r.DetectorFailures)
		}
		if r.Unreadable > 0 {
			fmt.Printf(", %d unreadable", r.Unreadable)
		}
		fmt.Println()
	}
}

func printSelfTest(report training.InSampleReport) {
	fmt.Println("\nSelf-test on training samples:")
	for _, c := range report.Checks {
		mark := "✗"
		if c.Correct {
			mark = "✓"
		}
		fmt.Printf("  %s expected %s, got %s (%.1f%%)\n", mark, dataset.DisplayName(c.Identity), displayOrUnknown(c.Name), c.Confidence)
	}
	if report.Passed {
		fmt.Printf("  Passed: %d/%d correct\n", report.Correct, report.Total)
	} else {
		fmt.Printf("  Warning: only %d/%d correct, %d required\n", report.Correct, report.Total, report.Required)
	}
}

func printHeldOut(report *training.HeldOutReport) {
	fmt.Println("\nTest on original photos:")
	for _, c := range report.Checks {
		mark := "✗"
		if c.Correct {
			mark = "✓"
		}
		fmt.Printf("  %s %s (%s): %.1f%%\n", mark, dataset.DisplayName(c.Identity), c.File, c.Confidence)
	}
	if report.Misses > 0 {
		fmt.Printf("  %d photo(s) without a detected face\n", report.Misses)
	}
	if report.DetectorFailures > 0 {
		fmt.Printf("  %d photo(s) failed in the detector\n", report.DetectorFailures)
	}
	if report.Tested == 0 {
		fmt.Println("  No faces could be tested.")
		return
	}
	fmt.Printf("  Accuracy: %.1f%% (%d/%d)\n", report.Accuracy, report.Correct, report.Tested)

	if len(report.Suggestions) > 0 {
		fmt.Println("\nSuggestions to improve accuracy:")
		for i, s := range report.Suggestions {
			fmt.Printf("  %d. %s\n", i+1, s)
		}
	}
}

func displayOrUnknown(name string) string {
	if name == "" {
		return "no match"
	}
	return dataset.DisplayName(name)
}
