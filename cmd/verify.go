package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-recognizer/internal/config"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image> <name>",
	Short: "Check that an image shows the claimed person",
	Long: `Verify an identity claim: the first face in the image must be recognized
as <name> above the verification threshold. Names are compared without
case, diacritics or separators, so "jan_novak" matches "Jan Novák".

The command exits with an error when the claim is rejected.

Example:
  face-recognizer verify door-camera.jpg jan_novak`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("model", "", "Model directory (default from MODEL_DIR)")
	verifyCmd.Flags().Float64("threshold", 0, "Confidence threshold (default from VERIFY_THRESHOLD)")
	verifyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if dir := mustGetString(cmd, "model"); dir != "" {
		cfg.ModelDir = dir
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Thresholds.Verify = threshold
	}

	img, err := loadImageArg(args[0])
	if err != nil {
		return err
	}

	locator, trainer, err := newBackends(cfg)
	if err != nil {
		return err
	}
	defer locator.Close()

	rec, err := newRecognizer(cfg, locator, trainer)
	if err != nil {
		return err
	}

	res, err := rec.Verify(img, args[1])
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		if err := outputJSON(res); err != nil {
			return err
		}
	} else {
		switch {
		case !res.FaceFound:
			fmt.Println("No face detected.")
		case res.Verified:
			fmt.Printf("✓ Verified as %s (%.1f%%)\n", displayOrUnknown(res.Name), res.Confidence)
		default:
			fmt.Printf("✗ Not %s: recognized %s (%.1f%%)\n", args[1], displayOrUnknown(res.Name), res.Confidence)
		}
	}

	if !res.Verified {
		return fmt.Errorf("verification of %q failed", args[1])
	}
	return nil
}
