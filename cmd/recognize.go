package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize the face in an image file",
	Long: `Recognize the first detected face in an image with the stored model.
Use --all to list every face, best match first.

Examples:
  face-recognizer recognize photo.jpg
  face-recognizer recognize group.jpg --all --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("model", "", "Model directory (default from MODEL_DIR)")
	recognizeCmd.Flags().Float64("threshold", 0, "Confidence threshold (default from RECOGNITION_THRESHOLD)")
	recognizeCmd.Flags().Bool("all", false, "Recognize every detected face")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if dir := mustGetString(cmd, "model"); dir != "" {
		cfg.ModelDir = dir
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Thresholds.Recognition = threshold
	}
	jsonOutput := mustGetBool(cmd, "json")

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

	var results []recognition.Result
	if mustGetBool(cmd, "all") {
		results, err = rec.RecognizeAll(img)
	} else {
		var res recognition.Result
		res, err = rec.Recognize(img)
		if res.FaceFound {
			results = append(results, res)
		}
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No face detected.")
		return nil
	}
	for _, res := range results {
		printResult(res)
	}
	return nil
}

func printResult(res recognition.Result) {
	box := res.Box
	if res.Matched {
		fmt.Printf("✓ %s (%.1f%%) at %dx%d+%d+%d\n", displayOrUnknown(res.Name), res.Confidence, box.Dx(), box.Dy(), box.Min.X, box.Min.Y)
		return
	}
	fmt.Printf("✗ unknown (%.1f%%) at %dx%d+%d+%d\n", res.Confidence, box.Dx(), box.Dy(), box.Min.X, box.Min.Y)
}
