package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset coverage and the stored model",
	Long: `Count photos per identity, rate how well each one is covered and show
which model is currently stored.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().String("data", "", "Dataset directory (default from DATA_DIR)")
	statusCmd.Flags().String("model", "", "Model directory (default from MODEL_DIR)")
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

// StatusResult is the JSON output of the status command
type StatusResult struct {
	Dataset *dataset.Summary `json:"dataset"`
	Model   *artifact.Meta   `json:"model,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyDatasetFlags(cmd, cfg)

	summary, err := dataset.Survey(cfg.DataDir)
	if err != nil {
		return err
	}

	var model *artifact.Meta
	if meta, _, err := artifact.ReadLabels(cfg.ModelDir); err == nil {
		model = &meta
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(StatusResult{Dataset: summary, Model: model})
	}

	fmt.Printf("Dataset: %s\n\n", cfg.DataDir)
	for _, s := range summary.Statuses {
		fmt.Printf("  %-28s %4d images  %s\n", dataset.DisplayName(s.Name), s.Images, s.Rating)
	}
	fmt.Printf("\n  Identities: %d\n", summary.Identities)
	fmt.Printf("  Images:     %d\n", summary.TotalImages)
	fmt.Printf("  Average:    %.1f per identity\n", summary.Average)

	fmt.Printf("\nModel: %s\n", cfg.ModelDir)
	if model == nil {
		fmt.Println("  Not trained yet.")
		return nil
	}
	fmt.Printf("  Run:        %s\n", model.RunID)
	fmt.Printf("  Classifier: %s\n", model.Classifier)
	fmt.Printf("  Trained at: %s\n", model.TrainedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Identities: %d (%d samples)\n", model.Identities, model.Samples)
	return nil
}
