package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-recognizer",
	Short: "Train and serve a face recognizer for a small enrolled group",
	Long: `Face Recognizer trains a face classifier from a folder of photos per
person and answers recognition and verification requests against it.

The dataset is one directory per identity:

  dataset/
    alice/  1.jpg 2.jpg ...
    bob/    1.png ...

Training balances every identity to the same number of images, adds
synthesized head turns and mirror images, fits the classifier and stores
it together with its label map.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
