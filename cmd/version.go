package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/detect"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("face-recognizer %s\n", Version)
		fmt.Printf("  Commit:      %s\n", CommitSHA)
		fmt.Printf("  Built:       %s\n", BuildDate)
		fmt.Printf("  Detectors:   %s\n", strings.Join(detect.Backends(), ", "))
		fmt.Printf("  Classifiers: %s\n", strings.Join(classifier.Backends(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
