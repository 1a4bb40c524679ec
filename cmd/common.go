package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/detect"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
)

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// newBackends opens the configured face locator and classifier trainer.
// The caller closes the locator.
func newBackends(cfg *config.Config) (detect.Locator, classifier.Trainer, error) {
	trainer, err := classifier.New(cfg.Classifier, classifier.ParamsFromConfig(cfg.LBPH))
	if err != nil {
		return nil, nil, err
	}
	locator, err := detect.New(cfg.Detector)
	if err != nil {
		return nil, nil, err
	}
	return locator, trainer, nil
}

// newRecognizer loads the artifact from the model directory into a fresh
// holder and wraps it with the configured thresholds.
func newRecognizer(cfg *config.Config, locator detect.Locator, trainer classifier.Trainer) (*recognition.Recognizer, error) {
	holder := recognition.NewHolder()
	if _, err := holder.Load(cfg.ModelDir, trainer); err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", cfg.ModelDir, err)
	}
	return recognition.NewRecognizer(holder, locator, recognitionOptions(cfg)), nil
}

func recognitionOptions(cfg *config.Config) recognition.Options {
	return recognition.Options{
		Params:          detect.ParamsFromConfig(cfg.Detector),
		Threshold:       cfg.Thresholds.Recognition,
		VerifyThreshold: cfg.Thresholds.Verify,
	}
}

func loadImageArg(path string) (image.Image, error) {
	img, err := imaging.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return img, nil
}
