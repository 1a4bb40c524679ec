package training

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"path/filepath"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
	"github.com/kozaktomas/face-recognizer/internal/detect"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
)

// Suggestions printed when held-out accuracy is too low.
var lowAccuracySuggestions = []string{
	"Add more original images per person",
	"Ensure faces are clear and well-lit",
	"Retrain with current data",
}

// Check is one prediction made during a self-test.
type Check struct {
	Identity   string  `json:"identity"`
	Expected   int     `json:"expected"`
	Predicted  int     `json:"predicted"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
	Correct    bool    `json:"correct"`
	File       string  `json:"file,omitempty"`
}

// InSampleOptions configure the check run right after fitting.
type InSampleOptions struct {
	Size       int
	MinCorrect int // required out of Size, scaled down when fewer samples exist
	Threshold  float64
}

func DefaultInSampleOptions() InSampleOptions {
	return InSampleOptions{
		Size:       constants.SelfTestSampleSize,
		MinCorrect: constants.SelfTestMinCorrect,
		Threshold:  constants.DefaultSelfTestThreshold,
	}
}

// InSampleReport is the outcome of InSampleCheck.
type InSampleReport struct {
	Checks   []Check `json:"checks"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Required int     `json:"required"`
	Passed   bool    `json:"passed"`
}

// InSampleCheck predicts a random subset of the training samples with the
// freshly fitted model. It reuses training data, so it only catches a
// broken fit; HeldOutCheck measures accuracy.
func InSampleCheck(rng *rand.Rand, model classifier.Model, samples []Sample, labels dataset.LabelMap, opts InSampleOptions) InSampleReport {
	if opts.Size <= 0 {
		opts = DefaultInSampleOptions()
	}

	total := min(opts.Size, len(samples))
	report := InSampleReport{
		Total:    total,
		Required: (opts.MinCorrect*total + opts.Size - 1) / opts.Size,
	}

	for _, idx := range rng.Perm(len(samples))[:total] {
		s := samples[idx]
		name, _ := labels.Lookup(s.Label)
		check := Check{Identity: name, Expected: s.Label, Predicted: classifier.NoMatch}

		pred, err := model.Predict(s.Image)
		if err != nil {
			log.Printf("Warning: self-test prediction failed: %v", err)
		} else {
			conf := recognition.Score(pred.Distance)
			check.Predicted = pred.Label
			check.Name, _ = labels.Lookup(pred.Label)
			check.Confidence = conf
			check.Correct = pred.Label == s.Label && conf > opts.Threshold
		}

		if check.Correct {
			report.Correct++
		}
		report.Checks = append(report.Checks, check)
	}

	report.Passed = total > 0 && report.Correct >= report.Required
	return report
}

// HeldOutOptions configure HeldOutCheck.
type HeldOutOptions struct {
	DataDir     string
	ModelDir    string
	Classifier  classifier.Trainer
	Locator     detect.Locator
	Params      detect.Params
	PerIdentity int
	Threshold   float64
	Seed        int64
	OnProgress  func(ProgressInfo)
}

// HeldOutReport is the outcome of HeldOutCheck.
type HeldOutReport struct {
	RunID            string   `json:"run_id"`
	Checks           []Check  `json:"checks"`
	Tested           int      `json:"tested"`
	Correct          int      `json:"correct"`
	Misses           int      `json:"misses"`
	DetectorFailures int      `json:"detector_failures"`
	Unreadable       int      `json:"unreadable"`
	Accuracy         float64  `json:"accuracy"`
	Suggestions      []string `json:"suggestions,omitempty"`
}

// HeldOutCheck loads the persisted artifact and predicts up to PerIdentity
// original photos of every identity in its label map, through the same
// extraction path recognition uses. Photos without a detected face are
// reported but do not count toward accuracy.
func HeldOutCheck(ctx context.Context, opts HeldOutOptions) (*HeldOutReport, error) {
	art, err := artifact.Load(opts.ModelDir, opts.Classifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load model for testing: %w", err)
	}
	if opts.PerIdentity <= 0 {
		opts.PerIdentity = constants.HeldOutPerIdentity
	}

	rng := newRand(opts.Seed)
	report := &HeldOutReport{RunID: art.Meta.RunID}
	entries := art.Labels.Entries()

	for i, entry := range entries {
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{Phase: PhaseTesting, Current: i + 1, Total: len(entries), Identity: entry.Name})
		}

		files, err := dataset.ListImages(filepath.Join(opts.DataDir, entry.Name))
		if err != nil {
			log.Printf("Warning: %v", err)
			continue
		}

		for _, path := range dataset.Balance(rng, files, min(len(files), opts.PerIdentity)) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			heldOutOne(report, art, opts, entry, path)
		}
	}

	if report.Tested > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Tested) * 100
		if report.Accuracy < constants.HeldOutGoodAccuracy {
			report.Suggestions = lowAccuracySuggestions
		}
	}
	return report, nil
}

func heldOutOne(report *HeldOutReport, art *artifact.Artifact, opts HeldOutOptions, entry dataset.LabelEntry, path string) {
	img, err := imaging.Load(path)
	if err != nil {
		log.Printf("Warning: skipping unreadable image %s: %v", path, err)
		report.Unreadable++
		return
	}

	ext, err := detect.ExtractFace(img, opts.Locator, opts.Params)
	if err != nil {
		log.Printf("Warning: %s: %v", path, err)
		report.DetectorFailures++
		return
	}
	if ext.Outcome != detect.OutcomeFace {
		report.Misses++
		return
	}

	check := Check{
		Identity:  entry.Name,
		Expected:  entry.Label,
		Predicted: classifier.NoMatch,
		File:      filepath.Base(path),
	}
	pred, err := art.Model.Predict(ext.Face)
	if err != nil {
		log.Printf("Warning: prediction failed for %s: %v", path, err)
	} else {
		d := recognition.Decide(recognition.Score(pred.Distance), pred.Label, art.Labels, opts.Threshold)
		check.Predicted = pred.Label
		check.Name = d.Name
		check.Confidence = d.Confidence
		check.Correct = d.Matched && pred.Label == entry.Label
	}

	report.Tested++
	if check.Correct {
		report.Correct++
	}
	report.Checks = append(report.Checks, check)
}
