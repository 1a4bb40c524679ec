// Package training builds a classifier from the identity-per-folder dataset:
// originals are balanced to a quota, faces are extracted and synthesized into
// extra views, the shuffled samples are fitted and persisted as one artifact.
package training

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/augment"
	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
	"github.com/kozaktomas/face-recognizer/internal/detect"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

var (
	// ErrNoIdentities is returned when the dataset has no identity folders.
	ErrNoIdentities = errors.New("no identities found in dataset")
	// ErrNoSamples is returned when no face was extracted from any identity.
	ErrNoSamples = errors.New("no training samples collected")
)

// Progress phases
const (
	PhaseCollecting = "collecting"
	PhaseFitting    = "fitting"
	PhaseSaving     = "saving"
	PhaseSelfTest   = "self_test"
	PhaseTesting    = "testing"
)

// ProgressInfo contains progress information for callbacks
type ProgressInfo struct {
	Phase    string
	Current  int
	Total    int
	Identity string
	Message  string
}

// Options configure a training run.
type Options struct {
	DataDir     string
	ModelDir    string
	Quota       int
	Seed        int64 // 0 picks a random seed
	Params      detect.Params
	Synthesizer *augment.Synthesizer
	SelfTest    InSampleOptions
	OnProgress  func(ProgressInfo) // Optional progress callback
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DataDir:     "dataset",
		ModelDir:    "model",
		Quota:       constants.DefaultTrainingQuota,
		Params:      detect.DefaultParams(),
		Synthesizer: augment.Default(),
		SelfTest:    DefaultInSampleOptions(),
	}
}

// Sample is one normalized face with the label it is trained as.
type Sample struct {
	Image *image.Gray
	Label int
}

// IdentityReport counts what happened to one identity during collection.
type IdentityReport struct {
	Name             string `json:"name"`
	Label            int    `json:"label"`
	Originals        int    `json:"originals"`
	Unreadable       int    `json:"unreadable"`
	Balanced         int    `json:"balanced"`
	FacesFound       int    `json:"faces_found"`
	Misses           int    `json:"misses"`
	DetectorFailures int    `json:"detector_failures"`
	Samples          int    `json:"samples"`
	Skipped          bool   `json:"skipped"`
	Reason           string `json:"reason,omitempty"`
}

// Result is the outcome of a successful training run.
type Result struct {
	RunID      string
	Identities []IdentityReport
	Trained    int // identities that contributed samples
	Samples    int
	Artifact   *artifact.Artifact
	SelfTest   InSampleReport
	Duration   time.Duration
}

// Trainer runs training with one locator and classifier backend.
type Trainer struct {
	locator    detect.Locator
	classifier classifier.Trainer
	opts       Options
	rng        *rand.Rand
}

func New(locator detect.Locator, clf classifier.Trainer, opts Options) *Trainer {
	if opts.Synthesizer == nil {
		opts.Synthesizer = augment.Default()
	}
	if opts.Quota <= 0 {
		opts.Quota = constants.DefaultTrainingQuota
	}
	return &Trainer{
		locator:    locator,
		classifier: clf,
		opts:       opts,
		rng:        newRand(opts.Seed),
	}
}

// Run trains a new model and replaces the artifact in ModelDir. Problems
// with single images or identities are counted in the report; only an empty
// dataset, a failed fit, a failed save or cancellation before saving end
// the run with an error, and nothing is persisted in that case.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	identities, err := dataset.Enumerate(t.opts.DataDir)
	if err != nil {
		return nil, err
	}
	if len(identities) == 0 {
		return nil, ErrNoIdentities
	}

	result := &Result{RunID: uuid.NewString()}
	var samples []Sample
	for i, id := range identities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.progress(ProgressInfo{Phase: PhaseCollecting, Current: i + 1, Total: len(identities), Identity: id.Name})

		collected, report, err := t.collect(ctx, id)
		if err != nil {
			return nil, err
		}
		if !report.Skipped {
			result.Trained++
		}
		result.Identities = append(result.Identities, report)
		samples = append(samples, collected...)
	}

	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	t.rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})

	images := make([]*image.Gray, len(samples))
	labels := make([]int, len(samples))
	for i, s := range samples {
		images[i] = s.Image
		labels[i] = s.Label
	}

	t.progress(ProgressInfo{Phase: PhaseFitting, Total: len(samples), Message: t.classifier.Name()})
	model, err := t.classifier.Fit(ctx, images, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	art := &artifact.Artifact{
		Model:  model,
		Labels: dataset.NewLabelMap(identities),
		Meta: artifact.Meta{
			RunID:      result.RunID,
			Identities: result.Trained,
			Samples:    len(samples),
		},
	}

	t.progress(ProgressInfo{Phase: PhaseSaving, Message: t.opts.ModelDir})
	if err := artifact.Save(t.opts.ModelDir, t.classifier, art); err != nil {
		return nil, err
	}

	t.progress(ProgressInfo{Phase: PhaseSelfTest})
	result.SelfTest = InSampleCheck(t.rng, model, samples, art.Labels, t.opts.SelfTest)

	result.Samples = len(samples)
	result.Artifact = art
	result.Duration = time.Since(start)
	return result, nil
}

type original struct {
	path string
	img  image.Image
}

// extraction caches the variants produced from one original. Balanced sets
// repeat originals, and every repeat yields the same faces.
type extraction struct {
	outcome  detect.Outcome
	variants []*image.Gray
}

// collect turns one identity into training samples. The only error it
// returns is a cancelled context.
func (t *Trainer) collect(ctx context.Context, id dataset.Identity) ([]Sample, IdentityReport, error) {
	report := IdentityReport{Name: id.Name, Label: id.Label, Originals: len(id.Files)}

	var originals []original
	for _, path := range id.Files {
		img, err := imaging.Load(path)
		if err != nil {
			log.Printf("Warning: skipping unreadable image %s: %v", path, err)
			report.Unreadable++
			continue
		}
		originals = append(originals, original{path: path, img: img})
	}
	if len(originals) == 0 {
		report.Skipped = true
		report.Reason = "no usable images"
		return nil, report, nil
	}

	picks := dataset.Balance(t.rng, indices(len(originals)), t.opts.Quota)
	report.Balanced = len(picks)

	cache := make(map[int]extraction, len(originals))
	var samples []Sample
	for _, idx := range picks {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		ext, ok := cache[idx]
		if !ok {
			ext = t.extract(originals[idx])
			cache[idx] = ext
		}

		switch ext.outcome {
		case detect.OutcomeFace:
			report.FacesFound++
			for _, v := range ext.variants {
				samples = append(samples, Sample{Image: v, Label: id.Label})
			}
		case detect.OutcomeNoFace:
			report.Misses++
		case detect.OutcomeFailed:
			report.DetectorFailures++
		}
	}

	report.Samples = len(samples)
	if report.Samples == 0 {
		report.Skipped = true
		report.Reason = "no faces detected"
	}
	return samples, report, nil
}

func (t *Trainer) extract(o original) extraction {
	ext, err := detect.ExtractFace(o.img, t.locator, t.opts.Params)
	if err != nil {
		log.Printf("Warning: %s: %v", o.path, err)
		return extraction{outcome: detect.OutcomeFailed}
	}
	if ext.Outcome != detect.OutcomeFace {
		return extraction{outcome: ext.Outcome}
	}
	return extraction{
		outcome:  detect.OutcomeFace,
		variants: t.opts.Synthesizer.Synthesize(ext.Face),
	}
}

func (t *Trainer) progress(info ProgressInfo) {
	if t.opts.OnProgress != nil {
		t.opts.OnProgress(info)
	}
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// newRand returns a seeded source, or a randomly seeded one for seed 0.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}
