package recognition

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sort"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
	"github.com/kozaktomas/face-recognizer/internal/detect"
)

var (
	// ErrModelNotReady is returned when no model has been loaded.
	ErrModelNotReady = errors.New("model not ready, train it first")
	// ErrDetectorFailed wraps errors of the face detector itself.
	ErrDetectorFailed = errors.New("face detector failed")
)

// Result is the recognition outcome for one face.
type Result struct {
	Decision
	Label     int             `json:"label"`
	FaceFound bool            `json:"face_found"`
	Box       image.Rectangle `json:"-"`
}

// VerifyResult is the outcome of checking a face against a claimed identity.
type VerifyResult struct {
	Result
	Claimed  string `json:"claimed"`
	Verified bool   `json:"verified"`
}

// CaptureResult tells whether a photo is good enough to enroll.
type CaptureResult struct {
	FaceFound  bool            `json:"face_found"`
	Faces      int             `json:"faces"`
	Confidence int             `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// Options configure a Recognizer.
type Options struct {
	Params          detect.Params
	Threshold       float64
	VerifyThreshold float64
}

// DefaultOptions returns the live recognition settings.
func DefaultOptions() Options {
	return Options{
		Params:          detect.DefaultParams(),
		Threshold:       constants.DefaultRecognitionThreshold,
		VerifyThreshold: constants.DefaultVerifyThreshold,
	}
}

// Recognizer answers recognition requests against the model in a Holder.
// It is safe for concurrent use.
type Recognizer struct {
	holder  *Holder
	locator detect.Locator
	opts    Options
}

func NewRecognizer(holder *Holder, locator detect.Locator, opts Options) *Recognizer {
	return &Recognizer{
		holder:  holder,
		locator: locator,
		opts:    opts,
	}
}

// Holder returns the model holder the recognizer reads from.
func (r *Recognizer) Holder() *Holder {
	return r.holder
}

// Locator returns the face locator used for detection.
func (r *Recognizer) Locator() detect.Locator {
	return r.locator
}

// Options returns the thresholds and detector parameters in use.
func (r *Recognizer) Options() Options {
	return r.opts
}

// Recognize identifies the first detected face in img.
func (r *Recognizer) Recognize(img image.Image) (Result, error) {
	return r.recognize(img, r.opts.Threshold)
}

func (r *Recognizer) recognize(img image.Image, threshold float64) (Result, error) {
	art := r.holder.Get()
	if art == nil {
		return Result{}, ErrModelNotReady
	}

	ext, err := detect.ExtractFace(img, r.locator, r.opts.Params)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDetectorFailed, err)
	}
	if ext.Outcome != detect.OutcomeFace {
		return Result{}, nil
	}

	res := classify(art, ext.Face, threshold)
	res.Box = ext.Box
	return res, nil
}

// RecognizeAll identifies every detected face, best match first.
func (r *Recognizer) RecognizeAll(img image.Image) ([]Result, error) {
	art := r.holder.Get()
	if art == nil {
		return nil, ErrModelNotReady
	}

	faces, _, err := detect.ExtractAll(img, r.locator, r.opts.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorFailed, err)
	}

	results := make([]Result, 0, len(faces))
	for _, f := range faces {
		res := classify(art, f.Image, r.opts.Threshold)
		res.Box = f.Box
		results = append(results, res)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results, nil
}

// Verify checks whether img shows the claimed identity. Names are compared
// by DisplayKey, so "Jan_Novak" matches "jan novák".
func (r *Recognizer) Verify(img image.Image, claimed string) (VerifyResult, error) {
	res, err := r.recognize(img, r.opts.VerifyThreshold)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Result:   res,
		Claimed:  claimed,
		Verified: res.Matched && dataset.DisplayKey(res.Name) == dataset.DisplayKey(claimed),
	}, nil
}

// Capture reports whether img contains a face and how much of the frame
// it fills. It does not need a model.
func (r *Recognizer) Capture(img image.Image) (CaptureResult, error) {
	boxes, frame, err := detect.Find(img, r.locator, r.opts.Params)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %w", ErrDetectorFailed, err)
	}
	if len(boxes) == 0 {
		return CaptureResult{}, nil
	}

	detect.LargestFirst(boxes)
	box := boxes[0].Intersect(frame)
	return CaptureResult{
		FaceFound:  true,
		Faces:      len(boxes),
		Confidence: CaptureConfidence(box, frame),
		Box:        box,
	}, nil
}

// CaptureConfidence scores face size relative to the frame:
// min(100, int(faceArea/frameArea*300)).
func CaptureConfidence(face, frame image.Rectangle) int {
	frameArea := frame.Dx() * frame.Dy()
	if frameArea == 0 {
		return 0
	}
	c := int(float64(face.Dx()*face.Dy()) / float64(frameArea) * constants.CaptureAreaFactor)
	return min(100, c)
}

// classify predicts one normalized face. A failing prediction is logged
// and reported as no match with zero confidence.
func classify(art *artifact.Artifact, face *image.Gray, threshold float64) Result {
	pred, err := art.Model.Predict(face)
	if err != nil {
		log.Printf("Warning: prediction failed: %v", err)
		return Result{FaceFound: true, Label: -1}
	}

	return Result{
		Decision:  Decide(Score(pred.Distance), pred.Label, art.Labels, threshold),
		Label:     pred.Label,
		FaceFound: true,
	}
}
