// Package detect finds face regions in photos and produces classifier-ready
// face crops. ExtractFace is the only path from a raw photo to a normalized
// face, shared by training, self-testing and recognition.
package detect

import (
	"fmt"
	"image"
	"sort"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

// Params are the detector settings. Training and recognition must use the same values.
type Params struct {
	ScaleFactor  float64 // pyramid step between passes
	MinNeighbors int     // overlapping hits required (Haar cascades)
	MinSize      int     // smallest face side in pixels
	MinQuality   float32 // detection score floor (pigo)
}

// DefaultParams returns the detector settings faces are trained with.
func DefaultParams() Params {
	return Params{
		ScaleFactor:  constants.DetectScaleFactor,
		MinNeighbors: constants.DetectMinNeighbors,
		MinSize:      constants.DetectMinSize,
		MinQuality:   5.0,
	}
}

// ParamsFromConfig builds detector settings from configuration.
func ParamsFromConfig(cfg config.DetectorConfig) Params {
	p := DefaultParams()
	if cfg.ScaleFactor > 1 {
		p.ScaleFactor = cfg.ScaleFactor
	}
	if cfg.MinNeighbors > 0 {
		p.MinNeighbors = cfg.MinNeighbors
	}
	if cfg.MinSize > 0 {
		p.MinSize = cfg.MinSize
	}
	return p
}

// Locator finds face bounding boxes in a prepared grayscale frame.
// An empty result with a nil error means no face was found; a non-nil
// error means the detector itself failed.
type Locator interface {
	Name() string
	Locate(frame *image.Gray, p Params) ([]image.Rectangle, error)
	Close() error
}

// Outcome classifies a single extraction attempt.
type Outcome int

const (
	OutcomeFace Outcome = iota
	OutcomeNoFace
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFace:
		return "face"
	case OutcomeNoFace:
		return "no_face"
	case OutcomeFailed:
		return "detector_failed"
	}
	return "unknown"
}

// Extraction is the result of ExtractFace.
type Extraction struct {
	Outcome Outcome
	Boxes   []image.Rectangle // every detected face, in detector order
	Box     image.Rectangle   // the face that was normalized
	Face    *image.Gray       // normalized face, nil unless Outcome is OutcomeFace
	Frame   image.Rectangle   // bounds of the analysed frame
}

// Face is one normalized face with its location.
type Face struct {
	Box   image.Rectangle
	Image *image.Gray
}

// ExtractFace prepares img, runs the locator and normalizes the first face.
// The returned error is non-nil only when the outcome is OutcomeFailed.
func ExtractFace(img image.Image, loc Locator, p Params) (Extraction, error) {
	frame := imaging.PrepareFrame(img)
	ext := Extraction{Frame: frame.Bounds()}

	boxes, err := locate(frame, loc, p)
	if err != nil {
		ext.Outcome = OutcomeFailed
		return ext, err
	}
	if len(boxes) == 0 {
		ext.Outcome = OutcomeNoFace
		return ext, nil
	}

	ext.Outcome = OutcomeFace
	ext.Boxes = boxes
	ext.Box = boxes[0]
	ext.Face = imaging.NormalizeFace(imaging.Crop(frame, boxes[0]))
	return ext, nil
}

// ExtractAll is ExtractFace for every detected face.
func ExtractAll(img image.Image, loc Locator, p Params) ([]Face, image.Rectangle, error) {
	frame := imaging.PrepareFrame(img)

	boxes, err := locate(frame, loc, p)
	if err != nil {
		return nil, frame.Bounds(), err
	}

	faces := make([]Face, 0, len(boxes))
	for _, box := range boxes {
		faces = append(faces, Face{
			Box:   box,
			Image: imaging.NormalizeFace(imaging.Crop(frame, box)),
		})
	}
	return faces, frame.Bounds(), nil
}

// Find only locates faces, on the same prepared frame ExtractFace uses.
func Find(img image.Image, loc Locator, p Params) ([]image.Rectangle, image.Rectangle, error) {
	frame := imaging.PrepareFrame(img)
	boxes, err := locate(frame, loc, p)
	return boxes, frame.Bounds(), err
}

// locate runs the detector and drops boxes that fall outside the frame.
func locate(frame *image.Gray, loc Locator, p Params) ([]image.Rectangle, error) {
	boxes, err := loc.Locate(frame, p)
	if err != nil {
		return nil, fmt.Errorf("%s detector failed: %w", loc.Name(), err)
	}

	valid := boxes[:0:0]
	for _, box := range boxes {
		if !box.Intersect(frame.Bounds()).Empty() {
			valid = append(valid, box)
		}
	}
	return valid, nil
}

// LargestFirst orders boxes by area, largest first, keeping detector order for ties.
func LargestFirst(boxes []image.Rectangle) {
	sort.SliceStable(boxes, func(i, j int) bool {
		return area(boxes[i]) > area(boxes[j])
	})
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
