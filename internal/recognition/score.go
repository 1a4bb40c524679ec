// Package recognition turns classifier output into accept/reject decisions
// and serves them against the currently loaded model.
package recognition

import (
	"math"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
)

// Score converts a classifier distance into a confidence in [0, 100]:
// 100 minus the distance, clamped. Negative distances score 100; NaN and
// very large distances score 0.
func Score(distance float64) float64 {
	switch {
	case math.IsNaN(distance):
		return 0
	case distance <= 0:
		return constants.MaxConfidence
	}
	return math.Max(0, constants.MaxConfidence-math.Min(distance, constants.MaxConfidence))
}

// Decision is the outcome of applying a threshold to a prediction.
type Decision struct {
	Name       string  `json:"name,omitempty"`
	Matched    bool    `json:"matched"`
	Confidence float64 `json:"confidence"`
}

// Decide accepts a prediction only when confidence is strictly above the
// threshold and the label exists in the label map.
func Decide(confidence float64, label int, labels dataset.LabelMap, threshold float64) Decision {
	d := Decision{Confidence: confidence}
	if confidence <= threshold {
		return d
	}
	name, ok := labels.Lookup(label)
	if !ok {
		return d
	}
	d.Name = name
	d.Matched = true
	return d
}
