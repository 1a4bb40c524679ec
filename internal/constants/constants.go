// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency between training and recognition.
package constants

// Face geometry constants
const (
	// FaceSize is the side length of every normalized face image fed to the classifier
	FaceSize = 100

	// BlurKernelSize is the side length of the Gaussian blur applied after equalization
	BlurKernelSize = 3
)

// Detector constants
const (
	// DetectScaleFactor is the image pyramid step between detector passes
	DetectScaleFactor = 1.1

	// DetectMinNeighbors is the minimum number of overlapping hits required to keep a detection
	DetectMinNeighbors = 3

	// DetectMinSize is the smallest face (in pixels) the detector reports
	DetectMinSize = 60
)

// Training constants
const (
	// DefaultTrainingQuota is the number of images per identity after balancing
	DefaultTrainingQuota = 100

	// MaxVariantsPerFace is the upper bound of synthesized variants per face, original included
	MaxVariantsPerFace = 4

	// MinVariantBrightness is the mean intensity a warped variant must exceed to be kept
	MinVariantBrightness = 20.0
)

// Recognition thresholds. Confidence is on a 0-100 scale, higher is better.
const (
	// DefaultRecognitionThreshold is the minimum confidence for a live recognition match
	DefaultRecognitionThreshold = 40.0

	// DefaultVerifyThreshold is the minimum confidence for identity verification
	DefaultVerifyThreshold = 50.0

	// DefaultSelfTestThreshold is the minimum confidence for an in-sample self-test hit
	DefaultSelfTestThreshold = 50.0

	// MaxConfidence is the upper end of the confidence scale
	MaxConfidence = 100.0
)

// Self-test constants
const (
	// SelfTestSampleSize is the number of training samples checked after fitting
	SelfTestSampleSize = 5

	// SelfTestMinCorrect is the number of correct predictions required to pass
	SelfTestMinCorrect = 3

	// HeldOutPerIdentity is the number of original photos checked per identity
	HeldOutPerIdentity = 3

	// HeldOutGoodAccuracy is the accuracy percentage below which suggestions are reported
	HeldOutGoodAccuracy = 60.0
)

// LBPH defaults
const (
	DefaultLBPHRadius    = 1
	DefaultLBPHNeighbors = 8
	DefaultLBPHGridX     = 6
	DefaultLBPHGridY     = 6

	// DefaultLBPHThreshold is the largest distance a prediction may have before it is rejected
	DefaultLBPHThreshold = 75.0
)

// Capture constants
const (
	// CaptureAreaFactor scales the face/frame area ratio into a capture confidence
	CaptureAreaFactor = 300
)
