// Package augment synthesizes extra training views of a normalized face:
// two simulated head turns and a mirror image.
package augment

import (
	"image"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

// Turn returns the destination corners (top-left, top-right, bottom-left,
// bottom-right) for an image of the given size.
type Turn func(w, h float64) [4]Point

// LeftTurn pulls the left edge in, as if the head turned slightly left.
func LeftTurn(w, h float64) [4]Point {
	return [4]Point{{3, 3}, {w - 6, 0}, {3, h - 3}, {w - 6, h - 1}}
}

// RightTurn pulls the right edge in.
func RightTurn(w, h float64) [4]Point {
	return [4]Point{{0, 0}, {w - 3, 3}, {0, h - 1}, {w - 3, h - 6}}
}

// Synthesizer produces variants of a face.
type Synthesizer struct {
	Turns         []Turn
	MinBrightness float64 // warped variants at or below this mean are dropped
	MaxVariants   int
}

// Default returns the synthesizer used for training.
func Default() *Synthesizer {
	return &Synthesizer{
		Turns:         []Turn{LeftTurn, RightTurn},
		MinBrightness: constants.MinVariantBrightness,
		MaxVariants:   constants.MaxVariantsPerFace,
	}
}

// Synthesize returns [original, accepted turns..., mirror]. Turns are capped
// so the result fits MaxVariants; the original and the mirror are always
// kept. A turn whose transform cannot be computed is skipped.
func (s *Synthesizer) Synthesize(face *image.Gray) []*image.Gray {
	b := face.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	corners := [4]Point{{0, 0}, {w - 1, 0}, {0, h - 1}, {w - 1, h - 1}}

	maxTurns := len(s.Turns)
	if s.MaxVariants > 0 {
		maxTurns = min(maxTurns, max(s.MaxVariants-2, 0))
	}

	variants := []*image.Gray{imaging.Crop(face, b)}
	for _, turn := range s.Turns {
		if len(variants)-1 >= maxTurns {
			break
		}
		hm, err := PerspectiveTransform(corners, turn(w, h))
		if err != nil {
			continue
		}
		warped, err := WarpPerspective(face, hm)
		if err != nil {
			continue
		}
		if imaging.Mean(warped) > s.MinBrightness {
			variants = append(variants, warped)
		}
	}
	return append(variants, imaging.Mirror(face))
}
