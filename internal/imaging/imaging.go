// Package imaging holds the pixel-level preprocessing shared by training and
// recognition. Every face handed to a classifier comes out of NormalizeFace.
package imaging

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-recognizer/internal/constants"
)

// ToGray returns a grayscale copy of img with its origin moved to (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// PrepareFrame converts a photo into the equalized grayscale frame the face
// detector runs on. Crops are later taken from this same frame.
func PrepareFrame(img image.Image) *image.Gray {
	return Equalize(ToGray(img))
}

// NormalizeFace turns a cropped face into classifier input: resize to
// FaceSize x FaceSize, equalize, then 3x3 Gaussian blur. The order is fixed.
func NormalizeFace(face image.Image) *image.Gray {
	gray := ToGray(face)
	resized := Resize(gray, constants.FaceSize, constants.FaceSize)
	return Blur3x3(Equalize(resized))
}

// Resize scales a grayscale image to width x height with bilinear sampling.
func Resize(src *image.Gray, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	if src.Bounds().Empty() {
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Crop copies the part of src inside rect. The rectangle is clamped to the
// image bounds; the result owns its pixels and starts at (0,0).
func Crop(src *image.Gray, rect image.Rectangle) *image.Gray {
	r := rect.Intersect(src.Bounds())
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := src.PixOffset(r.Min.X, r.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+r.Dx()], src.Pix[srcOff:srcOff+r.Dx()])
	}
	return dst
}

// Mirror returns the horizontal flip of src.
func Mirror(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		srcRow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		dstRow := dst.Pix[y*dst.Stride:]
		for x := range w {
			dstRow[w-1-x] = srcRow[x]
		}
	}
	return dst
}

// Mean returns the average intensity of a grayscale image, 0 for an empty one.
func Mean(img *image.Gray) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := range b.Dx() {
			sum += int(row[x])
		}
	}
	return float64(sum) / float64(n)
}
