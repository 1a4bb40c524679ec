//go:build opencv

package detect

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

func init() {
	register("opencv", NewHaar)
}

// HaarLocator runs an OpenCV Haar cascade (e.g. haarcascade_frontalface_default.xml).
type HaarLocator struct {
	mu         sync.Mutex // CascadeClassifier is not safe for concurrent use
	classifier gocv.CascadeClassifier
}

// NewHaar loads a Haar cascade XML file.
func NewHaar(path string) (Locator, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade file: %s", path)
	}
	return &HaarLocator{classifier: classifier}, nil
}

func (l *HaarLocator) Name() string {
	return "opencv"
}

func (l *HaarLocator) Locate(frame *image.Gray, p Params) ([]image.Rectangle, error) {
	b := frame.Bounds()
	if b.Empty() {
		return nil, nil
	}

	pixels := frame.Pix
	if b.Min != (image.Point{}) || frame.Stride != b.Dx() {
		pixels = make([]uint8, b.Dx()*b.Dy())
		for y := range b.Dy() {
			copy(pixels[y*b.Dx():(y+1)*b.Dx()], frame.Pix[frame.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	}

	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, pixels)
	if err != nil {
		return nil, fmt.Errorf("failed to create mat: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty mat")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	faces := l.classifier.DetectMultiScaleWithParams(
		mat,
		p.ScaleFactor,
		p.MinNeighbors,
		0,
		image.Pt(p.MinSize, p.MinSize),
		image.Pt(0, 0),
	)

	for i := range faces {
		faces[i] = faces[i].Add(b.Min)
	}
	return faces, nil
}

func (l *HaarLocator) Close() error {
	return l.classifier.Close()
}
