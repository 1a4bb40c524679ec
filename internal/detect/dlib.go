//go:build dlib

package detect

import (
	"fmt"
	"image"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

func init() {
	register("dlib", NewDlib)
}

// DlibLocator uses dlib's HOG face detector through go-face. The path is the
// directory holding the dlib model files.
type DlibLocator struct {
	mu         sync.Mutex
	recognizer *face.Recognizer
}

// NewDlib opens the dlib models in modelsDir.
func NewDlib(modelsDir string) (Locator, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init dlib recognizer: %w", err)
	}
	return &DlibLocator{recognizer: rec}, nil
}

func (l *DlibLocator) Name() string {
	return "dlib"
}

// Locate ignores ScaleFactor and MinNeighbors; dlib boxes smaller than
// MinSize are dropped.
func (l *DlibLocator) Locate(frame *image.Gray, p Params) ([]image.Rectangle, error) {
	if frame.Bounds().Empty() {
		return nil, nil
	}

	data, err := imaging.EncodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	found, err := l.recognizer.Recognize(data)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to run dlib detector: %w", err)
	}

	var faces []image.Rectangle
	for _, f := range found {
		r := f.Rectangle.Add(frame.Bounds().Min)
		if r.Dx() < p.MinSize || r.Dy() < p.MinSize {
			continue
		}
		faces = append(faces, r)
	}
	return faces, nil
}

func (l *DlibLocator) Close() error {
	l.recognizer.Close()
	return nil
}
