package detect

import (
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
)

const (
	pigoShiftFactor  = 0.1
	pigoIoUThreshold = 0.2
)

func init() {
	register("pigo", NewPigoFromFile)
}

// PigoLocator is a pure Go cascade detector. It needs a pigo "facefinder"
// cascade file.
type PigoLocator struct {
	classifier *pigo.Pigo
}

// NewPigoFromFile loads a pigo cascade from disk.
func NewPigoFromFile(path string) (Locator, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	loc, err := NewPigo(data)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// NewPigo unpacks a pigo cascade.
func NewPigo(cascade []byte) (*PigoLocator, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &PigoLocator{classifier: classifier}, nil
}

func (l *PigoLocator) Name() string {
	return "pigo"
}

// Locate runs the cascade over the frame. MinNeighbors has no pigo
// equivalent; clustered detections are filtered by MinQuality instead and
// returned best first.
func (l *PigoLocator) Locate(frame *image.Gray, p Params) ([]image.Rectangle, error) {
	b := frame.Bounds()
	rows, cols := b.Dy(), b.Dx()
	if rows == 0 || cols == 0 {
		return nil, nil
	}

	pixels := frame.Pix
	if b.Min != (image.Point{}) || frame.Stride != cols {
		pixels = make([]uint8, rows*cols)
		for y := range rows {
			copy(pixels[y*cols:(y+1)*cols], frame.Pix[frame.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	}

	maxSize := max(rows, cols)
	if p.MinSize > maxSize {
		return nil, nil
	}

	cParams := pigo.CascadeParams{
		MinSize:     p.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: p.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := l.classifier.RunCascade(cParams, 0.0)
	dets = l.classifier.ClusterDetections(dets, pigoIoUThreshold)
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Q > dets[j].Q
	})

	var faces []image.Rectangle
	for _, det := range dets {
		if det.Q <= p.MinQuality {
			continue
		}
		x := b.Min.X + det.Col - det.Scale/2
		y := b.Min.Y + det.Row - det.Scale/2
		faces = append(faces, image.Rect(x, y, x+det.Scale, y+det.Scale))
	}
	return faces, nil
}

func (l *PigoLocator) Close() error {
	return nil
}
