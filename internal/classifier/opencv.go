//go:build opencv

package classifier

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

const (
	opencvName     = "opencv-lbph"
	opencvFileName = "face_model.yml"
)

func init() {
	register(opencvName, func(p Params) (Trainer, error) {
		return &OpenCVTrainer{params: p}, nil
	})
}

// OpenCVTrainer fits OpenCV's LBPH recognizer. The grid size is fixed by
// OpenCV (8x8); the other parameters are applied.
type OpenCVTrainer struct {
	params Params
}

func (t *OpenCVTrainer) Name() string     { return opencvName }
func (t *OpenCVTrainer) FileName() string { return opencvFileName }

func (t *OpenCVTrainer) newRecognizer() *contrib.LBPHFaceRecognizer {
	rec := contrib.NewLBPHFaceRecognizer()
	rec.SetRadius(t.params.Radius)
	rec.SetNeighbors(t.params.Neighbors)
	if t.params.Threshold > 0 {
		rec.SetThreshold(float32(t.params.Threshold))
	}
	return rec
}

func (t *OpenCVTrainer) Fit(ctx context.Context, images []*image.Gray, labels []int) (Model, error) {
	if err := checkTrainingSet(images, labels); err != nil {
		return nil, err
	}

	mats := make([]gocv.Mat, 0, len(images))
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := toMat(img)
		if err != nil {
			return nil, err
		}
		mats = append(mats, m)
	}

	rec := t.newRecognizer()
	rec.Train(mats, labels)
	return &OpenCVModel{rec: rec, samples: len(labels)}, nil
}

func (t *OpenCVTrainer) Load(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	if err := validateOpenCVModel(data); err != nil {
		return nil, err
	}
	rec := t.newRecognizer()
	rec.LoadFile(path)
	return &OpenCVModel{rec: rec}, nil
}

// OpenCVModel wraps a trained OpenCV recognizer.
type OpenCVModel struct {
	mu      sync.Mutex
	rec     *contrib.LBPHFaceRecognizer
	samples int
}

func (m *OpenCVModel) Len() int {
	return m.samples
}

func (m *OpenCVModel) Predict(img *image.Gray) (Prediction, error) {
	if img == nil || img.Bounds().Empty() {
		return Prediction{}, ErrEmptyImage
	}
	mat, err := toMat(img)
	if err != nil {
		return Prediction{}, err
	}
	defer mat.Close()

	m.mu.Lock()
	resp := m.rec.PredictExtendedResponse(mat)
	m.mu.Unlock()

	if resp.Label < 0 {
		return Prediction{Label: NoMatch, Distance: math.MaxFloat64}, nil
	}
	return Prediction{Label: int(resp.Label), Distance: float64(resp.Confidence)}, nil
}

func (m *OpenCVModel) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.SaveFile(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

func toMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	pixels := make([]byte, b.Dx()*b.Dy())
	for y := range b.Dy() {
		copy(pixels[y*b.Dx():(y+1)*b.Dx()], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, pixels)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create mat: %w", err)
	}
	return mat, nil
}
