// Package classifier fits and queries the face classifier. Implementations
// are selected by name; lower prediction distance means more similar.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/config"
)

// NoMatch is the label reported when no training sample is close enough.
const NoMatch = -1

var (
	// ErrEmptyTrainingSet is returned when Fit gets no samples.
	ErrEmptyTrainingSet = errors.New("no training samples")
	// ErrEmptyImage is returned when predicting on an image without pixels.
	ErrEmptyImage = errors.New("empty image")
)

// Prediction is the classifier's answer for one face.
type Prediction struct {
	Label    int
	Distance float64
}

// Model is a fitted classifier. It is read-only once fitted or loaded.
type Model interface {
	Predict(img *image.Gray) (Prediction, error)
	Save(path string) error
	Len() int // number of stored training samples
}

// Trainer fits new models and loads persisted ones.
type Trainer interface {
	Name() string
	FileName() string // model file name inside the artifact directory
	Fit(ctx context.Context, images []*image.Gray, labels []int) (Model, error)
	Load(path string) (Model, error)
}

// Params are the LBPH parameters.
type Params struct {
	Radius    int
	Neighbors int
	GridX     int
	GridY     int
	Threshold float64 // distances at or above this are rejected, 0 disables
}

// ParamsFromConfig maps configuration onto LBPH parameters.
func ParamsFromConfig(cfg config.LBPHConfig) Params {
	return Params{
		Radius:    cfg.Radius,
		Neighbors: cfg.Neighbors,
		GridX:     cfg.GridX,
		GridY:     cfg.GridY,
		Threshold: cfg.Threshold,
	}
}

func (p Params) validate() error {
	if p.Radius < 1 {
		return fmt.Errorf("invalid radius %d", p.Radius)
	}
	if p.Neighbors < 1 || p.Neighbors > 16 {
		return fmt.Errorf("invalid neighbors %d (1-16)", p.Neighbors)
	}
	if p.GridX < 1 || p.GridY < 1 {
		return fmt.Errorf("invalid grid %dx%d", p.GridX, p.GridY)
	}
	return nil
}

type factory func(p Params) (Trainer, error)

var backends = map[string]factory{}

func register(name string, f factory) {
	backends[name] = f
}

// Backends lists the compiled-in classifier backends.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the trainer for a backend name.
func New(name string, p Params) (Trainer, error) {
	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown classifier %q (available: %s)", name, strings.Join(Backends(), ", "))
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s parameters: %w", name, err)
	}
	return f(p)
}

func checkTrainingSet(images []*image.Gray, labels []int) error {
	if len(images) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(images) != len(labels) {
		return fmt.Errorf("got %d images but %d labels", len(images), len(labels))
	}
	for i, img := range images {
		if img == nil || img.Bounds().Empty() {
			return fmt.Errorf("training image %d: %w", i, ErrEmptyImage)
		}
	}
	return nil
}
