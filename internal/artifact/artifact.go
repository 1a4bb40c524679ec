// Package artifact persists a fitted model together with its label map.
// The two files are written and loaded as one unit: a model is never used
// with a label map from a different training run.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
)

// LabelsFileName is the label map file inside the artifact directory.
const LabelsFileName = "labels.json"

const metadataVersion = 1

var (
	// ErrArtifactMissing means the model file or the label map is absent.
	ErrArtifactMissing = errors.New("model artifact not found")
	// ErrArtifactCorrupt means the artifact exists but cannot be decoded.
	ErrArtifactCorrupt = errors.New("model artifact is corrupt")
)

// Meta describes the training run that produced an artifact.
type Meta struct {
	RunID      string    `json:"run_id"`
	Classifier string    `json:"classifier"`
	ModelFile  string    `json:"model_file"`
	TrainedAt  time.Time `json:"trained_at"`
	Identities int       `json:"identities"`
	Samples    int       `json:"samples"`
	Version    int       `json:"version"`
}

// Artifact is a loaded model and the label map it was trained with.
type Artifact struct {
	Model  classifier.Model
	Labels dataset.LabelMap
	Meta   Meta
}

type labelsFile struct {
	Meta   Meta             `json:"meta"`
	Labels dataset.LabelMap `json:"labels"`
}

// Save replaces the artifact in dir. Both files are written to a staging
// directory first, the old artifact is removed and the staging directory
// is renamed into place.
func Save(dir string, trainer classifier.Trainer, a *Artifact) error {
	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0750); err != nil {
		return fmt.Errorf("failed to create model parent directory: %w", err)
	}

	staging := filepath.Join(parent, "."+filepath.Base(dir)+"-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0750); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging) //nolint:errcheck // gone after a successful rename

	a.Meta.Classifier = trainer.Name()
	a.Meta.ModelFile = trainer.FileName()
	a.Meta.Version = metadataVersion
	if a.Meta.TrainedAt.IsZero() {
		a.Meta.TrainedAt = time.Now().UTC()
	}

	if err := a.Model.Save(filepath.Join(staging, trainer.FileName())); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	data, err := json.MarshalIndent(labelsFile{Meta: a.Meta, Labels: a.Labels}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal label map: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, LabelsFileName), data, 0600); err != nil {
		return fmt.Errorf("failed to write label map: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove previous model: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// Load reads the artifact in dir with the given trainer.
func Load(dir string, trainer classifier.Trainer) (*Artifact, error) {
	modelPath := filepath.Join(dir, trainer.FileName())
	if !fileExists(modelPath) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, modelPath)
	}

	meta, labels, err := ReadLabels(dir)
	if err != nil {
		return nil, err
	}
	if meta.Classifier != "" && meta.Classifier != trainer.Name() {
		return nil, fmt.Errorf("%w: trained with %s, loading with %s", ErrArtifactCorrupt, meta.Classifier, trainer.Name())
	}

	model, err := trainer.Load(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactCorrupt, err)
	}

	return &Artifact{Model: model, Labels: labels, Meta: meta}, nil
}

// ReadLabels reads only the label map and run metadata.
func ReadLabels(dir string) (Meta, dataset.LabelMap, error) {
	path := filepath.Join(dir, LabelsFileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if errors.Is(err, os.ErrNotExist) {
		return Meta{}, dataset.LabelMap{}, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if err != nil {
		return Meta{}, dataset.LabelMap{}, fmt.Errorf("failed to read label map: %w", err)
	}

	var lf labelsFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return Meta{}, dataset.LabelMap{}, fmt.Errorf("%w: %w", ErrArtifactCorrupt, err)
	}
	if lf.Labels.Len() == 0 {
		return Meta{}, dataset.LabelMap{}, fmt.Errorf("%w: empty label map", ErrArtifactCorrupt)
	}
	return lf.Meta, lf.Labels, nil
}

// Exists reports whether both artifact files are present.
func Exists(dir string, trainer classifier.Trainer) bool {
	return fileExists(filepath.Join(dir, trainer.FileName())) && fileExists(filepath.Join(dir, LabelsFileName))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
