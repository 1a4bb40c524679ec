package artifact

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
)

func TestSaveLoad(t *testing.T) {
	trainer, art := newTestArtifact(t)
	dir := filepath.Join(t.TempDir(), "model")

	if err := Save(dir, trainer, art); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := Load(dir, trainer)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if !slices.Equal(loaded.Labels.Names(), []string{"alice", "bob"}) {
		t.Errorf("unexpected names %v", loaded.Labels.Names())
	}
	if loaded.Meta.RunID != "run-1" {
		t.Errorf("expected run id 'run-1', got '%s'", loaded.Meta.RunID)
	}
	if loaded.Meta.Classifier != "lbph" {
		t.Errorf("expected classifier 'lbph', got '%s'", loaded.Meta.Classifier)
	}
	if loaded.Meta.TrainedAt.IsZero() {
		t.Error("expected trained-at timestamp")
	}

	pred, err := loaded.Model.Predict(createStripes(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, ok := loaded.Labels.Lookup(pred.Label); !ok || name != "alice" {
		t.Errorf("expected alice, got %q", name)
	}
}

func TestSave_ReplacesPreviousArtifact(t *testing.T) {
	trainer, art := newTestArtifact(t)
	parent := t.TempDir()
	dir := filepath.Join(parent, "model")
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "stale.bin")
	if err := os.WriteFile(stale, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Save(dir, trainer, art); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected previous artifact contents to be removed")
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "model" {
		t.Errorf("expected only the model directory, got %v", entries)
	}
}

func TestLoad_Missing(t *testing.T) {
	trainer, art := newTestArtifact(t)

	tests := []struct {
		name   string
		remove string
	}{
		{"model file", trainer.FileName()},
		{"label map", LabelsFileName},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "model")
			if err := Save(dir, trainer, art); err != nil {
				t.Fatal(err)
			}
			if err := os.Remove(filepath.Join(dir, tc.remove)); err != nil {
				t.Fatal(err)
			}

			if _, err := Load(dir, trainer); !errors.Is(err, ErrArtifactMissing) {
				t.Errorf("expected ErrArtifactMissing, got %v", err)
			}
			if Exists(dir, trainer) {
				t.Error("expected Exists to be false")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nothing"), trainer); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing for missing directory, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	trainer, art := newTestArtifact(t)

	tests := []struct {
		name string
		file string
		data string
	}{
		{"label map not json", LabelsFileName, "{nope"},
		{"empty label map", LabelsFileName, `{"meta":{},"labels":[]}`},
		{"duplicate labels", LabelsFileName, `{"labels":[{"label":0,"name":"a"},{"label":0,"name":"b"}]}`},
		{"model garbage", "face_model.lbph", "garbage"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "model")
			if err := Save(dir, trainer, art); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, tc.file), []byte(tc.data), 0600); err != nil {
				t.Fatal(err)
			}

			if _, err := Load(dir, trainer); !errors.Is(err, ErrArtifactCorrupt) {
				t.Errorf("expected ErrArtifactCorrupt, got %v", err)
			}
		})
	}
}

func TestExists(t *testing.T) {
	trainer, art := newTestArtifact(t)
	dir := filepath.Join(t.TempDir(), "model")

	if Exists(dir, trainer) {
		t.Error("expected no artifact before saving")
	}
	if err := Save(dir, trainer, art); err != nil {
		t.Fatal(err)
	}
	if !Exists(dir, trainer) {
		t.Error("expected artifact after saving")
	}
}

func newTestArtifact(t *testing.T) (classifier.Trainer, *Artifact) {
	t.Helper()
	trainer, err := classifier.New("lbph", classifier.Params{Radius: 1, Neighbors: 8, GridX: 6, GridY: 6, Threshold: 75})
	if err != nil {
		t.Fatal(err)
	}

	model, err := trainer.Fit(context.Background(),
		[]*image.Gray{createStripes(true), createStripes(false)},
		[]int{0, 1},
	)
	if err != nil {
		t.Fatal(err)
	}

	labels := dataset.NewLabelMap([]dataset.Identity{
		{Name: "alice", Label: 0},
		{Name: "bob", Label: 1},
	})
	return trainer, &Artifact{
		Model:  model,
		Labels: labels,
		Meta:   Meta{RunID: "run-1", Identities: 2, Samples: 2},
	}
}

func createStripes(vertical bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := range 100 {
		for x := range 100 {
			pos := y
			if vertical {
				pos = x
			}
			v := uint8(40)
			if (pos/3)%2 == 1 {
				v = 200
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}
