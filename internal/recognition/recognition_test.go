package recognition

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
	"github.com/kozaktomas/face-recognizer/internal/detect"
	"github.com/kozaktomas/face-recognizer/internal/detect/mock"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		expected float64
	}{
		{"exact match", 0, 100},
		{"close", 12.5, 87.5},
		{"boundary", 100, 0},
		{"far", 250, 0},
		{"max float", math.MaxFloat64, 0},
		{"infinity", math.Inf(1), 0},
		{"negative", -5, 100},
		{"nan", math.NaN(), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.distance)
			if got != tc.expected {
				t.Errorf("Score(%v) = %v, want %v", tc.distance, got, tc.expected)
			}
			if got < 0 || got > 100 {
				t.Errorf("score out of range: %v", got)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	labels := testLabels()

	tests := []struct {
		name       string
		confidence float64
		label      int
		threshold  float64
		matched    bool
		who        string
	}{
		{"above threshold", 80, 0, 40, true, "alice"},
		{"at threshold", 40, 0, 40, false, ""},
		{"just above", 40.01, 1, 40, true, "bob"},
		{"below threshold", 10, 1, 40, false, ""},
		{"unknown label", 95, 7, 40, false, ""},
		{"no match label", 95, classifier.NoMatch, 40, false, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.confidence, tc.label, labels, tc.threshold)
			if d.Matched != tc.matched || d.Name != tc.who {
				t.Errorf("expected matched=%v name=%q, got matched=%v name=%q", tc.matched, tc.who, d.Matched, d.Name)
			}
			if d.Confidence != tc.confidence {
				t.Errorf("expected confidence %v, got %v", tc.confidence, d.Confidence)
			}
		})
	}
}

func TestRecognize_ModelNotReady(t *testing.T) {
	r := NewRecognizer(NewHolder(), mock.NewMockLocator(), DefaultOptions())

	if _, err := r.Recognize(createFacePhoto(0)); !errors.Is(err, ErrModelNotReady) {
		t.Errorf("expected ErrModelNotReady, got %v", err)
	}
	if _, err := r.RecognizeAll(createFacePhoto(0)); !errors.Is(err, ErrModelNotReady) {
		t.Errorf("expected ErrModelNotReady, got %v", err)
	}
	if _, err := r.Verify(createFacePhoto(0), "alice"); !errors.Is(err, ErrModelNotReady) {
		t.Errorf("expected ErrModelNotReady, got %v", err)
	}
}

func TestRecognize_TrainedModel(t *testing.T) {
	loc := mock.NewMockLocator()
	r := NewRecognizer(newTrainedHolder(t, loc), loc, DefaultOptions())

	tests := []struct {
		name  string
		photo image.Image
		who   string
	}{
		{"alice", createFacePhoto(0), "alice"},
		{"bob", createFacePhoto(1), "bob"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := r.Recognize(tc.photo)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.FaceFound {
				t.Fatal("expected a face")
			}
			if !res.Matched || res.Name != tc.who {
				t.Errorf("expected %s, got %+v", tc.who, res)
			}
			if res.Confidence != 100 {
				t.Errorf("expected confidence 100 for a training photo, got %v", res.Confidence)
			}
		})
	}
}

func TestRecognize_NoFace(t *testing.T) {
	loc := mock.NewMockLocator()
	r := NewRecognizer(holderWith(&fakeModel{}), loc, DefaultOptions())

	res, err := r.Recognize(image.NewGray(image.Rect(0, 0, 80, 80)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FaceFound || res.Matched {
		t.Errorf("expected no face, got %+v", res)
	}
}

func TestRecognize_DetectorFailure(t *testing.T) {
	loc := mock.NewMockLocator()
	loc.LocateError = errors.New("cascade missing")
	r := NewRecognizer(holderWith(&fakeModel{}), loc, DefaultOptions())

	if _, err := r.Recognize(createFacePhoto(0)); !errors.Is(err, ErrDetectorFailed) {
		t.Errorf("expected ErrDetectorFailed, got %v", err)
	}
	if _, err := r.Capture(createFacePhoto(0)); !errors.Is(err, ErrDetectorFailed) {
		t.Errorf("expected ErrDetectorFailed from capture, got %v", err)
	}
}

func TestRecognize_PredictionFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("model exploded")}
	r := NewRecognizer(holderWith(model), mock.NewMockLocator(), DefaultOptions())

	res, err := r.Recognize(createFacePhoto(0))
	if err != nil {
		t.Fatalf("prediction failures must not surface as errors, got %v", err)
	}
	if !res.FaceFound || res.Matched || res.Confidence != 0 {
		t.Errorf("expected face found, no match and zero confidence, got %+v", res)
	}
}

func TestRecognize_Thresholds(t *testing.T) {
	tests := []struct {
		name         string
		distance     float64
		recognized   bool
		verification bool
	}{
		{"strong", 10, true, true},
		{"between thresholds", 55, true, false},
		{"weak", 70, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := &fakeModel{preds: []classifier.Prediction{{Label: 0, Distance: tc.distance}}}
			r := NewRecognizer(holderWith(model), mock.NewMockLocator(), DefaultOptions())

			res, err := r.Recognize(createFacePhoto(0))
			if err != nil {
				t.Fatal(err)
			}
			if res.Matched != tc.recognized {
				t.Errorf("expected recognized=%v, got %+v", tc.recognized, res)
			}

			v, err := r.Verify(createFacePhoto(0), "Alice")
			if err != nil {
				t.Fatal(err)
			}
			if v.Verified != tc.verification {
				t.Errorf("expected verified=%v, got %+v", tc.verification, v)
			}
		})
	}
}

func TestVerify_Names(t *testing.T) {
	model := &fakeModel{preds: []classifier.Prediction{{Label: 2, Distance: 5}}}
	r := NewRecognizer(holderWith(model), mock.NewMockLocator(), DefaultOptions())

	tests := []struct {
		claimed  string
		verified bool
	}{
		{"jan_novak", true},
		{"Jan Novák", true},
		{"jan-novak", true},
		{"alice", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.claimed, func(t *testing.T) {
			v, err := r.Verify(createFacePhoto(0), tc.claimed)
			if err != nil {
				t.Fatal(err)
			}
			if v.Verified != tc.verified {
				t.Errorf("expected verified=%v for %q, got %+v", tc.verified, tc.claimed, v)
			}
			if v.Claimed != tc.claimed {
				t.Errorf("expected claimed name to be echoed, got %q", v.Claimed)
			}
		})
	}
}

func TestRecognizeAll_BestFirst(t *testing.T) {
	loc := mock.NewMockLocator()
	loc.LocateFunc = func(frame *image.Gray) ([]image.Rectangle, error) {
		return []image.Rectangle{image.Rect(0, 0, 60, 60), image.Rect(60, 0, 120, 60), image.Rect(0, 60, 60, 120)}, nil
	}
	model := &fakeModel{preds: []classifier.Prediction{
		{Label: 0, Distance: 70},
		{Label: 1, Distance: 5},
		{Label: classifier.NoMatch, Distance: math.MaxFloat64},
	}}
	r := NewRecognizer(holderWith(model), loc, DefaultOptions())

	results, err := r.RecognizeAll(createFacePhoto(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Name != "bob" || results[0].Box != image.Rect(60, 0, 120, 60) {
		t.Errorf("expected bob first, got %+v", results[0])
	}
	if results[1].Confidence != 30 || results[1].Matched {
		t.Errorf("expected unmatched second face with confidence 30, got %+v", results[1])
	}
	if results[2].Confidence != 0 {
		t.Errorf("expected last face with confidence 0, got %+v", results[2])
	}
}

func TestCapture(t *testing.T) {
	tests := []struct {
		name       string
		boxes      []image.Rectangle
		found      bool
		confidence int
	}{
		{"no face", nil, false, 0},
		{"quarter of frame", []image.Rectangle{image.Rect(0, 0, 50, 50)}, true, 75},
		{"whole frame", []image.Rectangle{image.Rect(0, 0, 100, 100)}, true, 100},
		{"largest wins", []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(10, 10, 50, 50)}, true, 48},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loc := mock.NewMockLocator()
			loc.LocateFunc = func(frame *image.Gray) ([]image.Rectangle, error) {
				return tc.boxes, nil
			}
			r := NewRecognizer(NewHolder(), loc, DefaultOptions())

			res, err := r.Capture(image.NewGray(image.Rect(0, 0, 100, 100)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.FaceFound != tc.found || res.Confidence != tc.confidence {
				t.Errorf("expected found=%v confidence=%d, got %+v", tc.found, tc.confidence, res)
			}
			if res.Faces != len(tc.boxes) {
				t.Errorf("expected %d faces, got %d", len(tc.boxes), res.Faces)
			}
		})
	}
}

func TestCaptureConfidence(t *testing.T) {
	frame := image.Rect(0, 0, 200, 100)

	tests := []struct {
		face     image.Rectangle
		expected int
	}{
		{image.Rect(0, 0, 20, 20), 6},
		{image.Rect(0, 0, 100, 50), 75},
		{image.Rect(0, 0, 200, 100), 100},
		{image.Rectangle{}, 0},
	}

	for _, tc := range tests {
		if got := CaptureConfidence(tc.face, frame); got != tc.expected {
			t.Errorf("CaptureConfidence(%v) = %d, want %d", tc.face, got, tc.expected)
		}
	}
	if got := CaptureConfidence(image.Rect(0, 0, 5, 5), image.Rectangle{}); got != 0 {
		t.Errorf("expected 0 for empty frame, got %d", got)
	}
}

func TestHolder(t *testing.T) {
	h := NewHolder()
	if h.Ready() || h.Get() != nil {
		t.Fatal("expected empty holder")
	}

	first := &artifact.Artifact{Model: &fakeModel{}, Labels: testLabels()}
	if prev := h.Swap(first); prev != nil {
		t.Error("expected no previous artifact")
	}
	if !h.Ready() || h.Get() != first {
		t.Error("expected first artifact to be installed")
	}

	trainer, _ := classifier.New("lbph", classifier.Params{Radius: 1, Neighbors: 8, GridX: 6, GridY: 6})
	if _, err := h.Load(filepath.Join(t.TempDir(), "missing"), trainer); !errors.Is(err, artifact.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
	if h.Get() != first {
		t.Error("failed load must keep the current artifact")
	}
}

func TestHolder_LoadFromDisk(t *testing.T) {
	loc := mock.NewMockLocator()
	trained := newTrainedHolder(t, loc).Get()
	trainer, _ := classifier.New("lbph", classifier.Params{Radius: 1, Neighbors: 8, GridX: 6, GridY: 6, Threshold: 75})
	dir := filepath.Join(t.TempDir(), "model")
	if err := artifact.Save(dir, trainer, trained); err != nil {
		t.Fatal(err)
	}

	h := NewHolder()
	if _, err := h.Load(dir, trainer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := NewRecognizer(h, loc, DefaultOptions()).Recognize(createFacePhoto(1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "bob" {
		t.Errorf("expected bob, got %+v", res)
	}
}

// fakeModel returns canned predictions in order, cycling.
type fakeModel struct {
	mu    sync.Mutex
	preds []classifier.Prediction
	err   error
	calls int
}

func (m *fakeModel) Predict(img *image.Gray) (classifier.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return classifier.Prediction{}, m.err
	}
	if len(m.preds) == 0 {
		return classifier.Prediction{Label: classifier.NoMatch, Distance: math.MaxFloat64}, nil
	}
	p := m.preds[m.calls%len(m.preds)]
	m.calls++
	return p, nil
}

func (m *fakeModel) Save(path string) error { return nil }
func (m *fakeModel) Len() int               { return len(m.preds) }

func testLabels() dataset.LabelMap {
	return dataset.NewLabelMap([]dataset.Identity{
		{Name: "alice", Label: 0},
		{Name: "bob", Label: 1},
		{Name: "jan_novak", Label: 2},
	})
}

func holderWith(m classifier.Model) *Holder {
	h := NewHolder()
	h.Swap(&artifact.Artifact{Model: m, Labels: testLabels()})
	return h
}

// newTrainedHolder fits a real LBPH model on one photo per identity.
func newTrainedHolder(t *testing.T, loc detect.Locator) *Holder {
	t.Helper()
	trainer, err := classifier.New("lbph", classifier.Params{Radius: 1, Neighbors: 8, GridX: 6, GridY: 6, Threshold: 75})
	if err != nil {
		t.Fatal(err)
	}

	var faces []*image.Gray
	for i := range 2 {
		ext, err := detect.ExtractFace(createFacePhoto(i), loc, detect.DefaultParams())
		if err != nil || ext.Face == nil {
			t.Fatalf("failed to extract training face %d: %v", i, err)
		}
		faces = append(faces, ext.Face)
	}

	model, err := trainer.Fit(context.Background(), faces, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	return holderWith(model)
}

// createFacePhoto draws a distinct texture per identity: vertical stripes
// for 0, horizontal stripes for 1.
func createFacePhoto(identity int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := range 120 {
		for x := range 120 {
			pos := x
			if identity == 1 {
				pos = y
			}
			v := uint8(50)
			if (pos/4)%2 == 1 {
				v = 210
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}
