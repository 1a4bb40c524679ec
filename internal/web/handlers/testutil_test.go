package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
	"github.com/kozaktomas/face-recognizer/internal/detect/mock"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
)

// testConfig creates a minimal config for testing
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.ModelDir = filepath.Join(t.TempDir(), "model")
	return cfg
}

// stubModel always returns the same prediction.
type stubModel struct {
	pred classifier.Prediction
	err  error
}

func (m *stubModel) Predict(img *image.Gray) (classifier.Prediction, error) {
	return m.pred, m.err
}

func (m *stubModel) Save(path string) error { return nil }
func (m *stubModel) Len() int               { return 1 }

func testLabels() dataset.LabelMap {
	return dataset.NewLabelMap([]dataset.Identity{
		{Name: "alice", Label: 0},
		{Name: "jan_novak", Label: 1},
	})
}

// newTestHandler builds a handler around the mock locator. A nil model
// leaves the holder empty.
func newTestHandler(t *testing.T, model classifier.Model) (*RecognitionHandler, *mock.MockLocator) {
	t.Helper()
	holder := recognition.NewHolder()
	if model != nil {
		holder.Swap(&artifact.Artifact{
			Model:  model,
			Labels: testLabels(),
			Meta:   artifact.Meta{RunID: "run-1", Classifier: "lbph", Samples: 12},
		})
	}

	trainer, err := classifier.New("lbph", classifier.Params{Radius: 1, Neighbors: 8, GridX: 6, GridY: 6, Threshold: 75})
	if err != nil {
		t.Fatal(err)
	}

	loc := mock.NewMockLocator()
	rec := recognition.NewRecognizer(holder, loc, recognition.DefaultOptions())
	return NewRecognitionHandler(testConfig(t), rec, trainer), loc
}

func matchModel(label int, distance float64) *stubModel {
	return &stubModel{pred: classifier.Prediction{Label: label, Distance: distance}}
}

func noMatchModel() *stubModel {
	return &stubModel{pred: classifier.Prediction{Label: classifier.NoMatch, Distance: math.MaxFloat64}}
}

// jsonImageRequest builds a JSON upload with a PNG data URL.
func jsonImageRequest(t *testing.T, path string, img image.Image, name string) *http.Request {
	t.Helper()
	body := map[string]string{"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodePNG(t, img))}
	if name != "" {
		body["name"] = name
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartImageRequest builds a multipart upload with an "image" file field.
func multipartImageRequest(t *testing.T, path string, img image.Image, name string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "face.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(encodePNG(t, img)); err != nil {
		t.Fatal(err)
	}
	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func createFaceImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := range 100 {
		for x := range 100 {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*3) % 256)})
		}
	}
	return img
}

func createBlankImage() *image.Gray {
	return image.NewGray(image.Rect(0, 0, 100, 100))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
