package handlers

import (
	"errors"
	"image"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/dataset"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
)

// RecognitionHandler serves recognition requests against the loaded model.
type RecognitionHandler struct {
	config     *config.Config
	recognizer *recognition.Recognizer
	trainer    classifier.Trainer
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(cfg *config.Config, rec *recognition.Recognizer, trainer classifier.Trainer) *RecognitionHandler {
	return &RecognitionHandler{
		config:     cfg,
		recognizer: rec,
		trainer:    trainer,
	}
}

// BoxResponse is a face location in image pixels.
type BoxResponse struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func newBoxResponse(r image.Rectangle) *BoxResponse {
	if r.Empty() {
		return nil
	}
	return &BoxResponse{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// RecognizeResponse is the decision for one face.
type RecognizeResponse struct {
	FaceFound  bool         `json:"face_found"`
	Matched    bool         `json:"matched"`
	Name       string       `json:"name,omitempty"`
	Display    string       `json:"display_name,omitempty"`
	Confidence float64      `json:"confidence"`
	Box        *BoxResponse `json:"box,omitempty"`
}

func newRecognizeResponse(res recognition.Result) RecognizeResponse {
	out := RecognizeResponse{
		FaceFound:  res.FaceFound,
		Matched:    res.Matched,
		Name:       res.Name,
		Confidence: res.Confidence,
		Box:        newBoxResponse(res.Box),
	}
	if res.Name != "" {
		out.Display = dataset.DisplayName(res.Name)
	}
	return out
}

// ModelStatusResponse describes the loaded artifact.
type ModelStatusResponse struct {
	Loaded     bool       `json:"loaded"`
	RunID      string     `json:"run_id,omitempty"`
	Classifier string     `json:"classifier,omitempty"`
	Identities int        `json:"identities"`
	Samples    int        `json:"samples"`
	TrainedAt  *time.Time `json:"trained_at,omitempty"`
}

func (h *RecognitionHandler) status() ModelStatusResponse {
	art := h.recognizer.Holder().Get()
	if art == nil {
		return ModelStatusResponse{}
	}
	trainedAt := art.Meta.TrainedAt
	return ModelStatusResponse{
		Loaded:     true,
		RunID:      art.Meta.RunID,
		Classifier: art.Meta.Classifier,
		Identities: art.Labels.Len(),
		Samples:    art.Meta.Samples,
		TrainedAt:  &trainedAt,
	}
}

// ModelStatus reports whether a model is loaded.
func (h *RecognitionHandler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.status())
}

// Identities lists enrolled identities in label order.
func (h *RecognitionHandler) Identities(w http.ResponseWriter, r *http.Request) {
	art := h.recognizer.Holder().Get()
	if art == nil {
		respondError(w, http.StatusServiceUnavailable, recognition.ErrModelNotReady.Error())
		return
	}

	type identityResponse struct {
		Label   int    `json:"label"`
		Name    string `json:"name"`
		Display string `json:"display_name"`
	}
	entries := art.Labels.Entries()
	out := make([]identityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, identityResponse{Label: e.Label, Name: e.Name, Display: dataset.DisplayName(e.Name)})
	}
	respondJSON(w, http.StatusOK, out)
}

// Recognize identifies the first face in the uploaded image.
func (h *RecognitionHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	img, _, err := readImage(w, r)
	if err != nil {
		respondImageError(w, err)
		return
	}

	res, err := h.recognizer.Recognize(img)
	if err != nil {
		respondRecognitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newRecognizeResponse(res))
}

// RecognizeFaces identifies every face in the uploaded image, best match first.
func (h *RecognitionHandler) RecognizeFaces(w http.ResponseWriter, r *http.Request) {
	img, _, err := readImage(w, r)
	if err != nil {
		respondImageError(w, err)
		return
	}

	results, err := h.recognizer.RecognizeAll(img)
	if err != nil {
		respondRecognitionError(w, err)
		return
	}

	faces := make([]RecognizeResponse, 0, len(results))
	for _, res := range results {
		faces = append(faces, newRecognizeResponse(res))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(faces),
		"faces": faces,
	})
}

// Verify checks the uploaded face against the claimed "name".
func (h *RecognitionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	img, claimed, err := readImage(w, r)
	if err != nil {
		respondImageError(w, err)
		return
	}
	if claimed == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	res, err := h.recognizer.Verify(img, claimed)
	if err != nil {
		respondRecognitionError(w, err)
		return
	}
	if !res.Verified {
		log.Printf("Verification failed for %q: recognized %q at %.1f%%", sanitizeForLog(claimed), res.Name, res.Confidence)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"verified": res.Verified,
		"claimed":  claimed,
		"result":   newRecognizeResponse(res.Result),
	})
}

// Capture reports whether the uploaded image is usable for enrollment.
func (h *RecognitionHandler) Capture(w http.ResponseWriter, r *http.Request) {
	img, _, err := readImage(w, r)
	if err != nil {
		respondImageError(w, err)
		return
	}

	res, err := h.recognizer.Capture(img)
	if err != nil {
		respondRecognitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"face_found": res.FaceFound,
		"faces":      res.Faces,
		"confidence": res.Confidence,
		"box":        newBoxResponse(res.Box),
	})
}

// Reload loads the artifact from the model directory and swaps it in.
// On failure the current model keeps serving.
func (h *RecognitionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.recognizer.Holder().Load(h.config.ModelDir, h.trainer); err != nil {
		log.Printf("Model reload failed: %v", err)
		switch {
		case errors.Is(err, artifact.ErrArtifactMissing):
			respondError(w, http.StatusNotFound, "model not found, train it first")
		case errors.Is(err, artifact.ErrArtifactCorrupt):
			respondError(w, http.StatusUnprocessableEntity, "model is corrupt, retrain it")
		default:
			respondError(w, http.StatusInternalServerError, "failed to load model")
		}
		return
	}
	respondJSON(w, http.StatusOK, h.status())
}

func respondRecognitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recognition.ErrModelNotReady):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("Recognition failed: %v", err)
		respondError(w, http.StatusInternalServerError, "face detection failed")
	}
}
