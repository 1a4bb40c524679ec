package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"mime"
	"net/http"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

var (
	errNoImage       = errors.New("no image provided")
	errInvalidImage  = errors.New("invalid image")
	errImageTooLarge = errors.New("image too large")
)

// imageRequest is the JSON form of an upload: a data URL as sent by a
// browser canvas, plus an optional claimed name.
type imageRequest struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

// readImage accepts either a multipart form with an "image" file field or a
// JSON body with a base64 data URL. It returns the decoded image and the
// "name" field when one was sent.
func readImage(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipartImage(r)
	}

	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if tooLarge(err) {
			return nil, "", errImageTooLarge
		}
		return nil, "", errors.New(errInvalidRequestBody)
	}
	if req.Image == "" {
		return nil, "", errNoImage
	}

	img, err := imaging.DecodeDataURL(req.Image)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errInvalidImage, err)
	}
	return img, req.Name, nil
}

func readMultipartImage(r *http.Request) (image.Image, string, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		if tooLarge(err) {
			return nil, "", errImageTooLarge
		}
		return nil, "", errors.New("failed to parse multipart form")
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, "", errNoImage
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errInvalidImage, err)
	}
	return img, r.FormValue("name"), nil
}

// respondImageError maps readImage errors to status codes.
func respondImageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errImageTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, errInvalidImage):
		respondError(w, http.StatusBadRequest, errInvalidImage.Error())
	default:
		respondError(w, http.StatusBadRequest, err.Error())
	}
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
