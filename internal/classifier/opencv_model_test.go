package classifier

import (
	"errors"
	"strings"
	"testing"
)

const opencvModelYAML = `%YAML:1.0
---
opencv_lbphfaces:
   threshold: 1.7976931348623157e+308
   radius: 1
   neighbors: 8
   grid_x: 8
   grid_y: 8
   histograms:
      - !!opencv-matrix
         rows: 1
         cols: 4
         dt: f
         data: [ 1.0e-01, 2.0e-01, 3.0e-01, 4.0e-01 ]
      - !!opencv-matrix
         rows: 1
         cols: 4
         dt: f
         data: [ 4.0e-01, 3.0e-01, 2.0e-01, 1.0e-01 ]
   labels: !!opencv-matrix
      rows: 2
      cols: 1
      dt: i
      data: [ 0, 1 ]
   labelsInfo:
      []
`

func TestValidateOpenCVModel(t *testing.T) {
	if err := validateOpenCVModel([]byte(opencvModelYAML)); err != nil {
		t.Fatalf("expected valid model, got %v", err)
	}

	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"garbage", "definitely not a model"},
		{"binary", "\x00\x00\x00\x32\x01\x02"},
		{"header only", "%YAML:1.0\n"},
		{"missing header", strings.TrimPrefix(opencvModelYAML, "%YAML:1.0\n")},
		{"broken yaml", "%YAML:1.0\n---\nopencv_lbphfaces: [\n"},
		{"other recognizer", strings.Replace(opencvModelYAML, "opencv_lbphfaces", "opencv_eigenfaces", 1)},
		{"missing radius", strings.Replace(opencvModelYAML, "   radius: 1\n", "", 1)},
		{"truncated", opencvModelYAML[:strings.Index(opencvModelYAML, "   labels:")]},
		{"short histogram", strings.Replace(opencvModelYAML, "4.0e-01, 3.0e-01, 2.0e-01, 1.0e-01", "4.0e-01", 1)},
		{"label count", strings.Replace(opencvModelYAML, "data: [ 0, 1 ]", "data: [ 0 ]", 1)},
		{"labels without histograms", strings.NewReplacer("      rows: 2\n", "      rows: 3\n", "[ 0, 1 ]", "[ 0, 1, 2 ]").Replace(opencvModelYAML)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateOpenCVModel([]byte(tc.data)); !errors.Is(err, errInvalidOpenCVModel) {
				t.Errorf("expected errInvalidOpenCVModel, got %v", err)
			}
		})
	}
}
