package classifier

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// opencvModelKey is the top-level node OpenCV writes for an LBPH recognizer.
const opencvModelKey = "opencv_lbphfaces"

var errInvalidOpenCVModel = errors.New("invalid OpenCV model file")

// validateOpenCVModel checks the structure of an OpenCV LBPH model file:
// the YAML header, the recognizer node, and one histogram per label with
// matching matrix sizes. OpenCV aborts the process on malformed input, so
// this runs before the file is handed to it. It cannot catch every problem,
// for example histograms of the wrong length for the configured grid.
func validateOpenCVModel(data []byte) error {
	if !bytes.HasPrefix(data, []byte("%YAML")) {
		return fmt.Errorf("%w: missing YAML header", errInvalidOpenCVModel)
	}
	// OpenCV writes "%YAML:1.0", which is not a valid directive for yaml.v3.
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	} else {
		data = nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", errInvalidOpenCVModel, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fmt.Errorf("%w: empty document", errInvalidOpenCVModel)
	}

	model := mappingValue(doc.Content[0], opencvModelKey)
	if model == nil || model.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: no %s node", errInvalidOpenCVModel, opencvModelKey)
	}
	for _, key := range []string{"radius", "neighbors", "grid_x", "grid_y"} {
		if _, err := scalarInt(mappingValue(model, key)); err != nil {
			return fmt.Errorf("%w: %s: %w", errInvalidOpenCVModel, key, err)
		}
	}

	histograms := mappingValue(model, "histograms")
	if histograms == nil || histograms.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: no histograms", errInvalidOpenCVModel)
	}
	for i, h := range histograms.Content {
		if _, err := checkMatrix(h); err != nil {
			return fmt.Errorf("%w: histogram %d: %w", errInvalidOpenCVModel, i, err)
		}
	}

	labels, err := checkMatrix(mappingValue(model, "labels"))
	if err != nil {
		return fmt.Errorf("%w: labels: %w", errInvalidOpenCVModel, err)
	}
	if labels != len(histograms.Content) {
		return fmt.Errorf("%w: %d labels for %d histograms", errInvalidOpenCVModel, labels, len(histograms.Content))
	}
	return nil
}

// checkMatrix validates an opencv-matrix node and returns its element count.
func checkMatrix(n *yaml.Node) (int, error) {
	if n == nil || n.Kind != yaml.MappingNode {
		return 0, errors.New("not a matrix")
	}
	rows, err := scalarInt(mappingValue(n, "rows"))
	if err != nil {
		return 0, fmt.Errorf("rows: %w", err)
	}
	cols, err := scalarInt(mappingValue(n, "cols"))
	if err != nil {
		return 0, fmt.Errorf("cols: %w", err)
	}
	data := mappingValue(n, "data")
	if data == nil || data.Kind != yaml.SequenceNode {
		return 0, errors.New("no data")
	}
	if rows < 0 || cols < 0 || len(data.Content) != rows*cols {
		return 0, fmt.Errorf("%dx%d matrix with %d values", rows, cols, len(data.Content))
	}
	return len(data.Content), nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func scalarInt(n *yaml.Node) (int, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return 0, errors.New("missing")
	}
	return strconv.Atoi(n.Value)
}
