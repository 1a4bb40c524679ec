package classifier

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

const (
	lbphName          = "lbph"
	lbphFileName      = "face_model.lbph"
	lbphModelVersion  = 1
	lbphDistanceName  = "lbph-chisquare"
	lbphMaxNeighbors  = 16
	lbphCandidates    = 4
	contextCheckEvery = 64
)

func init() {
	hnsw.RegisterDistanceFunc(lbphDistanceName, chiSquareDistance)
	register(lbphName, func(p Params) (Trainer, error) {
		return &LBPHTrainer{params: p}, nil
	})
}

// LBPHTrainer fits local binary pattern histogram models in pure Go.
type LBPHTrainer struct {
	params Params
}

func (t *LBPHTrainer) Name() string     { return lbphName }
func (t *LBPHTrainer) FileName() string { return lbphFileName }

// Fit computes one histogram per training image and indexes them.
func (t *LBPHTrainer) Fit(ctx context.Context, images []*image.Gray, labels []int) (Model, error) {
	if err := checkTrainingSet(images, labels); err != nil {
		return nil, err
	}

	m := &LBPHModel{
		params: t.params,
		labels: make([]int, len(labels)),
		graph:  newGraph(),
	}
	copy(m.labels, labels)

	for i, img := range images {
		if i%contextCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		m.graph.Add(hnsw.MakeNode(int64(i), histogram(img, t.params)))
	}
	m.graph.EfSearch = max(m.graph.EfSearch, m.graph.Len())
	return m, nil
}

// Load reads a model written by LBPHModel.Save.
func (t *LBPHTrainer) Load(path string) (Model, error) {
	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	return ReadLBPH(bufio.NewReader(f))
}

// LBPHModel holds the training histograms in an HNSW graph keyed by sample
// index. Searches run with ef equal to the sample count, so the nearest
// neighbour is the same one a linear scan would find.
type LBPHModel struct {
	mu     sync.RWMutex
	params Params
	labels []int // label per sample index
	graph  *hnsw.Graph[int64]
}

// lbphHeader is the gob-encoded part of the model file, followed by the graph export.
type lbphHeader struct {
	Version int
	Params  Params
	Labels  []int
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = lbphMaxNeighbors
	g.Ml = 1.0 / float64(lbphMaxNeighbors)
	g.Distance = chiSquareDistance
	return g
}

func (m *LBPHModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.labels)
}

// Params returns the parameters the model was fitted with.
func (m *LBPHModel) Params() Params {
	return m.params
}

// Predict returns the label of the closest training histogram. Distances
// at or beyond the threshold yield NoMatch with the largest distance.
func (m *LBPHModel) Predict(img *image.Gray) (Prediction, error) {
	if img == nil || img.Bounds().Empty() {
		return Prediction{}, ErrEmptyImage
	}
	query := histogram(img, m.params)

	m.mu.RLock()
	defer m.mu.RUnlock()

	best := Prediction{Label: NoMatch, Distance: math.MaxFloat64}
	if len(m.labels) == 0 {
		return best, nil
	}

	threshold := m.params.Threshold
	if threshold <= 0 {
		threshold = math.MaxFloat64
	}

	for _, node := range m.graph.Search(query, min(lbphCandidates, len(m.labels))) {
		idx := int(node.Key)
		if idx < 0 || idx >= len(m.labels) {
			continue
		}
		d := chiSquare(query, node.Value)
		if d < best.Distance && d < threshold {
			best = Prediction{Label: m.labels[idx], Distance: d}
		}
	}
	return best, nil
}

// Save writes the model to path.
func (m *LBPHModel) Save(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := m.Encode(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return f.Close()
}

// Encode writes the model: a length-prefixed gob header, then the graph.
func (m *LBPHModel) Encode(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var header bytes.Buffer
	if err := gob.NewEncoder(&header).Encode(lbphHeader{
		Version: lbphModelVersion,
		Params:  m.params,
		Labels:  m.labels,
	}); err != nil {
		return fmt.Errorf("failed to encode model header: %w", err)
	}

	if err := binary.Write(w, binary.BigEndian, uint32(header.Len())); err != nil {
		return fmt.Errorf("failed to write model header: %w", err)
	}
	if _, err := w.Write(header.Bytes()); err != nil {
		return fmt.Errorf("failed to write model header: %w", err)
	}
	if err := m.graph.Export(w); err != nil {
		return fmt.Errorf("failed to export histogram index: %w", err)
	}
	return nil
}

// ReadLBPH decodes a model written by Encode.
func ReadLBPH(r io.Reader) (*LBPHModel, error) {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("failed to read model header: %w", err)
	}
	if size > 1<<30 {
		return nil, fmt.Errorf("model header too large: %d bytes", size)
	}

	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("failed to read model header: %w", err)
	}

	var header lbphHeader
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode model header: %w", err)
	}
	if header.Version != lbphModelVersion {
		return nil, fmt.Errorf("unsupported model version %d", header.Version)
	}
	if err := header.Params.validate(); err != nil {
		return nil, fmt.Errorf("invalid model parameters: %w", err)
	}

	g := newGraph()
	if err := g.Import(r); err != nil {
		return nil, fmt.Errorf("failed to import histogram index: %w", err)
	}
	if g.Len() != len(header.Labels) {
		return nil, fmt.Errorf("index holds %d samples but header lists %d labels", g.Len(), len(header.Labels))
	}
	g.EfSearch = max(g.EfSearch, g.Len())

	return &LBPHModel{
		params: header.Params,
		labels: header.Labels,
		graph:  g,
	}, nil
}
