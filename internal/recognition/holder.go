package recognition

import (
	"sync/atomic"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/classifier"
)

// Holder owns the artifact used for recognition. Readers get an immutable
// snapshot; reloading swaps in a complete new artifact at once.
type Holder struct {
	current atomic.Pointer[artifact.Artifact]
}

// NewHolder returns an empty holder; recognition fails until a model is set.
func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the current artifact, or nil when none is loaded.
func (h *Holder) Get() *artifact.Artifact {
	return h.current.Load()
}

// Ready reports whether a model is loaded.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}

// Swap installs a new artifact and returns the previous one.
func (h *Holder) Swap(a *artifact.Artifact) *artifact.Artifact {
	return h.current.Swap(a)
}

// Load reads the artifact in dir and installs it. On error the current
// artifact stays in place.
func (h *Holder) Load(dir string, trainer classifier.Trainer) (*artifact.Artifact, error) {
	a, err := artifact.Load(dir, trainer)
	if err != nil {
		return nil, err
	}
	h.Swap(a)
	return a, nil
}
