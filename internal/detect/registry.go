package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/config"
)

// Factory opens a detector backend from its cascade or model path.
type Factory func(path string) (Locator, error)

var backends = map[string]Factory{}

// register makes a backend available to New. Backends that depend on native
// libraries register themselves from files behind build tags.
func register(name string, f Factory) {
	backends[name] = f
}

// Backends lists the compiled-in detector backends.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New opens the detector backend named in the configuration.
func New(cfg config.DetectorConfig) (Locator, error) {
	f, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown detector backend %q (available: %s)", cfg.Backend, strings.Join(Backends(), ", "))
	}
	loc, err := f(cfg.Cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s detector: %w", cfg.Backend, err)
	}
	return loc, nil
}
