// Package dataset reads the identity-per-folder photo layout and turns it
// into labels and balanced training sets.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

// Identity is one enrolled person: a folder of photos under the dataset root.
type Identity struct {
	Name  string
	Label int
	Dir   string
	Files []string // image paths, sorted
}

// Enumerate lists identity folders under root in lexicographic order and
// assigns labels by position. Folders without images keep their label, so
// the label sequence can have gaps once empty identities are skipped.
func Enumerate(root string) ([]Identity, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var identities []Identity
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, err := ListImages(dir)
		if err != nil {
			return nil, err
		}
		identities = append(identities, Identity{
			Name:  entry.Name(),
			Label: len(identities),
			Dir:   dir,
			Files: files,
		})
	}
	return identities, nil
}

// ListImages returns the image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !imaging.IsImageFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
