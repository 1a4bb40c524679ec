// Package mock provides a mock face locator for testing.
package mock

import (
	"image"
	"sync"

	"github.com/kozaktomas/face-recognizer/internal/detect"
)

// MockLocator is a mock implementation of detect.Locator. By default it
// reports the whole frame as one face, unless the frame is a single flat
// color, in which case it finds nothing.
type MockLocator struct {
	mu    sync.Mutex
	calls int

	// LocateFunc overrides the default behaviour when set
	LocateFunc func(frame *image.Gray) ([]image.Rectangle, error)

	// Error injection
	LocateError error
}

// NewMockLocator creates a new mock locator
func NewMockLocator() *MockLocator {
	return &MockLocator{}
}

func (m *MockLocator) Name() string {
	return "mock"
}

// Locate returns the configured boxes
func (m *MockLocator) Locate(frame *image.Gray, p detect.Params) ([]image.Rectangle, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.LocateError != nil {
		return nil, m.LocateError
	}
	if m.LocateFunc != nil {
		return m.LocateFunc(frame)
	}
	if isFlat(frame) {
		return nil, nil
	}
	return []image.Rectangle{frame.Bounds()}, nil
}

func (m *MockLocator) Close() error {
	return nil
}

// Calls returns how many times Locate was called
func (m *MockLocator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func isFlat(frame *image.Gray) bool {
	b := frame.Bounds()
	if b.Empty() {
		return true
	}
	first := frame.GrayAt(b.Min.X, b.Min.Y).Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if frame.GrayAt(x, y).Y != first {
				return false
			}
		}
	}
	return true
}
