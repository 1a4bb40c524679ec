package constants

import "time"

// File upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (16MB)
	MaxUploadSize = 16 << 20
)

// Server timeouts
const (
	// RequestTimeout bounds a single recognition request
	RequestTimeout = 60 * time.Second

	// ShutdownTimeout is how long the server waits for in-flight requests on shutdown
	ShutdownTimeout = 10 * time.Second
)

// Job constants
const (
	// EventChannelBuffer is the buffer size for job event listeners
	EventChannelBuffer = 100

	// FinishedJobsKept is how many finished training jobs stay queryable
	FinishedJobsKept = 10
)
