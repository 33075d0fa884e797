package maskcore

import "errors"

// Sentinel errors for pipeline operations.
// These errors enable reliable error classification using errors.Is().

// Track management errors.
var (
	// ErrTrackNotFound indicates the track identifier is not registered.
	ErrTrackNotFound = errors.New("track not found")

	// ErrTrackExists indicates a track with this identifier already exists.
	ErrTrackExists = errors.New("track already exists")
)

// Pipeline lifecycle errors.
var (
	// ErrPipelineClosed indicates the pipeline has been closed and can no
	// longer accept tracks or frames.
	ErrPipelineClosed = errors.New("pipeline is closed")
)
