package refine

import "errors"

// Sentinel errors for mask validation.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrNilMask indicates a nil mask was passed where one is required.
	ErrNilMask = errors.New("input mask cannot be nil")

	// ErrInvalidDimensions indicates non-positive mask dimensions.
	ErrInvalidDimensions = errors.New("invalid mask dimensions")

	// ErrBufferSize indicates the pixel buffer does not match the mask
	// dimensions.
	ErrBufferSize = errors.New("mask buffer does not match dimensions")
)
