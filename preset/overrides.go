package preset

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// MediaPipeSettings carries the advanced detection settings a user can
// attach to the enhanced person model.
//
// Values are applied verbatim during resolution; the settings surface that
// produces them owns range validation.
type MediaPipeSettings struct {
	ConfidenceThreshold      float64 `json:"confidenceThreshold"`
	MorphologyEnabled        bool    `json:"morphologyEnabled"`
	MorphologyKernelSize     int     `json:"morphologyKernelSize"`
	KeepLargestComponentOnly bool    `json:"keepLargestComponentOnly"`
	MinMaskAreaRatio         float64 `json:"minMaskAreaRatio"`

	// TemporalSmoothingAlpha is carried for the external model selector
	// and has no effect on resolution; the resolved configuration's field
	// set is fixed.
	TemporalSmoothingAlpha float64 `json:"temporalSmoothingAlpha,omitempty"`
}

// UserOverrides is the complete settings snapshot stored by the preferences
// surface.
//
// A nil *UserOverrides means the user never customized segmentation. A
// non-nil value is a full snapshot, not a sparse patch: during resolution
// every top-level field is authoritative over the preset, including zero
// values. MediaPipeSettings is the one optional member; its absence selects
// the fixed enhanced-model defaults when the model is requested.
type UserOverrides struct {
	BlurRadius             float64            `json:"blurRadius"`
	EdgeFeather            float64            `json:"edgeFeather"`
	TemporalSmoothing      bool               `json:"temporalSmoothing"`
	UseGPU                 bool               `json:"useGPU"`
	EnableEdgeRefinement   bool               `json:"enableEdgeRefinement"`
	UseEnhancedPersonModel bool               `json:"useEnhancedPersonModel"`
	MediaPipeSettings      *MediaPipeSettings `json:"mediaPipeSettings,omitempty"`
}

// ParseUserOverrides decodes a stored override snapshot from its JSON form.
//
// Decoded values are not range checked: overrides apply verbatim, so a
// stored snapshot round-trips exactly even when a field sits outside the
// built-in preset ranges.
//
// Parameters:
//   - data: JSON-encoded override snapshot
//
// Returns:
//   - *UserOverrides: The decoded snapshot
//   - error: Decode failures
func ParseUserOverrides(data []byte) (*UserOverrides, error) {
	var overrides UserOverrides
	if err := json.Unmarshal(data, &overrides); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ParseUserOverrides",
			"error":    err.Error(),
		}).Error("Failed to decode user overrides")
		return nil, fmt.Errorf("failed to decode user overrides: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "ParseUserOverrides",
		"blur_radius":    overrides.BlurRadius,
		"use_gpu":        overrides.UseGPU,
		"enhanced_model": overrides.UseEnhancedPersonModel,
		"has_settings":   overrides.MediaPipeSettings != nil,
	}).Debug("Parsed user override snapshot")

	return &overrides, nil
}
