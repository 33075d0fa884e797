package preset

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/maskcore/capability"
)

// enhancedDetectionMode identifies which of the three merge cases applies to
// an override snapshot. The cases are disjoint and total, so resolution is
// an explicit case analysis rather than nested conditionals.
type enhancedDetectionMode int

const (
	// enhancedWithSettings: model requested with explicit detection settings.
	enhancedWithSettings enhancedDetectionMode = iota
	// enhancedWithDefaults: model requested, no detection settings supplied.
	enhancedWithDefaults
	// enhancedOff: model not requested.
	enhancedOff
)

// Resolve merges a quality tier's built-in preset with an optional user
// override snapshot into the final configuration.
//
// With nil overrides the preset is returned as-is; the value semantics of
// ResolvedConfig make every return a private copy. With overrides, the
// snapshot is authoritative for every field it carries: blur radius, feather
// amount, temporal smoothing, edge refinement and the GPU toggle are taken
// verbatim, even when they sit outside the preset ranges. The preset
// contributes only its delegate as the baseline advertised to the model
// selector, surfaced in the resolution log.
//
// Resolution never fails. A corrupted tier value falls back to the low
// preset.
//
// Parameters:
//   - tier: The classified quality tier
//   - overrides: Complete user settings snapshot, or nil when the user
//     never customized segmentation
//
// Returns:
//   - ResolvedConfig: The configuration the pipeline consumes
func Resolve(tier capability.QualityTier, overrides *UserOverrides) ResolvedConfig {
	config := presetFor(tier)

	if overrides == nil {
		logrus.WithFields(logrus.Fields{
			"function":    "Resolve",
			"tier":        tier.String(),
			"delegate":    config.Delegate.String(),
			"blur_radius": config.BlurRadius,
		}).Debug("Resolved preset configuration")
		return config
	}

	baselineDelegate := config.Delegate

	config.BlurRadius = overrides.BlurRadius
	config.Delegate = delegateFor(overrides.UseGPU)
	config.EdgeRefinement = EdgeRefinementConfig{
		Enabled:           overrides.EnableEdgeRefinement,
		FeatherAmount:     overrides.EdgeFeather,
		TemporalSmoothing: overrides.TemporalSmoothing,
	}
	config.EnhancedDetection = resolveEnhancedDetection(overrides)

	logrus.WithFields(logrus.Fields{
		"function":          "Resolve",
		"tier":              tier.String(),
		"baseline_delegate": baselineDelegate.String(),
		"delegate":          config.Delegate.String(),
		"blur_radius":       config.BlurRadius,
		"edge_refinement":   config.EdgeRefinement.Enabled,
		"enhanced_model":    config.EnhancedDetection.Enabled,
	}).Debug("Resolved configuration with user overrides")

	return config
}

// classifyEnhancedMode determines the enhanced detection merge case.
func classifyEnhancedMode(overrides *UserOverrides) enhancedDetectionMode {
	switch {
	case overrides.UseEnhancedPersonModel && overrides.MediaPipeSettings != nil:
		return enhancedWithSettings
	case overrides.UseEnhancedPersonModel:
		return enhancedWithDefaults
	default:
		return enhancedOff
	}
}

// resolveEnhancedDetection applies the three-case enhanced detection merge.
func resolveEnhancedDetection(overrides *UserOverrides) EnhancedDetectionConfig {
	switch classifyEnhancedMode(overrides) {
	case enhancedWithSettings:
		settings := overrides.MediaPipeSettings
		return EnhancedDetectionConfig{
			Enabled:                  true,
			ConfidenceThreshold:      settings.ConfidenceThreshold,
			MorphologyEnabled:        settings.MorphologyEnabled,
			MorphologyKernelSize:     settings.MorphologyKernelSize,
			KeepLargestComponentOnly: settings.KeepLargestComponentOnly,
			MinMaskAreaRatio:         settings.MinMaskAreaRatio,
		}
	case enhancedWithDefaults:
		return DefaultEnhancedDetection()
	default:
		return DisabledEnhancedDetection()
	}
}

// delegateFor maps the user's GPU toggle to a delegate.
func delegateFor(useGPU bool) Delegate {
	if useGPU {
		return DelegateGPU
	}
	return DelegateCPU
}
