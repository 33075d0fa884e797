package preset

import (
	"fmt"

	"github.com/opd-ai/maskcore/capability"
)

// Delegate selects the compute backend advertised to the segmentation model.
type Delegate int

const (
	// DelegateCPU runs segmentation on the CPU.
	DelegateCPU Delegate = iota
	// DelegateGPU runs segmentation on the GPU.
	DelegateGPU
)

// String returns the delegate name.
func (d Delegate) String() string {
	switch d {
	case DelegateCPU:
		return "CPU"
	case DelegateGPU:
		return "GPU"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// EdgeRefinementConfig controls the mask refinement engine.
type EdgeRefinementConfig struct {
	// Enabled gates the refinement pass entirely. Disabled refinement is
	// the identity transform, not a cheaper approximation.
	Enabled bool

	// FeatherAmount controls edge softness in [0, 1]. The engine derives
	// its spatial kernel radius from this value.
	FeatherAmount float64

	// TemporalSmoothing blends each refined frame with the previous
	// output to suppress frame-to-frame mask flicker.
	TemporalSmoothing bool
}

// EnhancedDetectionConfig carries the enhanced person detection settings.
//
// The alternate segmentation model itself is selected by the capture
// pipeline; this configuration scaffolds the selection and parameterizes the
// detection cleanup pass that runs over the model's output.
type EnhancedDetectionConfig struct {
	// Enabled reports whether enhanced detection was requested.
	Enabled bool

	// ConfidenceThreshold gates mask pixels in [0, 1]; pixels below it
	// are treated as background.
	ConfidenceThreshold float64

	// MorphologyEnabled turns on the morphological opening pass.
	MorphologyEnabled bool

	// MorphologyKernelSize is the square kernel size for morphology,
	// an odd integer of at least 3.
	MorphologyKernelSize int

	// KeepLargestComponentOnly discards every connected foreground
	// region except the largest.
	KeepLargestComponentOnly bool

	// MinMaskAreaRatio is the minimum foreground fraction in (0, 1);
	// masks below it are treated as failed detections.
	MinMaskAreaRatio float64
}

// ResolvedConfig is the complete numeric configuration the segmentation
// pipeline consumes. It is a value object: every resolution produces a
// private copy, so holding or mutating one config never affects another.
type ResolvedConfig struct {
	// BlurRadius is the background blur radius in pixels.
	BlurRadius float64

	// Delegate is the compute backend for the segmentation model.
	Delegate Delegate

	// EdgeRefinement configures the mask refinement engine.
	EdgeRefinement EdgeRefinementConfig

	// EnhancedDetection configures enhanced person detection. Always
	// present; Enabled distinguishes requested from not requested.
	EnhancedDetection EnhancedDetectionConfig
}

// DefaultEnhancedDetection returns the fixed detection settings applied when
// a user requests the enhanced person model without supplying their own.
func DefaultEnhancedDetection() EnhancedDetectionConfig {
	return EnhancedDetectionConfig{
		Enabled:                  true,
		ConfidenceThreshold:      0.7,
		MorphologyEnabled:        true,
		MorphologyKernelSize:     5,
		KeepLargestComponentOnly: true,
		MinMaskAreaRatio:         0.02,
	}
}

// DisabledEnhancedDetection returns the explicit disabled state used when
// the enhanced model was not requested. The secondary values are inert but
// kept stable so configuration dumps stay comparable.
func DisabledEnhancedDetection() EnhancedDetectionConfig {
	return EnhancedDetectionConfig{
		Enabled:                  false,
		ConfidenceThreshold:      0.5,
		MorphologyEnabled:        false,
		MorphologyKernelSize:     3,
		KeepLargestComponentOnly: false,
		MinMaskAreaRatio:         0.01,
	}
}

// presetFor returns the built-in preset for a tier.
//
// Edge refinement and temporal smoothing default off in every preset; they
// exist for users to opt into through overrides. The low and medium tiers
// keep enhanced detection off to protect their budgets. High runs the full
// detection bundle. Ultra enables the enhanced model but skips the cleanup
// passes; at that tier the model output is trusted as-is.
func presetFor(tier capability.QualityTier) ResolvedConfig {
	switch tier {
	case capability.TierMedium:
		return ResolvedConfig{
			BlurRadius: 45,
			Delegate:   DelegateGPU,
			EdgeRefinement: EdgeRefinementConfig{
				Enabled:           false,
				FeatherAmount:     0.2,
				TemporalSmoothing: false,
			},
			EnhancedDetection: EnhancedDetectionConfig{
				Enabled:                  false,
				ConfidenceThreshold:      0.65,
				MorphologyEnabled:        false,
				MorphologyKernelSize:     3,
				KeepLargestComponentOnly: false,
				MinMaskAreaRatio:         0.01,
			},
		}
	case capability.TierHigh:
		return ResolvedConfig{
			BlurRadius: 90,
			Delegate:   DelegateGPU,
			EdgeRefinement: EdgeRefinementConfig{
				Enabled:           false,
				FeatherAmount:     0.35,
				TemporalSmoothing: false,
			},
			EnhancedDetection: EnhancedDetectionConfig{
				Enabled:                  true,
				ConfidenceThreshold:      0.7,
				MorphologyEnabled:        true,
				MorphologyKernelSize:     5,
				KeepLargestComponentOnly: true,
				MinMaskAreaRatio:         0.02,
			},
		}
	case capability.TierUltra:
		return ResolvedConfig{
			BlurRadius: 150,
			Delegate:   DelegateGPU,
			EdgeRefinement: EdgeRefinementConfig{
				Enabled:           false,
				FeatherAmount:     0.35,
				TemporalSmoothing: false,
			},
			EnhancedDetection: EnhancedDetectionConfig{
				Enabled:                  true,
				ConfidenceThreshold:      0.7,
				MorphologyEnabled:        false,
				MorphologyKernelSize:     3,
				KeepLargestComponentOnly: false,
				MinMaskAreaRatio:         0.02,
			},
		}
	default:
		// TierLow; unknown tier values also resolve here.
		return ResolvedConfig{
			BlurRadius: 15,
			Delegate:   DelegateCPU,
			EdgeRefinement: EdgeRefinementConfig{
				Enabled:           false,
				FeatherAmount:     0.1,
				TemporalSmoothing: false,
			},
			EnhancedDetection: EnhancedDetectionConfig{
				Enabled:                  false,
				ConfidenceThreshold:      0.6,
				MorphologyEnabled:        false,
				MorphologyKernelSize:     3,
				KeepLargestComponentOnly: false,
				MinMaskAreaRatio:         0.01,
			},
		}
	}
}
