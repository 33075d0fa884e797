// Package preset resolves quality tiers and user overrides into concrete
// segmentation processing configurations.
//
// Each quality tier carries a built-in preset: blur radius, compute
// delegate, edge refinement parameters and enhanced detection settings. A
// user who customizes segmentation produces a complete override snapshot
// that wins over the preset field for field.
//
// # Resolution
//
// Resolve is the single entry point:
//
//	config := preset.Resolve(capability.TierHigh, nil)       // pure preset
//	config := preset.Resolve(capability.TierHigh, overrides) // user snapshot wins
//
// Overrides are a full snapshot, never a sparse patch. A zero value in a
// present snapshot means "the user set it to zero", not "fall back to the
// preset"; values are applied verbatim even outside preset ranges. The
// distinction between configured-off and absent is carried by the
// *UserOverrides pointer itself.
//
// # Enhanced Detection
//
// The enhanced person model resolves through exactly one of three cases:
//
//  1. Requested with explicit MediaPipeSettings: settings applied verbatim.
//  2. Requested without settings: fixed defaults (DefaultEnhancedDetection).
//  3. Not requested: explicit disabled state (DisabledEnhancedDetection).
//
// The resolved EnhancedDetectionConfig is always structurally present so
// downstream consumers never see missing kernel sizes or thresholds.
//
// # Storage Boundary
//
// The preferences surface stores override snapshots as JSON;
// ParseUserOverrides decodes them without range checks, preserving the
// verbatim-override contract across the round trip.
package preset
