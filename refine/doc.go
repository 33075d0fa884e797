// Package refine implements per-frame refinement of person segmentation
// masks: spatial edge feathering, temporal smoothing, and detection cleanup.
//
// Segmentation models emit masks with hard, slightly unstable silhouette
// edges. Composited directly over a blurred background they produce visible
// stair-stepping and frame-to-frame shimmer. This package smooths those
// artifacts within a per-frame budget measured in milliseconds.
//
// # Masks
//
// Mask is a single-channel confidence buffer, one byte per pixel, row-major.
// Conversions to and from images live alongside it (NewMaskFromImage,
// ToRGBA, ToGray), and LoadMask/SaveMask read and write image files for
// tooling and diagnostics.
//
// # Edge Refinement
//
// Engine applies a Gaussian neighborhood average whose radius derives from
// the configured feather amount, then optionally blends each result with the
// previous frame's output:
//
//	engine := refine.NewEngine(preset.EdgeRefinementConfig{
//	    Enabled:           true,
//	    FeatherAmount:     0.35,
//	    TemporalSmoothing: true,
//	})
//	refined, err := engine.Refine(mask)
//
// A disabled engine is the identity transform: the input pointer comes back
// unmodified with no allocation. Enabled engines return an engine-owned
// buffer that is reused on the next call; Clone the result to keep it.
//
// The engine never degrades its own quality under load. The surrounding
// pipeline measures frame times and disables refinement entirely when a
// device cannot keep up, because a consistent raw mask looks better than
// refinement at a stuttering frame rate.
//
// # Detection Cleanup
//
// PostProcessor consumes the enhanced detection settings: a confidence
// gate, morphological opening, largest-component isolation, and a minimum
// area check that clears implausibly small foregrounds. It runs before edge
// refinement in the capture pipeline's order (model output, cleanup,
// smoothing).
//
// # Filter Chains
//
// Engine and PostProcessor both implement Filter and can be sequenced with
// FilterChain:
//
//	chain := refine.NewFilterChain()
//	chain.AddFilter(post)
//	chain.AddFilter(engine)
//	out, err := chain.Apply(mask)
//
// # Concurrency
//
// Engines and post-processors own per-stream state and reusable buffers.
// One instance serves one track; calls on the same instance must not
// overlap. Distinct instances are fully independent.
package refine
