// Package maskcore implements quality-adaptive refinement of person
// segmentation masks for video calling applications.
//
// Segmentation models produce noisy, hard-edged masks. This package cleans
// them up in real time: it classifies the host device into a quality tier,
// resolves the tier into concrete processing settings, and runs each video
// track's masks through detection cleanup and edge refinement while keeping
// the per-frame cost inside a fixed budget.
//
// # Architecture
//
// The package consists of a facade and three subsystems:
//
//   - Pipeline: Orchestrates per-track refinement with budget enforcement
//   - capability: Device probing and quality tier classification
//   - preset: Tier presets, user overrides, and configuration resolution
//   - refine: Mask filters (edge refinement engine, detection post-processor)
//
// # Pipeline Usage
//
// Create a pipeline from probed device capabilities and add one track per
// video stream:
//
//	caps, err := capability.ParseDeviceCapabilities(probeJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pipeline := maskcore.NewPipeline(caps, nil)
//	defer pipeline.Close()
//
//	trackID, err := pipeline.AddTrack("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Refining Masks
//
// Feed each track its raw masks as they arrive from the segmentation model:
//
//	refined, err := pipeline.RefineFrame(trackID, mask)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// refined is valid until the track's next frame
//
// # User Overrides
//
// Users can replace the tier preset with an explicit configuration. The
// override is a complete snapshot, applied verbatim:
//
//	overrides, err := preset.ParseUserOverrides(settingsJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = pipeline.SetOverrides(overrides)
//
// # Budget Enforcement
//
// Every track charges its processing time against a frame budget (33ms by
// default). A track that stays over budget for a sustained stretch trips
// into bypass, passing masks through unprocessed rather than stalling the
// video path:
//
//	pipeline.OnBudgetExceeded(func(trackID string, avg time.Duration) {
//	    log.Printf("track %s bypassed after averaging %v per frame", trackID, avg)
//	})
//
// Bypass is sticky until explicitly cleared with the track's SetBypassed
// method or a configuration change.
//
// # Concurrency
//
// Pipeline and Track methods are safe for concurrent use. Each track owns
// its state, so tracks refine in parallel without contention.
package maskcore
