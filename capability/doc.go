// Package capability classifies device capability signals into segmentation
// quality tiers.
//
// A video call session starts by probing the platform for coarse hardware
// signals: a power-level classification, GPU delegate availability, logical
// core count, and device memory. This package turns that snapshot into one
// of four quality tiers that the preset package resolves into a concrete
// processing configuration.
//
// # Classification
//
// Classify evaluates a fixed decision ladder, first match wins:
//
//	caps := capability.DeviceCapabilities{
//	    PowerLevel: capability.PowerHigh,
//	    HasGPU:     true,
//	    CPUCores:   12,
//	}
//	tier := capability.Classify(caps) // TierUltra
//
// Unknown device memory is permissive: platforms that withhold the memory
// reading must not lock otherwise capable hardware out of the ultra tier. Classification never fails; incoherent snapshots land in a
// conservative tier and the frame budget policy downstream catches devices
// that cannot keep up in practice.
//
// # Probe Boundary
//
// The platform probe ships its signals as JSON. ParseDeviceCapabilities
// decodes and validates a snapshot:
//
//	caps, err := capability.ParseDeviceCapabilities(data)
//	if err != nil {
//	    // malformed probe output
//	}
//	tier := capability.Classify(caps)
//
// # Tier Ordering
//
// Tiers are ordered by processing cost: TierLow < TierMedium < TierHigh <
// TierUltra. The ordering is stable and safe to compare directly.
package capability
