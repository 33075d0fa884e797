package capability

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// QualityTier identifies one of the four segmentation processing tiers,
// ordered from cheapest to most expensive.
type QualityTier int

const (
	// TierLow is the minimal tier for constrained devices.
	TierLow QualityTier = iota
	// TierMedium is the mid tier for GPU-capable mid-range devices.
	TierMedium
	// TierHigh is the full-quality tier for high-end devices.
	TierHigh
	// TierUltra is the maximum tier for top-end devices with headroom.
	TierUltra
)

// String returns the tier name used in logs and settings surfaces.
func (t QualityTier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierUltra:
		return "ultra"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Classification thresholds. Ultra demands headroom beyond what "high power"
// alone proves; the memory check is permissive because an unknown reading
// must not lock capable hardware out of the top tier.
const (
	ultraMinCores    = 12
	ultraMinMemoryGB = 16
	highMinCores     = 8
)

// Classify maps a device capability snapshot to a quality tier.
//
// The decision ladder is evaluated top down and the first match wins:
//
//  1. Ultra: high power level, GPU present, at least 12 cores, and memory
//     either unknown or at least 16 GB.
//  2. High: high power level, or medium power level with a GPU and at
//     least 8 cores.
//  3. Medium: medium power level with a GPU.
//  4. Low: everything else.
//
// Classification is pure and total: every snapshot maps to exactly one tier
// and equal snapshots always map to the same tier. A device that misreports
// its capabilities gets a mismatched tier, not an error; the frame budget
// policy downstream catches devices that cannot keep up in practice.
//
// Parameters:
//   - caps: The device capability snapshot
//
// Returns:
//   - QualityTier: The selected processing tier
func Classify(caps DeviceCapabilities) QualityTier {
	tier := classifyTier(caps)

	logrus.WithFields(logrus.Fields{
		"function":    "Classify",
		"power_level": caps.PowerLevel.String(),
		"has_gpu":     caps.HasGPU,
		"cpu_cores":   caps.CPUCores,
		"memory_gb":   caps.DeviceMemoryGB,
		"tier":        tier.String(),
	}).Debug("Classified device capabilities")

	return tier
}

// classifyTier evaluates the decision ladder.
func classifyTier(caps DeviceCapabilities) QualityTier {
	if caps.PowerLevel == PowerHigh && caps.HasGPU && caps.CPUCores >= ultraMinCores &&
		(caps.DeviceMemoryGB == MemoryUnknown || caps.DeviceMemoryGB >= ultraMinMemoryGB) {
		return TierUltra
	}

	if caps.PowerLevel == PowerHigh ||
		(caps.PowerLevel == PowerMedium && caps.HasGPU && caps.CPUCores >= highMinCores) {
		return TierHigh
	}

	if caps.PowerLevel == PowerMedium && caps.HasGPU {
		return TierMedium
	}

	return TierLow
}
