package capability

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PowerLevel is the coarse device power classification reported by the
// platform capability probe.
type PowerLevel int

const (
	// PowerLow indicates a constrained device (older hardware, few cores).
	PowerLow PowerLevel = iota
	// PowerMedium indicates a mid-range device.
	PowerMedium
	// PowerHigh indicates a high-end device.
	PowerHigh
)

// String returns the probe's wire name for the power level.
func (p PowerLevel) String() string {
	switch p {
	case PowerLow:
		return "low"
	case PowerMedium:
		return "medium"
	case PowerHigh:
		return "high"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// MarshalJSON encodes the power level in the probe's string form.
func (p PowerLevel) MarshalJSON() ([]byte, error) {
	switch p {
	case PowerLow, PowerMedium, PowerHigh:
		return json.Marshal(p.String())
	default:
		return nil, fmt.Errorf("invalid power level: %d", int(p))
	}
}

// UnmarshalJSON decodes the probe's string form ("low", "medium" or "high").
func (p *PowerLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("power level must be a string: %w", err)
	}

	switch s {
	case "low":
		*p = PowerLow
	case "medium":
		*p = PowerMedium
	case "high":
		*p = PowerHigh
	default:
		return fmt.Errorf("unknown power level %q", s)
	}

	return nil
}

// MemoryUnknown is the DeviceMemoryGB value used when the probe could not
// read device memory. Some platforms expose memory only behind permissions,
// so an unknown value is an expected state rather than an error.
const MemoryUnknown = 0

// DeviceCapabilities is a read-only snapshot of the capability signals
// gathered by the platform probe at session start.
//
// The snapshot is taken once; capability changes during a session (such as
// a laptop switching to battery power) surface as a new snapshot and a new
// classification, never as mutation of an existing one.
type DeviceCapabilities struct {
	// PowerLevel is the probe's coarse power classification.
	PowerLevel PowerLevel `json:"powerLevel"`

	// HasGPU reports whether a GPU delegate is available for segmentation.
	HasGPU bool `json:"hasGPU"`

	// CPUCores is the logical CPU core count reported by the platform.
	CPUCores int `json:"cpuCores"`

	// DeviceMemoryGB is the device memory in whole gigabytes, or
	// MemoryUnknown when the probe could not read it. No real device
	// reports zero gigabytes, so the sentinel is unambiguous.
	DeviceMemoryGB int `json:"deviceMemoryGB,omitempty"`
}

// ParseDeviceCapabilities decodes a probe snapshot from its JSON wire form.
//
// The probe ships its signals as a small JSON object:
//
//	{"powerLevel": "high", "hasGPU": true, "cpuCores": 12, "deviceMemoryGB": 16}
//
// The deviceMemoryGB field is absent when the platform withholds memory
// information; the decoded snapshot then carries MemoryUnknown.
//
// Parameters:
//   - data: JSON-encoded probe snapshot
//
// Returns:
//   - DeviceCapabilities: The decoded snapshot
//   - error: Decode failures or structurally invalid signals
func ParseDeviceCapabilities(data []byte) (DeviceCapabilities, error) {
	var caps DeviceCapabilities
	if err := json.Unmarshal(data, &caps); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ParseDeviceCapabilities",
			"error":    err.Error(),
		}).Error("Failed to decode capability snapshot")
		return DeviceCapabilities{}, fmt.Errorf("failed to decode capability snapshot: %w", err)
	}

	if caps.CPUCores < 0 {
		return DeviceCapabilities{}, fmt.Errorf("invalid CPU core count: %d", caps.CPUCores)
	}
	if caps.DeviceMemoryGB < 0 {
		return DeviceCapabilities{}, fmt.Errorf("invalid device memory: %d GB", caps.DeviceMemoryGB)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "ParseDeviceCapabilities",
		"power_level": caps.PowerLevel.String(),
		"has_gpu":     caps.HasGPU,
		"cpu_cores":   caps.CPUCores,
		"memory_gb":   caps.DeviceMemoryGB,
	}).Debug("Parsed device capability snapshot")

	return caps, nil
}
