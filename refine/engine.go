package refine

import (
	"fmt"
	"math"

	"github.com/opd-ai/maskcore/preset"
	"github.com/sirupsen/logrus"
)

const (
	// minKernelRadius is the floor applied to the derived kernel radius so
	// a near-zero feather amount still produces a visible soften.
	minKernelRadius = 3

	// featherRadiusScale converts a feather amount in [0, 1] to a pixel
	// radius before flooring.
	featherRadiusScale = 20

	// temporalCurrentWeight and temporalPreviousWeight blend the freshly
	// smoothed frame with the previous output. Weighting the current
	// frame at 0.7 suppresses mask flicker without visible ghosting when
	// the subject moves.
	temporalCurrentWeight  = 0.7
	temporalPreviousWeight = 0.3
)

// Engine applies spatial edge feathering and optional temporal smoothing to
// segmentation masks.
//
// One engine instance serves one video track: the previous-frame state
// inside the engine belongs to a single mask stream, and Refine must never
// run concurrently on the same instance. Frames for a track arrive strictly
// in sequence, so per-call locking is left to the owner.
//
// The output buffer is engine-owned and reused across frames. A returned
// mask stays valid until the next Refine or Reset call; callers that need
// the result longer must Clone it.
type Engine struct {
	config preset.EdgeRefinementConfig

	kernelRadius int
	weights      []float64 // flattened (2r+1)x(2r+1) Gaussian tap table

	out  *Mask // engine-owned output arena
	prev *Mask // previous output, retained only while temporal smoothing is on
}

// NewEngine creates a refinement engine from an edge refinement
// configuration.
//
// The kernel radius and Gaussian tap table derive from the configuration
// once, here; a changed configuration means a new engine. Engines for
// disabled configurations skip the derivation entirely and act as the
// identity transform.
//
// Parameters:
//   - config: The edge refinement section of a resolved configuration
//
// Returns:
//   - *Engine: The new engine instance
func NewEngine(config preset.EdgeRefinementConfig) *Engine {
	e := &Engine{config: config}

	if config.Enabled {
		e.kernelRadius = kernelRadiusFor(config.FeatherAmount)
		e.weights = gaussianWeights(e.kernelRadius)
	}

	logrus.WithFields(logrus.Fields{
		"function":           "NewEngine",
		"enabled":            config.Enabled,
		"feather_amount":     config.FeatherAmount,
		"temporal_smoothing": config.TemporalSmoothing,
		"kernel_radius":      e.kernelRadius,
	}).Info("Mask refinement engine created")

	return e
}

// kernelRadiusFor derives the spatial kernel radius from a feather amount.
// The radius scales linearly with feathering and never drops below the
// minimum, so degenerate feather values still soften edges.
func kernelRadiusFor(featherAmount float64) int {
	radius := int(math.Floor(featherAmount * featherRadiusScale))
	if radius < minKernelRadius {
		radius = minKernelRadius
	}
	return radius
}

// gaussianWeights precomputes the unnormalized Gaussian tap table for a
// kernel radius, with sigma equal to the radius. Normalization happens per
// pixel against the in-bounds weight sum, which keeps border handling exact
// without padding.
func gaussianWeights(radius int) []float64 {
	size := 2*radius + 1
	weights := make([]float64, size*size)
	sigma2 := 2.0 * float64(radius) * float64(radius)

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			weights[(dy+radius)*size+(dx+radius)] = math.Exp(-d2 / sigma2)
		}
	}

	return weights
}

// KernelRadius returns the derived spatial kernel radius, or zero when the
// engine is disabled.
func (e *Engine) KernelRadius() int {
	return e.kernelRadius
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() preset.EdgeRefinementConfig {
	return e.config
}

// Refine applies the configured spatial and temporal smoothing to a mask.
//
// When refinement is disabled this is the identity: the input mask is
// returned unmodified, nothing is allocated, and temporal state is not
// touched. When enabled, the returned mask is the engine-owned output
// buffer, valid until the next Refine or Reset call.
//
// A mask whose dimensions differ from the previous frame resets temporal
// state implicitly. Mid-call resolution changes are routine (the platform
// renegotiates capture size on window moves and network adaptation), so a
// mismatch is handled, never reported.
//
// Parameters:
//   - m: The raw segmentation mask for the current frame
//
// Returns:
//   - *Mask: The refined mask
//   - error: Structurally invalid input (nil, empty, short buffer)
func (e *Engine) Refine(m *Mask) (*Mask, error) {
	if err := m.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Refine",
			"error":    err.Error(),
		}).Error("Mask validation failed")
		return nil, err
	}

	if !e.config.Enabled {
		return m, nil
	}

	e.ensureOutput(m.Width, m.Height)
	e.smooth(m)

	if e.config.TemporalSmoothing {
		e.blendPrevious()
		e.storePrevious()
	}

	return e.out, nil
}

// Reset discards temporal state. The next refined frame passes through
// spatial smoothing only, exactly as if it were the first frame of a track.
// Callers reset on camera switches and capture restarts, where blending
// against stale content would smear unrelated frames together.
func (e *Engine) Reset() {
	e.prev = nil

	logrus.WithFields(logrus.Fields{
		"function": "Reset",
	}).Debug("Temporal state discarded")
}

// Apply implements Filter.
func (e *Engine) Apply(m *Mask) (*Mask, error) {
	return e.Refine(m)
}

// GetName returns the filter name.
func (e *Engine) GetName() string {
	if !e.config.Enabled {
		return "EdgeRefinement(off)"
	}
	return fmt.Sprintf("EdgeRefinement(r=%d)", e.kernelRadius)
}

// smooth runs the spatial Gaussian pass from m into the output arena.
//
// The kernel window is clipped to the mask bounds and each pixel normalizes
// by the weight actually accumulated, so border pixels average over their
// real neighborhood instead of padded values. The center tap is always in
// bounds, which keeps the denominator positive.
func (e *Engine) smooth(m *Mask) {
	width := m.Width
	height := m.Height
	radius := e.kernelRadius
	size := 2*radius + 1

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum, weightSum float64

			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= height {
					continue
				}
				rowOffset := ny * width
				tapOffset := (dy + radius) * size

				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= width {
						continue
					}
					w := e.weights[tapOffset+dx+radius]
					sum += w * float64(m.Pix[rowOffset+nx])
					weightSum += w
				}
			}

			e.out.Pix[y*width+x] = uint8(sum/weightSum + 0.5)
		}
	}
}

// blendPrevious mixes the previous output into the freshly smoothed frame.
// A previous frame with different dimensions is stale state from before a
// resolution change and is skipped; storePrevious replaces it right after.
func (e *Engine) blendPrevious() {
	if e.prev == nil || e.prev.Width != e.out.Width || e.prev.Height != e.out.Height {
		return
	}

	for i, v := range e.out.Pix {
		blended := temporalCurrentWeight*float64(v) + temporalPreviousWeight*float64(e.prev.Pix[i])
		e.out.Pix[i] = uint8(blended + 0.5)
	}
}

// storePrevious copies the current output into the previous-frame buffer,
// replacing (not merging) whatever was there.
func (e *Engine) storePrevious() {
	if e.prev == nil || e.prev.Width != e.out.Width || e.prev.Height != e.out.Height {
		e.prev = e.out.Clone()
		return
	}
	copy(e.prev.Pix, e.out.Pix)
}

// ensureOutput sizes the output arena for the current frame dimensions.
func (e *Engine) ensureOutput(width, height int) {
	if e.out != nil && e.out.Width == width && e.out.Height == height {
		return
	}
	e.out = &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}
