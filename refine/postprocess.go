package refine

import (
	"fmt"

	"github.com/opd-ai/maskcore/preset"
	"github.com/sirupsen/logrus"
)

// PostProcessor cleans up raw model output before edge refinement using the
// enhanced detection settings. The passes run in a fixed order:
//
//  1. Confidence gate: pixels below the threshold become background.
//  2. Morphological opening: removes speckle smaller than the kernel.
//  3. Largest component: keeps only the biggest connected foreground region.
//  4. Minimum area: a foreground smaller than the area ratio is treated as
//     a failed detection and the whole mask is cleared.
//
// Like Engine, the output buffer is processor-owned and reused across
// frames; a returned mask stays valid until the next Apply. One processor
// serves one mask stream and Apply must not run concurrently on the same
// instance.
type PostProcessor struct {
	config preset.EnhancedDetectionConfig

	threshold uint8

	out    *Mask
	eroded []uint8 // morphology scratch, reused across frames
	opened []uint8 // morphology scratch, reused across frames
	labels []int32 // component labels scratch, reused across frames
	stack  []int32 // flood fill stack scratch
}

// NewPostProcessor creates a post-processor from enhanced detection
// settings. Disabled settings produce an identity processor.
func NewPostProcessor(config preset.EnhancedDetectionConfig) *PostProcessor {
	p := &PostProcessor{
		config:    config,
		threshold: confidenceByte(config.ConfidenceThreshold),
	}

	logrus.WithFields(logrus.Fields{
		"function":             "NewPostProcessor",
		"enabled":              config.Enabled,
		"confidence_threshold": config.ConfidenceThreshold,
		"morphology_enabled":   config.MorphologyEnabled,
		"kernel_size":          config.MorphologyKernelSize,
		"keep_largest":         config.KeepLargestComponentOnly,
		"min_area_ratio":       config.MinMaskAreaRatio,
	}).Info("Mask post-processor created")

	return p
}

// confidenceByte converts a [0, 1] confidence threshold to the 8-bit scale.
func confidenceByte(threshold float64) uint8 {
	if threshold <= 0 {
		return 0
	}
	if threshold >= 1 {
		return 255
	}
	return uint8(threshold*255 + 0.5)
}

// Config returns the configuration the processor was built from.
func (p *PostProcessor) Config() preset.EnhancedDetectionConfig {
	return p.config
}

// Apply runs the configured cleanup passes over a mask.
//
// A disabled processor returns the input unchanged, mirroring the engine's
// identity contract. When enabled, the returned mask is the processor-owned
// output buffer, valid until the next Apply.
func (p *PostProcessor) Apply(m *Mask) (*Mask, error) {
	if err := m.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Apply",
			"error":    err.Error(),
		}).Error("Mask validation failed")
		return nil, err
	}

	if !p.config.Enabled {
		return m, nil
	}

	p.ensureOutput(m.Width, m.Height)
	p.gate(m)

	if p.config.MorphologyEnabled {
		p.open()
	}
	if p.config.KeepLargestComponentOnly {
		p.keepLargest()
	}
	p.enforceMinArea()

	return p.out, nil
}

// GetName returns the filter name.
func (p *PostProcessor) GetName() string {
	if !p.config.Enabled {
		return "EnhancedDetection(off)"
	}
	return fmt.Sprintf("EnhancedDetection(%.2f)", p.config.ConfidenceThreshold)
}

// gate copies m into the output arena, zeroing pixels below the confidence
// threshold. Surviving pixels keep their original confidence values.
func (p *PostProcessor) gate(m *Mask) {
	threshold := p.threshold
	for i, v := range m.Pix {
		if v >= threshold && v > 0 {
			p.out.Pix[i] = v
		} else {
			p.out.Pix[i] = 0
		}
	}
}

// open applies a binary morphological opening (erode, then dilate) to the
// gated support. The structuring element is a square of the configured
// kernel size, clipped to the mask bounds so frame-edge foreground is not
// penalized for its missing neighbors. Intensities are preserved where the
// support survives.
func (p *PostProcessor) open() {
	width := p.out.Width
	height := p.out.Height
	radius := p.config.MorphologyKernelSize / 2
	if radius < 1 {
		return
	}

	p.ensureMorphScratch(width * height)

	// Erode: a pixel survives only if every in-bounds pixel under the
	// kernel is foreground.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			p.eroded[idx] = 0
			if p.out.Pix[idx] == 0 {
				continue
			}
			if p.windowAllForeground(x, y, radius) {
				p.eroded[idx] = 1
			}
		}
	}

	// Dilate the eroded support back out.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p.opened[y*width+x] = 0
			if p.windowAnyEroded(x, y, radius) {
				p.opened[y*width+x] = 1
			}
		}
	}

	for i := range p.out.Pix {
		if p.opened[i] == 0 {
			p.out.Pix[i] = 0
		}
	}
}

// windowAllForeground reports whether every in-bounds pixel under the kernel
// window at (x, y) is foreground.
func (p *PostProcessor) windowAllForeground(x, y, radius int) bool {
	width := p.out.Width
	height := p.out.Height

	for dy := -radius; dy <= radius; dy++ {
		ny := y + dy
		if ny < 0 || ny >= height {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			nx := x + dx
			if nx < 0 || nx >= width {
				continue
			}
			if p.out.Pix[ny*width+nx] == 0 {
				return false
			}
		}
	}
	return true
}

// windowAnyEroded reports whether any in-bounds pixel under the kernel
// window at (x, y) survived erosion.
func (p *PostProcessor) windowAnyEroded(x, y, radius int) bool {
	width := p.out.Width
	height := p.out.Height

	for dy := -radius; dy <= radius; dy++ {
		ny := y + dy
		if ny < 0 || ny >= height {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			nx := x + dx
			if nx < 0 || nx >= width {
				continue
			}
			if p.eroded[ny*width+nx] != 0 {
				return true
			}
		}
	}
	return false
}

// keepLargest zeroes every connected foreground component except the largest
// by pixel count. Components are 4-connected. Ties keep the component
// encountered first in scan order, which makes the pass deterministic.
func (p *PostProcessor) keepLargest() {
	width := p.out.Width
	height := p.out.Height

	p.ensureLabels(width * height)
	for i := range p.labels {
		p.labels[i] = 0
	}

	var bestLabel int32
	bestArea := 0
	nextLabel := int32(1)

	for start := range p.out.Pix {
		if p.out.Pix[start] == 0 || p.labels[start] != 0 {
			continue
		}
		area := p.fill(start, nextLabel, width, height)
		if area > bestArea {
			bestArea = area
			bestLabel = nextLabel
		}
		nextLabel++
	}

	if bestLabel == 0 {
		return // no foreground at all
	}

	for i := range p.out.Pix {
		if p.out.Pix[i] != 0 && p.labels[i] != bestLabel {
			p.out.Pix[i] = 0
		}
	}
}

// fill flood fills one component with an explicit stack and returns its
// area. Recursion is avoided; a full-frame component on a large mask would
// otherwise exhaust the goroutine stack.
func (p *PostProcessor) fill(start int, label int32, width, height int) int {
	p.stack = append(p.stack[:0], int32(start))
	p.labels[start] = label
	area := 0

	for len(p.stack) > 0 {
		idx := int(p.stack[len(p.stack)-1])
		p.stack = p.stack[:len(p.stack)-1]
		area++

		x := idx % width
		y := idx / width

		if x > 0 {
			p.pushIfForeground(idx-1, label)
		}
		if x < width-1 {
			p.pushIfForeground(idx+1, label)
		}
		if y > 0 {
			p.pushIfForeground(idx-width, label)
		}
		if y < height-1 {
			p.pushIfForeground(idx+width, label)
		}
	}

	return area
}

// pushIfForeground queues an unlabeled foreground pixel for the fill.
func (p *PostProcessor) pushIfForeground(idx int, label int32) {
	if p.out.Pix[idx] == 0 || p.labels[idx] != 0 {
		return
	}
	p.labels[idx] = label
	p.stack = append(p.stack, int32(idx))
}

// enforceMinArea clears the whole mask when the surviving foreground is too
// small to be a plausible person detection. A tiny blob composited over the
// background looks like a glitch; an empty mask reads as "nobody in frame".
func (p *PostProcessor) enforceMinArea() {
	if p.config.MinMaskAreaRatio <= 0 {
		return
	}

	foreground := 0
	for _, v := range p.out.Pix {
		if v != 0 {
			foreground++
		}
	}

	ratio := float64(foreground) / float64(len(p.out.Pix))
	if ratio >= p.config.MinMaskAreaRatio {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":       "enforceMinArea",
		"area_ratio":     ratio,
		"min_area_ratio": p.config.MinMaskAreaRatio,
	}).Warn("Foreground below minimum area, clearing mask")

	for i := range p.out.Pix {
		p.out.Pix[i] = 0
	}
}

// ensureOutput sizes the output arena for the current frame dimensions.
func (p *PostProcessor) ensureOutput(width, height int) {
	if p.out != nil && p.out.Width == width && p.out.Height == height {
		return
	}
	p.out = &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// ensureMorphScratch sizes the morphology scratch buffers.
func (p *PostProcessor) ensureMorphScratch(n int) {
	if cap(p.eroded) < n {
		p.eroded = make([]uint8, n)
		p.opened = make([]uint8, n)
		return
	}
	p.eroded = p.eroded[:n]
	p.opened = p.opened[:n]
}

// ensureLabels sizes the component label scratch buffer.
func (p *PostProcessor) ensureLabels(n int) {
	if cap(p.labels) < n {
		p.labels = make([]int32, n)
		return
	}
	p.labels = p.labels[:n]
}
