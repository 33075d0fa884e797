package refine

import (
	"fmt"
	"image"
	"image/color"
)

// Mask is a single-channel segmentation confidence buffer. Each element is a
// foreground confidence in [0, 255], stored row-major to match the layout
// the segmentation model emits. Pixel (x, y) lives at Pix[y*Width+x].
type Mask struct {
	Width  int
	Height int

	// Pix holds exactly Width*Height confidence values.
	Pix []uint8
}

// NewMask allocates a zeroed mask with the given dimensions.
//
// Parameters:
//   - width: Mask width in pixels, at least 1
//   - height: Mask height in pixels, at least 1
//
// Returns:
//   - *Mask: The allocated mask
//   - error: Non-positive dimensions
func NewMask(width, height int) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}, nil
}

// NewMaskFromImage converts an image to a confidence mask using the standard
// luminance mapping. The mask origin is the image's bounds minimum, so
// images with non-zero origins convert correctly.
func NewMaskFromImage(img image.Image) *Mask {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	m := &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			m.Pix[y*width+x] = gray.Y
		}
	}

	return m
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	return &Mask{
		Width:  m.Width,
		Height: m.Height,
		Pix:    append([]uint8(nil), m.Pix...),
	}
}

// Fill sets every pixel to the given confidence value.
func (m *Mask) Fill(value uint8) {
	for i := range m.Pix {
		m.Pix[i] = value
	}
}

// ToGray returns the mask as a grayscale image. The returned image shares no
// memory with the mask.
func (m *Mask) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+m.Width], m.Pix[y*m.Width:(y+1)*m.Width])
	}
	return img
}

// ToRGBA expands the mask to a four-channel image, replicating the
// confidence value across R, G and B with full opacity. Compositors consume
// masks through standard four-channel texture uploads, so the replication is
// part of the output contract rather than a convenience.
func (m *Mask) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := m.Pix[y*m.Width+x]
			offset := img.PixOffset(x, y)
			img.Pix[offset] = v
			img.Pix[offset+1] = v
			img.Pix[offset+2] = v
			img.Pix[offset+3] = 255
		}
	}
	return img
}

// WriteRGBA writes the mask into an existing four-channel image, using the
// same R=G=B replication as ToRGBA. The destination must match the mask
// dimensions exactly. Callers on a per-frame path reuse one destination
// image across calls instead of allocating through ToRGBA each frame.
func (m *Mask) WriteRGBA(dst *image.RGBA) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if dst == nil {
		return fmt.Errorf("destination image cannot be nil")
	}
	bounds := dst.Bounds()
	if bounds.Dx() != m.Width || bounds.Dy() != m.Height {
		return fmt.Errorf("%w: destination %dx%d for mask %dx%d",
			ErrInvalidDimensions, bounds.Dx(), bounds.Dy(), m.Width, m.Height)
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := m.Pix[y*m.Width+x]
			offset := dst.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			dst.Pix[offset] = v
			dst.Pix[offset+1] = v
			dst.Pix[offset+2] = v
			dst.Pix[offset+3] = 255
		}
	}
	return nil
}

// Validate checks that the mask is usable as filter input. It reports an
// error for a nil mask, non-positive dimensions, or a pixel buffer that
// does not match Width times Height.
func (m *Mask) Validate() error {
	if m == nil {
		return ErrNilMask
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, m.Width, m.Height)
	}
	if len(m.Pix) != m.Width*m.Height {
		return fmt.Errorf("%w: %d pixels for %dx%d",
			ErrBufferSize, len(m.Pix), m.Width, m.Height)
	}
	return nil
}
