package refine

import (
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// LoadMask reads an image file and converts it to a confidence mask.
//
// Format detection follows the file contents. Color images are reduced to
// luminance first, so exported compositor frames and plain grayscale masks
// both load correctly.
func LoadMask(path string) (*Mask, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask image: %w", err)
	}

	m := NewMaskFromImage(imaging.Grayscale(img))

	logrus.WithFields(logrus.Fields{
		"function": "LoadMask",
		"path":     path,
		"width":    m.Width,
		"height":   m.Height,
	}).Debug("Loaded mask from image file")

	return m, nil
}

// SaveMask writes a mask to an image file, replicating the confidence value
// across the color channels with full opacity. The encoding format derives
// from the file extension.
func SaveMask(path string, m *Mask) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if err := imaging.Save(m.ToRGBA(), path); err != nil {
		return fmt.Errorf("failed to save mask image: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "SaveMask",
		"path":     path,
		"width":    m.Width,
		"height":   m.Height,
	}).Debug("Saved mask to image file")

	return nil
}
