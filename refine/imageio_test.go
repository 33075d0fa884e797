package refine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadMask_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mask.png")

	m := createTestMask(48, 32)
	require.NoError(t, SaveMask(path, m))

	loaded, err := LoadMask(path)
	require.NoError(t, err)

	assert.Equal(t, m.Width, loaded.Width)
	assert.Equal(t, m.Height, loaded.Height)
	assert.Equal(t, m.Pix, loaded.Pix, "PNG round trip must be lossless")
}

func TestLoadMask_MissingFile(t *testing.T) {
	loaded, err := LoadMask(filepath.Join(t.TempDir(), "does-not-exist.png"))
	assert.Error(t, err)
	assert.Nil(t, loaded)
}

func TestSaveMask_InvalidMask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.png")
	assert.Error(t, SaveMask(path, nil))
	assert.Error(t, SaveMask(path, &Mask{Width: 2, Height: 2, Pix: []uint8{1}}))
}

func TestSaveMask_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.unknown")
	assert.Error(t, SaveMask(path, createTestMask(4, 4)))
}
