package refine

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMask(t *testing.T) {
	m, err := NewMask(640, 480)
	require.NoError(t, err)
	assert.Equal(t, 640, m.Width)
	assert.Equal(t, 480, m.Height)
	assert.Len(t, m.Pix, 640*480)

	for _, v := range m.Pix {
		if v != 0 {
			t.Fatal("new mask must start as all background")
		}
	}
}

func TestNewMask_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
		{"negative width", -1, 10},
		{"negative height", 10, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMask(tt.width, tt.height)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestMask_Clone(t *testing.T) {
	m := createTestMask(20, 10)
	clone := m.Clone()

	require.Equal(t, m.Pix, clone.Pix)
	assert.Equal(t, m.Width, clone.Width)
	assert.Equal(t, m.Height, clone.Height)

	// The clone owns its buffer.
	clone.Pix[0] = 99
	assert.NotEqual(t, uint8(99), m.Pix[0])
}

func TestMask_Fill(t *testing.T) {
	m := createTestMask(8, 8)
	m.Fill(170)

	for _, v := range m.Pix {
		require.Equal(t, uint8(170), v)
	}
}

func TestNewMaskFromImage_Gray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*40 + y*10)})
		}
	}

	m := NewMaskFromImage(img)
	require.Equal(t, 4, m.Width)
	require.Equal(t, 3, m.Height)

	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, uint8(x*40+y*10), m.Pix[y*4+x], "(%d,%d)", x, y)
		}
	}
}

func TestNewMaskFromImage_NonZeroOrigin(t *testing.T) {
	// Sub-images carry offset bounds; conversion must honor them.
	img := image.NewGray(image.Rect(2, 3, 6, 7))
	img.SetGray(2, 3, color.Gray{Y: 200})

	m := NewMaskFromImage(img)
	require.Equal(t, 4, m.Width)
	require.Equal(t, 4, m.Height)
	assert.Equal(t, uint8(200), m.Pix[0])
}

func TestMask_ToGrayRoundTrip(t *testing.T) {
	m := createTestMask(16, 12)

	gray := m.ToGray()
	back := NewMaskFromImage(gray)

	assert.Equal(t, m.Pix, back.Pix)
}

func TestMask_ToRGBA(t *testing.T) {
	m := createTestMask(6, 4)
	rgba := m.ToRGBA()

	require.Equal(t, 6, rgba.Bounds().Dx())
	require.Equal(t, 4, rgba.Bounds().Dy())

	// Confidence replicates into R, G and B; alpha is always opaque.
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			v := m.Pix[y*6+x]
			c := rgba.RGBAAt(x, y)
			require.Equal(t, v, c.R, "(%d,%d) R", x, y)
			require.Equal(t, v, c.G, "(%d,%d) G", x, y)
			require.Equal(t, v, c.B, "(%d,%d) B", x, y)
			require.Equal(t, uint8(255), c.A, "(%d,%d) A", x, y)
		}
	}
}

func TestMask_WriteRGBA(t *testing.T) {
	m := createTestMask(6, 4)
	dst := image.NewRGBA(image.Rect(0, 0, 6, 4))

	require.NoError(t, m.WriteRGBA(dst))

	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			v := m.Pix[y*6+x]
			c := dst.RGBAAt(x, y)
			require.Equal(t, v, c.R, "(%d,%d) R", x, y)
			require.Equal(t, v, c.G, "(%d,%d) G", x, y)
			require.Equal(t, v, c.B, "(%d,%d) B", x, y)
			require.Equal(t, uint8(255), c.A, "(%d,%d) A", x, y)
		}
	}
}

func TestMask_WriteRGBA_Mismatch(t *testing.T) {
	m := createTestMask(6, 4)

	err := m.WriteRGBA(image.NewRGBA(image.Rect(0, 0, 5, 4)))
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	assert.Error(t, m.WriteRGBA(nil))
}

func TestMask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mask    *Mask
		wantErr bool
	}{
		{"valid", createTestMask(4, 4), false},
		{"nil", nil, true},
		{"zero width", &Mask{Width: 0, Height: 4, Pix: []uint8{}}, true},
		{"negative height", &Mask{Width: 4, Height: -1, Pix: []uint8{}}, true},
		{"short buffer", &Mask{Width: 4, Height: 4, Pix: make([]uint8, 15)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mask.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
