package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindowGeometry_Unbuffered(t *testing.T) {
	t.Parallel()

	w, err := NewWindowGeometry(1200, 800, false)

	require.NoError(t, err)
	assert.Equal(t, WindowGeometry{Width: 1200, Height: 800}, w)
	assert.Equal(t, "--window-size=1200,900", w.WindowSizeArg())
	assert.Equal(t, 1200, w.Viewport().Width)
	assert.Equal(t, 800, w.Viewport().Height)
}

func TestNewWindowGeometry_Undersized(t *testing.T) {
	t.Parallel()

	tests := []struct{ w, h int }{
		{49, 800},
		{1200, 49},
		{0, 0},
		{-5, 100},
	}
	for _, tt := range tests {
		_, err := NewWindowGeometry(tt.w, tt.h, true)
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr, "%dx%d", tt.w, tt.h)
		assert.ErrorIs(t, err, ErrConfig)
	}
}

func TestNewWindowGeometry_MinSizeAccepted(t *testing.T) {
	t.Parallel()

	_, err := NewWindowGeometry(MinSize, MinSize, false)
	assert.NoError(t, err)
}

func TestApplyBuffer_SameSignBothDimensions(t *testing.T) {
	t.Parallel()

	base := WindowGeometry{Width: 1200, Height: 800}
	for i := 0; i < 500; i++ {
		grown := base.applyBuffer(false)
		assert.GreaterOrEqual(t, grown.Width, base.Width)
		assert.GreaterOrEqual(t, grown.Height, base.Height)
		assert.LessOrEqual(t, grown.Width, base.Width+maxBuffer)
		assert.LessOrEqual(t, grown.Height, base.Height+maxBuffer)

		shrunk := base.applyBuffer(true)
		assert.LessOrEqual(t, shrunk.Width, base.Width)
		assert.LessOrEqual(t, shrunk.Height, base.Height)
		assert.GreaterOrEqual(t, shrunk.Width, base.Width-maxBuffer)
		assert.GreaterOrEqual(t, shrunk.Height, base.Height-maxBuffer)
	}
}

func TestApplyBuffer_NeverBelowMinSize(t *testing.T) {
	t.Parallel()

	base := WindowGeometry{Width: MinSize, Height: MinSize + 10}
	for i := 0; i < 500; i++ {
		shrunk := base.applyBuffer(true)
		assert.GreaterOrEqual(t, shrunk.Width, MinSize)
		assert.GreaterOrEqual(t, shrunk.Height, MinSize)
	}
}

func TestNewWindowGeometry_BufferedIsConsistent(t *testing.T) {
	t.Parallel()

	// for sizes above the minimum, both dimensions move the same way
	for i := 0; i < 500; i++ {
		w, err := NewWindowGeometry(1200, 800, true)
		require.NoError(t, err)

		grew := w.Width >= 1200 && w.Height >= 800
		shrank := w.Width <= 1200 && w.Height <= 800
		assert.True(t, grew || shrank, "mixed direction: %+v", w)
		assert.GreaterOrEqual(t, w.Width, MinSize)
		assert.GreaterOrEqual(t, w.Height, MinSize)
	}
}

func TestUniform_Inclusive(t *testing.T) {
	t.Parallel()

	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := uniform(1, 3)
		require.True(t, v >= 1 && v <= 3, "out of range: %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}
