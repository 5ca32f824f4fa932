package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// A zero threshold is how the frame engine disables dering for a fully
// skip-masked block; both smoothing passes must then leave every pixel
// exactly as it was.
func TestDeringZeroThresholdIsNoOp(t *testing.T) {
	// The smoothing passes read up to 3 samples past the block on every
	// side, so build the bordered working buffer the frame engine hands
	// them (FiltBorder samples of padding all round).
	const n = 8
	const inStride = n + 2*FiltBorder
	in := make([]int16, inStride*inStride)
	for i := range in {
		in[i] = int16(i*7 - 30)
	}
	inBase := FiltBorder*inStride + FiltBorder
	want := make([]int16, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want[i*n+j] = in[inBase+i*inStride+j]
		}
	}

	y := make([]int16, n*n)
	FilterDeringDirection(y, 0, n, in, inBase, inStride, 3, 0, 2)
	require.Equal(t, want, y)

	y2 := make([]int16, n*n)
	FilterDeringOrthogonal(y2, 0, n, in, inBase, inStride, in, inBase, inStride, 3, 0, 2)
	require.Equal(t, want, y2)
}

// A block with strong horizontal banding and no vertical variation should
// report direction 1 (horizontal).
func TestDirFind8PicksHorizontalForHorizontalStripes(t *testing.T) {
	const stride = 8
	img := make([]int16, stride*stride)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img[y*stride+x] = int16(y * 100)
		}
	}
	dir, _ := DirFind8(img, 0, stride)
	require.Equal(t, 1, dir)
}
