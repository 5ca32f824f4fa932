package dsp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTransformRoundTrip checks that IDCT2D undoes FDCT2D exactly at
// every size class: the kernels are invertible in exact integer
// arithmetic on the working coefficient range.
func TestTransformRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for ln := 0; ln <= 3; ln++ {
		n := TransformSize(ln)
		src := make([]int16, n*n)
		for i := range src {
			src[i] = int16(rng.Intn(511) - 255)
		}
		freq := make([]int16, n*n)
		FDCT2D[ln](freq, n, src, n)
		back := make([]int16, n*n)
		IDCT2D[ln](back, n, freq, n)
		require.Equal(t, src, back, "size class ln=%d", ln)
	}
}
