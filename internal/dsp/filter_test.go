package dsp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// The size-8 filter pair must round-trip exactly: post(pre(x)) == x for
// random vectors across the working coefficient range.
func TestFilterRoundTripSize8(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		var x, y, out [8]int16
		for j := range x {
			x[j] = int16(rng.Intn(1353) - 676)
		}
		PreFilter8(y[:], x[:])
		PostFilter8(out[:], y[:])
		require.Equal(t, x, out)
	}
}

// The same round-trip property must hold at every filter size class.
func TestFilterRoundTripAllSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for ln := 0; ln <= 3; ln++ {
		n := TransformSize(ln)
		for trial := 0; trial < 200; trial++ {
			x := make([]int16, n)
			for j := range x {
				x[j] = int16(rng.Intn(1353) - 676)
			}
			y := make([]int16, n)
			out := make([]int16, n)
			PreFilter(ln, y, x)
			PostFilter(ln, out, y)
			require.Equal(t, x, out, "size class ln=%d", ln)
		}
	}
}
