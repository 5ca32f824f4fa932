package mv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyledaala/lact/internal/entropy"
)

func TestDecodeAllProducesDenserGridAtLowerLevels(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i*101 + 7)
	}
	dec := entropy.NewDecoder(data)
	g := DecodeAll(dec, 16, 16, 0, 640, 480)

	require.True(t, g.At(0, 0).Valid, "level 0 points are unconditionally valid")
	require.True(t, g.At(16, 16).Valid)

	level0 := 0
	level1 := 0
	total := 0
	for vy := 0; vy <= g.nvmvbs; vy++ {
		for vx := 0; vx <= g.nhmvbs; vx++ {
			if g.At(vx, vy).Valid {
				total++
			}
		}
	}
	for vy := 0; vy <= g.nvmvbs; vy += 4 {
		for vx := 0; vx <= g.nhmvbs; vx += 4 {
			level0++
		}
	}
	for vy := 2; vy <= g.nvmvbs; vy += 4 {
		for vx := 2; vx <= g.nhmvbs; vx += 4 {
			if g.At(vx, vy).Valid {
				level1++
			}
		}
	}
	require.GreaterOrEqual(t, total, level0+level1)
}

// TestLevel1GatingCutsOffHigherLevels encodes a grid whose level-0
// points all carry the zero vector and whose level-1 points all decode
// invalid. The level-2/3/4 gates then never open, so those passes must
// consume no symbols at all: a sentinel encoded directly after the
// level-1 bits has to decode intact once DecodeAll returns.
func TestLevel1GatingCutsOffHigherLevels(t *testing.T) {
	const nmvbs = 12
	const mvRes = 0
	enc := entropy.NewEncoder()
	for vy := 0; vy <= nmvbs; vy += 4 {
		for vx := 0; vx <= nmvbs; vx += 4 {
			enc.EncodeUnsignedLaplace(0, exQ8[0], 0)
			enc.EncodeUnsignedLaplace(0, eyQ8[0], 0)
		}
	}
	for vy := 2; vy <= nmvbs; vy += 4 {
		for vx := 2; vx <= nmvbs; vx += 4 {
			enc.EncodeBool(0, 28000)
		}
	}
	enc.EncodeBits(0xA5, 8)
	data := enc.Finish()

	dec := entropy.NewDecoder(data)
	g := DecodeAll(dec, nmvbs, nmvbs, mvRes, 1024, 1024)

	for vy := 0; vy <= nmvbs; vy++ {
		for vx := 0; vx <= nmvbs; vx++ {
			p := g.At(vx, vy)
			if vx%4 == 0 && vy%4 == 0 {
				require.True(t, p.Valid)
				require.Equal(t, 0, p.MVX)
				require.Equal(t, 0, p.MVY)
			} else {
				require.False(t, p.Valid, "point (%d,%d)", vx, vy)
			}
		}
	}
	require.Equal(t, uint32(0xA5), dec.DecodeBits(8),
		"levels 2-4 consumed entropy symbols despite closed gates")
	require.False(t, dec.EOF())
}

// TestGatingMonotonicity checks grid consistency on arbitrary input: a
// valid level-3 point (odd, odd) implies its four diagonal neighbors are
// valid (or out of grid).
func TestGatingMonotonicity(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i*31 + 5)
	}
	dec := entropy.NewDecoder(data)
	g := DecodeAll(dec, 16, 16, 1, 640, 480)
	inOrValid := func(vx, vy int) bool {
		if vx < 0 || vy < 0 || vx > g.nhmvbs || vy > g.nvmvbs {
			return true
		}
		return g.At(vx, vy).Valid
	}
	for vy := 1; vy <= g.nvmvbs; vy += 2 {
		for vx := 1; vx <= g.nhmvbs; vx += 2 {
			if g.At(vx, vy).Valid {
				require.True(t, inOrValid(vx-1, vy-1) && inOrValid(vx+1, vy-1) &&
					inOrValid(vx-1, vy+1) && inOrValid(vx+1, vy+1),
					"level-3 point (%d,%d) valid with invalid gates", vx, vy)
			}
		}
	}
}

func TestLevel1ProbMonotonicInValidNeighbors(t *testing.T) {
	g := NewGrid(8, 8)
	none := Level1Prob(g, 2, 2)
	g.at(0, 0).Valid = true
	g.at(4, 0).Valid = true
	one := Level1Prob(g, 2, 2)
	require.Greater(t, one, none)
}

func TestMedianPredictorFallsBackToZero(t *testing.T) {
	g := NewGrid(8, 8)
	px, py := Predictor(g, 0, 0, 0, 0)
	require.Equal(t, 0, px)
	require.Equal(t, 0, py)
}
