package predict

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyledaala/lact/internal/entropy"
)

func TestDecodeModeInRange(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i * 41)
	}
	dec := entropy.NewDecoder(data)
	m := NewModeCDF()
	mode := DecodeMode(dec, m, 0, 0, 0)
	require.GreaterOrEqual(t, mode, 0)
	require.Less(t, mode, NModes)
}

func TestPredictorDCAveragesNeighbors(t *testing.T) {
	left := []int16{10, 0, 0, 0}
	up := []int16{20, 0, 0, 0}
	out := Predictor(0, 0, left, nil, up, nil)
	require.Equal(t, int16(15), out[0])
}

func TestChromaFromLumaZeroInputIsZero(t *testing.T) {
	out := ChromaFromLuma([4]int{0, 0, 0, 0}, nil, nil, 4)
	for _, v := range out {
		require.Equal(t, int16(0), v)
	}
}
