// Package predict implements intra-frame prediction: per-block mode
// selection conditioned on neighboring block modes, a small bank of
// directional coefficient-domain predictors, and chroma-from-luma
// prediction that derives a chroma block's low frequencies from the
// co-located luma block via a per-mode weight table.
package predict

import "github.com/kyledaala/lact/internal/entropy"

// NModes is the number of intra prediction modes.
const NModes = 10

// ModeCDF holds the adaptive, neighbor-conditioned intra mode model: one
// adaptive CDF per distinct left-neighbor mode. The left mode alone
// captures most of the "modes copy horizontally" signal at a fraction of
// the context-table size a full (left, up-left, up) conditioning would
// need.
type ModeCDF struct {
	byLeft [NModes]*entropy.AdaptiveCDF
}

// NewModeCDF returns a freshly-initialized mode model; the frame engine
// re-creates it once per frame like the rest of the adaptive state.
func NewModeCDF() *ModeCDF {
	m := &ModeCDF{}
	for i := range m.byLeft {
		m.byLeft[i] = entropy.NewAdaptiveCDF(NModes, 5)
	}
	return m
}

// DecodeMode decodes the intra mode for a block given its left, up-left
// and up neighbor modes; only left selects the context bucket (see
// ModeCDF's doc comment), and only that bucket adapts.
func DecodeMode(dec *entropy.Decoder, m *ModeCDF, left, upLeft, up int) int {
	ctx := clampMode(left)
	return m.byLeft[ctx].Decode(dec)
}

// EncodeMode is DecodeMode's encoder-side mirror: it emits mode through
// the same context bucket and applies the identical adaptation, so a test
// bitstream producer stays in lock-step with the decoder.
func EncodeMode(enc *entropy.Encoder, m *ModeCDF, mode, left, upLeft, up int) {
	ctx := clampMode(left)
	m.byLeft[ctx].Encode(enc, mode)
}

func clampMode(mode int) int {
	if mode < 0 {
		return 0
	}
	if mode >= NModes {
		return NModes - 1
	}
	return mode
}

// Predictor produces the coefficient-domain prediction for an n x n
// (n = 1<<ln) block from its decoded intra mode and its four
// already-decoded neighbor coefficient blocks (left, up-left, up,
// up-right). Mode 0 is always DC (flat prediction from the average of
// available neighbor DCs); modes 1..NModes-1 each bias the prediction
// along one of a fan of directions by copying a neighbor's corresponding
// frequency with a mode-dependent damping factor. The whole pipeline
// stays in the transform domain until the final inverse transform, so the
// predictors do too.
func Predictor(mode, ln int, left, upLeft, up, upRight []int16) []int16 {
	n2 := 1 << uint(2*ln)
	out := make([]int16, n2)
	if mode == 0 {
		out[0] = dcAverage(left, up)
		return out
	}
	src := pickDirectionSource(mode, left, upLeft, up, upRight)
	damp := directionDamping(mode)
	for i := 0; i < n2 && i < len(src); i++ {
		out[i] = int16((int(src[i]) * damp) >> 6)
	}
	return out
}

func dcAverage(left, up []int16) int16 {
	var sum int64
	n := 0
	if len(left) > 0 {
		sum += int64(left[0])
		n++
	}
	if len(up) > 0 {
		sum += int64(up[0])
		n++
	}
	if n == 0 {
		return 0
	}
	return int16(sum / int64(n))
}

func pickDirectionSource(mode int, left, upLeft, up, upRight []int16) []int16 {
	switch mode % 4 {
	case 1:
		return left
	case 2:
		return up
	case 3:
		return upRight
	default:
		return upLeft
	}
}

// directionDamping returns a Q6 scale in (0, 64] that weakens the
// borrowed neighbor frequency as the mode index grows, so higher mode
// indices behave more conservatively (closer to a flat DC fallback) than
// the primary horizontal/vertical directions.
func directionDamping(mode int) int {
	damp := 64 - (mode/4)*8
	if damp < 16 {
		damp = 16
	}
	return damp
}

// chromaWeightsQ6[mode] gives the Q6 weights a luma block coded with the
// given intra mode contributes to a co-located chroma prediction, summed
// over the four luma blocks a (possibly subsampled) chroma block
// overlaps.
var chromaWeightsQ6 = [NModes][3]int{
	{64, 0, 0}, {48, 16, 0}, {48, 0, 16}, {32, 16, 16},
	{32, 24, 8}, {32, 8, 24}, {24, 20, 20}, {24, 32, 8},
	{24, 8, 32}, {16, 24, 24},
}

// ChromaFromLuma predicts a chroma block from the chroma plane's own
// frequency context d and the subsampled luma-frequency buffer l,
// weighting by the four overlapping luma blocks' intra modes.
func ChromaFromLuma(lumaModes [4]int, d, l []int16, n2 int) []int16 {
	var w [3]int
	for _, mode := range lumaModes {
		mw := chromaWeightsQ6[clampMode(mode)]
		w[0] += mw[0]
		w[1] += mw[1]
		w[2] += mw[2]
	}
	out := make([]int16, n2)
	for i := 0; i < n2; i++ {
		var dv, lv int
		if i < len(d) {
			dv = int(d[i])
		}
		if i < len(l) {
			lv = int(l[i])
		}
		out[i] = int16((dv*w[0] + lv*w[1] + lv*w[2]) >> 8)
	}
	return out
}
