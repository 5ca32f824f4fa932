package pvq

import (
	"math"

	"github.com/kyledaala/lact/internal/entropy"
)

// DecodeDCLaplace decodes one block's DC coefficient through the plain
// (non gain/theta) path: a generic-model magnitude, a sign bit, scaled
// and added to the predicted DC.
func DecodeDCLaplace(dec *entropy.Decoder, m *entropy.Model, exDC *int, scale, predDC int) int {
	mag := dec.DecodeGeneric(m, exDC, 0)
	if mag != 0 {
		if dec.DecodeBits(1) != 0 {
			mag = -mag
		}
	}
	return mag*scale + predDC
}

// DecodeResidual decodes a block's AC coefficients through the plain
// path: a generic-coded pulse count vk, then vk unit pulses scattered
// over the n positions via DecodePulses, each result scaled by scale and
// added to the scan-ordered predictor predt. Returns the reconstructed
// coefficients and vk, and publishes the block's adaptation statistics
// into adapt.
func DecodeResidual(dec *entropy.Decoder, mG *entropy.Model, exG *int, n, scale int, predt []int, adapt *Context) ([]int, int) {
	vk := dec.DecodeGeneric(mG, exG, 0)
	y := make([]int, n)
	posCDF := entropy.NewAdaptiveCDF(n, 4)
	DecodePulses(dec, posCDF, y, vk)
	out := make([]int, n)
	nonzero := 0
	for i := 0; i < n; i++ {
		if y[i] != 0 {
			nonzero++
		}
		out[i] = y[i]*scale + predt[i]
	}
	adapt.Curr[AdaptK] = vk << 8
	adapt.Curr[AdaptSumEx] = *exG
	adapt.Curr[AdaptCount] = nonzero << 8
	adapt.Curr[AdaptCountEx] = n << 8
	return out, vk
}

// DecodePulses scatters k unit pulses across y (length n) one at a time,
// each pulse picking its position from posCDF (so the decoder and an
// equivalent encoder stay in lock-step adaptively). The sign of a
// position is decoded once, on its first pulse; later pulses landing on
// the same position grow the magnitude, keeping sum(|y|) == k exactly.
func DecodePulses(dec *entropy.Decoder, posCDF *entropy.AdaptiveCDF, y []int, k int) {
	for p := 0; p < k; p++ {
		pos := posCDF.Decode(dec)
		switch {
		case y[pos] > 0:
			y[pos]++
		case y[pos] < 0:
			y[pos]--
		case dec.DecodeBits(1) != 0:
			y[pos] = -1
		default:
			y[pos] = 1
		}
	}
}

// UnquantK derives the PVQ pulse count for the gain/theta path from the
// decoded gain qg and the energy already present in the reference vector
// ref. A keyframe has no usable reference, so k is driven by qg alone; an
// inter block blends in the reference's own norm, scaled down by the
// transform-size shift. Deterministic, and identical on the encoder side.
func UnquantK(ref []int, qg, scale, shift int, isKeyframe bool) int {
	base := qg
	if base < 0 {
		base = -base
	}
	if isKeyframe || len(ref) == 0 {
		return base
	}
	var normSq int64
	for _, v := range ref {
		normSq += int64(v) * int64(v)
	}
	refNorm := int(math.Sqrt(float64(normSq)) / float64(int(1)<<uint(shift)))
	k := base + refNorm/8
	if k < 0 {
		return 0
	}
	return k
}

// DequantPVQ reconstructs the n coefficients of the gain/theta path from
// the decoded pulse vector y (already signed and scattered by
// DecodePulses), the reference predt, a per-position scale table and the
// gain qg: the pulse vector is renormalized onto a sphere of radius
// derived from qg before being added to the predictor. qg sets the
// overall vector gain; the per-position pvqScale table lets later stages
// apply unequal weighting without another decode pass (nil means flat).
func DequantPVQ(y, predt []int, pvqScale []int16, n, scale, qg, shift int, isKeyframe bool) []int {
	var normSq int64
	for _, v := range y {
		normSq += int64(v) * int64(v)
	}
	gain := float64(qg) * float64(scale)
	norm := math.Sqrt(float64(normSq))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		var scaled float64
		if norm > 0 {
			scaled = float64(y[i]) * gain / norm
		}
		w := int16(1 << 6)
		if i < len(pvqScale) {
			w = pvqScale[i]
		}
		v := int(scaled) * int(w) >> 6
		out[i] = v + predt[i]
	}
	return out
}
