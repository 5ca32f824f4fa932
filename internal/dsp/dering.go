package dsp

import "math"

// Directional dering post-filter: per-8x8-block direction search followed
// by directional and orthogonal smoothing, applied after the lapped
// post-filter.
//
// The direction search minimizes the weighted variance along each of 8
// candidate line directions (the squared error between the block and a
// version where each pixel is replaced by the average of its line); since
// every direction shares the same sum(x^2) term, that term is never
// computed. See section 2, step 2 of
// http://jmvalin.ca/notes/intra_paint.pdf. Directions run at 45-degree
// increments, 0 meaning up-right and 1 horizontal.

const (
	DeringNBlocks = 8

	// FiltBorder is how many samples of context the smoothing taps read
	// past the block on each side; callers hand the filters a working
	// buffer padded by this much all round.
	FiltBorder = 3

	// DeringVeryLarge fills the border of the working buffer outside the
	// frame: any tap landing there exceeds every plausible threshold and
	// so contributes nothing.
	DeringVeryLarge = 30000
)

var thresh8Q8 = [18]int16{
	128, 134, 150, 168, 188, 210, 234, 262,
	292, 327, 365, 408, 455, 509, 569, 635,
	710, 768,
}

// directionOffsets[dir] holds the (dy, dx) unit step for the line
// direction dir (0..7), spaced 45 degrees apart starting at up-right.
var directionOffsets = [8][2]int{
	{-1, 1}, {0, 1}, {1, 1}, {1, 0},
	{1, -1}, {0, -1}, {-1, -1}, {-1, 0},
}

// ilog returns floor(log2(v))+1 for v > 0, 0 for v <= 0.
func ilog(v int) int {
	n := 0
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}

func clampi(lo, v, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mini(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// DirFind8 searches the 8 candidate line directions over an 8x8 block of
// post-filtered coefficients and returns the best-fit direction (0..7) and
// the variance gap between it and its orthogonal direction (used by
// ComputeThresh to scale how aggressively the block is dered).
func DirFind8(img []int16, base, stride int) (dir int, variance int32) {
	var cost [8]int64
	for d := 0; d < 8; d++ {
		dy, dx := directionOffsets[d][0], directionOffsets[d][1]
		// Perpendicular unit step, used to enumerate the 8 parallel lines
		// running in direction (dy, dx) across the block.
		pdy, pdx := -dx, dy
		var total int64
		for i := -7; i <= 7; i++ {
			var lineSum int64
			count := 0
			for j := 0; j < 8; j++ {
				y := j*dy + i*pdy
				x := j*dx + i*pdx
				if y < 0 || y > 7 || x < 0 || x > 7 {
					continue
				}
				lineSum += int64(img[base+y*stride+x])
				count++
			}
			if count == 0 {
				continue
			}
			total += lineSum * lineSum / int64(count)
		}
		cost[d] = total
	}
	best := 0
	for d := 1; d < 8; d++ {
		if cost[d] > cost[best] {
			best = d
		}
	}
	return best, int32(cost[best] - cost[(best+2)&7])
}

var dirTaps = [3]int{3, 2, 2}

// FilterDeringDirection smooths an ln-sized (1<<ln square) block along the
// detected direction. in is the bordered working buffer at stride
// inStride; y/yStride is the output.
func FilterDeringDirection(y []int16, yBase, yStride int, in []int16, inBase, inStride, ln, threshold, dir int) {
	n := 1 << uint(ln)
	dy, dx := directionOffsets[dir][0], directionOffsets[dir][1]
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			xx := in[inBase+i*inStride+j]
			var sum int
			for k := 1; k <= 3; k++ {
				p0 := int(in[inBase+(i+k*dy)*inStride+j+k*dx]) - int(xx)
				p1 := int(in[inBase+(i-k*dy)*inStride+j-k*dx]) - int(xx)
				if Abs(p0) < threshold {
					sum += dirTaps[k-1] * p0
				}
				if Abs(p1) < threshold {
					sum += dirTaps[k-1] * p1
				}
			}
			y[yBase+i*yStride+j] = ClipCoeff(int(xx) + ((sum + 8) >> 4))
		}
	}
}

// FilterDeringOrthogonal smooths orthogonally to the detected direction,
// with a tighter, locally-adapted threshold so it does not blur an edge
// the directional pass has already cleaned up.
func FilterDeringOrthogonal(y []int16, yBase, yStride int, in []int16, inBase, inStride int, x []int16, xBase, xStride, ln, threshold, dir int) {
	n := 1 << uint(ln)
	// Unit step perpendicular to the direction's (dy, dx).
	offset := -directionOffsets[dir][1]*inStride + directionOffsets[dir][0]
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			yy := in[inBase+i*inStride+j]
			athresh := mini(threshold, threshold/3+Abs(int(in[inBase+i*inStride+j])-int(x[xBase+i*xStride+j])))
			var sum int
			for _, step := range [4]int{offset, -offset, 2 * offset, -2 * offset} {
				p := int(in[inBase+i*inStride+j+step]) - int(yy)
				if Abs(p) < athresh {
					sum += p
				}
			}
			y[yBase+i*yStride+j] = ClipCoeff(int(yy) + ((3*sum + 8) >> 4))
		}
	}
}

// ComputeThresh derives a per-8x8-block dering threshold from the base
// quantizer-derived threshold, the block's own directional variance gap
// and the whole-superblock variance. A high variance gap means a highly
// directional pattern (a high-contrast edge), where more deringing is
// safe; a low one means a low-contrast edge or non-directional texture
// that must not be blurred.
func ComputeThresh(baseThreshold int, blockVar int32, sbVar int32, sbSize int) int {
	v1 := mini(32767, int(blockVar)>>6)
	v2 := mini(32767, int(sbVar)/(sbSize*sbSize))
	idx := clampi(0, ilog(v1*v2)-9, 17)
	return (baseThreshold * int(thresh8Q8[idx])) >> 8
}

// QuantizerDeringThreshold maps a quantizer index to the base dering
// threshold: the estimated amount of ringing at that quantizer. Ringing
// grows with the quantizer but with an exponent slightly below one, since
// at coarse quantization many coefficients are already near zero; the
// curve here keeps that shape. Being a post-filter parameter it never
// feeds back into the bitstream, so it needs no table agreement with the
// encoder.
func QuantizerDeringThreshold(q int) int {
	if q <= 0 {
		return 0
	}
	if q > 511 {
		q = 511
	}
	// Matches the table's endpoints (table[1]=1, table[511]=190) under a
	// power curve q^e with e = log(190)/log(511), about 0.84.
	return int(math.Pow(float64(q), math.Log(190)/math.Log(511)) + 0.5)
}

func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}
