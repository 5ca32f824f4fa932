package dsp

// Forward/inverse integer transform kernels, exposed as dispatch tables
// indexed by a size-class ln (0..3 for 4/8/16/32).
//
// The kernel is an unnormalised integer Walsh-Hadamard butterfly network,
// the same +1/-1 butterfly stage the lapped filters open with. A Hadamard
// matrix H satisfies H*H = n*I exactly, so the inverse is the forward
// butterfly followed by an exact right shift: invertible in exact integer
// arithmetic at every size, with no rounding in either direction.

// Sizes indexed by ln.
var transformSize = [4]int{4, 8, 16, 32}

// FDCT2D is the forward transform dispatch table, indexed by ln (0..3).
var FDCT2D = [4]func(dst []int16, dstStride int, src []int16, srcStride int){
	forward2D(0), forward2D(1), forward2D(2), forward2D(3),
}

// IDCT2D is the inverse transform dispatch table, indexed by ln (0..3).
var IDCT2D = [4]func(dst []int16, dstStride int, src []int16, srcStride int){
	inverse2D(0), inverse2D(1), inverse2D(2), inverse2D(3),
}

// hadamard1D runs the in-place unnormalised Walsh-Hadamard butterfly over
// a stride-separated 1-D sequence of length n (a power of two).
func hadamard1D(a []int, off, stride, n int) {
	for length := 1; length < n; length <<= 1 {
		for i := 0; i < n; i += length * 2 {
			for j := i; j < i+length; j++ {
				x := a[off+j*stride]
				y := a[off+(j+length)*stride]
				a[off+j*stride] = x + y
				a[off+(j+length)*stride] = x - y
			}
		}
	}
}

func forward2D(ln int) func(dst []int16, dstStride int, src []int16, srcStride int) {
	n := transformSize[ln]
	return func(dst []int16, dstStride int, src []int16, srcStride int) {
		buf := make([]int, n*n)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				buf[y*n+x] = int(src[y*srcStride+x])
			}
		}
		for y := 0; y < n; y++ {
			hadamard1D(buf, y*n, 1, n)
		}
		for x := 0; x < n; x++ {
			hadamard1D(buf, x, n, n)
		}
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dst[y*dstStride+x] = ClipCoeff(buf[y*n+x])
			}
		}
	}
}

func inverse2D(ln int) func(dst []int16, dstStride int, src []int16, srcStride int) {
	n := transformSize[ln]
	// log2(n*n) total normalisation shift: one application of the same
	// butterfly in each dimension reproduces n*n times the original value.
	shift := 0
	for 1<<uint(shift) < n*n {
		shift++
	}
	return func(dst []int16, dstStride int, src []int16, srcStride int) {
		buf := make([]int, n*n)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				buf[y*n+x] = int(src[y*srcStride+x])
			}
		}
		for y := 0; y < n; y++ {
			hadamard1D(buf, y*n, 1, n)
		}
		for x := 0; x < n; x++ {
			hadamard1D(buf, x, n, n)
		}
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dst[y*dstStride+x] = ClipCoeff(buf[y*n+x] >> uint(shift))
			}
		}
	}
}

// TransformSize returns the spatial size (4/8/16/32) for a size class ln.
func TransformSize(ln int) int {
	return transformSize[ln]
}
