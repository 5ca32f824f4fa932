package frame

import "github.com/kyledaala/lact/internal/dsp"

// Lapped-filter application schedule. The filters themselves live in
// internal/dsp; this file decides where they run: across every internal
// boundary of each superblock's quad-tree split, and in a separate pass
// across the boundaries between superblocks. The filter size at any
// boundary is the smaller of the two adjacent transform sizes, evaluated
// per four-pixel segment.

// PostfilterStrategy selects which reconstruction-side filter undoes the
// blocking artifacts: the lapped postfilter (the exact inverse of the
// prefilter) or the Thor-style deblocking filter. Exactly one applies per
// engine; they are mutually exclusive by construction.
type PostfilterStrategy int

const (
	PostfilterLapped PostfilterStrategy = iota
	PostfilterDeblock
)

// filterColumn runs the size-(4<<f) lapped filter vertically across a
// horizontal boundary: taps straddle row boundaryRow, half either side,
// at column x.
func (e *Engine) filterColumn(c []int16, w, boundaryRow, x, f int, post bool) {
	m := dsp.TransformSize(f)
	base := (boundaryRow-m/2)*w + x
	var taps [32]int16
	for i := 0; i < m; i++ {
		taps[i] = c[base+i*w]
	}
	var out [32]int16
	if post {
		dsp.PostFilter(f, out[:m], taps[:m])
	} else {
		dsp.PreFilter(f, out[:m], taps[:m])
	}
	for i := 0; i < m; i++ {
		c[base+i*w] = out[i]
	}
}

// filterRow runs the filter horizontally across a vertical boundary at
// column boundaryCol, row y.
func (e *Engine) filterRow(c []int16, w, y, boundaryCol, f int, post bool) {
	m := dsp.TransformSize(f)
	base := y*w + boundaryCol - m/2
	if post {
		dsp.ApplyPostFilterRow(f, c, base, 1, 0, 0)
	} else {
		dsp.ApplyPreFilterRow(f, c, base, 1, 0, 0)
	}
}

// boundaryFilterSize gives the size class of the filter straddling the
// boundary between the 4x4 cells (cxA, cyA) and (cxB, cyB), in plane
// units: min of the two adjacent block sizes, clamped by subsampling.
func (e *Engine) boundaryFilterSize(cxA, cyA, cxB, cyB, xdec int) int {
	a := e.bsize.At(cxA<<uint(xdec), cyA<<uint(xdec)) - xdec
	b := e.bsize.At(cxB<<uint(xdec), cyB<<uint(xdec)) - xdec
	f := a
	if b < f {
		f = b
	}
	if f < 0 {
		f = 0
	}
	return f
}

// filterVerticalBoundary applies the filter across the vertical boundary
// at cell column cx (plane units), spanning cell rows [cy0, cy1).
func (e *Engine) filterVerticalBoundary(c []int16, w, cx, cy0, cy1, xdec int, post bool) {
	for cy := cy0; cy < cy1; cy++ {
		f := e.boundaryFilterSize(cx-1, cy, cx, cy, xdec)
		for y := cy << 2; y < (cy+1)<<2; y++ {
			e.filterRow(c, w, y, cx<<2, f, post)
		}
	}
}

// filterHorizontalBoundary applies the filter across the horizontal
// boundary at cell row cy, spanning cell columns [cx0, cx1).
func (e *Engine) filterHorizontalBoundary(c []int16, w, cy, cx0, cx1, xdec int, post bool) {
	for cx := cx0; cx < cx1; cx++ {
		f := e.boundaryFilterSize(cx, cy-1, cx, cy, xdec)
		for x := cx << 2; x < (cx+1)<<2; x++ {
			e.filterColumn(c, w, cy<<2, x, f, post)
		}
	}
}

// prefilterNode pre-filters every internal boundary of the quad-tree
// node at (cx, cy, level), in full-resolution 4x4-cell coordinates, the
// same units the band decoder's descent uses: this node's center
// boundaries first (vertical, then horizontal), then each child in the
// fixed child order. A node that maps to a single transform block in
// this plane (because it is a leaf, or because subsampling collapses it)
// has no internal boundary and is left alone.
func (e *Engine) prefilterNode(c []int16, w, cx, cy, level, xdec int) {
	size := e.bsize.At(cx, cy)
	if size < xdec {
		size = xdec
	}
	if size == level || level-xdec < 1 {
		return
	}
	pcx := cx >> uint(xdec)
	pcy := cy >> uint(xdec)
	pcells := 1 << uint(level-xdec)
	phalf := pcells >> 1
	e.filterVerticalBoundary(c, w, pcx+phalf, pcy, pcy+pcells, xdec, false)
	e.filterHorizontalBoundary(c, w, pcy+phalf, pcx, pcx+pcells, xdec, false)
	half := 1 << uint(level-1)
	e.prefilterNode(c, w, cx, cy, level-1, xdec)
	e.prefilterNode(c, w, cx+half, cy, level-1, xdec)
	e.prefilterNode(c, w, cx, cy+half, level-1, xdec)
	e.prefilterNode(c, w, cx+half, cy+half, level-1, xdec)
}

// postfilterNode exactly reverses prefilterNode: children first in
// reverse order, then this node's horizontal boundary, then vertical.
func (e *Engine) postfilterNode(c []int16, w, cx, cy, level, xdec int) {
	size := e.bsize.At(cx, cy)
	if size < xdec {
		size = xdec
	}
	if size == level || level-xdec < 1 {
		return
	}
	pcx := cx >> uint(xdec)
	pcy := cy >> uint(xdec)
	pcells := 1 << uint(level-xdec)
	phalf := pcells >> 1
	half := 1 << uint(level-1)
	e.postfilterNode(c, w, cx+half, cy+half, level-1, xdec)
	e.postfilterNode(c, w, cx, cy+half, level-1, xdec)
	e.postfilterNode(c, w, cx+half, cy, level-1, xdec)
	e.postfilterNode(c, w, cx, cy, level-1, xdec)
	e.filterHorizontalBoundary(c, w, pcy+phalf, pcx, pcx+pcells, xdec, true)
	e.filterVerticalBoundary(c, w, pcx+phalf, pcy, pcy+pcells, xdec, true)
}

// applyPrefilter pre-filters a whole plane: each superblock's internal
// boundaries, then the boundaries between superblocks with the
// size-of-adjacent-corners filter. The between-superblock pass skips
// image edges by construction (it only visits interior boundaries).
func (e *Engine) applyPrefilter(c []int16, xdec int) {
	w := e.frameWidth >> uint(xdec)
	sbCells := 8 >> uint(xdec)
	for sby := 0; sby < e.nvsb; sby++ {
		for sbx := 0; sbx < e.nhsb; sbx++ {
			e.prefilterNode(c, w, sbx*8, sby*8, 3, xdec)
		}
	}
	hCells := (e.frameHeight >> uint(xdec)) >> 2
	wCells := w >> 2
	for sbx := 1; sbx < e.nhsb; sbx++ {
		e.filterVerticalBoundary(c, w, sbx*sbCells, 0, hCells, xdec, false)
	}
	for sby := 1; sby < e.nvsb; sby++ {
		e.filterHorizontalBoundary(c, w, sby*sbCells, 0, wCells, xdec, false)
	}
}

// applyPostfilter reverses applyPrefilter across a reconstructed plane.
func (e *Engine) applyPostfilter(c []int16, xdec int) {
	w := e.frameWidth >> uint(xdec)
	sbCells := 8 >> uint(xdec)
	hCells := (e.frameHeight >> uint(xdec)) >> 2
	wCells := w >> 2
	for sby := e.nvsb - 1; sby >= 1; sby-- {
		e.filterHorizontalBoundary(c, w, sby*sbCells, 0, wCells, xdec, true)
	}
	for sbx := e.nhsb - 1; sbx >= 1; sbx-- {
		e.filterVerticalBoundary(c, w, sbx*sbCells, 0, hCells, xdec, true)
	}
	for sby := e.nvsb - 1; sby >= 0; sby-- {
		for sbx := e.nhsb - 1; sbx >= 0; sbx-- {
			e.postfilterNode(c, w, sbx*8, sby*8, 3, xdec)
		}
	}
}

// applyDeblock is the alternative postfilter strategy: Thor-style
// deblocking across every 8-pixel block boundary, gated by the skip mask
// so fully-skipped content is left alone. Replaces the lapped postfilter
// when the engine was configured with PostfilterDeblock.
func (e *Engine) applyDeblock(c []int16, skip []uint8, xdec, q int) {
	w := e.frameWidth >> uint(xdec)
	h := e.frameHeight >> uint(xdec)
	skipStride := w >> 2
	for x := 8; x < w; x += 8 {
		for y := 0; y+8 <= h; y += 8 {
			cx := x >> 2
			cy := y >> 2
			if skip[cy*skipStride+cx-1] != 0 && skip[cy*skipStride+cx] != 0 {
				continue
			}
			dsp.DeblockCol8(c, y*w+x, w, q)
		}
	}
	for y := 8; y < h; y += 8 {
		for x := 0; x+8 <= w; x += 8 {
			cx := x >> 2
			cy := y >> 2
			if skip[(cy-1)*skipStride+cx] != 0 && skip[cy*skipStride+cx] != 0 {
				continue
			}
			dsp.DeblockRow8(c, y*w+x, w, q)
		}
	}
}
