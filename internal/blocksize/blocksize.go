// Package blocksize implements the block-size quad-tree: per-4x4-cell
// transform-size assignment, decoded one superblock at a time and shared
// by every later stage (transform selection, intra-prediction neighbor
// lookups, lapped-filter sizing).
//
// Each superblock decodes a nested partition: a node above the 4x4 leaf
// level codes one "split?" bit; on split, each quadrant recurses the same
// way. Size-4 nodes are leaves unconditionally and code nothing.
package blocksize

import "github.com/kyledaala/lact/internal/entropy"

// Size classes, matching the ln values used by the transform/filter
// dispatch tables: 0=4x4, 1=8x8, 2=16x16, 3=32x32.
const (
	Size4 = iota
	Size8
	Size16
	Size32

	MaxLevel = Size32
)

// borderSize is the value written into the 4-cell apron surrounding the
// coded frame: it reads back as the largest size class, so boundary
// neighbor lookups behave as if the frame were surrounded by maximal
// blocks.
const borderSize = Size32

// Grid holds the per-4x4-cell size-class assignment for an entire frame,
// addressed in 4x4-cell units with a 4-cell border on every side so
// neighbor lookups never need bounds checks (the same full-buffer +
// base-offset idiom used in internal/dsp).
type Grid struct {
	cells  []uint8
	stride int
	origin int // index of cell (0,0) within cells
	w, h   int // usable width/height in 4x4 cells
}

// NewGrid allocates a quad-tree grid sized for an nhsb x nvsb superblock
// frame (each superblock covers 8 four-pixel cells, i.e. 32x32 pixels).
func NewGrid(nhsb, nvsb int) *Grid {
	w := nhsb * 8
	h := nvsb * 8
	stride := w + 8
	g := &Grid{
		cells:  make([]uint8, stride*(h+8)),
		stride: stride,
		origin: 4*stride + 4,
		w:      w,
		h:      h,
	}
	for i := range g.cells {
		g.cells[i] = borderSize
	}
	return g
}

func (g *Grid) index(cx, cy int) int {
	return g.origin + cy*g.stride + cx
}

// At returns the size class covering 4x4 cell (cx, cy); out-of-range
// coordinates resolve to the border apron.
func (g *Grid) At(cx, cy int) int {
	if cx < -4 || cy < -4 || cx >= g.w+4 || cy >= g.h+4 {
		return borderSize
	}
	return int(g.cells[g.index(cx, cy)])
}

func (g *Grid) fill(cx, cy, cells, size int) {
	for y := 0; y < cells; y++ {
		for x := 0; x < cells; x++ {
			g.cells[g.index(cx+x, cy+y)] = uint8(size)
		}
	}
}

// DecodeSuperblock decodes one superblock's worth of the quad-tree
// (32x32 pixels, 8x8 four-pixel cells) at superblock coordinates (sbx,
// sby), starting at the top of the recursion (size class 3 = 32x32), and
// writes the decoded size classes into the grid.
func (g *Grid) DecodeSuperblock(dec *entropy.Decoder, splitProb []uint16, sbx, sby int) {
	g.decodeNode(dec, splitProb, sbx*8, sby*8, MaxLevel)
}

// decodeNode decodes the quad-tree node covering a (1<<level)*4-pixel
// square cell, starting at (cx, cy) in 4x4-cell units. splitProb[level]
// is the Q15 probability that a level>0 node is NOT split further; this
// package takes it as a parameter already resolved for the current level.
func (g *Grid) decodeNode(dec *entropy.Decoder, splitProb []uint16, cx, cy, level int) {
	if level == Size4 {
		g.fill(cx, cy, 1, Size4)
		return
	}
	notSplit := dec.DecodeBool(splitProb[level]) != 0
	if notSplit {
		cells := 1 << uint(level)
		g.fill(cx, cy, cells, level)
		return
	}
	half := 1 << uint(level-1)
	g.decodeNode(dec, splitProb, cx, cy, level-1)
	g.decodeNode(dec, splitProb, cx+half, cy, level-1)
	g.decodeNode(dec, splitProb, cx, cy+half, level-1)
	g.decodeNode(dec, splitProb, cx+half, cy+half, level-1)
}

// InitBorder stamps the apron surrounding an nhsb x nvsb frame with the
// border size class. NewGrid's default fill only covers the allocation
// itself; a grid reused between frames needs its apron restamped.
func (g *Grid) InitBorder() {
	for cx := -4; cx < g.w+4; cx++ {
		for cy := -4; cy < 0; cy++ {
			g.cells[g.index(cx, cy)] = borderSize
		}
		for cy := g.h; cy < g.h+4; cy++ {
			g.cells[g.index(cx, cy)] = borderSize
		}
	}
	for cy := -4; cy < g.h+4; cy++ {
		for cx := -4; cx < 0; cx++ {
			g.cells[g.index(cx, cy)] = borderSize
		}
		for cx := g.w; cx < g.w+4; cx++ {
			g.cells[g.index(cx, cy)] = borderSize
		}
	}
}

// Consistent reports whether the grid satisfies the quad-tree invariant:
// every size-N block occupies an N/4-aligned, N/4-sized square of
// identical cell values. Tests use it to validate DecodeSuperblock's
// output.
func (g *Grid) Consistent() bool {
	for sby := 0; sby*8 < g.h; sby++ {
		for sbx := 0; sbx*8 < g.w; sbx++ {
			if !g.consistentNode(sbx*8, sby*8, MaxLevel) {
				return false
			}
		}
	}
	return true
}

func (g *Grid) consistentNode(cx, cy, level int) bool {
	size := g.At(cx, cy)
	if size == level {
		cells := 1 << uint(level)
		for y := 0; y < cells; y++ {
			for x := 0; x < cells; x++ {
				if g.At(cx+x, cy+y) != size {
					return false
				}
			}
		}
		return true
	}
	if level == Size4 {
		return false
	}
	half := 1 << uint(level-1)
	return g.consistentNode(cx, cy, level-1) &&
		g.consistentNode(cx+half, cy, level-1) &&
		g.consistentNode(cx, cy+half, level-1) &&
		g.consistentNode(cx+half, cy+half, level-1)
}
