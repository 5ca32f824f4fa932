// Package mv implements the hierarchical motion-vector grid: five decode
// passes over a mesh of candidate vector points at increasing density,
// each later pass gated on the validity of specific earlier neighbors.
// The level order is part of the bitstream contract: it fixes the order
// in which the entropy decoder is consulted.
package mv

import "github.com/kyledaala/lact/internal/entropy"

// exQ8/eyQ8 are the per-level Laplace expectation parameters for the
// horizontal/vertical motion offset, indexed by grid level 0..4.
var exQ8 = [5]int{628, 1382, 1879, 2119, 2102}
var eyQ8 = [5]int{230, 525, 807, 1076, 1332}

// Point is one node of the MV grid.
type Point struct {
	Valid bool
	MVX   int
	MVY   int
}

// Grid holds the motion-vector grid for one inter frame, addressed in
// half-block units (vx, vy) from 0 to nhmvbs/nvmvbs inclusive.
type Grid struct {
	pts            []Point
	stride         int
	nhmvbs, nvmvbs int
}

// NewGrid allocates a grid wide enough to cover nhmvbs x nvmvbs
// (inclusive) vector points.
func NewGrid(nhmvbs, nvmvbs int) *Grid {
	stride := nhmvbs + 1
	return &Grid{
		pts:    make([]Point, stride*(nvmvbs+1)),
		stride: stride,
		nhmvbs: nhmvbs,
		nvmvbs: nvmvbs,
	}
}

func (g *Grid) at(vx, vy int) *Point {
	return &g.pts[vy*g.stride+vx]
}

// At returns the grid point at (vx, vy), or a zero, invalid point if out
// of range, so neighbor reads near the frame edge need no bounds checks.
func (g *Grid) At(vx, vy int) Point {
	if vx < 0 || vy < 0 || vx > g.nhmvbs || vy > g.nvmvbs {
		return Point{}
	}
	return *g.at(vx, vy)
}

// Lookup returns the motion vector governing grid position (vx, vy): the
// point itself if valid, else the nearest enclosing coarser-level point
// (alignment 2, then 4). Level-0 points are always valid, so the walk
// terminates with a usable vector for every position in range.
func (g *Grid) Lookup(vx, vy int) Point {
	if vx < 0 {
		vx = 0
	}
	if vy < 0 {
		vy = 0
	}
	if vx > g.nhmvbs {
		vx = g.nhmvbs
	}
	if vy > g.nvmvbs {
		vy = g.nvmvbs
	}
	if p := g.At(vx, vy); p.Valid {
		return p
	}
	if p := g.At(vx&^1, vy&^1); p.Valid {
		return p
	}
	return g.At(vx&^3, vy&^3)
}

// Clear resets every point to invalid.
func (g *Grid) Clear() {
	for i := range g.pts {
		g.pts[i] = Point{}
	}
}

// decodeMVOffset decodes one signed axis offset: a magnitude from the
// Laplace ladder bounded by maxMag (a safety margin so an offset can
// never point far enough outside the frame to break motion
// compensation), then sign-deinterleaved with (v>>1) XOR -(v&1): ox/oy
// are coded as a single non-negative "odd means negative" integer rather
// than with a separate sign bit.
func decodeMVOffset(dec *entropy.Decoder, exQ8Level, maxMag int) int {
	raw := dec.DecodeUnsignedLaplace(exQ8Level, 0)
	bound := maxMag * 2
	if bound > 0 && raw > bound {
		raw = bound
	}
	return (raw >> 1) ^ -(raw & 1)
}

// Predictor computes the motion-vector predictor for the grid point at
// (vx, vy, level): the median of the left, up and up-right neighbors one
// level coarser, falling back to whichever of those are valid, and to
// (0, 0) if none are. The result is scaled down by mvRes to the grid's
// pre-shift units; the encoder computes the identical value.
func Predictor(g *Grid, vx, vy, level, mvRes int) (px, py int) {
	step := 4 >> uint(level)
	if step < 1 {
		step = 1
	}
	candidates := [3][2]int{
		{vx - step, vy},
		{vx, vy - step},
		{vx + step, vy - step},
	}
	var xs, ys []int
	for _, c := range candidates {
		p := g.At(c[0], c[1])
		if p.Valid {
			xs = append(xs, p.MVX>>uint(mvRes))
			ys = append(ys, p.MVY>>uint(mvRes))
		}
	}
	if len(xs) == 0 {
		return 0, 0
	}
	return median(xs), median(ys)
}

func median(v []int) int {
	// Insertion sort: v has at most 3 elements.
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
	return v[len(v)/2]
}

// Level1Prob derives the Q15 probability that a level-1 grid point codes
// a vector, from its four level-0 corner neighbors: a monotonic step
// function of how many corners are valid (more valid corners, the more
// likely this point also codes a vector). Must match the encoder's
// function exactly.
func Level1Prob(g *Grid, vx, vy int) uint16 {
	valid := 0
	for _, c := range [4][2]int{{-2, -2}, {2, -2}, {-2, 2}, {2, 2}} {
		if g.At(vx+c[0], vy+c[1]).Valid {
			valid++
		}
	}
	switch valid {
	case 4:
		return 28000
	case 3:
		return 22000
	case 2:
		return 16384
	case 1:
		return 10000
	default:
		return 4000
	}
}

// DecodeLevel0 decodes the unconditional coarsest grid, every 4 units in
// both axes, covering the whole frame.
func DecodeLevel0(dec *entropy.Decoder, g *Grid, mvRes, width, height int) {
	for vy := 0; vy <= g.nvmvbs; vy += 4 {
		for vx := 0; vx <= g.nhmvbs; vx += 4 {
			p := g.at(vx, vy)
			p.Valid = true
			px, py := Predictor(g, vx, vy, 0, mvRes)
			ox := decodeMVOffset(dec, exQ8[0]>>uint(mvRes), width<<4)
			oy := decodeMVOffset(dec, eyQ8[0]>>uint(mvRes), height<<4)
			p.MVX = (px + ox) << uint(mvRes)
			p.MVY = (py + oy) << uint(mvRes)
		}
	}
}

// DecodeLevel1 decodes the offset-(2,2) grid, gated per point by
// Level1Prob.
func DecodeLevel1(dec *entropy.Decoder, g *Grid, mvRes, width, height int) {
	for vy := 2; vy <= g.nvmvbs; vy += 4 {
		for vx := 2; vx <= g.nhmvbs; vx += 4 {
			pValid := Level1Prob(g, vx, vy)
			p := g.at(vx, vy)
			p.Valid = dec.DecodeBool(pValid) != 0
			if p.Valid {
				px, py := Predictor(g, vx, vy, 1, mvRes)
				ox := decodeMVOffset(dec, exQ8[1]>>uint(mvRes), width<<3)
				oy := decodeMVOffset(dec, eyQ8[1]>>uint(mvRes), height<<3)
				p.MVX = (px + ox) << uint(mvRes)
				p.MVY = (py + oy) << uint(mvRes)
			}
		}
	}
}

// Fixed Q15 gating probabilities: level 2 uses a deliberately off-center
// prior (13684/32768), levels 3 and 4 exactly 1/2.
const (
	level2FixedProb = 13684
	level34Prob     = 16384
)

// DecodeLevel2 decodes the diamond grid at stride 2, gated on its four
// orthogonal level 0/1 neighbors all being valid.
func DecodeLevel2(dec *entropy.Decoder, g *Grid, mvRes, width, height int) {
	for vy := 0; vy <= g.nvmvbs; vy += 2 {
		start := 0
		if vy&3 == 0 {
			start = 2
		}
		for vx := start; vx <= g.nhmvbs; vx += 4 {
			if !(vy-2 < 0 || g.At(vx, vy-2).Valid) ||
				!(vx-2 < 0 || g.At(vx-2, vy).Valid) ||
				!(vy+2 > g.nvmvbs || g.At(vx, vy+2).Valid) ||
				!(vx+2 > g.nhmvbs || g.At(vx+2, vy).Valid) {
				continue
			}
			p := g.at(vx, vy)
			p.Valid = dec.DecodeBool(level2FixedProb) != 0
			if p.Valid {
				px, py := Predictor(g, vx, vy, 2, mvRes)
				ox := decodeMVOffset(dec, exQ8[2]>>uint(mvRes), width<<2)
				oy := decodeMVOffset(dec, eyQ8[2]>>uint(mvRes), height<<2)
				p.MVX = (px + ox) << uint(mvRes)
				p.MVY = (py + oy) << uint(mvRes)
			}
		}
	}
}

// DecodeLevel3 decodes the odd/odd grid, gated on its four diagonal
// level-2 neighbors.
func DecodeLevel3(dec *entropy.Decoder, g *Grid, mvRes, width, height int) {
	for vy := 1; vy <= g.nvmvbs; vy += 2 {
		for vx := 1; vx <= g.nhmvbs; vx += 2 {
			if !g.At(vx-1, vy-1).Valid || !g.At(vx+1, vy-1).Valid ||
				!g.At(vx+1, vy+1).Valid || !g.At(vx-1, vy+1).Valid {
				continue
			}
			p := g.at(vx, vy)
			p.Valid = dec.DecodeBool(level34Prob) != 0
			if p.Valid {
				px, py := Predictor(g, vx, vy, 3, mvRes)
				ox := decodeMVOffset(dec, exQ8[3]>>uint(mvRes), width<<1)
				oy := decodeMVOffset(dec, eyQ8[3]>>uint(mvRes), height<<1)
				p.MVX = (px + ox) << uint(mvRes)
				p.MVY = (py + oy) << uint(mvRes)
			}
		}
	}
}

// DecodeLevel4 decodes the remaining integer grid points, gated on their
// four orthogonal level-3 neighbors.
func DecodeLevel4(dec *entropy.Decoder, g *Grid, mvRes, width, height int) {
	for vy := 2; vy <= g.nvmvbs-2; vy++ {
		start := 3 - (vy & 1)
		for vx := start; vx <= g.nhmvbs-2; vx += 2 {
			if !g.At(vx, vy-1).Valid || !g.At(vx-1, vy).Valid ||
				!g.At(vx, vy+1).Valid || !g.At(vx+1, vy).Valid {
				continue
			}
			p := g.at(vx, vy)
			p.Valid = dec.DecodeBool(level34Prob) != 0
			if p.Valid {
				px, py := Predictor(g, vx, vy, 4, mvRes)
				ox := decodeMVOffset(dec, exQ8[4]>>uint(mvRes), width)
				oy := decodeMVOffset(dec, eyQ8[4]>>uint(mvRes), height)
				p.MVX = (px + ox) << uint(mvRes)
				p.MVY = (py + oy) << uint(mvRes)
			}
		}
	}
}

// DecodeAll runs all five levels in order and returns the populated grid.
func DecodeAll(dec *entropy.Decoder, nhmvbs, nvmvbs, mvRes, width, height int) *Grid {
	g := NewGrid(nhmvbs, nvmvbs)
	DecodeLevel0(dec, g, mvRes, width, height)
	DecodeLevel1(dec, g, mvRes, width, height)
	DecodeLevel2(dec, g, mvRes, width, height)
	DecodeLevel3(dec, g, mvRes, width, height)
	DecodeLevel4(dec, g, mvRes, width, height)
	return g
}
