package frame

import (
	"math"

	"github.com/kyledaala/lact/internal/blocksize"
	"github.com/kyledaala/lact/internal/dsp"
	"github.com/kyledaala/lact/internal/entropy"
	"github.com/kyledaala/lact/internal/predict"
	"github.com/kyledaala/lact/internal/pvq"
)

// transQuantAdjQ15[ln] compensates the transform's per-size gain so one
// per-plane scale covers every block size on the gain/theta path.
var transQuantAdjQ15 = [3]int{32768, 27146, 22418}

// blockTask is one pending node of the quad-tree descent. The descent is
// at most four levels deep, so it runs on an explicit stack that makes
// the fixed child order part of the code shape rather than the call
// graph.
type blockTask struct {
	bx, by int
	level  int
	hasUR  bool
}

// decodeBlock walks the block-size quad-tree below the superblock at
// (bx, by, level) in pre-order with child order (0,0), (1,0), (0,1),
// (1,1), invoking the band decoder at each leaf. A 32x32 leaf decodes as
// four 16x16 bands; the band decoder itself never sees a size above 16.
func (e *Engine) decodeBlock(fc *frameCtx, pli, bx, by, level int, hasUR bool) {
	xdec := e.info.Planes[pli].Xdec
	stack := make([]blockTask, 0, 21)
	stack = append(stack, blockTask{bx, by, level, hasUR})
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		d := e.bsize.At(t.bx<<uint(t.level), t.by<<uint(t.level))
		if d < xdec {
			d = xdec
		}
		if d == t.level {
			ln := d - xdec
			if ln == blocksize.Size32 {
				// A full 32x32 leaf is coded as four 16x16 bands.
				bx2 := t.bx << 1
				by2 := t.by << 1
				e.singleBandDecode(fc, ln-1, pli, bx2, by2, true)
				e.singleBandDecode(fc, ln-1, pli, bx2+1, by2, t.hasUR)
				e.singleBandDecode(fc, ln-1, pli, bx2, by2+1, true)
				e.singleBandDecode(fc, ln-1, pli, bx2+1, by2+1, false)
			} else {
				e.singleBandDecode(fc, ln, pli, t.bx, t.by, t.hasUR)
			}
			continue
		}
		l := t.level - 1
		bx2 := t.bx << 1
		by2 := t.by << 1
		// Pushed in reverse so pops come out in the fixed child order.
		stack = append(stack,
			blockTask{bx2 + 1, by2 + 1, l, false},
			blockTask{bx2, by2 + 1, l, true},
			blockTask{bx2 + 1, by2, l, t.hasUR},
			blockTask{bx2, by2, l, true},
		)
	}
}

// clampBandSize bounds a neighbor's size class to the band range [0, 2]:
// bands never exceed 16x16.
func clampBandSize(nsize int) int {
	if nsize < 0 {
		return 0
	}
	if nsize > 2 {
		return 2
	}
	return nsize
}

// extractBlock copies an n x n region of a stride-w coefficient plane
// into a flat n*n slice (row-major), the layout the intra predictors
// consume.
func extractBlock(src []int16, w, base, n int) []int16 {
	out := make([]int16, n*n)
	for y := 0; y < n; y++ {
		copy(out[y*n:(y+1)*n], src[base+y*w:base+y*w+n])
	}
	return out
}

// singleBandDecode reconstructs one transform block of size class
// ln (0..2 for 4/8/16) at block coordinates (bx, by) in units of the
// block size: forward transform of the MC predictor, intra or inter
// prediction, zig-zag, de-quantization through one of the two PVQ paths,
// inverse zig-zag and inverse transform.
func (e *Engine) singleBandDecode(fc *frameCtx, ln, pli, bx, by int, hasUR bool) {
	xdec := e.info.Planes[pli].Xdec
	ydec := e.info.Planes[pli].Ydec
	runPVQ := fc.runPVQ[pli]
	n := 4 << uint(ln)
	n2 := n * n
	bx <<= uint(ln)
	by <<= uint(ln)
	zig := zigzag[ln]
	w := e.frameWidth >> uint(xdec)
	lumaCells := e.frameWidth >> 2
	cPlane := fc.c[pli]
	dPlane := fc.d[pli]
	mcPlane := fc.mc[pli]
	mdPlane := fc.md[pli]
	off := (by << 2) * w + (bx << 2)

	// Transform the MC predictor into the frequency domain for this block.
	if !fc.isKeyframe {
		dsp.FDCT2D[ln](mdPlane[off:], w, mcPlane[off:], w)
	}

	pred := make([]int, n2)
	if fc.isKeyframe {
		if bx > 0 && by > 0 && (pli == 0 || e.chromaFromLuma) {
			if pli == 0 {
				left := extractBlock(dPlane, w, off-n, n)
				upLeft := extractBlock(dPlane, w, off-n*w-n, n)
				up := extractBlock(dPlane, w, off-n*w, n)
				upRight := up
				if hasUR {
					upRight = extractBlock(dPlane, w, off-n*w+n, n)
				}
				mL := int(fc.modes[by*lumaCells+bx-1])
				mUL := int(fc.modes[(by-1)*lumaCells+bx-1])
				mU := int(fc.modes[(by-1)*lumaCells+bx])
				mode := predict.DecodeMode(e.dec, fc.modeCDF, mL, mUL, mU)
				p := predict.Predictor(mode, ln+2, left, upLeft, up, upRight)
				for i := 0; i < n2; i++ {
					pred[i] = int(p[i])
				}
				for y := 0; y < 1<<uint(ln); y++ {
					for x := 0; x < 1<<uint(ln); x++ {
						fc.modes[(by+y)*lumaCells+bx+x] = uint8(mode)
					}
				}
			} else {
				var lumaModes [4]int
				lumaModes[0] = int(fc.modes[(by<<uint(ydec))*lumaCells+(bx<<uint(xdec))])
				lumaModes[1] = int(fc.modes[(by<<uint(ydec))*lumaCells+(bx<<uint(xdec))+xdec])
				lumaModes[2] = int(fc.modes[((by<<uint(ydec))+ydec)*lumaCells+(bx<<uint(xdec))])
				lumaModes[3] = int(fc.modes[((by<<uint(ydec))+ydec)*lumaCells+(bx<<uint(xdec))+xdec])
				dBlk := extractBlock(dPlane, w, off, n)
				lBlk := extractBlock(fc.l[pli], w, off, n)
				p := predict.ChromaFromLuma(lumaModes, dBlk, lBlk, n2)
				for i := 0; i < n2; i++ {
					pred[i] = int(p[i])
				}
			}
		} else {
			// Frame boundary: predict DC from the nearest decoded
			// neighbor, rescaled across any transform-size difference.
			// Neighbor sizes cap at 16: a 32x32 block is coded as four
			// 16x16 bands, each carrying its own DC.
			nsize := ln
			if bx > 0 {
				nsize = clampBandSize(e.bsize.At((bx-1)<<uint(xdec), by<<uint(ydec)) - xdec)
				noff := 1 << uint(nsize)
				pred[0] = int(dPlane[((by&^(noff-1))<<2)*w+((bx-noff)<<2)])
			} else if by > 0 {
				nsize = clampBandSize(e.bsize.At(bx<<uint(xdec), (by-1)<<uint(ydec)) - xdec)
				noff := 1 << uint(nsize)
				pred[0] = int(dPlane[((by-noff)<<2)*w+((bx&^(noff-1))<<2)])
			}
			if nsize > ln {
				pred[0] >>= uint(nsize - ln)
			} else if nsize < ln {
				pred[0] <<= uint(ln - nsize)
			}
			if pli == 0 {
				for y := 0; y < 1<<uint(ln); y++ {
					for x := 0; x < 1<<uint(ln); x++ {
						fc.modes[(by+y)*lumaCells+bx+x] = 0
					}
				}
			}
		}
	} else {
		ci := 0
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				pred[ci] = int(mdPlane[(y+(by<<2))*w+x+(bx<<2)])
				ci++
			}
		}
	}

	predt := make([]int, n2)
	for i := 0; i < n2; i++ {
		predt[zig[i]] = pred[i]
	}

	var vk int
	dcCoded := false
	if !runPVQ {
		scale := e.scale[pli]
		if scale < 1 {
			scale = 1
		}
		pred[0] = pvq.DecodeDCLaplace(e.dec, fc.modelDC[pli], &fc.exDC[pli], scale, predt[0])
		dcCoded = pred[0] != predt[0]
		var ac []int
		ac, vk = pvq.DecodeResidual(e.dec, fc.modelG[pli], &fc.exG[pli], n2-1, scale, predt[1:], &fc.adapt)
		copy(pred[1:], ac)
	} else {
		scale := (e.scale[pli]*transQuantAdjQ15[ln] + (1 << 14)) >> 15
		if scale < 1 {
			scale = 1
		}
		dcMag := e.dec.DecodeGeneric(fc.modelDC[pli], &fc.exDC[pli], 0)
		sgn := 0
		if dcMag != 0 {
			sgn = int(e.dec.DecodeBits(1))
			dcCoded = true
		}
		dc := int(math.Pow(float64(dcMag), 4.0/3)*float64(scale) + 0.5)
		if sgn != 0 {
			dc = -dc
		}
		pred[0] = dc + predt[0]
		qg := e.dec.DecodeGeneric(fc.modelG[pli], &fc.exG[pli], 0)
		if qg != 0 && e.dec.DecodeBits(1) != 0 {
			qg = -qg
		}
		vk = pvq.UnquantK(predt[1:], qg, scale, 4-ln, fc.isKeyframe)
		pred1 := 0
		if vk != 0 {
			exYM := 65536 / 2 * vk
			pred1 = vk - e.dec.DecodeGeneric(fc.modelYM[pli], &exYM, 0)
		}
		y := make([]int, n2-1)
		y[0] = pred1
		nonzero := 0
		if k := vk - dsp.Abs(pred1); k > 0 {
			posCDF := entropy.NewAdaptiveCDF(n2-2, 4)
			pvq.DecodePulses(e.dec, posCDF, y[1:], k)
		}
		for _, v := range y {
			if v != 0 {
				nonzero++
			}
		}
		out := pvq.DequantPVQ(y, predt[1:], nil, n2-1, scale, qg, 4-ln, fc.isKeyframe)
		copy(pred[1:], out)
		fc.adapt.Curr[pvq.AdaptK] = vk << 8
		fc.adapt.Curr[pvq.AdaptSumEx] = fc.exG[pli]
		fc.adapt.Curr[pvq.AdaptCount] = nonzero << 8
		fc.adapt.Curr[pvq.AdaptCountEx] = (n2 - 1) << 8
	}

	if fc.adapt.Curr[pvq.AdaptK] >= 0 {
		fc.stats.ObserveK(fc.adapt.Curr[pvq.AdaptK], fc.adapt.Curr[pvq.AdaptSumEx])
	}
	if fc.adapt.Curr[pvq.AdaptCount] >= 0 {
		fc.stats.ObserveCount(fc.adapt.Curr[pvq.AdaptCount], fc.adapt.Curr[pvq.AdaptCountEx])
	}

	// A block with no coded DC and no pulses reproduced its predictor
	// exactly; the dering pass uses this to avoid re-filtering content
	// that was already filtered in the reference.
	skipVal := uint8(0)
	if !dcCoded && vk == 0 {
		skipVal = 1
	}
	skipStride := w >> 2
	for y := 0; y < 1<<uint(ln); y++ {
		for x := 0; x < 1<<uint(ln); x++ {
			fc.skip[pli][(by+y)*skipStride+bx+x] = skipVal
		}
	}

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dPlane[((by<<2)+y)*w+(bx<<2)+x] = dsp.ClipCoeff(pred[zig[y*n+x]])
		}
	}
	dsp.IDCT2D[ln](cPlane[off:], w, dPlane[off:], w)
}
