package frame

import "github.com/kyledaala/lact/internal/dsp"

// Dering pass, applied per plane at superblock granularity after the
// postfilter: a bordered working buffer (three samples of context, the
// very-large sentinel outside the frame so border taps never pass the
// threshold), a per-8x8 direction search on luma with chroma reusing
// luma's directions, variance-driven per-block thresholds, and skip-mask
// gating that zeroes the threshold where the block and its lapped
// surround coded nothing.

// deringSuperblock filters one superblock of plane pli in place.
// lumaDirs is the 4x4 grid of directions found for the co-located luma
// superblock (filled when pli == 0, read otherwise).
func (e *Engine) deringSuperblock(fc *frameCtx, pli, sbx, sby int, lumaDirs *[4][4]int) {
	xdec := e.info.Planes[pli].Xdec
	w := e.frameWidth >> uint(xdec)
	h := e.frameHeight >> uint(xdec)
	c := fc.c[pli]
	skip := fc.skip[pli]
	skipStride := w >> 2
	n := sbSize >> uint(xdec)
	nb := n >> 3 // 8x8 blocks per superblock side
	x0 := sbx * n
	y0 := sby * n

	threshold := dsp.QuantizerDeringThreshold(e.scale[pli])
	if threshold == 0 {
		return
	}

	// Bordered working copy of the superblock plus three samples of
	// context on every side; out-of-frame positions get the sentinel.
	inStride := n + 2*dsp.FiltBorder
	in := make([]int16, inStride*inStride)
	inBase := dsp.FiltBorder*inStride + dsp.FiltBorder
	for i := -dsp.FiltBorder; i < n+dsp.FiltBorder; i++ {
		for j := -dsp.FiltBorder; j < n+dsp.FiltBorder; j++ {
			py := y0 + i
			px := x0 + j
			if py < 0 || py >= h || px < 0 || px >= w {
				in[inBase+i*inStride+j] = dsp.DeringVeryLarge
			} else {
				in[inBase+i*inStride+j] = c[py*w+px]
			}
		}
	}

	var dir [4][4]int
	var variance [4][4]int32
	var thresh [4][4]int
	if pli == 0 {
		var varsum int32
		for by := 0; by < nb; by++ {
			for bx := 0; bx < nb; bx++ {
				d, v := dsp.DirFind8(c, (y0+8*by)*w+x0+8*bx, w)
				dir[by][bx] = d
				variance[by][bx] = v
				varsum += v
			}
		}
		for by := 0; by < nb; by++ {
			for bx := 0; bx < nb; bx++ {
				thresh[by][bx] = dsp.ComputeThresh(threshold, variance[by][bx], varsum, n)
			}
		}
		*lumaDirs = dir
	} else {
		for by := 0; by < nb; by++ {
			for bx := 0; bx < nb; bx++ {
				ly := by << uint(e.info.Planes[pli].Ydec)
				lx := bx << uint(xdec)
				if ly > 3 {
					ly = 3
				}
				if lx > 3 {
					lx = 3
				}
				dir[by][bx] = lumaDirs[ly][lx]
				thresh[by][bx] = threshold
			}
		}
	}

	// Skip gating: zero the threshold when the block and the 4x4-cell
	// surround the lapping pulls in (3x3 at subsampled chroma) are all
	// skipped, so content the reference already carried clean is not
	// filtered again.
	win := 3 - xdec
	for by := 0; by < nb; by++ {
		for bx := 0; bx < nb; bx++ {
			cellX := (x0 >> 2) + (bx << 1 >> uint(xdec))
			cellY := (y0 >> 2) + (by << 1 >> uint(xdec))
			allSkip := true
			for i := -1; i < win && allSkip; i++ {
				for j := -1; j < win; j++ {
					cy := cellY + i
					cx := cellX + j
					if cy < 0 || cy >= (h>>2) || cx < 0 || cx >= skipStride {
						continue
					}
					if skip[cy*skipStride+cx] == 0 {
						allSkip = false
						break
					}
				}
			}
			if allSkip {
				thresh[by][bx] = 0
			}
		}
	}

	// Directional pass over every 8x8 block of the superblock.
	tmp := make([]int16, n*n)
	for by := 0; by < nb; by++ {
		for bx := 0; bx < nb; bx++ {
			dsp.FilterDeringDirection(tmp, 8*by*n+8*bx, n,
				in, inBase+8*by*inStride+8*bx, inStride, 3, thresh[by][bx], dir[by][bx])
		}
	}

	// Refresh the working buffer's interior with the directional output;
	// the border context keeps its pre-pass values (neighbor superblocks
	// are filtered on their own iteration).
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			in[inBase+i*inStride+j] = tmp[i*n+j]
		}
	}

	// Orthogonal pass, thresholded against how far the directional pass
	// already moved each sample from its pre-dering value.
	for by := 0; by < nb; by++ {
		for bx := 0; bx < nb; bx++ {
			dsp.FilterDeringOrthogonal(tmp, 8*by*n+8*bx, n,
				in, inBase+8*by*inStride+8*bx, inStride,
				c, (y0+8*by)*w+x0+8*bx, w, 3, thresh[by][bx], dir[by][bx])
		}
	}
	for i := 0; i < n; i++ {
		copy(c[(y0+i)*w+x0:(y0+i)*w+x0+n], tmp[i*n:(i+1)*n])
	}
}

// applyDering runs the dering pass over every plane, luma first so the
// chroma planes can reuse the luma direction map.
func (e *Engine) applyDering(fc *frameCtx) {
	dirs := make([][4][4]int, e.nhsb*e.nvsb)
	for pli := 0; pli < e.info.NPlanes; pli++ {
		for sby := 0; sby < e.nvsb; sby++ {
			for sbx := 0; sbx < e.nhsb; sbx++ {
				e.deringSuperblock(fc, pli, sbx, sby, &dirs[sby*e.nhsb+sbx])
			}
		}
	}
}
