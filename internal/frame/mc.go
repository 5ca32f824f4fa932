package frame

import "github.com/kyledaala/lact/internal/mv"

// MotionCompensator fills a plane-sized predictor from the previous
// reference frame and the decoded motion-vector grid. The engine treats
// it as an external collaborator: callers may supply their own through
// Setup, and the engine only depends on this contract.
//
// dst is the mc coefficient plane (w x h signed samples centered on zero);
// ref is the matching plane of the previous reference; mvRes is the
// decoded motion resolution for the frame.
type MotionCompensator interface {
	Predict(dst []int16, w, h int, ref *Plane, grid *mv.Grid, mvRes int)
}

// BilinearMC is the default MotionCompensator: per-pixel lookup of the
// nearest valid grid vector and eighth-pel bilinear sampling of the
// reference plane. Callers with a full overlapped-MC implementation plug
// it in through Setup; this one is exact for the zero-vector case the
// engine's own tests exercise.
type BilinearMC struct{}

func (BilinearMC) Predict(dst []int16, w, h int, ref *Plane, grid *mv.Grid, mvRes int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Grid units are four full-resolution pixels.
			fullX := x << uint(ref.Xdec)
			fullY := y << uint(ref.Ydec)
			pt := grid.Lookup((fullX+2)>>2, (fullY+2)>>2)
			// Vectors are eighth-pel at full resolution; fold the plane's
			// subsampling into the fractional position.
			px8 := (x << 3) + (pt.MVX >> uint(ref.Xdec))
			py8 := (y << 3) + (pt.MVY >> uint(ref.Ydec))
			dst[y*w+x] = int16(sampleEighthPel(ref, px8, py8)) - 128
		}
	}
}

// sampleEighthPel bilinearly interpolates ref at eighth-pel position
// (px8, py8), clamping to the plane edges.
func sampleEighthPel(ref *Plane, px8, py8 int) int {
	x0 := px8 >> 3
	y0 := py8 >> 3
	fx := px8 & 7
	fy := py8 & 7
	c00 := int(refAt(ref, x0, y0))
	c10 := int(refAt(ref, x0+1, y0))
	c01 := int(refAt(ref, x0, y0+1))
	c11 := int(refAt(ref, x0+1, y0+1))
	top := c00*(8-fx) + c10*fx
	bot := c01*(8-fx) + c11*fx
	return (top*(8-fy) + bot*fy + 32) >> 6
}

func refAt(ref *Plane, x, y int) byte {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= ref.Width {
		x = ref.Width - 1
	}
	if y >= ref.Height {
		y = ref.Height - 1
	}
	return ref.Data[y*ref.Stride+x]
}
