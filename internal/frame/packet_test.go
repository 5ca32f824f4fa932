package frame

import (
	"github.com/kyledaala/lact/internal/entropy"
	"github.com/kyledaala/lact/internal/predict"
)

// packetBuilder produces bit-exact test packets by mirroring the engine's
// decode order and adaptive-model state symbol for symbol. It is the
// closest thing this repository has to an encoder: enough of one to feed
// every decode path, nothing more.
type packetBuilder struct {
	enc  *entropy.Encoder
	info *Info

	frameWidth  int
	frameHeight int
	nhsb, nvsb  int

	isKeyframe bool
	scale      [maxPlanes]int
	runPVQ     [maxPlanes]bool

	modelDC [maxPlanes]*entropy.Model
	modelG  [maxPlanes]*entropy.Model
	modelYM [maxPlanes]*entropy.Model
	exDC    [maxPlanes]int
	exG     [maxPlanes]int

	modeCDF *predict.ModeCDF
	modes   []uint8

	// dc[pli] supplies the DC magnitude to code per band, consumed in
	// band order; empty means all-zero.
	dc map[int][]int
}

func newPacketBuilder(info *Info) *packetBuilder {
	frameWidth := (info.PicWidth + sbSize - 1) &^ (sbSize - 1)
	frameHeight := (info.PicHeight + sbSize - 1) &^ (sbSize - 1)
	b := &packetBuilder{
		enc:         entropy.NewEncoder(),
		info:        info,
		frameWidth:  frameWidth,
		frameHeight: frameHeight,
		nhsb:        frameWidth / sbSize,
		nvsb:        frameHeight / sbSize,
		modes:       make([]uint8, (frameWidth>>2)*(frameHeight>>2)),
		dc:          map[int][]int{},
	}
	return b
}

// nextDC pops the next per-band DC magnitude for a plane (zero once the
// scripted values run out).
func (b *packetBuilder) nextDC(pli int) int {
	vals := b.dc[pli]
	if len(vals) == 0 {
		return 0
	}
	v := vals[0]
	b.dc[pli] = vals[1:]
	return v
}

// header emits the framing bits and the all-32x32 block-size stream.
func (b *packetBuilder) header(isKeyframe bool) {
	b.isKeyframe = isKeyframe
	b.enc.EncodeBool(0, 16384)
	kf := 0
	if isKeyframe {
		kf = 1
	}
	b.enc.EncodeBool(kf, 16384)
	// One "leaf" bit per superblock: every block is 32x32.
	for sb := 0; sb < b.nhsb*b.nvsb; sb++ {
		b.enc.EncodeBool(1, splitProb[3])
	}
}

// motionAllZero emits mv_res plus a motion-vector grid whose level-0
// points all carry the zero vector and whose level-1 points are all
// invalid; the gating then keeps levels 2-4 entirely out of the stream.
func (b *packetBuilder) motionAllZero(mvRes int) {
	nhmbs := b.frameWidth >> 4
	nvmbs := b.frameHeight >> 4
	nhmvbs := (nhmbs + 1) << 2
	nvmvbs := (nvmbs + 1) << 2
	b.enc.EncodeUint(uint32(mvRes), 3)
	exQ8 := [5]int{628, 1382, 1879, 2119, 2102}
	eyQ8 := [5]int{230, 525, 807, 1076, 1332}
	for vy := 0; vy <= nvmvbs; vy += 4 {
		for vx := 0; vx <= nhmvbs; vx += 4 {
			b.enc.EncodeUnsignedLaplace(0, exQ8[0]>>uint(mvRes), 0)
			b.enc.EncodeUnsignedLaplace(0, eyQ8[0]>>uint(mvRes), 0)
		}
	}
	// Level 1: every point invalid. The gating probability depends only
	// on the four level-0 corners, which are always valid here.
	for vy := 2; vy <= nvmvbs; vy += 4 {
		for vx := 2; vx <= nhmvbs; vx += 4 {
			b.enc.EncodeBool(0, 28000)
		}
	}
}

// planeHeaders emits per-plane scale and the run_pvq flag where coded.
func (b *packetBuilder) planeHeaders(scales []int, runPVQ []bool) {
	b.modeCDF = predict.NewModeCDF()
	for pli := 0; pli < b.info.NPlanes; pli++ {
		b.modelDC[pli] = entropy.NewModel()
		b.modelG[pli] = entropy.NewModel()
		b.modelYM[pli] = entropy.NewModel()
		if pli > 0 {
			b.exDC[pli] = 8
		} else {
			b.exDC[pli] = 32768
		}
		b.exG[pli] = 8
		b.scale[pli] = scales[pli]
		b.enc.EncodeUint(uint32(scales[pli]), 512)
		if scales[pli] > 0 {
			b.runPVQ[pli] = runPVQ[pli]
			bit := 0
			if runPVQ[pli] {
				bit = 1
			}
			b.enc.EncodeBool(bit, 16384)
		}
	}
}

// band emits one transform band's payload: optional intra mode, DC, and
// an empty (or scripted-DC-only) coefficient vector.
func (b *packetBuilder) band(pli, bx, by int) {
	lumaCells := b.frameWidth >> 2
	if b.isKeyframe && pli == 0 {
		// Band coordinates arrive in 16x16 units; cell units are <<2.
		cx := bx << 2
		cy := by << 2
		if cx > 0 && cy > 0 {
			mL := int(b.modes[cy*lumaCells+cx-1])
			mUL := int(b.modes[(cy-1)*lumaCells+cx-1])
			mU := int(b.modes[(cy-1)*lumaCells+cx])
			predict.EncodeMode(b.enc, b.modeCDF, 0, mL, mUL, mU)
		}
		// The engine records the decoded (or fallback) mode for every
		// covered cell; all-zero modes stay all zero.
	}
	dcMag := b.nextDC(pli)
	if !b.runPVQ[pli] {
		b.enc.EncodeGeneric(dcMag, b.modelDC[pli], &b.exDC[pli], 0)
		if dcMag != 0 {
			b.enc.EncodeBits(0, 1) // positive
		}
		b.enc.EncodeGeneric(0, b.modelG[pli], &b.exG[pli], 0) // vk = 0
	} else {
		b.enc.EncodeGeneric(dcMag, b.modelDC[pli], &b.exDC[pli], 0)
		if dcMag != 0 {
			b.enc.EncodeBits(0, 1)
		}
		b.enc.EncodeGeneric(0, b.modelG[pli], &b.exG[pli], 0) // qg = 0
		// qg == 0 on a keyframe gives vk == 0: no theta, no pulses.
	}
}

// blocks emits every band of every superblock in the engine's traversal
// order, assuming the all-32x32 block-size map header() encoded.
func (b *packetBuilder) blocks() {
	for sby := 0; sby < b.nvsb; sby++ {
		for sbx := 0; sbx < b.nhsb; sbx++ {
			for pli := 0; pli < b.info.NPlanes; pli++ {
				xdec := b.info.Planes[pli].Xdec
				if xdec == 0 {
					// A 32x32 leaf decodes as four 16x16 bands in the
					// fixed child order.
					b.band(pli, 2*sbx, 2*sby)
					b.band(pli, 2*sbx+1, 2*sby)
					b.band(pli, 2*sbx, 2*sby+1)
					b.band(pli, 2*sbx+1, 2*sby+1)
				} else {
					// Subsampled: the whole superblock is one 16x16 band.
					b.band(pli, sbx, sby)
				}
			}
		}
	}
}

func (b *packetBuilder) finish() []byte {
	return b.enc.Finish()
}

// buildFlatKeyframe assembles a keyframe packet whose every coefficient
// decodes to zero (or to the scripted DC magnitudes), with the given
// per-plane scales.
func buildFlatKeyframe(info *Info, scales []int, runPVQ []bool) []byte {
	b := newPacketBuilder(info)
	b.header(true)
	b.planeHeaders(scales, runPVQ)
	b.blocks()
	return b.finish()
}

// buildZeroMVInter assembles an inter packet with an all-zero motion
// field and no coded residual.
func buildZeroMVInter(info *Info, mvRes int, scales []int) []byte {
	b := newPacketBuilder(info)
	b.header(false)
	b.motionAllZero(mvRes)
	b.planeHeaders(scales, make([]bool, len(scales)))
	b.blocks()
	return b.finish()
}
