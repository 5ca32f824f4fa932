package frame

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kyledaala/lact/internal/blocksize"
	"github.com/kyledaala/lact/internal/dsp"
	"github.com/kyledaala/lact/internal/entropy"
	"github.com/kyledaala/lact/internal/mv"
	"github.com/kyledaala/lact/internal/pool"
	"github.com/kyledaala/lact/internal/predict"
	"github.com/kyledaala/lact/internal/pvq"
)

// packetState tracks the engine lifecycle: empty until the first packet,
// data while packets flow, done once an end-of-stream packet arrives.
type packetState int

const (
	stateEmpty packetState = iota
	stateData
	stateDone
)

// Packet is one compressed frame plus its end-of-stream marker; how
// packets are framed on the wire is the container's concern, not this
// package's.
type Packet struct {
	Data        []byte
	EndOfStream bool
}

// Setup carries the optional collaborators and switches an engine is
// constructed with. The zero value selects the defaults: built-in
// bilinear motion compensation, lapped postfilter, no dering, no logging,
// chroma-from-luma enabled.
type Setup struct {
	// MC overrides the motion-compensation collaborator.
	MC MotionCompensator
	// Logger receives per-packet diagnostics. When nil and LogFile is
	// set, a rotated JSON file logger is built instead; when both are
	// unset the engine does not log.
	Logger *zap.Logger
	// LogFile is the path for the fallback rotated log.
	LogFile string
	// Postfilter selects the reconstruction-side filter strategy.
	Postfilter PostfilterStrategy
	// UseDering enables the directional dering pass.
	UseDering bool
	// DisableChromaFromLuma turns off the chroma-from-luma predictor;
	// the chroma planes then use the boundary DC predictor everywhere.
	// Must match the encoder's setting.
	DisableChromaFromLuma bool
}

// splitProb[level] is the probability that a quad-tree node at the given
// level is a leaf (not split further); level 0 nodes are always leaves.
var splitProb = []uint16{0, 16384, 16384, 16384}

// Engine decodes a stream of packets into reconstructed frames. One
// engine serves one stream; all state is per-engine (global tables are
// immutable), and nothing is persisted across engines.
type Engine struct {
	info        Info
	frameWidth  int
	frameHeight int
	nhsb, nvsb  int
	nhmvbs      int
	nvmvbs      int

	state packetState
	dec   *entropy.Decoder
	bsize *blocksize.Grid
	ring  *refRing
	mc    MotionCompensator

	scale    [maxPlanes]int
	adaptRow [maxPlanes]*pvq.RowContext
	mvRes    int
	mvGrid   *mv.Grid

	chromaFromLuma bool
	postfilter     PostfilterStrategy
	useDering      bool

	frameCount int64
	log        *zap.Logger
}

// frameCtx is the per-packet working set: the coefficient-plane arena,
// the intra mode map, per-plane skip masks and the adaptive models that
// are re-initialized every frame. Stream-lifetime state lives on Engine;
// everything here dies with the packet.
type frameCtx struct {
	isKeyframe bool

	modelDC [maxPlanes]*entropy.Model
	modelG  [maxPlanes]*entropy.Model
	modelYM [maxPlanes]*entropy.Model
	exDC    [maxPlanes]int
	exG     [maxPlanes]int
	runPVQ  [maxPlanes]bool

	adapt   pvq.Context
	stats   *pvq.BlockStats
	modeCDF *predict.ModeCDF
	modes   []uint8

	c    [maxPlanes][]int16
	d    [maxPlanes][]int16
	mc   [maxPlanes][]int16
	md   [maxPlanes][]int16
	l    [maxPlanes][]int16
	ownL [maxPlanes]bool
	skip [maxPlanes][]uint8
}

// Alloc constructs an engine for the described stream, or fails with
// ErrFault when info is missing or not a 4:4:4/4:2:0 layout this decoder
// handles.
func Alloc(info *Info, setup *Setup) (*Engine, error) {
	if info == nil {
		return nil, ErrFault
	}
	if !info.valid() {
		return nil, ErrFault
	}
	if setup == nil {
		setup = &Setup{}
	}
	frameWidth := (info.PicWidth + sbSize - 1) &^ (sbSize - 1)
	frameHeight := (info.PicHeight + sbSize - 1) &^ (sbSize - 1)
	nhsb := frameWidth / sbSize
	nvsb := frameHeight / sbSize
	nhmbs := frameWidth >> 4
	nvmbs := frameHeight >> 4

	e := &Engine{
		info:        *info,
		frameWidth:  frameWidth,
		frameHeight: frameHeight,
		nhsb:        nhsb,
		nvsb:        nvsb,
		nhmvbs:      (nhmbs + 1) << 2,
		nvmvbs:      (nvmbs + 1) << 2,
		dec:         entropy.NewDecoder(nil),
		bsize:       blocksize.NewGrid(nhsb, nvsb),
		ring:        newRefRing(frameWidth, frameHeight, info),
		mc:          setup.MC,
		chromaFromLuma: !setup.DisableChromaFromLuma,
		postfilter:     setup.Postfilter,
		useDering:      setup.UseDering,
	}
	if e.mc == nil {
		e.mc = BilinearMC{}
	}
	e.log = buildLogger(setup)
	e.log.Info("engine allocated",
		zap.Int("pic_width", info.PicWidth),
		zap.Int("pic_height", info.PicHeight),
		zap.Int("nplanes", info.NPlanes),
	)
	return e, nil
}

func buildLogger(setup *Setup) *zap.Logger {
	logger := setup.Logger
	if logger == nil && setup.LogFile != "" {
		ws := zapcore.AddSync(&lumberjack.Logger{
			Filename:   setup.LogFile,
			MaxSize:    32, // MB
			MaxBackups: 3,
		})
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		logger = zap.New(zapcore.NewCore(enc, ws, zapcore.InfoLevel))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("session", uuid.NewString()))
}

// Free releases the engine. Kept for API symmetry with Alloc; buffers are
// garbage-collected once the caller drops its Image references.
func (e *Engine) Free() {
	if e == nil {
		return
	}
	_ = e.log.Sync()
}

// Ctl handles control-plane requests. No requests are currently defined.
func (e *Engine) Ctl(req int, buf []byte) error {
	if e == nil {
		return ErrFault
	}
	return ErrUnimplemented
}

// FrameCount reports how many frames have been decoded.
func (e *Engine) FrameCount() int64 { return e.frameCount }

// RefIndices exposes the current (self, prev, gold) ring indices; tests
// use it to verify the ring-disjointness invariant.
func (e *Engine) RefIndices() (self, prev, gold int) {
	return e.ring.idx[refSelf], e.ring.idx[refPrev], e.ring.idx[refGold]
}

func (fc *frameCtx) release(nplanes int) {
	for pli := 0; pli < nplanes; pli++ {
		pool.PutInt16(fc.c[pli])
		pool.PutInt16(fc.d[pli])
		pool.PutInt16(fc.mc[pli])
		pool.PutInt16(fc.md[pli])
		if fc.ownL[pli] {
			pool.PutInt16(fc.l[pli])
		}
		pool.Put(fc.skip[pli])
	}
	pool.Put(fc.modes)
}

// DecodePacketIn decodes one packet. On success img is populated with a
// borrowed view into the reference ring, valid until the next call. On
// any failure the packet is discarded whole: the new reference slot is
// only written as the final step, so the previously committed frame
// survives a bad packet.
func (e *Engine) DecodePacketIn(img *Image, pkt *Packet) error {
	if e == nil || img == nil || pkt == nil || pkt.Data == nil {
		return ErrFault
	}
	if e.state == stateDone {
		return ErrInvalidState
	}
	e.state = stateData
	if pkt.EndOfStream {
		e.state = stateDone
	}

	e.dec.Init(pkt.Data)
	if e.dec.DecodeBool(16384) != 0 {
		e.log.Warn("packet type bit set, rejecting packet")
		return ErrBadPacket
	}
	isKeyframe := e.dec.DecodeBool(16384) != 0
	if !isKeyframe && e.ring.prev() == nil && e.ring.idx[refSelf] < 0 {
		e.log.Warn("inter frame with no reference")
		return ErrBadPacket
	}
	e.ring.advance()

	// Block-size quad-tree for the whole frame.
	e.bsize.InitBorder()
	for sby := 0; sby < e.nvsb; sby++ {
		for sbx := 0; sbx < e.nhsb; sbx++ {
			e.bsize.DecodeSuperblock(e.dec, splitProb, sbx, sby)
		}
	}
	if e.dec.EOF() {
		return ErrBadPacket
	}

	fc := &frameCtx{isKeyframe: isKeyframe}
	nplanes := e.info.NPlanes
	for pli := 0; pli < nplanes; pli++ {
		xdec := e.info.Planes[pli].Xdec
		ydec := e.info.Planes[pli].Ydec
		w := e.frameWidth >> uint(xdec)
		h := e.frameHeight >> uint(ydec)
		fc.c[pli] = pool.GetInt16(w * h)
		fc.d[pli] = pool.GetInt16(w * h)
		fc.mc[pli] = pool.GetInt16(w * h)
		fc.md[pli] = pool.GetInt16(w * h)
		fc.skip[pli] = pool.Get((w >> 2) * (h >> 2))
		for i := range fc.skip[pli] {
			fc.skip[pli][i] = 0
		}
	}
	lumaCells := (e.frameWidth >> 2) * (e.frameHeight >> 2)
	fc.modes = pool.Get(lumaCells)
	for i := range fc.modes {
		fc.modes[i] = 0
	}
	defer fc.release(nplanes)

	// Motion: resolution, grid, compensated prediction, prefilter.
	if !isKeyframe {
		e.mvRes = int(e.dec.DecodeUint(3))
		width := (e.frameWidth + 32) << uint(3-e.mvRes)
		height := (e.frameHeight + 32) << uint(3-e.mvRes)
		e.mvGrid = mv.DecodeAll(e.dec, e.nhmvbs, e.nvmvbs, e.mvRes, width, height)
		if e.dec.EOF() {
			return ErrBadPacket
		}
		prev := e.ring.prev()
		for pli := 0; pli < nplanes; pli++ {
			xdec := e.info.Planes[pli].Xdec
			w := e.frameWidth >> uint(xdec)
			h := e.frameHeight >> uint(xdec)
			e.mc.Predict(fc.mc[pli], w, h, &prev.Planes[pli], e.mvGrid, e.mvRes)
		}
		for pli := 0; pli < nplanes; pli++ {
			e.applyPrefilter(fc.mc[pli], e.info.Planes[pli].Xdec)
		}
	}

	// Per-plane models, quantizer scale, coding-path flag.
	fc.modeCDF = predict.NewModeCDF()
	for pli := 0; pli < nplanes; pli++ {
		fc.modelDC[pli] = entropy.NewModel()
		fc.modelG[pli] = entropy.NewModel()
		fc.modelYM[pli] = entropy.NewModel()
		if pli > 0 {
			fc.exDC[pli] = 8
		} else {
			fc.exDC[pli] = 32768
		}
		fc.exG[pli] = 8
		e.scale[pli] = int(e.dec.DecodeUint(512))
		fc.runPVQ[pli] = e.scale[pli] > 0 && e.dec.DecodeBool(16384) != 0
		e.adaptRow[pli] = pvq.NewRowContext()
	}
	if e.dec.EOF() {
		return ErrBadPacket
	}

	// Chroma planes predict from a luma-frequency buffer; subsampled
	// planes get their own (shared when two planes subsample alike),
	// full-resolution chroma reads the luma plane's d buffer directly.
	for pli := 1; pli < nplanes; pli++ {
		xdec := e.info.Planes[pli].Xdec
		ydec := e.info.Planes[pli].Ydec
		if xdec == 0 && ydec == 0 {
			fc.l[pli] = fc.d[0]
			continue
		}
		for plj := 1; plj < pli; plj++ {
			if e.info.Planes[plj].Xdec == xdec && e.info.Planes[plj].Ydec == ydec && fc.l[plj] != nil {
				fc.l[pli] = fc.l[plj]
				break
			}
		}
		if fc.l[pli] == nil {
			w := e.frameWidth >> uint(xdec)
			h := e.frameHeight >> uint(ydec)
			fc.l[pli] = pool.GetInt16(w * h)
			fc.ownL[pli] = true
		}
	}

	// Superblock raster scan. Inside a superblock the planes run in
	// order, luma first, so every chroma read of the luma-frequency
	// buffer happens after the producer wrote it.
	for sby := 0; sby < e.nvsb; sby++ {
		var hmean [maxPlanes]pvq.HMeanContext
		for sbx := 0; sbx < e.nhsb; sbx++ {
			for pli := 0; pli < nplanes; pli++ {
				if fc.ownL[pli] {
					e.resampleLumaSB(fc, pli, sbx, sby)
				}
				e.adaptRow[pli].Seed(&fc.adapt)
				stats := &pvq.BlockStats{}
				fc.stats = stats
				e.decodeBlock(fc, pli, sbx, sby, 3, sby > 0 && sbx < e.nhsb-1)
				stats.Finalize(&fc.adapt)
				hmean[pli].Observe(&fc.adapt)
			}
		}
		for pli := 0; pli < nplanes; pli++ {
			e.adaptRow[pli].PromoteRow(&hmean[pli])
		}
	}
	if e.dec.EOF() {
		e.log.Warn("packet underflow during block decode")
		return ErrBadPacket
	}

	// Reconstruction-side filtering.
	for pli := 0; pli < nplanes; pli++ {
		xdec := e.info.Planes[pli].Xdec
		if e.postfilter == PostfilterDeblock {
			e.applyDeblock(fc.c[pli], fc.skip[pli], xdec, e.scale[pli])
		} else {
			e.applyPostfilter(fc.c[pli], xdec)
		}
	}
	if e.useDering {
		e.applyDering(fc)
	}

	// Commit: clamp into the selected reference slot. This is the only
	// write to the ring, kept last so a failed packet never damages the
	// committed reference.
	self := e.ring.self()
	for pli := 0; pli < nplanes; pli++ {
		plane := &self.Planes[pli]
		w := plane.Width
		h := plane.Height
		src := fc.c[pli]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				plane.Data[y*plane.Stride+x] = dsp.Clip8(int(src[y*w+x]) + 128)
			}
		}
	}

	img.Width = e.info.PicWidth
	img.Height = e.info.PicHeight
	img.Planes = make([]Plane, nplanes)
	for pli := 0; pli < nplanes; pli++ {
		p := self.Planes[pli]
		p.Width = e.info.PicWidth >> uint(p.Xdec)
		p.Height = e.info.PicHeight >> uint(p.Ydec)
		img.Planes[pli] = p
	}

	e.frameCount++
	e.log.Info("frame decoded",
		zap.Int64("frame", e.frameCount),
		zap.Bool("keyframe", isKeyframe),
		zap.Int("ref_self", e.ring.idx[refSelf]),
		zap.Int("ref_prev", e.ring.idx[refPrev]),
		zap.Int("ref_gold", e.ring.idx[refGold]),
	)
	return nil
}

// resampleLumaSB refreshes the subsampled luma-frequency buffer for the
// superblock about to decode on a subsampled chroma plane: a frequency-
// domain 2:1 decimation of each co-located luma block.
func (e *Engine) resampleLumaSB(fc *frameCtx, pli, sbx, sby int) {
	xdec := e.info.Planes[pli].Xdec
	ydec := e.info.Planes[pli].Ydec
	w := e.frameWidth >> uint(xdec)
	lw := e.frameWidth
	l := fc.l[pli]
	d0 := fc.d[0]
	for by := sby << uint(3-ydec); by < (sby+1)<<uint(3-ydec); by++ {
		for bx := sbx << uint(3-xdec); bx < (sbx+1)<<uint(3-xdec); bx++ {
			// Chroma 4x4 frequency block from the low-frequency quadrant
			// of the co-located luma region, halved to compensate the
			// transform gain of the size change.
			dst := (by << 2) * w + (bx << 2)
			src := (by << uint(2+ydec)) * lw + (bx << uint(2+xdec))
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					l[dst+y*w+x] = d0[src+y*lw+x] >> 1
				}
			}
		}
	}
}
